package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dnldd/papertrade/service"
	"github.com/dnldd/papertrade/shared"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	timeframe, ok := shared.ParseTimeframe(cfg.Timeframe)
	if !ok {
		log.Printf("unknown timeframe: %s", cfg.Timeframe)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traderCfg := service.PaperTraderConfig{
		Market:              cfg.Market,
		Timeframe:           timeframe,
		InitialCapital:      cfg.InitialCapital,
		Slippage:            cfg.Slippage,
		Commission:          cfg.Commission,
		EMASpan:             cfg.EMASpan,
		Sensitivity:         cfg.Sensitivity,
		MinVolumePercentile: cfg.MinVolumePercentile,
		TrendPeriod:         cfg.TrendPeriod,
		MinSignalDistance:   cfg.MinSignalDistance,
		HistoricalDays:      cfg.HistoricalDays,
		DatabaseEndpoint:    cfg.DatabaseEndpoint,
		DatabaseUser:        cfg.DatabaseUser,
		DatabasePass:        cfg.DatabasePass,
		TelegramToken:       cfg.TelegramToken,
		TelegramChatID:      cfg.TelegramChatID,
		Cancel:              cancel,
	}
	trader, err := service.NewPaperTrader(ctx, &traderCfg)
	if err != nil {
		log.Printf("creating paper trading service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	trader.Run(ctx)
}
