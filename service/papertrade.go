// Package service wires the market data feed, the simulation core, the
// database and the notification channel into the paper trading service.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dnldd/papertrade/database"
	"github.com/dnldd/papertrade/equity"
	"github.com/dnldd/papertrade/fetch"
	"github.com/dnldd/papertrade/forward"
	"github.com/dnldd/papertrade/notify"
	"github.com/dnldd/papertrade/position"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/dnldd/papertrade/shared"
)

// PaperTraderConfig represents the configuration struct for the paper trading
// service.
type PaperTraderConfig struct {
	// Market is the traded market symbol.
	Market string
	// Timeframe is the candle timeframe.
	Timeframe shared.Timeframe
	// InitialCapital is the starting virtual capital.
	InitialCapital float64
	// Slippage is the slippage rate applied to entries and exits.
	Slippage float64
	// Commission is the commission rate applied to entries and exits.
	Commission float64
	// EMASpan is the smoothing span of the equity curve filter.
	EMASpan int
	// Sensitivity is the percent change band a signal must cross.
	Sensitivity float64
	// MinVolumePercentile is the minimum volume percentile for a valid signal.
	MinVolumePercentile float64
	// TrendPeriod is the window for the short trend average.
	TrendPeriod int
	// MinSignalDistance is the minimum number of candles between signals.
	MinSignalDistance int
	// HistoricalDays is the number of days of history used for bootstrap.
	HistoricalDays int
	// DatabaseEndpoint is the rqlite connection endpoint. Persistence is
	// disabled when empty.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// TelegramToken is the telegram bot token. Notifications fall back to the
	// log when empty.
	TelegramToken string
	// TelegramChatID is the telegram chat id.
	TelegramChatID int64
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config sane inputs.
func (cfg *PaperTraderConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("no market provided for paper trading service"))
	}
	if cfg.HistoricalDays <= 0 {
		errs = errors.Join(errs, fmt.Errorf("historical days must be positive, got %d", cfg.HistoricalDays))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// PaperTrader represents the paper trading service.
type PaperTrader struct {
	cfg          *PaperTraderConfig
	fetchManager *fetch.Manager
	tester       *forward.Tester
	db           *database.Database
	notifier     notify.Notifier
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// NewPaperTrader initializes a new paper trading service.
func NewPaperTrader(ctx context.Context, cfg *PaperTraderConfig) (*PaperTrader, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating paper trader config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "papertrade").Logger()

	binance := fetch.NewBinanceClient(&fetch.BinanceConfig{BaseURL: fetch.BaseURL})

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		Market:         cfg.Market,
		Timeframe:      cfg.Timeframe,
		ExchangeClient: binance,
		Logger:         &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %w", err)
	}

	var db *database.Database
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %w", err)
		}
	} else {
		logger.Info().Msg("no database endpoint configured, persistence disabled")
	}

	var notifier notify.Notifier
	if cfg.TelegramToken != "" {
		telegramLogger := logger.With().Str("component", "telegram").Logger()
		notifier, err = notify.NewTelegramNotifier(&notify.TelegramConfig{
			Token:  cfg.TelegramToken,
			ChatID: cfg.TelegramChatID,
			Logger: &telegramLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating telegram notifier: %w", err)
		}
	} else {
		notifyLogger := logger.With().Str("component", "notify").Logger()
		notifier = notify.NewLogNotifier(&notifyLogger)
	}

	persistTradeFunc := func(trade *position.Trade) error {
		if db == nil {
			return nil
		}
		return db.PersistClosedTrade(ctx, trade)
	}

	persistEquityFunc := func(point *equity.Point) error {
		if db == nil {
			return nil
		}
		return db.PersistEquityPoint(ctx, cfg.Market, point)
	}

	testerLogger := logger.With().Str("component", "forwardtester").Logger()
	tester, err := forward.NewTester(&forward.TesterConfig{
		Market:              cfg.Market,
		Timeframe:           cfg.Timeframe,
		InitialCapital:      cfg.InitialCapital,
		Slippage:            cfg.Slippage,
		Commission:          cfg.Commission,
		EMASpan:             cfg.EMASpan,
		Sensitivity:         cfg.Sensitivity,
		MinVolumePercentile: cfg.MinVolumePercentile,
		TrendPeriod:         cfg.TrendPeriod,
		MinSignalDistance:   cfg.MinSignalDistance,
		Subscribe:           fetchMgr.Subscribe,
		Notify:              notifier.Send,
		PersistClosedTrade:  persistTradeFunc,
		PersistEquityPoint:  persistEquityFunc,
		Logger:              &testerLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating forward tester: %w", err)
	}

	service := &PaperTrader{
		cfg:          cfg,
		fetchManager: fetchMgr,
		tester:       tester,
		db:           db,
		notifier:     notifier,
		logger:       &logger,
	}

	return service, nil
}

// Run handles the lifecycle processes of the paper trading service.
func (p *PaperTrader) Run(ctx context.Context) {
	// Bootstrap before consuming live updates so the equity history and
	// indicator state are seeded. Live candles arriving during bootstrap are
	// buffered by the subscription channel and deduplicated by timestamp.
	batch, err := p.fetchManager.CatchUp(ctx, p.cfg.HistoricalDays)
	if err != nil {
		p.logger.Error().Msgf("catching up on historical data: %v", err)
		p.cfg.Cancel()
		return
	}

	err = p.tester.Bootstrap(batch)
	if err != nil {
		p.logger.Error().Msgf("bootstrapping forward tester: %v", err)
		p.cfg.Cancel()
		return
	}

	p.notifier.Send(fmt.Sprintf("Forward test started for %s (%s), initial capital %.2f",
		p.cfg.Market, p.cfg.Timeframe.String(), p.cfg.InitialCapital))

	p.wg.Add(2)

	go func() {
		err := p.fetchManager.Run(ctx)
		if err != nil {
			p.logger.Error().Msgf("running fetch manager: %v", err)
		}
		p.wg.Done()
	}()

	go func() {
		p.tester.Run(ctx)
		p.wg.Done()
	}()

	p.wg.Wait()
}
