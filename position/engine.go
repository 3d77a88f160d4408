// Package position owns the lifecycle of the simulation's single market
// position: entry with slippage and commission costs, trailing stop
// management and conversion of closed positions into trade records.
package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/papertrade/shared"
	"github.com/rs/zerolog"
)

// EngineConfig represents the position engine configuration.
type EngineConfig struct {
	// InitialCapital is the starting virtual capital.
	InitialCapital float64
	// Slippage is the slippage rate applied to entries and exits.
	Slippage float64
	// Commission is the commission rate applied to entries and exits.
	Commission float64
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.InitialCapital <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial capital must be positive, got %f", cfg.InitialCapital))
	}
	if cfg.Slippage < 0 {
		errs = errors.Join(errs, fmt.Errorf("slippage cannot be negative, got %f", cfg.Slippage))
	}
	if cfg.Commission < 0 {
		errs = errors.Join(errs, fmt.Errorf("commission cannot be negative, got %f", cfg.Commission))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Engine manages virtual capital and at most one open position at a time.
// It has a single logical writer; all mutation happens through OpenPosition,
// UpdatePosition and ClosePosition.
type Engine struct {
	cfg      *EngineConfig
	capital  float64
	position *Position
	trades   []*Trade
}

// NewEngine initializes a new position engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating engine config: %w", err)
	}

	return &Engine{
		cfg:     cfg,
		capital: cfg.InitialCapital,
	}, nil
}

// Capital returns the engine's realized capital.
func (e *Engine) Capital() float64 {
	return e.capital
}

// HasPosition reports whether a position is currently open.
func (e *Engine) HasPosition() bool {
	return e.position != nil
}

// Position returns the currently open position, or nil.
func (e *Engine) Position() *Position {
	return e.position
}

// Trades returns the ledger of closed trades.
func (e *Engine) Trades() []*Trade {
	return e.trades
}

// OpenPosition opens a new position from the provided signal. Opening while a
// position is already open, or from a signal whose adjusted entry does not
// bracket its stop loss, is rejected without mutating engine state.
func (e *Engine) OpenPosition(signal *shared.Signal, timestamp time.Time) (*Position, error) {
	if e.position != nil {
		return nil, fmt.Errorf("cannot open position: one is already open (%s)", e.position.ID)
	}

	pos, err := NewPosition(signal, timestamp, e.capital, e.cfg.Slippage, e.cfg.Commission)
	if err != nil {
		return nil, err
	}

	// The entry commission is deducted from capital immediately.
	e.capital -= pos.EntryCommission
	e.position = pos

	e.cfg.Logger.Info().Msgf("opened %s position (%s) for %s @ %.2f with stop loss %.2f",
		pos.Direction.String(), pos.ID, pos.Market, pos.AdjEntryPrice, pos.StopLoss)

	return pos, nil
}

// UpdatePosition ratchets the trailing stop with the provided price and closes
// the position if the stop is breached. It returns the resulting trade when a
// close occurs, and nil when the position survives or none is open.
func (e *Engine) UpdatePosition(currentPrice float64, timestamp time.Time) (*Trade, error) {
	if e.position == nil {
		return nil, nil
	}

	e.position.UpdateTrailingStop(currentPrice)

	if e.position.StopLossBreached(currentPrice) {
		return e.ClosePosition(e.position.StopLoss, timestamp, shared.StopLossHit)
	}

	return nil, nil
}

// ClosePosition closes the open position at the provided exit price, applying
// exit slippage and commission regardless of the exit reason. Closing while
// flat is an error and leaves engine state unchanged.
func (e *Engine) ClosePosition(exitPrice float64, timestamp time.Time, reason shared.ExitReason) (*Trade, error) {
	if e.position == nil {
		return nil, fmt.Errorf("cannot close position: none is open")
	}

	pos := e.position

	var adjExitPrice float64
	switch pos.Direction {
	case shared.Long:
		adjExitPrice = exitPrice * (1 - e.cfg.Slippage)
	case shared.Short:
		adjExitPrice = exitPrice * (1 + e.cfg.Slippage)
	}

	returnMultiplier := pos.returnMultiplier(adjExitPrice)
	capitalAfterMove := pos.EntryCapital * returnMultiplier
	exitCommission := pos.Size * adjExitPrice * e.cfg.Commission
	finalCapital := capitalAfterMove - exitCommission
	pnl := finalCapital - pos.EntryCapital

	trade := &Trade{
		ID:              pos.ID,
		Market:          pos.Market,
		Timeframe:       pos.Timeframe,
		Direction:       pos.Direction,
		EntryPrice:      pos.EntryPrice,
		AdjEntryPrice:   pos.AdjEntryPrice,
		EntryTime:       pos.EntryTime,
		EntryCapital:    pos.EntryCapital,
		Size:            pos.Size,
		StopLoss:        pos.StopLoss,
		EntryCommission: pos.EntryCommission,
		ExitPrice:       adjExitPrice,
		ExitTime:        timestamp,
		ExitCapital:     finalCapital,
		PNL:             pnl,
		ReturnPct:       pnl / pos.EntryCapital * 100,
		Commission:      pos.EntryCommission + exitCommission,
		ExitReason:      reason,
	}

	e.capital = finalCapital
	e.trades = append(e.trades, trade)
	e.position = nil

	e.cfg.Logger.Info().Msgf("closed %s position (%s) for %s @ %.2f (%s), pnl %.2f (%.2f%%)",
		trade.Direction.String(), trade.ID, trade.Market, trade.ExitPrice,
		trade.ExitReason.String(), trade.PNL, trade.ReturnPct)

	return trade, nil
}

// CurrentEquity returns the engine's equity at the provided price: realized
// capital while flat, otherwise the mark-to-market value of the open position
// net of the entry commission already paid. Exit commission is not subtracted
// since no exit has occurred.
func (e *Engine) CurrentEquity(currentPrice float64) float64 {
	if e.position == nil {
		return e.capital
	}

	pos := e.position

	var unrealizedExitPrice float64
	switch pos.Direction {
	case shared.Long:
		unrealizedExitPrice = currentPrice * (1 - e.cfg.Slippage)
	case shared.Short:
		unrealizedExitPrice = currentPrice * (1 + e.cfg.Slippage)
	}

	return pos.EntryCapital*pos.returnMultiplier(unrealizedExitPrice) - pos.EntryCommission
}

// Stats summarizes the engine's trade ledger.
func (e *Engine) Stats() Stats {
	stats := Stats{
		TotalTrades:    len(e.trades),
		CurrentCapital: e.capital,
		TotalReturn:    (e.capital - e.cfg.InitialCapital) / e.cfg.InitialCapital * 100,
	}

	var winSum, lossSum float64
	for _, trade := range e.trades {
		stats.TotalCommission += trade.Commission
		switch {
		case trade.PNL > 0:
			stats.Wins++
			winSum += trade.PNL
		case trade.PNL < 0:
			stats.Losses++
			lossSum += trade.PNL
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalTrades) * 100
	}
	if stats.Wins > 0 {
		stats.AvgWin = winSum / float64(stats.Wins)
	}
	if stats.Losses > 0 {
		stats.AvgLoss = lossSum / float64(stats.Losses)
	}

	return stats
}
