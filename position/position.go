package position

import (
	"fmt"
	"time"

	"github.com/dnldd/papertrade/shared"
	"github.com/google/uuid"
)

const (
	// trailingStopFactor is the fraction of the stop loss distance used for
	// the trailing stop.
	trailingStopFactor = 0.75
)

// Position represents the single open market position owned by the engine.
type Position struct {
	ID        string
	Market    string
	Timeframe shared.Timeframe
	Direction shared.Direction
	// EntryPrice is the raw signal trigger price.
	EntryPrice float64
	// AdjEntryPrice is the entry price after slippage.
	AdjEntryPrice float64
	EntryTime     time.Time
	// EntryCapital is the capital allocated when the position was opened.
	EntryCapital float64
	// Size is the position size in units of the traded asset.
	Size float64
	// StopLoss is the current stop loss price. It ratchets in the favourable
	// direction only.
	StopLoss float64
	// StopLossPct is the stop loss distance as a fraction of the entry price.
	StopLossPct float64
	// TrailingStopPct is the trailing stop distance as a fraction of price.
	TrailingStopPct float64
	// EntryCommission is the commission paid on entry.
	EntryCommission float64
}

// NewPosition initializes a new position from the provided signal, applying
// entry slippage and commission against the provided capital.
func NewPosition(signal *shared.Signal, timestamp time.Time, capital float64,
	slippage float64, commission float64) (*Position, error) {
	if signal == nil {
		return nil, fmt.Errorf("signal cannot be nil")
	}

	var adjEntryPrice, stopLossPct float64
	switch signal.Direction {
	case shared.Long:
		adjEntryPrice = signal.Price * (1 + slippage)
		if adjEntryPrice <= signal.StopLoss {
			return nil, fmt.Errorf("degenerate long signal: entry %f does not exceed stop loss %f",
				adjEntryPrice, signal.StopLoss)
		}
		stopLossPct = (adjEntryPrice - signal.StopLoss) / adjEntryPrice
	case shared.Short:
		adjEntryPrice = signal.Price * (1 - slippage)
		if adjEntryPrice >= signal.StopLoss {
			return nil, fmt.Errorf("degenerate short signal: entry %f is not below stop loss %f",
				adjEntryPrice, signal.StopLoss)
		}
		stopLossPct = (signal.StopLoss - adjEntryPrice) / adjEntryPrice
	default:
		return nil, fmt.Errorf("unknown direction for signal: %s", signal.Direction.String())
	}

	// Full capital, unleveraged sizing.
	size := capital / adjEntryPrice
	entryCommission := size * adjEntryPrice * commission

	pos := &Position{
		ID:              uuid.New().String(),
		Market:          signal.Market,
		Timeframe:       signal.Timeframe,
		Direction:       signal.Direction,
		EntryPrice:      signal.Price,
		AdjEntryPrice:   adjEntryPrice,
		EntryTime:       timestamp,
		EntryCapital:    capital,
		Size:            size,
		StopLoss:        signal.StopLoss,
		StopLossPct:     stopLossPct,
		TrailingStopPct: stopLossPct * trailingStopFactor,
		EntryCommission: entryCommission,
	}

	return pos, nil
}

// UpdateTrailingStop ratchets the stop loss in the favourable direction using
// the provided price. The stop never loosens.
func (p *Position) UpdateTrailingStop(currentPrice float64) {
	switch p.Direction {
	case shared.Long:
		trailPrice := currentPrice * (1 - p.TrailingStopPct)
		if trailPrice > p.StopLoss {
			p.StopLoss = trailPrice
		}
	case shared.Short:
		trailPrice := currentPrice * (1 + p.TrailingStopPct)
		if trailPrice < p.StopLoss {
			p.StopLoss = trailPrice
		}
	}
}

// StopLossBreached reports whether the provided price has crossed the
// position's stop loss.
func (p *Position) StopLossBreached(currentPrice float64) bool {
	switch p.Direction {
	case shared.Long:
		return currentPrice <= p.StopLoss
	case shared.Short:
		return currentPrice >= p.StopLoss
	default:
		return false
	}
}

// returnMultiplier computes the return multiplier for exiting the position at
// the provided slippage-adjusted exit price.
func (p *Position) returnMultiplier(adjExitPrice float64) float64 {
	switch p.Direction {
	case shared.Long:
		return adjExitPrice / p.AdjEntryPrice
	default:
		return p.AdjEntryPrice / adjExitPrice
	}
}
