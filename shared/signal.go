package shared

import "time"

// Signal represents a detected entry opportunity for a market.
type Signal struct {
	Market    string
	Timeframe Timeframe
	Direction Direction
	// Price is the raw trigger price, before slippage adjustments.
	Price float64
	// StopLoss is the stop loss price derived from the signal's order block.
	StopLoss float64
	CreatedOn time.Time
	// SourceIndex is the candle index the signal fired at.
	SourceIndex int
	// OrderBlockIndex is the candle index of the order block backing the signal.
	OrderBlockIndex int
}

// NewSignal initializes a new signal.
func NewSignal(market string, timeframe Timeframe, direction Direction, price float64,
	stopLoss float64, created time.Time, sourceIdx int, orderBlockIdx int) *Signal {
	return &Signal{
		Market:          market,
		Timeframe:       timeframe,
		Direction:       direction,
		Price:           price,
		StopLoss:        stopLoss,
		CreatedOn:       created,
		SourceIndex:     sourceIdx,
		OrderBlockIndex: orderBlockIdx,
	}
}
