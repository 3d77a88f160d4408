package shared

import (
	"context"
	"time"
)

// MarketFetcher defines the requirements for fetching market data.
type MarketFetcher interface {
	// FetchHistorical fetches historical candles for the provided market
	// starting at the provided time.
	FetchHistorical(ctx context.Context, market string, timeframe Timeframe, start time.Time) ([]Candlestick, error)
	// FetchLatest fetches the most recent closed candle for the provided market.
	FetchLatest(ctx context.Context, market string, timeframe Timeframe) (*Candlestick, error)
}
