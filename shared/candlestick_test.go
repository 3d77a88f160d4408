package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestFetchSentiment(t *testing.T) {
	tests := []struct {
		name   string
		candle Candlestick
		want   Sentiment
	}{
		{
			name:   "bullish candle",
			candle: Candlestick{Open: 10, Close: 12},
			want:   Bullish,
		},
		{
			name:   "bearish candle",
			candle: Candlestick{Open: 12, Close: 10},
			want:   Bearish,
		},
		{
			name:   "neutral candle",
			candle: Candlestick{Open: 10, Close: 10},
			want:   Neutral,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.candle.FetchSentiment(), test.want)
		})
	}
}

func TestSentimentString(t *testing.T) {
	assert.Equal(t, Neutral.String(), "neutral")
	assert.Equal(t, Bullish.String(), "bullish")
	assert.Equal(t, Bearish.String(), "bearish")
	assert.Equal(t, Sentiment(999).String(), "unknown")
}

func TestNewSignal(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Ensure the signal constructor carries all fields through.
	signal := NewSignal("ETHUSDT", ThreeMinute, Long, 3000, 2950, now, 60, 54)
	assert.Equal(t, signal.Market, "ETHUSDT")
	assert.Equal(t, signal.Timeframe, ThreeMinute)
	assert.Equal(t, signal.Direction, Long)
	assert.Equal(t, signal.Price, float64(3000))
	assert.Equal(t, signal.StopLoss, float64(2950))
	assert.Equal(t, signal.CreatedOn, now)
	assert.Equal(t, signal.SourceIndex, 60)
	assert.Equal(t, signal.OrderBlockIndex, 54)
}
