package shared

import "time"

// Sentiment represents the candlestick sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Candlestick represents a unit candlestick for a market.
type Candlestick struct {
	Open   float64
	Low    float64
	High   float64
	Close  float64
	Volume float64
	Date   time.Time

	// Metadata fields.
	Market    string
	Timeframe Timeframe
}

// FetchSentiment returns the provided candlestick's sentiment.
func (c *Candlestick) FetchSentiment() Sentiment {
	sentiment := c.Close - c.Open
	switch {
	case sentiment < 0:
		return Bearish
	case sentiment > 0:
		return Bullish
	default:
		return Neutral
	}
}
