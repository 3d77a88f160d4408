package shared

import "time"

const (
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	ThreeMinute Timeframe = iota
	FiveMinute
	OneHour
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case ThreeMinute:
		return "3m"
	case FiveMinute:
		return "5m"
	case OneHour:
		return "1h"
	default:
		return "unknown"
	}
}

// Duration returns the candle period covered by the provided timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case ThreeMinute:
		return time.Minute * 3
	case FiveMinute:
		return time.Minute * 5
	case OneHour:
		return time.Hour
	default:
		return 0
	}
}

// ParseTimeframe parses a timeframe from the provided string.
func ParseTimeframe(timeframe string) (Timeframe, bool) {
	switch timeframe {
	case "3m":
		return ThreeMinute, true
	case "5m":
		return FiveMinute, true
	case "1h":
		return OneHour, true
	default:
		return ThreeMinute, false
	}
}
