package position

import (
	"time"

	"github.com/dnldd/papertrade/shared"
)

// Trade represents the immutable record of a closed position. Trades are
// appended to the engine's ledger and never mutated after emission.
type Trade struct {
	ID        string
	Market    string
	Timeframe shared.Timeframe
	Direction shared.Direction
	// Entry details, carried over from the closed position.
	EntryPrice      float64
	AdjEntryPrice   float64
	EntryTime       time.Time
	EntryCapital    float64
	Size            float64
	StopLoss        float64
	EntryCommission float64
	// Exit details.
	ExitPrice   float64
	ExitTime    time.Time
	ExitCapital float64
	PNL         float64
	ReturnPct   float64
	// Commission is the total commission paid across entry and exit.
	Commission float64
	ExitReason shared.ExitReason
}

// Stats summarizes the performance of a trade ledger.
type Stats struct {
	TotalTrades     int
	Wins            int
	Losses          int
	WinRate         float64
	AvgWin          float64
	AvgLoss         float64
	TotalReturn     float64
	CurrentCapital  float64
	TotalCommission float64
}
