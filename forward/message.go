package forward

import (
	"fmt"
	"strings"

	"github.com/dnldd/papertrade/position"
	"github.com/dnldd/papertrade/shared"
)

// formatSignalMessage renders a detected signal with its equity filter
// context for notifications.
func formatSignalMessage(signal *shared.Signal, currentEquity float64, ema float64,
	hasEMA bool, allowed bool) string {
	b := &strings.Builder{}

	fmt.Fprintf(b, "Signal detected: %s %s @ %.2f, stop loss %.2f\n",
		strings.ToUpper(signal.Direction.String()), signal.Market, signal.Price, signal.StopLoss)
	fmt.Fprintf(b, "Equity: %.2f\n", currentEquity)

	switch {
	case !hasEMA:
		b.WriteString("Filter: pass (not enough data for ema)")
	case allowed:
		fmt.Fprintf(b, "EMA: %.2f\nFilter: pass (equity above ema)", ema)
	default:
		fmt.Fprintf(b, "EMA: %.2f\nFilter: skip (equity below ema)", ema)
	}

	return b.String()
}

// formatPositionOpenedMessage renders an opened position for notifications.
func formatPositionOpenedMessage(pos *position.Position) string {
	return fmt.Sprintf("Opened %s position (%s) for %s @ %.2f, stop loss %.2f, size %.6f",
		pos.Direction.String(), pos.ID, pos.Market, pos.AdjEntryPrice, pos.StopLoss, pos.Size)
}

// formatPositionClosedMessage renders a closed trade for notifications.
func formatPositionClosedMessage(trade *position.Trade) string {
	return fmt.Sprintf("Closed %s position (%s) for %s @ %.2f (%s), pnl %.2f (%.2f%%), commission %.4f",
		trade.Direction.String(), trade.ID, trade.Market, trade.ExitPrice,
		trade.ExitReason.String(), trade.PNL, trade.ReturnPct, trade.Commission)
}

// formatSummaryMessage renders a periodic performance summary.
func formatSummaryMessage(stats position.Stats, currentEquity float64, ema float64, hasEMA bool) string {
	b := &strings.Builder{}

	b.WriteString("Daily summary\n")
	fmt.Fprintf(b, "Capital: %.2f | Equity: %.2f\n", stats.CurrentCapital, currentEquity)
	if hasEMA {
		fmt.Fprintf(b, "Equity EMA: %.2f\n", ema)
	}
	fmt.Fprintf(b, "Trades: %d | Wins: %d | Losses: %d | Win rate: %.1f%%\n",
		stats.TotalTrades, stats.Wins, stats.Losses, stats.WinRate)
	fmt.Fprintf(b, "Total return: %.2f%% | Commission paid: %.4f",
		stats.TotalReturn, stats.TotalCommission)

	return b.String()
}

// formatShutdownMessage renders the final statistics sent on shutdown.
func formatShutdownMessage(market string, stats position.Stats) string {
	return fmt.Sprintf("Shutting down forward test for %s. Final capital: %.2f, total return: %.2f%%, trades: %d, win rate: %.1f%%",
		market, stats.CurrentCapital, stats.TotalReturn, stats.TotalTrades, stats.WinRate)
}
