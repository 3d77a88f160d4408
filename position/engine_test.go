package position

import (
	"testing"
	"time"

	"github.com/dnldd/papertrade/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

func newTestEngine(t *testing.T, capital float64, slippage float64, commission float64) *Engine {
	t.Helper()

	engine, err := NewEngine(&EngineConfig{
		InitialCapital: capital,
		Slippage:       slippage,
		Commission:     commission,
		Logger:         &log.Logger,
	})
	assert.NoError(t, err)

	return engine
}

func longSignal(price float64, stopLoss float64) *shared.Signal {
	return shared.NewSignal("ETHUSDT", shared.ThreeMinute, shared.Long, price, stopLoss,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 60, 54)
}

func shortSignal(price float64, stopLoss float64) *shared.Signal {
	return shared.NewSignal("ETHUSDT", shared.ThreeMinute, shared.Short, price, stopLoss,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 60, 54)
}

func TestEngineConfigValidate(t *testing.T) {
	// Ensure non-positive capital, negative rates and a missing logger are
	// rejected.
	engineCfg := &EngineConfig{InitialCapital: -1, Slippage: -0.1, Commission: -0.1}
	assert.Error(t, engineCfg.Validate())

	engineCfg = &EngineConfig{InitialCapital: 100, Logger: &log.Logger}
	assert.NoError(t, engineCfg.Validate())
}

func TestOpenAndCloseLongPosition(t *testing.T) {
	engine := newTestEngine(t, 100, 0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Ensure a frictionless long uses full capital sizing.
	pos, err := engine.OpenPosition(longSignal(3000, 2950), now)
	assert.NoError(t, err)
	assert.Equal(t, pos.AdjEntryPrice, float64(3000))
	assert.Equal(t, pos.Size, 100.0/3000.0)
	assert.Equal(t, pos.StopLoss, float64(2950))
	assert.Equal(t, pos.EntryCommission, float64(0))
	assert.True(t, engine.HasPosition())

	// Ensure a manual close at a higher price realizes the expected profit.
	trade, err := engine.ClosePosition(3050, now.Add(time.Hour), shared.ManualExit)
	assert.NoError(t, err)

	wantCapital := 100 * (3050.0 / 3000.0)
	assert.Equal(t, trade.ExitCapital, wantCapital)
	assert.Equal(t, trade.PNL, wantCapital-100)
	assert.Equal(t, trade.ExitReason, shared.ManualExit)
	assert.Equal(t, engine.Capital(), wantCapital)
	assert.False(t, engine.HasPosition())
}

func TestCloseShortPosition(t *testing.T) {
	engine := newTestEngine(t, 100, 0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.OpenPosition(shortSignal(3000, 3050), now)
	assert.NoError(t, err)

	// Ensure a short profits when price falls.
	trade, err := engine.ClosePosition(2900, now.Add(time.Hour), shared.ManualExit)
	assert.NoError(t, err)

	wantCapital := 100 * (3000.0 / 2900.0)
	assert.Equal(t, trade.ExitCapital, wantCapital)
	assert.True(t, trade.PNL > 0)
}

func TestPositionCosts(t *testing.T) {
	const (
		slippage   = 0.0005
		commission = 0.0006
	)

	engine := newTestEngine(t, 100, slippage, commission)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Ensure entry slippage worsens the fill and the entry commission is
	// deducted from capital immediately.
	pos, err := engine.OpenPosition(longSignal(3000, 2950), now)
	assert.NoError(t, err)

	wantEntry := 3000 * (1 + slippage)
	wantEntryCommission := (100 / wantEntry) * wantEntry * commission
	assert.Equal(t, pos.AdjEntryPrice, wantEntry)
	assert.Equal(t, pos.EntryCommission, wantEntryCommission)
	assert.Equal(t, engine.Capital(), 100-wantEntryCommission)

	// Ensure exit slippage and commission are charged on close.
	trade, err := engine.ClosePosition(3050, now.Add(time.Hour), shared.ManualExit)
	assert.NoError(t, err)

	wantExit := 3050 * (1 - slippage)
	wantExitCommission := pos.Size * wantExit * commission
	wantCapital := 100*(wantExit/wantEntry) - wantExitCommission
	assert.Equal(t, trade.ExitPrice, wantExit)
	assert.Equal(t, trade.ExitCapital, wantCapital)
	assert.Equal(t, trade.Commission, wantEntryCommission+wantExitCommission)
	assert.Equal(t, engine.Capital(), wantCapital)
}

func TestSinglePositionInvariant(t *testing.T) {
	engine := newTestEngine(t, 100, 0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Ensure opening while a position is open is rejected without mutating
	// engine state.
	_, err := engine.OpenPosition(longSignal(3000, 2950), now)
	assert.NoError(t, err)

	_, err = engine.OpenPosition(longSignal(3100, 3050), now)
	assert.Error(t, err)
	assert.Equal(t, engine.Position().EntryPrice, float64(3000))

	// Ensure closing while flat is rejected.
	_, err = engine.ClosePosition(3050, now, shared.ManualExit)
	assert.NoError(t, err)

	_, err = engine.ClosePosition(3100, now, shared.ManualExit)
	assert.Error(t, err)
}

func TestDegenerateSignalRejected(t *testing.T) {
	engine := newTestEngine(t, 100, 0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Ensure a long whose stop loss sits above its entry is rejected, and a
	// short whose stop loss sits below its entry likewise.
	_, err := engine.OpenPosition(longSignal(3000, 3100), now)
	assert.Error(t, err)
	assert.False(t, engine.HasPosition())

	_, err = engine.OpenPosition(shortSignal(3000, 2900), now)
	assert.Error(t, err)
	assert.False(t, engine.HasPosition())
}

func TestTrailingStop(t *testing.T) {
	engine := newTestEngine(t, 100, 0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	pos, err := engine.OpenPosition(longSignal(3000, 2950), now)
	assert.NoError(t, err)

	wantTrailingPct := (50.0 / 3000.0) * 0.75
	assert.Equal(t, pos.TrailingStopPct, wantTrailingPct)

	// Ensure a favourable move ratchets the stop upward.
	trade, err := engine.UpdatePosition(3100, now.Add(time.Hour))
	assert.NoError(t, err)
	assert.Nil(t, trade)

	raisedStop := 3100 * (1 - wantTrailingPct)
	assert.Equal(t, pos.StopLoss, raisedStop)

	// Ensure a pullback that stays above the stop never loosens it.
	trade, err = engine.UpdatePosition(3080, now.Add(2*time.Hour))
	assert.NoError(t, err)
	assert.Nil(t, trade)
	assert.Equal(t, pos.StopLoss, raisedStop)

	// Ensure a breach closes the position at the stop price.
	trade, err = engine.UpdatePosition(3050, now.Add(3*time.Hour))
	assert.NoError(t, err)
	assert.NotNil(t, trade)
	assert.Equal(t, trade.ExitPrice, raisedStop)
	assert.Equal(t, trade.ExitReason, shared.StopLossHit)
	assert.True(t, trade.PNL > 0)
	assert.False(t, engine.HasPosition())
}

func TestUpdateWhileFlat(t *testing.T) {
	engine := newTestEngine(t, 100, 0, 0)

	// Ensure updates while flat are no-ops.
	trade, err := engine.UpdatePosition(3000, time.Now())
	assert.NoError(t, err)
	assert.Nil(t, trade)
}

func TestCurrentEquity(t *testing.T) {
	engine := newTestEngine(t, 100, 0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Ensure equity equals realized capital while flat.
	assert.Equal(t, engine.CurrentEquity(3000), float64(100))

	_, err := engine.OpenPosition(longSignal(3000, 2950), now)
	assert.NoError(t, err)

	// Ensure equity marks the open position to the provided price.
	assert.Equal(t, engine.CurrentEquity(3050), 100*(3050.0/3000.0))
	assert.Equal(t, engine.CurrentEquity(2980), 100*(2980.0/3000.0))
}

func TestStats(t *testing.T) {
	engine := newTestEngine(t, 100, 0, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.OpenPosition(longSignal(3000, 2950), now)
	assert.NoError(t, err)
	winner, err := engine.ClosePosition(3050, now.Add(time.Hour), shared.ManualExit)
	assert.NoError(t, err)

	_, err = engine.OpenPosition(longSignal(3050, 3000), now.Add(2*time.Hour))
	assert.NoError(t, err)
	loser, err := engine.ClosePosition(3000, now.Add(3*time.Hour), shared.StopLossHit)
	assert.NoError(t, err)

	stats := engine.Stats()
	assert.Equal(t, stats.TotalTrades, 2)
	assert.Equal(t, stats.Wins, 1)
	assert.Equal(t, stats.Losses, 1)
	assert.Equal(t, stats.WinRate, float64(50))
	assert.Equal(t, stats.AvgWin, winner.PNL)
	assert.Equal(t, stats.AvgLoss, loser.PNL)
	assert.Equal(t, stats.CurrentCapital, engine.Capital())
	assert.Equal(t, stats.TotalReturn, (engine.Capital()-100)/100*100)
}
