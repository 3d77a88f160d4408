// Package forward orchestrates the simulation core over a historical
// bootstrap batch and a live candle stream, with identical per-step semantics
// in both modes.
package forward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/papertrade/equity"
	"github.com/dnldd/papertrade/indicator"
	"github.com/dnldd/papertrade/position"
	"github.com/dnldd/papertrade/shared"
	"github.com/dnldd/papertrade/strategy"
	"github.com/rs/zerolog"
)

const (
	// bufferSize is the default buffer size for channels.
	bufferSize = 64
)

// TesterConfig represents the forward tester configuration.
type TesterConfig struct {
	// Market is the name of the traded market.
	Market string
	// Timeframe is the timeframe of the processed candles.
	Timeframe shared.Timeframe
	// InitialCapital is the starting virtual capital.
	InitialCapital float64
	// Slippage is the slippage rate applied to entries and exits.
	Slippage float64
	// Commission is the commission rate applied to entries and exits.
	Commission float64
	// EMASpan is the smoothing span of the equity curve filter.
	EMASpan int
	// Sensitivity is the percent change band a signal must cross.
	Sensitivity float64
	// MinVolumePercentile is the minimum volume percentile for a valid signal.
	MinVolumePercentile float64
	// TrendPeriod is the window for the short trend average.
	TrendPeriod int
	// MinSignalDistance is the minimum number of candles between signals.
	MinSignalDistance int
	// Subscribe registers the provided subscriber for market updates.
	Subscribe func(sub *chan shared.Candlestick)
	// Notify sends the provided message.
	Notify func(message string)
	// PersistClosedTrade persists the provided closed trade.
	PersistClosedTrade func(trade *position.Trade) error
	// PersistEquityPoint persists the provided equity point.
	PersistEquityPoint func(point *equity.Point) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *TesterConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.Notify == nil {
		errs = errors.Join(errs, fmt.Errorf("notify function cannot be nil"))
	}
	if cfg.PersistClosedTrade == nil {
		errs = errors.Join(errs, fmt.Errorf("persist closed trade function cannot be nil"))
	}
	if cfg.PersistEquityPoint == nil {
		errs = errors.Join(errs, fmt.Errorf("persist equity point function cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Tester drives the indicator series, the signal detector, the position
// engine and the equity curve through bootstrap and live operation. All state
// mutation happens on the single goroutine driving Bootstrap, ProcessCandle
// and Run.
type Tester struct {
	cfg            *TesterConfig
	candles        []shared.Candlestick
	series         *indicator.Series
	detector       *strategy.Detector
	engine         *position.Engine
	curve          *equity.Curve
	lastCandleTime time.Time
	lastSummaryDay time.Time
	updateSignals  chan shared.Candlestick
}

// NewTester initializes a new forward tester.
func NewTester(cfg *TesterConfig) (*Tester, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating tester config: %w", err)
	}

	series, err := indicator.NewSeries(&indicator.SeriesConfig{
		Market:      cfg.Market,
		TrendPeriod: cfg.TrendPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("creating indicator series: %w", err)
	}

	detector, err := strategy.NewDetector(&strategy.DetectorConfig{
		Market:              cfg.Market,
		Timeframe:           cfg.Timeframe,
		Sensitivity:         cfg.Sensitivity,
		MinVolumePercentile: cfg.MinVolumePercentile,
		MinSignalDistance:   cfg.MinSignalDistance,
		Logger:              cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}

	engine, err := position.NewEngine(&position.EngineConfig{
		InitialCapital: cfg.InitialCapital,
		Slippage:       cfg.Slippage,
		Commission:     cfg.Commission,
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating position engine: %w", err)
	}

	curve, err := equity.NewCurve(&equity.CurveConfig{Span: cfg.EMASpan})
	if err != nil {
		return nil, fmt.Errorf("creating equity curve: %w", err)
	}

	tester := &Tester{
		cfg:           cfg,
		series:        series,
		detector:      detector,
		engine:        engine,
		curve:         curve,
		updateSignals: make(chan shared.Candlestick, bufferSize),
	}

	if cfg.Subscribe != nil {
		cfg.Subscribe(&tester.updateSignals)
	}

	return tester, nil
}

// Engine returns the tester's position engine.
func (t *Tester) Engine() *position.Engine {
	return t.engine
}

// Curve returns the tester's equity curve.
func (t *Tester) Curve() *equity.Curve {
	return t.curve
}

// Series returns the tester's indicator series.
func (t *Tester) Series() *indicator.Series {
	return t.series
}

// append accepts the provided candle into the tester's series.
func (t *Tester) append(candle *shared.Candlestick) {
	t.candles = append(t.candles, *candle)
	t.series.Update(candle)
	t.lastCandleTime = candle.Date
}

// step runs one full simulation step for the candle at the provided index:
// position update, signal detection, then equity recording. Live mode
// enforces the equity regime filter before opening; bootstrap bypasses it so
// the equity history can build organically.
func (t *Tester) step(idx int, live bool) {
	candle := &t.candles[idx]
	price := candle.Close
	timestamp := candle.Date

	if t.engine.HasPosition() {
		trade, err := t.engine.UpdatePosition(price, timestamp)
		if err != nil {
			t.cfg.Logger.Error().Msgf("updating position: %v", err)
		}
		if trade != nil {
			t.recordClosedTrade(trade, live)
		}
	}

	if !t.engine.HasPosition() {
		signal := t.detector.Detect(t.candles, t.series, idx)
		if signal != nil {
			t.handleSignal(signal, price, timestamp, live)
		}
	}

	point := t.curve.Record(timestamp, t.engine.CurrentEquity(price))
	err := t.cfg.PersistEquityPoint(&point)
	if err != nil {
		t.cfg.Logger.Error().Msgf("persisting equity point: %v", err)
	}

	if live {
		t.maybeSendDailySummary(timestamp, price)
	}
}

// handleSignal processes a detected signal, applying the equity regime filter
// in live mode before opening a position.
func (t *Tester) handleSignal(signal *shared.Signal, price float64, timestamp time.Time, live bool) {
	allowed := true

	if live {
		currentEquity := t.engine.CurrentEquity(price)
		allowed = t.curve.ShouldTrade(currentEquity)
		ema, hasEMA := t.curve.EMA()

		t.cfg.Notify(formatSignalMessage(signal, currentEquity, ema, hasEMA, allowed))

		if !allowed {
			t.cfg.Logger.Info().Msgf("skipping %s signal for %s: equity %.2f below ema %.2f",
				signal.Direction.String(), signal.Market, currentEquity, ema)
			return
		}
	}

	pos, err := t.engine.OpenPosition(signal, timestamp)
	if err != nil {
		// Degenerate or conflicting signals are discarded without mutating
		// engine state.
		t.cfg.Logger.Warn().Msgf("discarding %s signal for %s: %v",
			signal.Direction.String(), signal.Market, err)
		return
	}

	if live {
		t.cfg.Notify(formatPositionOpenedMessage(pos))
	}
}

// recordClosedTrade persists and reports the provided closed trade.
func (t *Tester) recordClosedTrade(trade *position.Trade, live bool) {
	err := t.cfg.PersistClosedTrade(trade)
	if err != nil {
		t.cfg.Logger.Error().Msgf("persisting closed trade: %v", err)
	}

	if live {
		t.cfg.Notify(formatPositionClosedMessage(trade))
	}
}

// maybeSendDailySummary sends a performance summary once per calendar day.
func (t *Tester) maybeSendDailySummary(timestamp time.Time, price float64) {
	day := timestamp.UTC().Truncate(time.Hour * 24)
	if !day.After(t.lastSummaryDay) {
		return
	}

	t.lastSummaryDay = day

	stats := t.engine.Stats()
	ema, hasEMA := t.curve.EMA()
	t.cfg.Notify(formatSummaryMessage(stats, t.engine.CurrentEquity(price), ema, hasEMA))
}

// Bootstrap processes the provided historical batch: the indicator series is
// built over the full batch, then each index from the warm-up point runs the
// same step sequence as live operation with the equity gate bypassed.
func (t *Tester) Bootstrap(candles []shared.Candlestick) error {
	if len(candles) == 0 {
		return fmt.Errorf("no candles provided for bootstrap")
	}

	for idx := range candles {
		t.append(&candles[idx])
	}

	for idx := strategy.WarmupPeriod; idx < len(t.candles); idx++ {
		t.step(idx, false)
	}

	ema, hasEMA := t.curve.EMA()
	event := t.cfg.Logger.Info().
		Int("equityPoints", t.curve.Len()).
		Float64("capital", t.engine.Capital())
	if hasEMA {
		event = event.Float64("ema", ema)
	}
	event.Msgf("bootstrap complete for %s", t.cfg.Market)

	return nil
}

// ProcessCandle runs one live step for the provided candle. Candles that are
// not strictly newer than the last accepted candle are ignored.
func (t *Tester) ProcessCandle(candle *shared.Candlestick) error {
	if !candle.Date.After(t.lastCandleTime) {
		t.cfg.Logger.Debug().Msgf("ignoring stale candle for %s at %s",
			candle.Market, candle.Date.Format(shared.DateLayout))
		return nil
	}

	t.append(candle)
	t.step(len(t.candles)-1, true)

	return nil
}

// Shutdown closes any open position at the last seen price and reports final
// statistics.
func (t *Tester) Shutdown() {
	if t.engine.HasPosition() && len(t.candles) > 0 {
		last := t.candles[len(t.candles)-1]
		trade, err := t.engine.ClosePosition(last.Close, last.Date, shared.ShutdownExit)
		if err != nil {
			t.cfg.Logger.Error().Msgf("closing position on shutdown: %v", err)
		}
		if trade != nil {
			t.recordClosedTrade(trade, true)
		}
	}

	t.cfg.Notify(formatShutdownMessage(t.cfg.Market, t.engine.Stats()))
}

// Run consumes live market updates until the provided context is cancelled.
// All candle processing happens on this single goroutine, preserving the
// engine's single writer discipline.
func (t *Tester) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.Shutdown()
			return
		case candle := <-t.updateSignals:
			err := t.ProcessCandle(&candle)
			if err != nil {
				t.cfg.Logger.Error().Msgf("processing candle: %v", err)
			}
		}
	}
}
