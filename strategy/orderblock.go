// Package strategy implements order block detection with trend, volume and
// volatility filtering over a causal indicator series.
package strategy

import (
	"errors"
	"fmt"

	"github.com/dnldd/papertrade/indicator"
	"github.com/dnldd/papertrade/shared"
	"github.com/rs/zerolog"
)

const (
	// WarmupPeriod is the minimum number of candles required before signal
	// evaluation can begin.
	WarmupPeriod = 50
	// orderBlockScanStart is the offset (from the signal candle) where the
	// backward order block scan begins.
	orderBlockScanStart = 4
	// orderBlockScanEnd is the offset (from the signal candle) where the
	// backward order block scan ends, inclusive.
	orderBlockScanEnd = 16
	// maxVolatilityRatio is the maximum tolerated ratio of the current ATR to
	// its expanding mean.
	maxVolatilityRatio = 1.5
)

// DetectorConfig represents the order block detector configuration.
type DetectorConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Timeframe is the timeframe of the evaluated candles.
	Timeframe shared.Timeframe
	// Sensitivity is the percent change band a signal must cross.
	Sensitivity float64
	// MinVolumePercentile is the minimum volume percentile for a valid signal.
	MinVolumePercentile float64
	// MinSignalDistance is the minimum number of candles between signals.
	MinSignalDistance int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *DetectorConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.Sensitivity <= 0 {
		errs = errors.Join(errs, fmt.Errorf("sensitivity must be positive, got %f", cfg.Sensitivity))
	}
	if cfg.MinSignalDistance <= 0 {
		errs = errors.Join(errs, fmt.Errorf("minimum signal distance must be positive, got %d",
			cfg.MinSignalDistance))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Detector scans an indicator-augmented candle series for order block signals.
// Each detector owns its signal spacing state, so independent simulation runs
// do not contaminate each other.
type Detector struct {
	cfg             *DetectorConfig
	lastSignalIndex int
}

// NewDetector initializes a new order block detector.
func NewDetector(cfg *DetectorConfig) (*Detector, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating detector config: %w", err)
	}

	return &Detector{
		cfg: cfg,
		// Start far enough back that the first signal is never blocked by the
		// spacing rule.
		lastSignalIndex: -cfg.MinSignalDistance,
	}, nil
}

// validConditions checks whether the gating filters pass for a trade in the
// provided direction at the provided index.
func (d *Detector) validConditions(row indicator.Row, idx int, direction shared.Direction) bool {
	// Enforce minimum spacing from the last signal.
	if idx-d.lastSignalIndex < d.cfg.MinSignalDistance {
		return false
	}

	// The candle must rank above the minimum volume percentile.
	if !indicator.Defined(row.VolumePercentile) || row.VolumePercentile < d.cfg.MinVolumePercentile {
		return false
	}

	// The trend and momentum must agree with the trade direction. Undefined
	// indicators block the signal outright.
	if !indicator.Defined(row.ShortSMA) || !indicator.Defined(row.LongSMA) || !indicator.Defined(row.Momentum) {
		return false
	}

	switch direction {
	case shared.Long:
		if !(row.ShortSMA > row.LongSMA && row.Momentum > 0) {
			return false
		}
	case shared.Short:
		if !(row.ShortSMA < row.LongSMA && row.Momentum < 0) {
			return false
		}
	default:
		return false
	}

	// Skip excessively volatile periods.
	if !indicator.Defined(row.ATR) || !indicator.Defined(row.ExpandingATR) {
		return false
	}
	if row.ATR > row.ExpandingATR*maxVolatilityRatio {
		return false
	}

	return true
}

// findOrderBlock scans backward from the signal candle for the nearest candle
// opposing the provided direction whose extreme still brackets the current
// close. The backward scan order resolves ties in favour of the most recent
// qualifying candle.
func findOrderBlock(candles []shared.Candlestick, idx int, direction shared.Direction) (int, bool) {
	currentClose := candles[idx].Close

	for j := idx - orderBlockScanStart; j >= idx-orderBlockScanEnd && j >= 0; j-- {
		switch direction {
		case shared.Long:
			if candles[j].FetchSentiment() == shared.Bearish && currentClose > candles[j].Low {
				return j, true
			}
		case shared.Short:
			if candles[j].FetchSentiment() == shared.Bullish && currentClose < candles[j].High {
				return j, true
			}
		}
	}

	return 0, false
}

// Detect evaluates the provided index for an order block signal. It returns
// nil when no tradeable event occurs. Detector state only advances when a
// signal is emitted.
func (d *Detector) Detect(candles []shared.Candlestick, series *indicator.Series, idx int) *shared.Signal {
	if idx < WarmupPeriod || idx >= series.Len() {
		return nil
	}

	row, err := series.At(idx)
	if err != nil {
		d.cfg.Logger.Error().Msgf("fetching indicator row: %v", err)
		return nil
	}

	prev, err := series.At(idx - 1)
	if err != nil {
		d.cfg.Logger.Error().Msgf("fetching previous indicator row: %v", err)
		return nil
	}

	pc := row.PercentChange
	prevPC := prev.PercentChange
	if !indicator.Defined(pc) || !indicator.Defined(prevPC) {
		return nil
	}

	candle := &candles[idx]

	switch {
	case d.validConditions(row, idx, shared.Long) && prevPC < d.cfg.Sensitivity && pc >= d.cfg.Sensitivity:
		// The percent change series crossed up through the sensitivity band.
		obIdx, ok := findOrderBlock(candles, idx, shared.Long)
		if !ok {
			return nil
		}

		d.lastSignalIndex = idx
		return shared.NewSignal(d.cfg.Market, d.cfg.Timeframe, shared.Long, candle.Close,
			candles[obIdx].Low, candle.Date, idx, obIdx)

	case d.validConditions(row, idx, shared.Short) && prevPC > -d.cfg.Sensitivity && pc <= -d.cfg.Sensitivity:
		// The percent change series crossed down through the sensitivity band.
		obIdx, ok := findOrderBlock(candles, idx, shared.Short)
		if !ok {
			return nil
		}

		d.lastSignalIndex = idx
		return shared.NewSignal(d.cfg.Market, d.cfg.Timeframe, shared.Short, candle.Close,
			candles[obIdx].High, candle.Date, idx, obIdx)
	}

	return nil
}
