package indicator

import (
	"errors"
	"fmt"
	"math"

	"github.com/dnldd/papertrade/shared"
)

const (
	// percentChangeLag is the lookback (in candles) for the percent change calculation.
	percentChangeLag = 4
	// volumeWindow is the trailing window for the volume moving average.
	volumeWindow = 20
	// longTrendPeriod is the window for the long simple moving average.
	longTrendPeriod = 50
	// trueRangeWindow is the trailing window for the average true range.
	trueRangeWindow = 14
	// momentumLag is the lookback (in candles) for the rate of change calculation.
	momentumLag = 10
	// neutralVolumePercentile is the volume percentile reported before enough
	// observations exist to rank against.
	neutralVolumePercentile = float64(50)
)

// Undefined is the sentinel for indicator values that cannot be computed yet.
var Undefined = math.NaN()

// Defined reports whether the provided indicator value has been computed.
func Defined(value float64) bool {
	return !math.IsNaN(value)
}

// Row holds the derived indicator values for a single candle. Every field is a
// pure function of candles at or before the row's own index, so appending new
// candles never changes existing rows.
type Row struct {
	// PercentChange is the percentage change of the open over the last four candles.
	PercentChange float64
	// VolumeMA is the volume moving average over the trailing window, shifted
	// by one so the row's own volume is excluded.
	VolumeMA float64
	// VolumePercentile is the percentage of strictly prior candles with volume
	// below the row's own volume.
	VolumePercentile float64
	// ShortSMA is the trailing simple moving average of the close over the
	// configured trend period, shifted by one.
	ShortSMA float64
	// LongSMA is the trailing simple moving average of the close over the long
	// trend period, shifted by one.
	LongSMA float64
	// TrueRange is the candle's true range.
	TrueRange float64
	// ATR is the trailing mean of the true range, shifted by one.
	ATR float64
	// ExpandingATR is the mean of all ATR values strictly before the row.
	ExpandingATR float64
	// Momentum is the rate of change of the close over the momentum lookback.
	Momentum float64
}

// SeriesConfig represents the indicator series configuration.
type SeriesConfig struct {
	// Market is the name of the tracked market.
	Market string
	// TrendPeriod is the window for the short simple moving average.
	TrendPeriod int
}

// Validate asserts the config sane inputs.
func (cfg *SeriesConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.TrendPeriod <= 0 {
		errs = errors.Join(errs, fmt.Errorf("trend period must be positive, got %d", cfg.TrendPeriod))
	}

	return errs
}

// Series computes causal indicators over a growing candle sequence. Rows are
// derived strictly from history on append, which makes batch and incremental
// computation produce identical values.
type Series struct {
	cfg *SeriesConfig

	opens      []float64
	closes     []float64
	volumes    []float64
	trueRanges []float64
	rows       []Row

	// Running aggregate of defined ATR values for the expanding mean.
	atrSum   float64
	atrCount int
}

// NewSeries initializes a new indicator series.
func NewSeries(cfg *SeriesConfig) (*Series, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating series config: %w", err)
	}

	return &Series{
		cfg: cfg,
	}, nil
}

// Len returns the number of rows in the series.
func (s *Series) Len() int {
	return len(s.rows)
}

// At returns the row at the provided index.
func (s *Series) At(idx int) (Row, error) {
	if idx < 0 || idx >= len(s.rows) {
		return Row{}, fmt.Errorf("row index %d out of range [0, %d)", idx, len(s.rows))
	}

	return s.rows[idx], nil
}

// Rows returns a copy of all computed rows.
func (s *Series) Rows() []Row {
	rows := make([]Row, len(s.rows))
	copy(rows, s.rows)

	return rows
}

// trailingMean returns the mean of the window of values ending at the element
// before idx, or an undefined value if the window extends past the start.
func trailingMean(values []float64, idx int, window int) float64 {
	if idx < window {
		return Undefined
	}

	var sum float64
	for i := idx - window; i < idx; i++ {
		if !Defined(values[i]) {
			return Undefined
		}
		sum += values[i]
	}

	return sum / float64(window)
}

// lagPercentChange returns the percentage change between the value at idx and
// the value lag candles before it.
func lagPercentChange(values []float64, idx int, lag int) float64 {
	if idx < lag || values[idx-lag] == 0 {
		return Undefined
	}

	return (values[idx] - values[idx-lag]) / values[idx-lag] * 100
}

// volumePercentile ranks the volume at idx against all strictly prior volumes.
func (s *Series) volumePercentile(idx int) float64 {
	if idx < 1 {
		return neutralVolumePercentile
	}

	var below int
	for i := 0; i < idx; i++ {
		if s.volumes[i] < s.volumes[idx] {
			below++
		}
	}

	return float64(below) / float64(idx) * 100
}

// trueRange computes the true range for the candle at idx.
func (s *Series) trueRange(candle *shared.Candlestick, idx int) float64 {
	if idx == 0 {
		// There is no previous close to range against.
		return Undefined
	}

	prevClose := s.closes[idx-1]
	tr := math.Max(candle.High-candle.Low,
		math.Max(math.Abs(candle.High-prevClose), math.Abs(candle.Low-prevClose)))

	return tr
}

// Update appends the provided candle to the series and computes its indicator
// row. The returned row depends only on the provided candle and its
// predecessors.
func (s *Series) Update(candle *shared.Candlestick) Row {
	idx := len(s.rows)

	s.opens = append(s.opens, candle.Open)
	s.closes = append(s.closes, candle.Close)
	s.volumes = append(s.volumes, candle.Volume)
	s.trueRanges = append(s.trueRanges, s.trueRange(candle, idx))

	// The expanding ATR mean covers ATR values strictly before this row, so the
	// previous row's ATR joins the aggregate before this row is computed.
	if idx > 0 {
		prevATR := s.rows[idx-1].ATR
		if Defined(prevATR) {
			s.atrSum += prevATR
			s.atrCount++
		}
	}

	expandingATR := Undefined
	if s.atrCount > 0 {
		expandingATR = s.atrSum / float64(s.atrCount)
	}

	row := Row{
		PercentChange:    lagPercentChange(s.opens, idx, percentChangeLag),
		VolumeMA:         trailingMean(s.volumes, idx, volumeWindow),
		VolumePercentile: s.volumePercentile(idx),
		ShortSMA:         trailingMean(s.closes, idx, s.cfg.TrendPeriod),
		LongSMA:          trailingMean(s.closes, idx, longTrendPeriod),
		TrueRange:        s.trueRanges[idx],
		ATR:              trailingMean(s.trueRanges, idx, trueRangeWindow),
		ExpandingATR:     expandingATR,
		Momentum:         lagPercentChange(s.closes, idx, momentumLag),
	}

	s.rows = append(s.rows, row)

	return row
}
