// Package equity maintains the strategy's own equity time series and the
// moving average regime filter computed over it. The filter gates new entries
// only; it never forces a close.
package equity

import (
	"errors"
	"fmt"
	"time"
)

// Point represents an immutable (timestamp, equity) observation.
type Point struct {
	Timestamp time.Time
	Equity    float64
}

// CurveConfig represents the equity curve configuration.
type CurveConfig struct {
	// Span is the smoothing span of the exponential moving average. The EMA
	// is reported only once this many points have been recorded.
	Span int
}

// Validate asserts the config sane inputs.
func (cfg *CurveConfig) Validate() error {
	var errs error

	if cfg.Span <= 0 {
		errs = errors.Join(errs, fmt.Errorf("ema span must be positive, got %d", cfg.Span))
	}

	return errs
}

// Curve is the append-only equity series with a recursive (unadjusted)
// exponential moving average over its full history. The recursive form is
// load-bearing: it weighs recent equity more heavily than a windowed average
// would, which shapes when the strategy re-enables itself.
type Curve struct {
	cfg    *CurveConfig
	points []Point
	ema    float64
}

// NewCurve initializes a new equity curve.
func NewCurve(cfg *CurveConfig) (*Curve, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating curve config: %w", err)
	}

	return &Curve{
		cfg: cfg,
	}, nil
}

// Len returns the number of recorded equity points.
func (c *Curve) Len() int {
	return len(c.points)
}

// Points returns a copy of the recorded equity points.
func (c *Curve) Points() []Point {
	points := make([]Point, len(c.points))
	copy(points, c.points)

	return points
}

// Last returns the most recent equity point.
func (c *Curve) Last() (Point, error) {
	if len(c.points) == 0 {
		return Point{}, fmt.Errorf("equity curve is empty")
	}

	return c.points[len(c.points)-1], nil
}

// Record appends the provided equity observation and advances the running
// EMA recursion. The recursion is seeded with the first observation, matching
// the unadjusted exponential weighting over the full history.
func (c *Curve) Record(timestamp time.Time, equity float64) Point {
	point := Point{Timestamp: timestamp, Equity: equity}

	if len(c.points) == 0 {
		c.ema = equity
	} else {
		alpha := 2 / (float64(c.cfg.Span) + 1)
		c.ema = alpha*equity + (1-alpha)*c.ema
	}

	c.points = append(c.points, point)

	return point
}

// EMA returns the exponential moving average of the equity series. It reports
// false until the curve holds at least a full span of points.
func (c *Curve) EMA() (float64, bool) {
	if len(c.points) < c.cfg.Span {
		return 0, false
	}

	return c.ema, true
}

// ShouldTrade reports whether a new entry is permitted given the provided
// current equity. The gate passes unconditionally while the EMA is undefined
// so the equity history can build organically.
func (c *Curve) ShouldTrade(currentEquity float64) bool {
	ema, ok := c.EMA()
	if !ok {
		return true
	}

	return currentEquity > ema
}
