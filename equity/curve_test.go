package equity

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func newTestCurve(t *testing.T, span int) *Curve {
	t.Helper()

	curve, err := NewCurve(&CurveConfig{Span: span})
	assert.NoError(t, err)

	return curve
}

func TestCurveConfigValidate(t *testing.T) {
	// Ensure a non-positive span is rejected.
	_, err := NewCurve(&CurveConfig{})
	assert.Error(t, err)

	_, err = NewCurve(&CurveConfig{Span: 200})
	assert.NoError(t, err)
}

func TestCurveEMA(t *testing.T) {
	const span = 5

	curve := newTestCurve(t, span)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	equities := []float64{100, 101, 99, 102, 103, 104, 101}

	// Ensure the EMA stays unreported until a full span of points exists and
	// matches the seeded recursion afterwards.
	var want float64
	for i, equity := range equities {
		curve.Record(start.Add(time.Duration(i)*time.Minute), equity)

		if i == 0 {
			want = equity
		} else {
			alpha := 2 / (float64(span) + 1)
			want = alpha*equity + (1-alpha)*want
		}

		ema, ok := curve.EMA()
		if i < span-1 {
			assert.False(t, ok)
			continue
		}
		assert.True(t, ok)
		assert.Equal(t, ema, want)
	}

	assert.Equal(t, curve.Len(), len(equities))
}

func TestCurveRecentWeighting(t *testing.T) {
	curve := newTestCurve(t, 5)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Ensure a jump in the latest observation pulls the EMA above the simple
	// mean of the same history.
	equities := []float64{1, 1, 1, 1, 10}
	var mean float64
	for i, equity := range equities {
		curve.Record(start.Add(time.Duration(i)*time.Minute), equity)
		mean += equity / float64(len(equities))
	}

	ema, ok := curve.EMA()
	assert.True(t, ok)
	assert.True(t, ema > mean)
}

func TestShouldTrade(t *testing.T) {
	curve := newTestCurve(t, 5)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Ensure the gate passes unconditionally while the EMA is unreported,
	// even on poor equity.
	for i := range 4 {
		curve.Record(start.Add(time.Duration(i)*time.Minute), 100)
		assert.True(t, curve.ShouldTrade(1))
	}

	curve.Record(start.Add(4*time.Minute), 100)
	ema, ok := curve.EMA()
	assert.True(t, ok)

	// Ensure the gate compares current equity strictly against the EMA.
	assert.True(t, curve.ShouldTrade(ema+1))
	assert.False(t, curve.ShouldTrade(ema))
	assert.False(t, curve.ShouldTrade(ema-1))
}

func TestCurvePoints(t *testing.T) {
	curve := newTestCurve(t, 5)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := curve.Last()
	assert.Error(t, err)

	curve.Record(start, 100)
	curve.Record(start.Add(time.Minute), 101)

	// Ensure Last reflects the most recent observation and Points copies do
	// not alias curve state.
	last, err := curve.Last()
	assert.NoError(t, err)
	assert.Equal(t, last, Point{Timestamp: start.Add(time.Minute), Equity: 101})

	points := curve.Points()
	points[0].Equity = 0
	again, err := curve.Last()
	assert.NoError(t, err)
	assert.Equal(t, again.Equity, float64(101))
	assert.Equal(t, curve.Points()[0].Equity, float64(100))
}
