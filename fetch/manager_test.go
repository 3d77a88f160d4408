package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/dnldd/papertrade/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

type exchangeMock struct {
	historical    []shared.Candlestick
	historicalErr error
	latest        *shared.Candlestick
	latestErr     error
}

func (m *exchangeMock) FetchHistorical(ctx context.Context, market string,
	timeframe shared.Timeframe, start time.Time) ([]shared.Candlestick, error) {
	return m.historical, m.historicalErr
}

func (m *exchangeMock) FetchLatest(ctx context.Context, market string,
	timeframe shared.Timeframe) (*shared.Candlestick, error) {
	return m.latest, m.latestErr
}

func setupManager(t *testing.T, mock *exchangeMock) *Manager {
	t.Helper()

	cfg := &ManagerConfig{
		Market:         "ETHUSDT",
		Timeframe:      shared.ThreeMinute,
		ExchangeClient: mock,
		Logger:         &log.Logger,
	}

	mgr, err := NewManager(cfg)
	assert.NoError(t, err)

	return mgr
}

func TestFetchManagerConfigValidate(t *testing.T) {
	// Ensure a missing market, exchange client and logger are rejected.
	mgrCfg := &ManagerConfig{}
	assert.Error(t, mgrCfg.Validate())

	mgrCfg = &ManagerConfig{
		Market:         "ETHUSDT",
		ExchangeClient: &exchangeMock{},
		Logger:         &log.Logger,
	}
	assert.NoError(t, mgrCfg.Validate())
}

func TestCatchUp(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	historical := []shared.Candlestick{
		{Close: 100, Date: now, Market: "ETHUSDT", Timeframe: shared.ThreeMinute},
		{Close: 101, Date: now.Add(3 * time.Minute), Market: "ETHUSDT", Timeframe: shared.ThreeMinute},
	}

	mgr := setupManager(t, &exchangeMock{historical: historical})

	// Ensure the historical batch is returned and the last candle time is
	// recorded.
	candles, err := mgr.CatchUp(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 2)
	assert.Equal(t, mgr.lastUpdated, historical[1].Date)

	// Ensure a fetch error surfaces.
	mgr = setupManager(t, &exchangeMock{historicalErr: context.DeadlineExceeded})
	_, err = mgr.CatchUp(context.Background(), 1)
	assert.Error(t, err)
}

func TestPollLatest(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := &shared.Candlestick{Close: 100, Date: now, Market: "ETHUSDT", Timeframe: shared.ThreeMinute}

	mock := &exchangeMock{latest: latest}
	mgr := setupManager(t, mock)

	sub := make(chan shared.Candlestick, 4)
	mgr.Subscribe(&sub)

	// Ensure a new closed candle is relayed to subscribers.
	mgr.pollLatest(context.Background())
	assert.Equal(t, len(sub), 1)
	got := <-sub
	assert.Equal(t, got.Date, now)

	// Ensure the same candle is not relayed twice.
	mgr.pollLatest(context.Background())
	assert.Equal(t, len(sub), 0)

	// Ensure a strictly newer candle is relayed.
	mock.latest = &shared.Candlestick{Close: 101, Date: now.Add(3 * time.Minute),
		Market: "ETHUSDT", Timeframe: shared.ThreeMinute}
	mgr.pollLatest(context.Background())
	assert.Equal(t, len(sub), 1)

	// Ensure fetch errors are swallowed without notifying subscribers.
	mock.latest = nil
	mock.latestErr = context.DeadlineExceeded
	mgr.pollLatest(context.Background())
	assert.Equal(t, len(sub), 1)
}

func TestManagerRun(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock := &exchangeMock{latest: &shared.Candlestick{Close: 100, Date: now,
		Market: "ETHUSDT", Timeframe: shared.ThreeMinute}}
	mgr := setupManager(t, mock)

	// Ensure the manager starts and shuts down cleanly with the context.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mgr.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
