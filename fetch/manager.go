// Package fetch acquires market candles from an exchange and fans them out to
// subscribers. Retries, pagination and polling cadence live here, outside the
// simulation core.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/papertrade/shared"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

const (
	// minSubscriberBuffer is the minimum buffer size for subscribers.
	minSubscriberBuffer = 8
)

// ManagerConfig represents the configuration for the fetch manager.
type ManagerConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Timeframe is the timeframe of the fetched candles.
	Timeframe shared.Timeframe
	// ExchangeClient represents the market exchange client.
	ExchangeClient shared.MarketFetcher
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *ManagerConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.ExchangeClient == nil {
		errs = errors.Join(errs, fmt.Errorf("exchange client cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Manager polls the exchange for new candles and relays them to subscribers.
type Manager struct {
	cfg          *ManagerConfig
	jobScheduler gocron.Scheduler
	lastUpdated  time.Time
	subscribers  []*chan shared.Candlestick
}

// NewManager initializes the fetch manager.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating manager config: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating job scheduler: %w", err)
	}

	mgr := &Manager{
		cfg:          cfg,
		jobScheduler: scheduler,
		subscribers:  make([]*chan shared.Candlestick, 0, minSubscriberBuffer),
	}

	return mgr, nil
}

// Subscribe registers the provided subscriber for market updates.
func (m *Manager) Subscribe(sub *chan shared.Candlestick) {
	m.subscribers = append(m.subscribers, sub)
}

// notifySubscribers notifies subscribers of the new market update.
func (m *Manager) notifySubscribers(candle *shared.Candlestick) {
	for k := range m.subscribers {
		*m.subscribers[k] <- *candle
	}
}

// CatchUp fetches the historical batch covering the provided number of days
// for bootstrapping and records the last fetched candle time.
func (m *Manager) CatchUp(ctx context.Context, days int) ([]shared.Candlestick, error) {
	start := time.Now().UTC().AddDate(0, 0, -days)

	candles, err := m.cfg.ExchangeClient.FetchHistorical(ctx, m.cfg.Market, m.cfg.Timeframe, start)
	if err != nil {
		return nil, fmt.Errorf("catching up on %s: %w", m.cfg.Market, err)
	}

	m.lastUpdated = candles[len(candles)-1].Date

	m.cfg.Logger.Info().Msgf("caught up on %s with %d candles, through %s",
		m.cfg.Market, len(candles), m.lastUpdated.Format(shared.DateLayout))

	return candles, nil
}

// pollLatest fetches the most recent closed candle and relays it to
// subscribers when it is strictly newer than the last seen candle.
func (m *Manager) pollLatest(ctx context.Context) {
	candle, err := m.cfg.ExchangeClient.FetchLatest(ctx, m.cfg.Market, m.cfg.Timeframe)
	if err != nil {
		m.cfg.Logger.Error().Msgf("fetching latest candle for %s: %v", m.cfg.Market, err)
		return
	}

	if !candle.Date.After(m.lastUpdated) {
		// No new closed candle yet.
		return
	}

	m.lastUpdated = candle.Date
	m.notifySubscribers(candle)
}

// Run manages the lifecycle processes of the fetch manager.
func (m *Manager) Run(ctx context.Context) error {
	_, err := m.jobScheduler.NewJob(
		gocron.DurationJob(m.cfg.Timeframe.Duration()),
		gocron.NewTask(func() {
			m.pollLatest(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("scheduling candle poll job: %w", err)
	}

	m.jobScheduler.Start()

	<-ctx.Done()

	err = m.jobScheduler.Shutdown()
	if err != nil {
		return fmt.Errorf("shutting down job scheduler: %w", err)
	}

	return nil
}
