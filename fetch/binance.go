package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dnldd/papertrade/shared"
	"github.com/tidwall/gjson"
)

const (
	// BaseURL is the binance spot api base url.
	BaseURL = "https://api.binance.com"
	// klinesPath is the klines endpoint path.
	klinesPath = "/api/v3/klines"
	// maxKlinesLimit is the maximum number of klines returned per request.
	maxKlinesLimit = 1000
)

// BinanceConfig represents the configuration for the binance client.
type BinanceConfig struct {
	// BaseURL is the api base url.
	BaseURL string
}

// BinanceClient represents the binance market data client.
type BinanceClient struct {
	cfg   *BinanceConfig
	httpc http.Client
	buf   *bytes.Buffer
}

// Ensure the binance client implements the MarketFetcher interface.
var _ shared.MarketFetcher = (*BinanceClient)(nil)

// NewBinanceClient instantiates a new binance client.
func NewBinanceClient(cfg *BinanceConfig) *BinanceClient {
	return &BinanceClient{
		cfg:   cfg,
		httpc: http.Client{Timeout: time.Second * 5},
		buf:   bytes.NewBuffer(make([]byte, 0, 512)),
	}
}

// formURL creates full urls including parameters for the api.
func (c *BinanceClient) formURL(path string, params string) string {
	c.buf.WriteString(c.cfg.BaseURL)
	c.buf.WriteString(path)
	c.buf.WriteString("?")
	c.buf.WriteString(params)
	url := c.buf.String()
	c.buf.Reset()

	return url
}

// ParseKlines parses candlesticks from the provided klines json data. Each
// kline is an array of the form [openTime, open, high, low, close, volume, ...].
func (c *BinanceClient) ParseKlines(data []gjson.Result, market string, timeframe shared.Timeframe) ([]shared.Candlestick, error) {
	candles := make([]shared.Candlestick, 0, len(data))

	for idx := range data {
		fields := data[idx].Array()
		if len(fields) < 6 {
			return nil, fmt.Errorf("malformed kline at index %d: expected at least 6 fields, got %d",
				idx, len(fields))
		}

		candle := shared.Candlestick{
			Open:      fields[1].Float(),
			High:      fields[2].Float(),
			Low:       fields[3].Float(),
			Close:     fields[4].Float(),
			Volume:    fields[5].Float(),
			Date:      time.UnixMilli(fields[0].Int()).UTC(),
			Market:    market,
			Timeframe: timeframe,
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

// fetchKlines fetches raw klines for the provided market and range.
func (c *BinanceClient) fetchKlines(ctx context.Context, market string, timeframe shared.Timeframe,
	start time.Time, limit int) ([]gjson.Result, error) {
	params := url.Values{}
	params.Add("symbol", market)
	params.Add("interval", timeframe.String())
	params.Add("limit", strconv.Itoa(limit))
	if !start.IsZero() {
		params.Add("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}

	formedURL := c.formURL(klinesPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, formedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating klines request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching klines (%s) for %s: %w", timeframe.String(), market, err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected klines response status %d: %s", resp.StatusCode, string(body))
	}

	data := gjson.ParseBytes(body).Array()

	return data, nil
}

// FetchHistorical fetches historical candles for the provided market starting
// at the provided time, paginating until the present.
func (c *BinanceClient) FetchHistorical(ctx context.Context, market string, timeframe shared.Timeframe,
	start time.Time) ([]shared.Candlestick, error) {
	var candles []shared.Candlestick

	cursor := start
	for {
		data, err := c.fetchKlines(ctx, market, timeframe, cursor, maxKlinesLimit)
		if err != nil {
			return nil, err
		}

		batch, err := c.ParseKlines(data, market, timeframe)
		if err != nil {
			return nil, fmt.Errorf("parsing klines for %s: %w", market, err)
		}

		if len(batch) == 0 {
			break
		}

		candles = append(candles, batch...)

		if len(batch) < maxKlinesLimit {
			break
		}

		cursor = batch[len(batch)-1].Date.Add(timeframe.Duration())
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("no historical candles returned for %s", market)
	}

	// The last candle may still be forming; drop it so only closed candles
	// reach the simulation.
	return candles[:len(candles)-1], nil
}

// FetchLatest fetches the most recent closed candle for the provided market.
func (c *BinanceClient) FetchLatest(ctx context.Context, market string, timeframe shared.Timeframe) (*shared.Candlestick, error) {
	data, err := c.fetchKlines(ctx, market, timeframe, time.Time{}, 2)
	if err != nil {
		return nil, err
	}

	candles, err := c.ParseKlines(data, market, timeframe)
	if err != nil {
		return nil, fmt.Errorf("parsing klines for %s: %w", market, err)
	}

	if len(candles) < 2 {
		return nil, fmt.Errorf("expected at least 2 klines for %s, got %d", market, len(candles))
	}

	// The last entry is the in-progress candle; the one before it is the most
	// recently closed.
	closed := candles[len(candles)-2]

	return &closed, nil
}
