package fetch

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/dnldd/papertrade/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

// todo: mock the http client and return valid data.

func TestBinanceClient(t *testing.T) {
	// Ensure the binance client can be created.
	cfg := &BinanceConfig{
		BaseURL: "http://base",
	}

	bc := NewBinanceClient(cfg)

	// Ensure urls can be formed accurately.
	params := url.Values{}
	params.Add("symbol", "ETHUSDT")
	params.Add("interval", "3m")

	formedUrl := bc.formURL(klinesPath, params.Encode())
	assert.Equal(t, formedUrl, "http://base/api/v3/klines?interval=3m&symbol=ETHUSDT")

	market := "ETHUSDT"
	timeframe := shared.ThreeMinute
	data := `[[1700000000000,"100.5","101.0","99.5","100.8","1250.5",1700000179999,"0",10,"0","0","0"]]`
	gjd := gjson.Parse(data).Array()

	// Ensure fetching candles can fail if the client is not configured properly.
	start := time.Now().UTC().AddDate(0, 0, -1)
	_, err := bc.FetchHistorical(context.Background(), market, timeframe, start)
	assert.Error(t, err)

	_, err = bc.FetchLatest(context.Background(), market, timeframe)
	assert.Error(t, err)

	// Ensure klines data can be parsed.
	candles, err := bc.ParseKlines(gjd, market, timeframe)
	assert.NoError(t, err)
	assert.Equal(t, len(candles), 1)
	assert.Equal(t, candles[0].Open, float64(100.5))
	assert.Equal(t, candles[0].High, float64(101))
	assert.Equal(t, candles[0].Low, float64(99.5))
	assert.Equal(t, candles[0].Close, float64(100.8))
	assert.Equal(t, candles[0].Volume, float64(1250.5))
	assert.Equal(t, candles[0].Date, time.UnixMilli(1700000000000).UTC())
	assert.Equal(t, candles[0].Market, market)
	assert.Equal(t, candles[0].Timeframe, timeframe)

	// Ensure malformed klines are rejected.
	malformed := gjson.Parse(`[[1700000000000,"100.5"]]`).Array()
	_, err = bc.ParseKlines(malformed, market, timeframe)
	assert.Error(t, err)
}
