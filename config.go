package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	// Trading parameter defaults, applied when not configured.
	defaultTimeframe           = "3m"
	defaultInitialCapital      = float64(100)
	defaultSlippage            = float64(0.0005)
	defaultCommission          = float64(0.0006)
	defaultEMASpan             = 200
	defaultSensitivity         = float64(0.015)
	defaultMinVolumePercentile = float64(50)
	defaultTrendPeriod         = 20
	defaultMinSignalDistance   = 10
	defaultHistoricalDays      = 30
)

// Config is the configuration struct for the service.
type Config struct {
	// Market is the traded market symbol.
	Market string
	// Timeframe is the candle timeframe.
	Timeframe string
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
	// HistoricalDays is the number of days of history used for bootstrap.
	HistoricalDays int
	// DatabaseEndpoint is the rqlite connection endpoint.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// TelegramToken is the telegram bot token.
	TelegramToken string
	// TelegramChatID is the telegram chat id.
	TelegramChatID int64

	registeredFlags map[string]bool
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.InitialCapital <= 0 {
		errs = errors.Join(errs, fmt.Errorf("initial capital must be positive"))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		errs = errors.Join(errs, fmt.Errorf("telegram chat id required when telegram token is set"))
	}

	return errs
}

// setDefaults applies defaults for unset trading parameters.
func (cfg *Config) setDefaults() {
	if cfg.Timeframe == "" {
		cfg.Timeframe = defaultTimeframe
	}
	if cfg.InitialCapital == 0 {
		cfg.InitialCapital = defaultInitialCapital
	}
	if cfg.Slippage == 0 {
		cfg.Slippage = defaultSlippage
	}
	if cfg.Commission == 0 {
		cfg.Commission = defaultCommission
	}
	if cfg.EMASpan == 0 {
		cfg.EMASpan = defaultEMASpan
	}
	if cfg.Sensitivity == 0 {
		cfg.Sensitivity = defaultSensitivity
	}
	if cfg.MinVolumePercentile == 0 {
		cfg.MinVolumePercentile = defaultMinVolumePercentile
	}
	if cfg.TrendPeriod == 0 {
		cfg.TrendPeriod = defaultTrendPeriod
	}
	if cfg.MinSignalDistance == 0 {
		cfg.MinSignalDistance = defaultMinSignalDistance
	}
	if cfg.HistoricalDays == 0 {
		cfg.HistoricalDays = defaultHistoricalDays
	}
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Int64:
		var def int64
		if defValue != "" {
			def, _ = strconv.ParseInt(defValue, 10, 64)
		}
		flag.Int64Var(value.(*int64), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"market", &cfg.Market, "the traded market symbol"},
		{"timeframe", &cfg.Timeframe, "the candle timeframe"},
		{"initialcapital", &cfg.InitialCapital, "the starting virtual capital"},
		{"slippage", &cfg.Slippage, "the slippage rate"},
		{"commission", &cfg.Commission, "the commission rate"},
		{"emaspan", &cfg.EMASpan, "the equity curve ema span"},
		{"sensitivity", &cfg.Sensitivity, "the signal sensitivity"},
		{"minvolumepercentile", &cfg.MinVolumePercentile, "the minimum volume percentile"},
		{"trendperiod", &cfg.TrendPeriod, "the short trend period"},
		{"minsignaldistance", &cfg.MinSignalDistance, "the minimum candles between signals"},
		{"historicaldays", &cfg.HistoricalDays, "the days of history used for bootstrap"},
		{"databaseendpoint", &cfg.DatabaseEndpoint, "the rqlite database endpoint"},
		{"databaseuser", &cfg.DatabaseUser, "the database user"},
		{"databasepass", &cfg.DatabasePass, "the database pass"},
		{"telegramtoken", &cfg.TelegramToken, "the telegram bot token"},
		{"telegramchatid", &cfg.TelegramChatID, "the telegram chat id"},
	}

	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	cfg.setDefaults()

	return cfg.Validate()
}
