package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/papertrade/equity"
	"github.com/dnldd/papertrade/position"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createTradeTableSQL    = "CREATE TABLE IF NOT EXISTS trade (id TEXT PRIMARY KEY, market TEXT, timeframe TEXT, direction TEXT, entryprice REAL, adjentryprice REAL, entrytime INTEGER, entrycapital REAL, size REAL, stoploss REAL, exitprice REAL, exittime INTEGER, exitcapital REAL, pnl REAL, returnpct REAL, commission REAL, exitreason TEXT)"
	createEquityTableSQL   = "CREATE TABLE IF NOT EXISTS equity (market TEXT, timestamp INTEGER, value REAL, PRIMARY KEY (market, timestamp))"
	createMetadataTableSQL = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, total INTEGER, wins INTEGER, losses INTEGER, createdon INTEGER)"
	persistTradeSQL        = "INSERT INTO trade(id, market, timeframe, direction, entryprice, adjentryprice, entrytime, entrycapital, size, stoploss, exitprice, exittime, exitcapital, pnl, returnpct, commission, exitreason) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)"
	persistEquitySQL       = "INSERT OR IGNORE INTO equity(market, timestamp, value) VALUES(?,?,?)"
	findMetadataSQL        = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL      = "UPDATE metadata SET total = total + 1, wins = wins + ?, losses = losses + ? WHERE id = ?"
	persistMetadataSQL     = "INSERT INTO metadata(id, total, wins, losses, createdon) VALUES(?,?,?,?,?)"
)

// TradeStorer defines the requirements for storing simulation output.
type TradeStorer interface {
	// PersistClosedTrade stores the provided closed trade to the database.
	PersistClosedTrade(ctx context.Context, trade *position.Trade) error
	// PersistEquityPoint stores the provided equity point to the database.
	PersistEquityPoint(ctx context.Context, market string, point *equity.Point) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the TradeStorer interface.
var _ TradeStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createTradeTableSQL},
		{SQL: createEquityTableSQL},
		{SQL: createMetadataTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// generateMetadataID generates deterministic ids for metadata using the
// current month, week and market.
func generateMetadataID(currentTime time.Time, market string) string {
	month := currentTime.Month().String()
	week := currentTime.Day() / 7

	id := fmt.Sprintf("%s-Week-%d-%s", month, week, market)
	return id
}

// PersistClosedTrade stores the provided closed trade to the database and
// updates the weekly win/loss metadata.
func (db *Database) PersistClosedTrade(ctx context.Context, trade *position.Trade) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistTradeSQL,
			PositionalParams: []any{trade.ID, trade.Market, trade.Timeframe.String(),
				trade.Direction.String(), trade.EntryPrice, trade.AdjEntryPrice,
				trade.EntryTime.Unix(), trade.EntryCapital, trade.Size, trade.StopLoss,
				trade.ExitPrice, trade.ExitTime.Unix(), trade.ExitCapital, trade.PNL,
				trade.ReturnPct, trade.Commission, trade.ExitReason.String()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	var win, loss int
	switch {
	case trade.PNL > 0:
		win++
	case trade.PNL < 0:
		loss++
	default:
		db.cfg.Logger.Debug().Msgf("flat pnl trade recorded: %s", spew.Sdump(trade))
	}

	id := generateMetadataID(trade.ExitTime, trade.Market)
	resp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return err
	}

	exists := len(resp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateMetadataSQL,
				PositionalParams: []any{win, loss, id},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating metadata %s: %d -> %s", id, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistMetadataSQL,
				PositionalParams: []any{id, 1, win, loss, trade.ExitTime.Unix()},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting metadata %s: %d -> %s", id, idx, errStr)
		}
	}

	return nil
}

// PersistEquityPoint stores the provided equity point to the database.
func (db *Database) PersistEquityPoint(ctx context.Context, market string, point *equity.Point) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              persistEquitySQL,
			PositionalParams: []any{market, point.Timestamp.Unix(), point.Equity},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("persisting equity point for %s: %d -> %s", market, idx, errStr)
	}

	return nil
}
