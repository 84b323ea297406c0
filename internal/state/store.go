// Package state is the durable ledger: per-symbol watermark plus the
// per-(symbol,day,hour) partition manifest. Grounded on
// internal/infrastructure/db/connection.go's sqlx-wrapped Manager, retargeted
// from Postgres/lib-pq to SQLite/go-sqlite3 since this domain's ledger is a
// single-file embedded database, not a shared server. SQL shapes are
// grounded on original_source/state/store.py's SQLiteStateStore.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/minutelake/ingest/internal/schema"
)

// PartitionEntry mirrors the `partitions` table row exactly, matching
// original_source's PartitionLedgerEntry dataclass field-for-field.
type PartitionEntry struct {
	Symbol      string                 `db:"symbol"`
	Day         string                 `db:"day"`  // YYYY-MM-DD
	Hour        int                    `db:"hour"` // 0-23
	Path        string                 `db:"path"`
	RowCount    int                    `db:"row_count"`
	MinTS       time.Time              `db:"min_ts"`
	MaxTS       time.Time              `db:"max_ts"`
	SchemaHash  string                 `db:"schema_hash"`
	ContentHash string                 `db:"content_hash"`
	Status      schema.PartitionStatus `db:"status"`
	CommittedAt time.Time              `db:"committed_at"`
}

// Config is the connection configuration, shaped after
// internal/infrastructure/db/connection.go's Config (DSN/pool knobs), pared
// down to what a file-backed SQLite ledger actually needs.
type Config struct {
	Path            string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig mirrors connection.go's DefaultConfig() idiom.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    1, // single active writer per state database, per design
		ConnMaxLifetime: time.Hour,
	}
}

// Store is the sqlx-backed ledger handle.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite ledger file, creating it if absent.
func Open(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on", cfg.Path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping state store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Initialize creates the watermark and partitions tables if absent, matching
// original_source's two CREATE TABLE IF NOT EXISTS statements verbatim in
// shape.
func (s *Store) Initialize(ctx context.Context) error {
	const watermarkDDL = `
CREATE TABLE IF NOT EXISTS watermark (
	symbol TEXT PRIMARY KEY,
	last_complete_minute_utc TEXT NOT NULL
)`
	const partitionsDDL = `
CREATE TABLE IF NOT EXISTS partitions (
	symbol TEXT NOT NULL,
	day TEXT NOT NULL,
	hour INTEGER NOT NULL,
	path TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	min_ts TEXT NOT NULL,
	max_ts TEXT NOT NULL,
	schema_hash TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	status TEXT NOT NULL,
	committed_at TEXT NOT NULL,
	PRIMARY KEY (symbol, day, hour)
)`
	if _, err := s.db.ExecContext(ctx, watermarkDDL); err != nil {
		return fmt.Errorf("create watermark table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, partitionsDDL); err != nil {
		return fmt.Errorf("create partitions table: %w", err)
	}
	log.Debug().Msg("state store initialized")
	return nil
}

// GetWatermark returns the stored last-complete-minute for symbol, or nil if
// none has ever been recorded.
func (s *Store) GetWatermark(ctx context.Context, symbol string) (*time.Time, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT last_complete_minute_utc FROM watermark WHERE symbol = ?`, symbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get watermark: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("parse stored watermark %q: %w", raw, err)
	}
	t = t.UTC()
	return &t, nil
}

// UpsertWatermark advances (or initializes) symbol's watermark.
func (s *Store) UpsertWatermark(ctx context.Context, symbol string, minute time.Time) error {
	const q = `
INSERT INTO watermark (symbol, last_complete_minute_utc)
VALUES (?, ?)
ON CONFLICT(symbol) DO UPDATE SET last_complete_minute_utc = excluded.last_complete_minute_utc`
	_, err := s.db.ExecContext(ctx, q, symbol, minute.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert watermark: %w", err)
	}
	log.Debug().Str("symbol", symbol).Time("minute", minute.UTC()).Msg("watermark advanced")
	return nil
}

// UpsertPartition inserts or updates a partition ledger row, keyed on
// (symbol, day, hour).
func (s *Store) UpsertPartition(ctx context.Context, e PartitionEntry) error {
	const q = `
INSERT INTO partitions (symbol, day, hour, path, row_count, min_ts, max_ts, schema_hash, content_hash, status, committed_at)
VALUES (:symbol, :day, :hour, :path, :row_count, :min_ts, :max_ts, :schema_hash, :content_hash, :status, :committed_at)
ON CONFLICT(symbol, day, hour) DO UPDATE SET
	path = excluded.path,
	row_count = excluded.row_count,
	min_ts = excluded.min_ts,
	max_ts = excluded.max_ts,
	schema_hash = excluded.schema_hash,
	content_hash = excluded.content_hash,
	status = excluded.status,
	committed_at = excluded.committed_at`
	arg := partitionArg(e)
	_, err := s.db.NamedExecContext(ctx, q, arg)
	if err != nil {
		return fmt.Errorf("upsert partition %s/%s/%d: %w", e.Symbol, e.Day, e.Hour, err)
	}
	return nil
}

// LatestPartition returns the most recent partition for symbol ordered by
// (day DESC, hour DESC), or nil if none exists.
func (s *Store) LatestPartition(ctx context.Context, symbol string) (*PartitionEntry, error) {
	const q = `
SELECT symbol, day, hour, path, row_count, min_ts, max_ts, schema_hash, content_hash, status, committed_at
FROM partitions WHERE symbol = ? ORDER BY day DESC, hour DESC LIMIT 1`
	var row partitionRow
	err := s.db.GetContext(ctx, &row, q, symbol)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest partition: %w", err)
	}
	e, err := row.toEntry()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// partitionRow and partitionArg bridge PartitionEntry's time.Time fields to
// the text-encoded columns SQLite stores them as.
type partitionRow struct {
	Symbol      string `db:"symbol"`
	Day         string `db:"day"`
	Hour        int    `db:"hour"`
	Path        string `db:"path"`
	RowCount    int    `db:"row_count"`
	MinTS       string `db:"min_ts"`
	MaxTS       string `db:"max_ts"`
	SchemaHash  string `db:"schema_hash"`
	ContentHash string `db:"content_hash"`
	Status      string `db:"status"`
	CommittedAt string `db:"committed_at"`
}

func (r partitionRow) toEntry() (PartitionEntry, error) {
	minTS, err := time.Parse(time.RFC3339, r.MinTS)
	if err != nil {
		return PartitionEntry{}, fmt.Errorf("parse min_ts: %w", err)
	}
	maxTS, err := time.Parse(time.RFC3339, r.MaxTS)
	if err != nil {
		return PartitionEntry{}, fmt.Errorf("parse max_ts: %w", err)
	}
	committedAt, err := time.Parse(time.RFC3339, r.CommittedAt)
	if err != nil {
		return PartitionEntry{}, fmt.Errorf("parse committed_at: %w", err)
	}
	return PartitionEntry{
		Symbol:      r.Symbol,
		Day:         r.Day,
		Hour:        r.Hour,
		Path:        r.Path,
		RowCount:    r.RowCount,
		MinTS:       minTS.UTC(),
		MaxTS:       maxTS.UTC(),
		SchemaHash:  r.SchemaHash,
		ContentHash: r.ContentHash,
		Status:      schema.PartitionStatus(r.Status),
		CommittedAt: committedAt.UTC(),
	}, nil
}

func partitionArg(e PartitionEntry) map[string]any {
	return map[string]any{
		"symbol":       e.Symbol,
		"day":          e.Day,
		"hour":         e.Hour,
		"path":         e.Path,
		"row_count":    e.RowCount,
		"min_ts":       e.MinTS.UTC().Format(time.RFC3339),
		"max_ts":       e.MaxTS.UTC().Format(time.RFC3339),
		"schema_hash":  e.SchemaHash,
		"content_hash": e.ContentHash,
		"status":       string(e.Status),
		"committed_at": e.CommittedAt.UTC().Format(time.RFC3339),
	}
}
