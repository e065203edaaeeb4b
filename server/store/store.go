// Package store is the embedded persistence layer: a single SQLite file
// holding every table the ingest and rating pipelines read and write.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed init.sql
var initSQL embed.FS

//go:embed reset.sql
var resetSQL embed.FS

// DB wraps the sqlite connection pool. A single *sql.DB is safe for
// concurrent use; SQLite itself serializes writers, so the ingest and
// rating ticks never race each other at the storage layer.
type DB struct {
	*sql.DB
}

// Open opens (creating if absent) the sqlite file at path. Callers should
// call Migrate once before issuing any other query.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite serializes better this way
	return &DB{conn}, nil
}

// Migrate runs the idempotent schema-creation script.
func (db *DB) Migrate(ctx context.Context) error {
	return db.execEmbedded(ctx, initSQL, "init.sql")
}

// Reset drops and recreates every rating/matchup/distribution table,
// leaving games, players, and player_names untouched.
func (db *DB) Reset(ctx context.Context) error {
	return db.execEmbedded(ctx, resetSQL, "reset.sql")
}

func (db *DB) execEmbedded(ctx context.Context, fs embed.FS, name string) error {
	script, err := fs.ReadFile(name)
	if err != nil {
		return fmt.Errorf("store: read %s: %w", name, err)
	}
	if _, err := db.ExecContext(ctx, string(script)); err != nil {
		return fmt.Errorf("store: exec %s: %w", name, err)
	}
	return nil
}

// LastUpdate returns the config table's single watermark: the boundary of
// the most recently completed rating-period tick.
func (db *DB) LastUpdate(ctx context.Context) (time.Time, error) {
	var ts int64
	err := db.QueryRowContext(ctx, `SELECT last_update FROM config WHERE id = 1`).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: read last_update: %w", err)
	}
	return time.Unix(ts, 0).UTC(), nil
}

// SetLastUpdate advances the watermark. Called once per completed tick,
// inside the same transaction as the tick's other writes.
func SetLastUpdate(ctx context.Context, tx *sql.Tx, t time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE config SET last_update = ? WHERE id = 1`, t.Unix())
	if err != nil {
		return fmt.Errorf("store: set last_update: %w", err)
	}
	return nil
}

func unixSeconds(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// BeginTx starts a transaction for a single tick. Every write a tick makes
// goes through the same transaction so a crash mid-tick leaves no partial
// state — the tick simply reruns in full on the next invocation.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.DB.BeginTx(ctx, nil)
}
