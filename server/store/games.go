package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ratingengine/server/feed"
)

// UpsertPlayer ensures a players row exists (or updates its floor/most
// recent name) and records the name in player_names, the append-only
// aliases-ever-seen table (reset-names leaves it untouched).
func UpsertPlayer(ctx context.Context, tx *sql.Tx, id int64, name string, floor feed.Floor) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO players(id, name, floor) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, floor = excluded.floor
	`, id, name, int(floor)); err != nil {
		return fmt.Errorf("store: upsert player %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO player_names(id, name) VALUES (?, ?)
	`, id, name); err != nil {
		return fmt.Errorf("store: insert player_name %d/%s: %w", id, name, err)
	}
	return nil
}

// InsertGame inserts a game row keyed on (timestamp, id_a, id_b), the
// feed's stable game identity. It reports whether the row was new: a
// duplicate fetch of an already-recorded game is silently a no-op, which
// is what makes re-running an ingest tick over the same feed window safe.
func InsertGame(ctx context.Context, tx *sql.Tx, m feed.Match) (inserted bool, err error) {
	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO games(timestamp, id_a, name_a, char_a, id_b, name_b, char_b, winner, game_floor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.Timestamp.Unix(), m.A.ID, m.A.Name, int(m.A.Character),
		m.B.ID, m.B.Name, int(m.B.Character), int(m.Winner), int(m.Floor))
	if err != nil {
		return false, fmt.Errorf("store: insert game: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: rows affected: %w", err)
	}
	return n > 0, nil
}

// GamesBetween returns every game with timestamp in [from, to), ordered
// ascending by timestamp, then id_a, then id_b. The rating pass reads every
// game against the ratings held at the start of its window, so this order
// does not change its result.
func GamesBetween(ctx context.Context, q Queryer, from, to time.Time) ([]feed.Match, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT timestamp, id_a, name_a, char_a, id_b, name_b, char_b, winner, game_floor
		FROM games
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, id_a ASC, id_b ASC
	`, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("store: query games: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

// AllGamesAscending returns every recorded game in ascending timestamp
// order, the traversal reset-names uses to rebuild the players table from
// scratch.
func AllGamesAscending(ctx context.Context, q Queryer) ([]feed.Match, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT timestamp, id_a, name_a, char_a, id_b, name_b, char_b, winner, game_floor
		FROM games
		ORDER BY timestamp ASC, id_a ASC, id_b ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: query all games: %w", err)
	}
	defer rows.Close()
	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]feed.Match, error) {
	var out []feed.Match
	for rows.Next() {
		var (
			ts                 int64
			idA, idB           int64
			nameA, nameB       string
			charA, charB       int
			winner, floorValue int
		)
		if err := rows.Scan(&ts, &idA, &nameA, &charA, &idB, &nameB, &charB, &winner, &floorValue); err != nil {
			return nil, fmt.Errorf("store: scan game: %w", err)
		}
		fl, err := feed.FloorFromU8(uint8(floorValue))
		if err != nil {
			return nil, err
		}
		ca, err := feed.CharacterFromU8(uint8(charA))
		if err != nil {
			return nil, err
		}
		cb, err := feed.CharacterFromU8(uint8(charB))
		if err != nil {
			return nil, err
		}
		out = append(out, feed.Match{
			Timestamp: time.Unix(ts, 0).UTC(),
			Floor:     fl,
			Winner:    feed.Winner(winner),
			A:         feed.Player{ID: idA, Character: ca, Name: nameA},
			B:         feed.Player{ID: idB, Character: cb, Name: nameB},
		})
	}
	return out, rows.Err()
}

// Queryer is satisfied by both *sql.DB and *sql.Tx, letting read helpers
// run either standalone or inside a tick's transaction.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
