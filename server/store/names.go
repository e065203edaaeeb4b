package store

import (
	"context"
	"database/sql"
	"fmt"

	"ratingengine/server/feed"
)

// ReplayPlayersFromGames rebuilds the players table from scratch by
// replaying every recorded game in ascending timestamp order, so that
// each player's final row reflects the name and floor of their most
// recent game. It does not touch player_names, ratings, or matchups.
func ReplayPlayersFromGames(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return fmt.Errorf("store: truncate players: %w", err)
	}

	games, err := AllGamesAscending(ctx, tx)
	if err != nil {
		return err
	}

	latest := make(map[int64]struct {
		name  string
		floor feed.Floor
	}, len(games)*2)

	for _, g := range games {
		latest[g.A.ID] = struct {
			name  string
			floor feed.Floor
		}{g.A.Name, g.Floor}
		latest[g.B.ID] = struct {
			name  string
			floor feed.Floor
		}{g.B.Name, g.Floor}
	}

	for id, v := range latest {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO players(id, name, floor) VALUES (?, ?, ?)
		`, id, v.name, int(v.floor)); err != nil {
			return fmt.Errorf("store: insert replayed player %d: %w", id, err)
		}
	}
	return nil
}
