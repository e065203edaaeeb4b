package store

import (
	"context"
	"database/sql"
	"fmt"

	"ratingengine/server/rating"
)

// floorTiers is the fixed set of legal floor values, low to high with the
// celestial sentinel last.
var floorTiers = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 99}

const ratingBinWidth = 50.0
const ratingBinCount = 60

// ratingBinMinPlayers is the privacy/sparseness floor: a bin with fewer
// established ratings than this is dropped entirely rather than published.
const ratingBinMinPlayers = 10

// RebuildDistributions truncates and recomputes both distribution tables
// from the current players/player_ratings state. Called at the end of
// every successful rating window.
func RebuildDistributions(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_floor_distribution`); err != nil {
		return fmt.Errorf("store: truncate player_floor_distribution: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_rating_distribution`); err != nil {
		return fmt.Errorf("store: truncate player_rating_distribution: %w", err)
	}

	for _, f := range floorTiers {
		var playerCount, gameCount int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM players WHERE floor = ?`, f).Scan(&playerCount); err != nil {
			return fmt.Errorf("store: count players at floor %d: %w", f, err)
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE game_floor = ?`, f).Scan(&gameCount); err != nil {
			return fmt.Errorf("store: count games at floor %d: %w", f, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO player_floor_distribution(floor, player_count, game_count) VALUES (?, ?, ?)
		`, f, playerCount, gameCount); err != nil {
			return fmt.Errorf("store: insert floor distribution row %d: %w", f, err)
		}
	}

	for r := 0; r < ratingBinCount; r++ {
		publicMin := float64(r) * ratingBinWidth
		publicMax := float64(r+1) * ratingBinWidth
		internalMin, _ := rating.FromPublic(publicMin, 0)
		internalMax, _ := rating.FromPublic(publicMax, 0)

		var n int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM player_ratings
			WHERE deviation < ? AND value >= ? AND value < ?
		`, rating.MaxDeviation, internalMin, internalMax).Scan(&n); err != nil {
			return fmt.Errorf("store: count rating bin %d: %w", r, err)
		}
		if n < ratingBinMinPlayers {
			continue
		}

		var cum int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM player_ratings
			WHERE deviation < ? AND value < ?
		`, rating.MaxDeviation, internalMax).Scan(&cum); err != nil {
			return fmt.Errorf("store: count rating bin %d cumulative: %w", r, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO player_rating_distribution(min_rating, max_rating, player_count, player_count_cum)
			VALUES (?, ?, ?, ?)
		`, int(publicMin), int(publicMax), n, cum); err != nil {
			return fmt.Errorf("store: insert rating distribution bin %d: %w", r, err)
		}
	}

	return nil
}
