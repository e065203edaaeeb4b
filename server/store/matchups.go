package store

import (
	"context"
	"database/sql"
	"fmt"

	"ratingengine/server/feed"
)

func splitByOutcome(won bool, weight float64) (winReal, lossReal int, winAdjusted, lossAdjusted float64) {
	if won {
		return 1, 0, weight, 0
	}
	return 0, 1, 0, weight
}

// IncrementPlayerMatchup folds one game's outcome into a player's
// per-character matchup row against the opposing character. The real
// counters always increment; adjusted should be 0 when the pre-game
// ratings of both sides are not yet established.
func IncrementPlayerMatchup(ctx context.Context, tx *sql.Tx, playerID int64, char, oppChar feed.Character, won bool, adjusted float64) error {
	winReal, lossReal, winAdj, lossAdj := splitByOutcome(won, adjusted)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO player_matchups(id, char_id, opp_char_id, wins_real, losses_real, wins_adjusted, losses_adjusted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, char_id, opp_char_id) DO UPDATE SET
			wins_real = player_matchups.wins_real + excluded.wins_real,
			losses_real = player_matchups.losses_real + excluded.losses_real,
			wins_adjusted = player_matchups.wins_adjusted + excluded.wins_adjusted,
			losses_adjusted = player_matchups.losses_adjusted + excluded.losses_adjusted
	`, playerID, int(char), int(oppChar), winReal, lossReal, winAdj, lossAdj)
	if err != nil {
		return fmt.Errorf("store: increment player_matchups: %w", err)
	}
	return nil
}

// IncrementGlobalMatchup folds one game's outcome into the global
// character-vs-character matchup row. Callers only invoke this for games
// where both sides' pre-game ratings are established.
func IncrementGlobalMatchup(ctx context.Context, tx *sql.Tx, char, oppChar feed.Character, won bool, adjusted float64) error {
	winReal, lossReal, winAdj, lossAdj := splitByOutcome(won, adjusted)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO global_matchups(char_id, opp_char_id, wins_real, losses_real, wins_adjusted, losses_adjusted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(char_id, opp_char_id) DO UPDATE SET
			wins_real = global_matchups.wins_real + excluded.wins_real,
			losses_real = global_matchups.losses_real + excluded.losses_real,
			wins_adjusted = global_matchups.wins_adjusted + excluded.wins_adjusted,
			losses_adjusted = global_matchups.losses_adjusted + excluded.losses_adjusted
	`, int(char), int(oppChar), winReal, lossReal, winAdj, lossAdj)
	if err != nil {
		return fmt.Errorf("store: increment global_matchups: %w", err)
	}
	return nil
}

// IncrementHighRatedMatchup folds one game's outcome into the high-rated
// character-vs-character matchup row. Callers only invoke this for games
// where both sides are additionally high-rated.
func IncrementHighRatedMatchup(ctx context.Context, tx *sql.Tx, char, oppChar feed.Character, won bool, adjusted float64) error {
	winReal, lossReal, winAdj, lossAdj := splitByOutcome(won, adjusted)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO high_rated_matchups(char_id, opp_char_id, wins_real, losses_real, wins_adjusted, losses_adjusted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(char_id, opp_char_id) DO UPDATE SET
			wins_real = high_rated_matchups.wins_real + excluded.wins_real,
			losses_real = high_rated_matchups.losses_real + excluded.losses_real,
			wins_adjusted = high_rated_matchups.wins_adjusted + excluded.wins_adjusted,
			losses_adjusted = high_rated_matchups.losses_adjusted + excluded.losses_adjusted
	`, int(char), int(oppChar), winReal, lossReal, winAdj, lossAdj)
	if err != nil {
		return fmt.Errorf("store: increment high_rated_matchups: %w", err)
	}
	return nil
}
