package pipeline

import (
	"context"

	"ratingengine/server/store"
)

// InitDB creates the schema if it does not already exist.
func InitDB(ctx context.Context, db *store.DB) error {
	return db.Migrate(ctx)
}

// ResetDB drops and recreates every table derived from games, resetting
// the rating cursor back to the historical floor so the next run
// recomputes everything from the recorded game history.
func ResetDB(ctx context.Context, db *store.DB) error {
	return db.Reset(ctx)
}

// ResetNames rebuilds the players table from scratch by replaying every
// recorded game in ascending timestamp order. player_names, ratings, and
// matchups are left untouched.
func ResetNames(ctx context.Context, db *store.DB) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := store.ReplayPlayersFromGames(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ResetDistribution recomputes the floor and rating distribution tables
// from the current player/rating state, outside of a full rating-window
// tick.
func ResetDistribution(ctx context.Context, db *store.DB) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := store.RebuildDistributions(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}
