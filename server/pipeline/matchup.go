package pipeline

import (
	"context"
	"database/sql"

	"ratingengine/server/feed"
	"ratingengine/server/rating"
	"ratingengine/server/store"
)

// applyMatchupCounters folds one game's outcome into the player, global,
// and high-rated matchup accumulators. preA/preB are the pre-update
// ratings used to compute this game's win probabilities — the same
// ratings snapshotted into game_ratings.
//
// The adjusted increment always uses the losing side's pre-game win
// probability, kept identical across the player, global, and high-rated
// tables rather than branching the increment direction by which side won
// (an ambiguity in the rating values this was built against — this
// reading keeps the two tables in agreement with each other).
func applyMatchupCounters(ctx context.Context, tx *sql.Tx, m feed.Match, preA, preB rating.Rating) error {
	established := preA.Deviation < rating.MaxDeviation && preB.Deviation < rating.MaxDeviation
	highRated := established && preA.Value > rating.HighRating && preB.Value > rating.HighRating

	aWon := m.Winner == feed.Player1

	var weight float64
	if established {
		weight = winProbability(preA.Value, preB.Value)
		if aWon {
			weight = 1 - weight // opponent's (B's) pre-game win probability
		}
	}

	if err := store.IncrementPlayerMatchup(ctx, tx, m.A.ID, m.A.Character, m.B.Character, aWon, weight); err != nil {
		return err
	}
	if err := store.IncrementPlayerMatchup(ctx, tx, m.B.ID, m.B.Character, m.A.Character, !aWon, weight); err != nil {
		return err
	}

	if !established {
		return nil
	}
	if err := store.IncrementGlobalMatchup(ctx, tx, m.A.Character, m.B.Character, aWon, weight); err != nil {
		return err
	}
	if err := store.IncrementGlobalMatchup(ctx, tx, m.B.Character, m.A.Character, !aWon, weight); err != nil {
		return err
	}

	if !highRated {
		return nil
	}
	if err := store.IncrementHighRatedMatchup(ctx, tx, m.A.Character, m.B.Character, aWon, weight); err != nil {
		return err
	}
	if err := store.IncrementHighRatedMatchup(ctx, tx, m.B.Character, m.A.Character, !aWon, weight); err != nil {
		return err
	}
	return nil
}
