package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ratingengine/server/feed"
	"ratingengine/server/rating"
	"ratingengine/server/store"
)

func TestApplyMatchupCountersSkipsAdjustedWhenUnestablished(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ratings.sqlite")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	m := feed.Match{
		Timestamp: time.Unix(100, 0).UTC(),
		Floor:     feed.Floor(1),
		Winner:    feed.Player1,
		A:         feed.Player{ID: 1, Character: 0, Name: "a"},
		B:         feed.Player{ID: 2, Character: 1, Name: "b"},
	}

	tx, _ := db.BeginTx(ctx)
	if err := applyMatchupCounters(ctx, tx, m, rating.Unrated(), rating.Unrated()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	tx.Commit()

	var globalRows int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM global_matchups`).Scan(&globalRows)
	if globalRows != 0 {
		t.Fatalf("expected no global matchup rows for unestablished ratings, got %d", globalRows)
	}

	var winsReal, winsAdjusted int
	db.QueryRowContext(ctx, `SELECT wins_real, wins_adjusted FROM player_matchups WHERE id = 1`).Scan(&winsReal, &winsAdjusted)
	if winsReal != 1 {
		t.Fatalf("expected real win counter to still increment, got %d", winsReal)
	}
	if winsAdjusted != 0 {
		t.Fatalf("expected adjusted win counter to stay 0 for unestablished ratings, got %d", winsAdjusted)
	}
}

func TestApplyMatchupCountersWeightsByOpponentProbability(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ratings.sqlite")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	established := rating.Rating{Value: 0.3, Deviation: 0.1, Volatility: 0.06}
	otherEstablished := rating.Rating{Value: -0.2, Deviation: 0.1, Volatility: 0.06}

	m := feed.Match{
		Timestamp: time.Unix(200, 0).UTC(),
		Floor:     feed.Floor(1),
		Winner:    feed.Player1,
		A:         feed.Player{ID: 10, Character: 0, Name: "a"},
		B:         feed.Player{ID: 20, Character: 1, Name: "b"},
	}

	tx, _ := db.BeginTx(ctx)
	if err := applyMatchupCounters(ctx, tx, m, established, otherEstablished); err != nil {
		t.Fatalf("apply: %v", err)
	}
	tx.Commit()

	wantWeight := 1 - winProbability(established.Value, otherEstablished.Value)

	var winsAdjusted float64
	db.QueryRowContext(ctx, `SELECT wins_adjusted FROM player_matchups WHERE id = 10`).Scan(&winsAdjusted)
	if diff := winsAdjusted - wantWeight; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected wins_adjusted %v, got %v", wantWeight, winsAdjusted)
	}

	var globalRows int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM global_matchups`).Scan(&globalRows)
	if globalRows != 2 {
		t.Fatalf("expected both global matchup rows for established ratings, got %d", globalRows)
	}
}
