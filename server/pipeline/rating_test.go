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

func TestUpdaterRunDueProcessesOneWindowAndAdvancesCursor(t *testing.T) {
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

	windowStart := time.Unix(0, 0).UTC()
	game := feed.Match{
		Timestamp: windowStart.Add(10 * time.Minute),
		Floor:     feed.Floor(4),
		Winner:    feed.Player1,
		A:         feed.Player{ID: 1, Character: 0, Name: "a"},
		B:         feed.Player{ID: 2, Character: 1, Name: "b"},
	}

	tx, err := db.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.UpsertPlayer(ctx, tx, game.A.ID, game.A.Name, game.Floor); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := store.UpsertPlayer(ctx, tx, game.B.ID, game.B.Name, game.Floor); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	if _, err := store.InsertGame(ctx, tx, game); err != nil {
		t.Fatalf("insert game: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit seed: %v", err)
	}

	u := &Updater{
		Store: db,
		Tau:   rating.DefaultTau,
		Now:   func() time.Time { return windowStart.Add(2 * RatingPeriod) },
	}
	if err := u.RunDue(ctx); err != nil {
		t.Fatalf("run due: %v", err)
	}

	row, ok, err := store.PlayerRating(ctx, db.DB, 1, 0)
	if err != nil {
		t.Fatalf("read rating: %v", err)
	}
	if !ok {
		t.Fatal("expected rating row for player 1 char 0")
	}
	if row.Wins != 1 {
		t.Fatalf("expected 1 win, got %d", row.Wins)
	}
	if row.Rating.Value <= rating.Unrated().Value {
		t.Fatalf("expected winner's rating to increase above unrated default, got %v", row.Rating.Value)
	}

	lastUpdate, err := db.LastUpdate(ctx)
	if err != nil {
		t.Fatalf("last update: %v", err)
	}
	if lastUpdate.Before(windowStart.Add(RatingPeriod)) {
		t.Fatalf("expected cursor to advance by at least one period, got %v", lastUpdate)
	}

	var playerMatchupRows int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM player_matchups`).Scan(&playerMatchupRows)
	if playerMatchupRows != 2 {
		t.Fatalf("expected both sides' player_matchups rows, got %d", playerMatchupRows)
	}
}

func TestUpdaterRunDueIsNoOpWhenWithinGuardBand(t *testing.T) {
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

	u := &Updater{
		Store: db,
		Tau:   rating.DefaultTau,
		Now:   func() time.Time { return time.Unix(0, 0).UTC() },
	}
	if err := u.RunDue(ctx); err != nil {
		t.Fatalf("run due: %v", err)
	}

	last, err := db.LastUpdate(ctx)
	if err != nil {
		t.Fatalf("last update: %v", err)
	}
	if !last.Equal(time.Unix(0, 0).UTC()) {
		t.Fatalf("expected cursor untouched, got %v", last)
	}
}
