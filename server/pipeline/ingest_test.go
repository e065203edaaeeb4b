package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ratingengine/server/feed"
	"ratingengine/server/store"
)

type fakeFeed struct {
	batches [][]feed.Match
	errs    [][]error
	calls   int
	pages   []int
}

func (f *fakeFeed) Fetch(ctx context.Context, pages, pageSize int, minFloor, maxFloor feed.Floor) ([]feed.Match, []error, error) {
	f.pages = append(f.pages, pages)
	if f.calls >= len(f.batches) {
		f.calls++
		return nil, nil, nil
	}
	matches := f.batches[f.calls]
	errs := f.errs[f.calls]
	f.calls++
	return matches, errs, nil
}

func openTestStore(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ratings.sqlite")
	db, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestIngesterTickUsesWarmupPagesOnlyOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	m := feed.Match{
		Timestamp: time.Unix(1_700_000_000, 0).UTC(),
		Floor:     feed.Floor(3),
		Winner:    feed.Player1,
		A:         feed.Player{ID: 1, Character: 0, Name: "a"},
		B:         feed.Player{ID: 2, Character: 1, Name: "b"},
	}
	f := &fakeFeed{batches: [][]feed.Match{{m}, {m}}, errs: [][]error{nil, nil}}
	ig := NewIngester(f, db)

	if err := ig.Tick(ctx); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if err := ig.Tick(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if len(f.pages) != 2 || f.pages[0] != WarmupPages || f.pages[1] != SteadyPages {
		t.Fatalf("expected page counts [%d %d], got %v", WarmupPages, SteadyPages, f.pages)
	}

	games, err := store.GamesBetween(ctx, db.DB, m.Timestamp, m.Timestamp.Add(time.Second))
	if err != nil {
		t.Fatalf("games between: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("expected duplicate game across ticks to be a no-op, got %d rows", len(games))
	}
}

func TestIngesterUpsertsPlayersFromMatches(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)
	m := feed.Match{
		Timestamp: time.Unix(1_700_000_100, 0).UTC(),
		Floor:     feed.Floor(9),
		Winner:    feed.Player2,
		A:         feed.Player{ID: 5, Character: 2, Name: "e"},
		B:         feed.Player{ID: 6, Character: 3, Name: "f"},
	}
	f := &fakeFeed{batches: [][]feed.Match{{m}}, errs: [][]error{nil}}
	ig := NewIngester(f, db)
	if err := ig.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	var floor int
	if err := db.QueryRowContext(ctx, `SELECT floor FROM players WHERE id = 6`).Scan(&floor); err != nil {
		t.Fatalf("query player: %v", err)
	}
	if floor != 9 {
		t.Fatalf("expected player floor 9, got %d", floor)
	}
}
