package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ratingengine/server/store"
)

func TestLoadJSONDirImportsGamesAndPlayers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	body := `[{"time":"2024-03-01 12:00:00","floor":4,"winner":1,"playerAID":"100","playerBID":"200","playerAName":"alice","playerBName":"bob","playerACharCode":0,"playerBCharCode":1}]`
	if err := os.WriteFile(filepath.Join(dir, "batch1.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "ratings.sqlite")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if err := LoadJSONDir(ctx, db, dir); err != nil {
		t.Fatalf("load json dir: %v", err)
	}

	var gameCount int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&gameCount)
	if gameCount != 1 {
		t.Fatalf("expected 1 imported game, got %d", gameCount)
	}

	var playerCount int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&playerCount)
	if playerCount != 2 {
		t.Fatalf("expected 2 imported players, got %d", playerCount)
	}
}
