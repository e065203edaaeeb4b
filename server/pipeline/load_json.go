package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"ratingengine/server/feed"
	"ratingengine/server/store"
)

// LoadJSONDir bulk-imports every *.json file in dir into the games and
// players tables. It does not touch ratings, matchups, or distributions —
// those are rebuilt the normal way the next time the rating updater catches
// its cursor up across the newly-imported window.
func LoadJSONDir(ctx context.Context, db *store.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("pipeline: read dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)

	total, newGames := 0, 0
	for _, path := range files {
		n, added, err := loadJSONFile(ctx, db, path)
		if err != nil {
			return fmt.Errorf("pipeline: load %s: %w", path, err)
		}
		total += n
		newGames += added
	}

	log.Printf("load-json: imported %d/%d games as new across %d files", newGames, total, len(files))
	return nil
}

func loadJSONFile(ctx context.Context, db *store.DB, path string) (total, newGames int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	matches, err := feed.ParseJSONBatch(f)
	if err != nil {
		return 0, 0, err
	}

	tx, err := db.BeginTx(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	for _, m := range matches {
		if err := store.UpsertPlayer(ctx, tx, m.A.ID, m.A.Name, m.Floor); err != nil {
			return 0, 0, err
		}
		if err := store.UpsertPlayer(ctx, tx, m.B.ID, m.B.Name, m.Floor); err != nil {
			return 0, 0, err
		}
		inserted, err := store.InsertGame(ctx, tx, m)
		if err != nil {
			return 0, 0, err
		}
		if inserted {
			newGames++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return len(matches), newGames, nil
}
