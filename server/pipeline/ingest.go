// Package pipeline wires the feed client and the persistent store together
// into the two periodic ticks that do all of the system's real work: the
// ingest tick (pulling new games) and the rating tick (applying Glicko-2,
// matchup accumulation, distribution snapshotting, and versus derivation).
package pipeline

import (
	"context"
	"log"

	"ratingengine/server/feed"
	"ratingengine/server/store"
)

// minIngestFloor and maxIngestFloor are the fixed floor span the ingest loop
// pulls: lowest tier through the celestial sentinel.
var (
	minIngestFloor = feed.Floor1
	maxIngestFloor = feed.FloorCelestial
)

// WarmupPages is the page count used on the very first ingest tick, to
// pull a deep backlog before settling into the steady-state page count.
const WarmupPages = 100

// SteadyPages is the page count used on every tick after the first.
const SteadyPages = 10

// Ingester runs the ingest tick against a feed and a store.
type Ingester struct {
	Feed  feed.Feed
	Store *store.DB

	warmed bool
}

// NewIngester returns an Ingester that will run a warm-up-sized fetch on
// its first Tick call.
func NewIngester(f feed.Feed, db *store.DB) *Ingester {
	return &Ingester{Feed: f, Store: db}
}

// Tick runs one ingest pass: fetch, upsert players, insert de-duplicated
// games, all inside a single transaction, then logs the fetch/insert
// diagnostics the ingest loop is expected to surface.
func (ig *Ingester) Tick(ctx context.Context) error {
	pages := SteadyPages
	if !ig.warmed {
		pages = WarmupPages
	}

	matches, parseErrors, err := ig.Feed.Fetch(ctx, pages, feed.PageSize, minIngestFloor, maxIngestFloor)
	if err != nil {
		return err
	}
	ig.warmed = true

	tx, err := ig.Store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	newGames := 0
	for _, m := range matches {
		if err := store.UpsertPlayer(ctx, tx, m.A.ID, m.A.Name, m.Floor); err != nil {
			return err
		}
		if err := store.UpsertPlayer(ctx, tx, m.B.ID, m.B.Name, m.Floor); err != nil {
			return err
		}
		inserted, err := store.InsertGame(ctx, tx, m)
		if err != nil {
			return err
		}
		if inserted {
			newGames++
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	fetched := len(matches)
	switch {
	case fetched > 0 && newGames == fetched:
		log.Printf("ingest: all %d fetched games were new — page count may be too low to keep up with feed volume", fetched)
	case fetched > 0 && newGames > fetched/2:
		log.Printf("ingest: %d/%d fetched games were new, more than half — page count may be close to too low", newGames, fetched)
	}
	if len(parseErrors) > 0 {
		log.Printf("ingest: feed reported %d row parse errors this tick", len(parseErrors))
	}

	return nil
}
