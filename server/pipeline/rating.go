package pipeline

import (
	"context"
	"log"
	"time"

	"ratingengine/server/feed"
	"ratingengine/server/rating"
	"ratingengine/server/store"
)

// RatingPeriod is the fixed width of one rating window.
const RatingPeriod = time.Hour

// windowGuard is added to RatingPeriod before a window is considered due,
// so a window never races games that arrived in the last minute of its
// span.
const windowGuard = 60 * time.Second

// Updater runs rating windows to catch the cursor up to the present,
// applying Glicko-2, matchup accumulation, distribution snapshotting, and
// versus-matchup derivation in one transaction per window.
type Updater struct {
	Store *store.DB
	Tau   float64
	Now   func() time.Time
}

// NewUpdater returns an Updater using the standard Glicko-2 tau and the
// real wall clock.
func NewUpdater(db *store.DB) *Updater {
	return &Updater{Store: db, Tau: rating.DefaultTau, Now: time.Now}
}

// RunDue runs every window that is currently due, one transaction each,
// stopping once the cursor has caught up to within the guard band of now.
func (u *Updater) RunDue(ctx context.Context) error {
	for {
		lastUpdate, err := u.Store.LastUpdate(ctx)
		if err != nil {
			return err
		}
		now := u.Now()
		if now.Sub(lastUpdate) <= RatingPeriod+windowGuard {
			return nil
		}
		if err := u.runWindow(ctx, lastUpdate); err != nil {
			return err
		}
	}
}

type ratingAccumulator struct {
	current  rating.Rating
	outcomes []rating.Result
	winsInc  int
	lossInc  int
}

func (u *Updater) runWindow(ctx context.Context, windowStart time.Time) error {
	windowEnd := windowStart.Add(RatingPeriod)

	tx, err := u.Store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	games, err := store.GamesBetween(ctx, tx, windowStart, windowEnd)
	if err != nil {
		return err
	}

	existing, err := store.AllPlayerRatings(ctx, tx)
	if err != nil {
		return err
	}
	acc := make(map[store.RatingKey]*ratingAccumulator, len(existing))
	for k, row := range existing {
		acc[k] = &ratingAccumulator{current: row.Rating}
	}

	lookup := func(id int64, char feed.Character) *ratingAccumulator {
		key := store.RatingKey{PlayerID: id, Character: char}
		a, ok := acc[key]
		if !ok {
			a = &ratingAccumulator{current: rating.Unrated()}
			acc[key] = a
		}
		return a
	}

	for _, m := range games {
		if err := store.UpsertPlayer(ctx, tx, m.A.ID, m.A.Name, m.Floor); err != nil {
			return err
		}
		if err := store.UpsertPlayer(ctx, tx, m.B.ID, m.B.Name, m.Floor); err != nil {
			return err
		}

		accA := lookup(m.A.ID, m.A.Character)
		accB := lookup(m.B.ID, m.B.Character)
		preA, preB := accA.current, accB.current

		if m.Winner == feed.Player1 {
			accA.outcomes = append(accA.outcomes, rating.Win(preB))
			accB.outcomes = append(accB.outcomes, rating.Loss(preA))
			accA.winsInc++
			accB.lossInc++
		} else {
			accB.outcomes = append(accB.outcomes, rating.Win(preA))
			accA.outcomes = append(accA.outcomes, rating.Loss(preB))
			accB.winsInc++
			accA.lossInc++
		}

		if err := applyMatchupCounters(ctx, tx, m, preA, preB); err != nil {
			return err
		}
		if err := store.InsertGameRating(ctx, tx, m, preA, preB); err != nil {
			return err
		}
	}

	for key, a := range acc {
		next := rating.NewRating(a.current, a.outcomes, u.Tau)
		if next.Deviation < 0 {
			log.Printf("rating: player %d char %d produced negative deviation %.4f, clamping", key.PlayerID, key.Character, next.Deviation)
			next.Deviation = 0
		}
		if err := store.UpsertPlayerRating(ctx, tx, key.PlayerID, key.Character, next, a.winsInc, a.lossInc); err != nil {
			return err
		}
	}

	if err := store.RebuildDistributions(ctx, tx); err != nil {
		return err
	}
	if err := store.RebuildVersusMatchups(ctx, tx); err != nil {
		return err
	}
	if err := store.SetLastUpdate(ctx, tx, windowEnd); err != nil {
		return err
	}

	return tx.Commit()
}
