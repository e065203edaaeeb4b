package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"ratingengine/server/feed"
	"ratingengine/server/rating"
)

type playerPairBucket struct {
	lowWinsWeighted  float64
	highWinsWeighted float64
	gameCount        int
}

type pairKey struct {
	idLow, idHigh     int64
	charLow, charHigh feed.Character
}

// RebuildVersusMatchups recomputes the entire versus_matchups table from
// every recorded game-rating snapshot whose both sides are established
// and high-rated. The table is fully truncated and rebuilt each pass —
// there is no incremental path.
func RebuildVersusMatchups(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM versus_matchups`); err != nil {
		return fmt.Errorf("store: truncate versus_matchups: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT g.id_a, g.char_a, g.id_b, g.char_b, g.winner,
		       gr.value_a, gr.deviation_a, gr.value_b, gr.deviation_b
		FROM game_ratings gr
		JOIN games g ON g.timestamp = gr.timestamp AND g.id_a = gr.id_a AND g.id_b = gr.id_b
		WHERE gr.value_a > ? AND gr.value_b > ?
		  AND gr.deviation_a < ? AND gr.deviation_b < ?
	`, rating.HighRating, rating.HighRating, rating.MaxDeviation, rating.MaxDeviation)
	if err != nil {
		return fmt.Errorf("store: query qualifying game_ratings: %w", err)
	}

	buckets := make(map[pairKey]*playerPairBucket)
	pairCharsByKey := make(map[pairKey][2]feed.Character)

	for rows.Next() {
		var (
			idA, idB         int64
			charA, charB     int
			winner           int
			valueA, devA     float64
			valueB, devB     float64
		)
		if err := rows.Scan(&idA, &charA, &idB, &charB, &winner, &valueA, &devA, &valueB, &devB); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan qualifying game_rating: %w", err)
		}
		if charA == charB {
			continue // no canonical order; excluded from versus derivation
		}

		idLow, idHigh := idA, idB
		cLow, cHigh := feed.Character(charA), feed.Character(charB)
		vLow, vHigh := valueA, valueB
		canonicalWinner := winner
		if charA > charB {
			idLow, idHigh = idB, idA
			cLow, cHigh = feed.Character(charB), feed.Character(charA)
			vLow, vHigh = valueB, valueA
			if winner == 1 {
				canonicalWinner = 2
			} else {
				canonicalWinner = 1
			}
		}

		key := pairKey{idLow: idLow, idHigh: idHigh, charLow: cLow, charHigh: cHigh}
		b, ok := buckets[key]
		if !ok {
			b = &playerPairBucket{}
			buckets[key] = b
			pairCharsByKey[key] = [2]feed.Character{cLow, cHigh}
		}

		pLow := math.Exp(vLow) / (math.Exp(vLow) + math.Exp(vHigh))
		switch canonicalWinner {
		case 1: // low side won
			b.lowWinsWeighted += 1 - pLow
		case 2: // high side won
			b.highWinsWeighted += pLow
		}
		b.gameCount++
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate qualifying game_ratings: %w", err)
	}

	type pairAgg struct {
		probabilitySum float64
		pairCount      int
		gameCount      int
	}
	aggs := make(map[[2]feed.Character]*pairAgg)

	for key, b := range buckets {
		chars := pairCharsByKey[key]
		total := b.lowWinsWeighted + b.highWinsWeighted
		if total == 0 {
			continue
		}
		share := b.lowWinsWeighted / total

		a, ok := aggs[chars]
		if !ok {
			a = &pairAgg{}
			aggs[chars] = a
		}
		a.probabilitySum += share
		a.pairCount++
		a.gameCount += b.gameCount
	}

	for chars, a := range aggs {
		if a.pairCount == 0 {
			continue
		}
		probability := a.probabilitySum / float64(a.pairCount)
		low, high := chars[0], chars[1]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO versus_matchups(char_a, char_b, game_count, pair_count, win_rate) VALUES (?, ?, ?, ?, ?)
		`, int(low), int(high), a.gameCount, a.pairCount, probability); err != nil {
			return fmt.Errorf("store: insert versus_matchups %d/%d: %w", low, high, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO versus_matchups(char_a, char_b, game_count, pair_count, win_rate) VALUES (?, ?, ?, ?, ?)
		`, int(high), int(low), a.gameCount, a.pairCount, 1-probability); err != nil {
			return fmt.Errorf("store: insert versus_matchups %d/%d: %w", high, low, err)
		}
	}

	return nil
}
