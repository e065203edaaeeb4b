package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ratingengine/server/feed"
	"ratingengine/server/rating"
)

// PlayerRatingRow is a (player, character) rating together with its
// career win/loss tally on that character.
type PlayerRatingRow struct {
	Rating rating.Rating
	Wins   int
	Losses int
}

// PlayerRating fetches the current rating for (playerID, char), reporting
// ok=false when the pair has never played a rated game.
func PlayerRating(ctx context.Context, q Queryer, playerID int64, char feed.Character) (row PlayerRatingRow, ok bool, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT value, deviation, volatility, wins, losses
		FROM player_ratings WHERE id = ? AND char_id = ?
	`, playerID, int(char)).Scan(&row.Rating.Value, &row.Rating.Deviation, &row.Rating.Volatility, &row.Wins, &row.Losses)
	if errors.Is(err, sql.ErrNoRows) {
		return PlayerRatingRow{}, false, nil
	}
	if err != nil {
		return PlayerRatingRow{}, false, fmt.Errorf("store: read player_rating %d/%d: %w", playerID, char, err)
	}
	return row, true, nil
}

// UpsertPlayerRating writes the rating that results from applying one
// rating period to (playerID, char), incrementing its career win/loss
// counters by the counts observed in that period.
func UpsertPlayerRating(ctx context.Context, tx *sql.Tx, playerID int64, char feed.Character, r rating.Rating, winsInc, lossesInc int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO player_ratings(id, char_id, value, deviation, volatility, wins, losses)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, char_id) DO UPDATE SET
			value = excluded.value,
			deviation = excluded.deviation,
			volatility = excluded.volatility,
			wins = player_ratings.wins + excluded.wins,
			losses = player_ratings.losses + excluded.losses
	`, playerID, int(char), r.Value, r.Deviation, r.Volatility, winsInc, lossesInc)
	if err != nil {
		return fmt.Errorf("store: upsert player_rating %d/%d: %w", playerID, char, err)
	}
	return nil
}

// RatingKey identifies one (player, character) rating entity.
type RatingKey struct {
	PlayerID  int64
	Character feed.Character
}

// AllPlayerRatings loads every existing rating row, keyed by
// (player, character). A rating window's in-memory accumulator starts
// from this full set — not just the players who play a game in the
// window — because Glicko-2 still grows the deviation of idle players
// once a rating period elapses with no games for them.
func AllPlayerRatings(ctx context.Context, q Queryer) (map[RatingKey]PlayerRatingRow, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, char_id, value, deviation, volatility, wins, losses FROM player_ratings`)
	if err != nil {
		return nil, fmt.Errorf("store: query all player_ratings: %w", err)
	}
	defer rows.Close()

	out := make(map[RatingKey]PlayerRatingRow)
	for rows.Next() {
		var (
			id, charID int64
			row        PlayerRatingRow
		)
		if err := rows.Scan(&id, &charID, &row.Rating.Value, &row.Rating.Deviation, &row.Rating.Volatility, &row.Wins, &row.Losses); err != nil {
			return nil, fmt.Errorf("store: scan player_rating: %w", err)
		}
		out[RatingKey{PlayerID: id, Character: feed.Character(charID)}] = row
	}
	return out, rows.Err()
}

// GameRatingSnapshot is the pre-game rating of both sides of a single
// game joined to its game row, as returned by GameRatingsBetween.
type GameRatingSnapshot struct {
	Match    feed.Match
	RatingA  rating.Rating
	RatingB  rating.Rating
}

// InsertGameRating records the pre-game rating snapshot for one game.
func InsertGameRating(ctx context.Context, tx *sql.Tx, m feed.Match, ra, rb rating.Rating) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO game_ratings(timestamp, id_a, value_a, deviation_a, id_b, value_b, deviation_b)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.Timestamp.Unix(), m.A.ID, ra.Value, ra.Deviation, m.B.ID, rb.Value, rb.Deviation)
	if err != nil {
		return fmt.Errorf("store: insert game_rating: %w", err)
	}
	return nil
}

// GameRatingsBetween returns every game-rating snapshot joined to its game
// row, in ascending timestamp order, for games in [from, to). It joins on
// the explicit (timestamp, id_a, id_b) key, the same key the
// versus-matchup rebuild's own query joins on.
func GameRatingsBetween(ctx context.Context, q Queryer, from, to int64) ([]GameRatingSnapshot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT g.timestamp, g.id_a, g.name_a, g.char_a, g.id_b, g.name_b, g.char_b, g.winner, g.game_floor,
		       gr.value_a, gr.deviation_a, gr.value_b, gr.deviation_b
		FROM game_ratings gr
		JOIN games g ON g.timestamp = gr.timestamp AND g.id_a = gr.id_a AND g.id_b = gr.id_b
		WHERE g.timestamp >= ? AND g.timestamp < ?
		ORDER BY g.timestamp ASC, g.id_a ASC, g.id_b ASC
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("store: query game_ratings: %w", err)
	}
	defer rows.Close()

	var out []GameRatingSnapshot
	for rows.Next() {
		var (
			ts                 int64
			idA, idB           int64
			nameA, nameB       string
			charA, charB       int
			winner, floorValue int
			valueA, devA       float64
			valueB, devB       float64
		)
		if err := rows.Scan(&ts, &idA, &nameA, &charA, &idB, &nameB, &charB, &winner, &floorValue,
			&valueA, &devA, &valueB, &devB); err != nil {
			return nil, fmt.Errorf("store: scan game_rating: %w", err)
		}
		fl, err := feed.FloorFromU8(uint8(floorValue))
		if err != nil {
			return nil, err
		}
		ca, err := feed.CharacterFromU8(uint8(charA))
		if err != nil {
			return nil, err
		}
		cb, err := feed.CharacterFromU8(uint8(charB))
		if err != nil {
			return nil, err
		}
		out = append(out, GameRatingSnapshot{
			Match: feed.Match{
				Timestamp: unixSeconds(ts),
				Floor:     fl,
				Winner:    feed.Winner(winner),
				A:         feed.Player{ID: idA, Character: ca, Name: nameA},
				B:         feed.Player{ID: idB, Character: cb, Name: nameB},
			},
			RatingA: rating.Rating{Value: valueA, Deviation: devA},
			RatingB: rating.Rating{Value: valueB, Deviation: devB},
		})
	}
	return out, rows.Err()
}
