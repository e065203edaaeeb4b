package feed

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// rawGame is the shape of one element in a JSON bulk-import file.
type rawGame struct {
	Time            string `json:"time"`
	Floor           uint32 `json:"floor"`
	Winner          uint32 `json:"winner"`
	PlayerAID       string `json:"playerAID"`
	PlayerBID       string `json:"playerBID"`
	PlayerAName     string `json:"playerAName"`
	PlayerBName     string `json:"playerBName"`
	PlayerACharCode int    `json:"playerACharCode"`
	PlayerBCharCode int    `json:"playerBCharCode"`
}

// ParseJSONBatch decodes a JSON bulk-import file (an array of rawGame
// objects) into Matches, skipping rows with an empty time field. A row with
// an unparseable timestamp, an out-of-range floor/character code, or a
// winner outside {1,2} is bad data and aborts the whole batch — the caller
// is expected to treat this as fatal.
func ParseJSONBatch(r io.Reader) ([]Match, error) {
	var raws []rawGame
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("feed: decode json batch: %w", err)
	}

	matches := make([]Match, 0, len(raws))
	for i, g := range raws {
		if g.Time == "" {
			continue
		}
		m, err := g.toMatch()
		if err != nil {
			return nil, fmt.Errorf("feed: row %d: %w", i, err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (g rawGame) toMatch() (Match, error) {
	ts, err := parseImportTimestamp(g.Time)
	if err != nil {
		return Match{}, err
	}

	if g.Floor > 255 {
		return Match{}, fmt.Errorf("feed: invalid floor tag %d", g.Floor)
	}
	floor, err := FloorFromU8(uint8(g.Floor))
	if err != nil {
		return Match{}, err
	}

	winner := Winner(g.Winner)
	if g.Winner > 2 || !winner.Valid() {
		return Match{}, fmt.Errorf("%w: %d", ErrBadWinner, g.Winner)
	}

	idA, err := strconv.ParseInt(g.PlayerAID, 10, 64)
	if err != nil {
		return Match{}, fmt.Errorf("feed: bad playerAID %q: %w", g.PlayerAID, err)
	}
	idB, err := strconv.ParseInt(g.PlayerBID, 10, 64)
	if err != nil {
		return Match{}, fmt.Errorf("feed: bad playerBID %q: %w", g.PlayerBID, err)
	}

	for _, code := range []int{g.PlayerACharCode, g.PlayerBCharCode} {
		if code < 0 || code > 255 {
			return Match{}, fmt.Errorf("feed: invalid character tag %d", code)
		}
	}
	charA, err := CharacterFromU8(uint8(g.PlayerACharCode))
	if err != nil {
		return Match{}, err
	}
	charB, err := CharacterFromU8(uint8(g.PlayerBCharCode))
	if err != nil {
		return Match{}, err
	}

	return Match{
		Timestamp: ts,
		Floor:     floor,
		Winner:    winner,
		A:         Player{ID: idA, Character: charA, Name: g.PlayerAName},
		B:         Player{ID: idB, Character: charB, Name: g.PlayerBName},
	}, nil
}

// parseImportTimestamp parses the "YYYY-MM-DD HH:MM:SS" format used by the
// JSON bulk-import files, interpreted as UTC.
func parseImportTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("feed: bad timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ErrBadWinner is returned when a match's winner tag is outside {1,2}. This
// is bad data: callers at the CLI boundary turn it into a fatal exit rather
// than skipping the row.
var ErrBadWinner = fmt.Errorf("feed: winner must be 1 or 2")
