// Package feed defines the wire types for the external replay feed (a
// paged match-history API) and the finite enumerations (Floor, Character,
// Winner) shared by the rest of the engine.
package feed

import (
	"fmt"
	"time"
)

// Floor is a coarse external skill tier attached to each game. Legal values
// are 1 through 10, plus the FloorCelestial sentinel for the top tier.
type Floor uint8

const (
	Floor1         Floor = 1
	Floor10        Floor = 10
	FloorCelestial Floor = 99
)

// Valid reports whether f is one of the legal floor values.
func (f Floor) Valid() bool {
	return (f >= Floor1 && f <= Floor10) || f == FloorCelestial
}

// FloorFromU8 parses a wire floor tag, rejecting anything outside 1..=10
// and the celestial sentinel.
func FloorFromU8(b uint8) (Floor, error) {
	f := Floor(b)
	if !f.Valid() {
		return 0, fmt.Errorf("feed: invalid floor tag %d", b)
	}
	return f, nil
}

func (f Floor) String() string {
	if f == FloorCelestial {
		return "Celestial"
	}
	return fmt.Sprintf("F%d", uint8(f))
}

// roster is the fixed character enumeration for this build. Its length is
// the single compile-time roster-size constant, CharacterCount.
var roster = [...]string{
	"Ironclad", "Wraith", "Tempest", "Harrow", "Vex",
	"Juggernaut", "Mirage", "Cutter", "Bastion", "Quill",
	"Ravel", "Sable", "Glimmer", "Doyen", "Kestrel",
	"Husk", "Anchor", "Fray", "Nocturne", "Paragon",
}

// CharacterCount is the roster size, N. Character tags at or above it are
// rejected as invalid.
const CharacterCount = len(roster)

// Character is a roster index, 0..=CharacterCount-1.
type Character uint8

// Valid reports whether c indexes a real roster entry.
func (c Character) Valid() bool {
	return int(c) < CharacterCount
}

// CharacterFromU8 parses a wire character tag.
func CharacterFromU8(b uint8) (Character, error) {
	c := Character(b)
	if !c.Valid() {
		return 0, fmt.Errorf("feed: invalid character tag %d", b)
	}
	return c, nil
}

func (c Character) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Character(%d)", uint8(c))
	}
	return roster[c]
}

// Winner identifies which side of a Match won.
type Winner uint8

const (
	Player1 Winner = 1
	Player2 Winner = 2
)

// Valid reports whether w is Player1 or Player2.
func (w Winner) Valid() bool { return w == Player1 || w == Player2 }

// Opposite returns the other winner value.
func (w Winner) Opposite() Winner {
	if w == Player1 {
		return Player2
	}
	return Player1
}

// Player is one side of a Match as reported by the feed.
type Player struct {
	ID        int64
	Character Character
	Name      string
}

// Match is a single parsed replay as returned by the feed, or reconstructed
// from a JSON bulk-import file.
type Match struct {
	Timestamp time.Time
	Floor     Floor
	Winner    Winner
	A, B      Player
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
