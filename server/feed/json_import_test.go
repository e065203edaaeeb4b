package feed

import (
	"strings"
	"testing"
)

func TestParseJSONBatchSkipsEmptyTime(t *testing.T) {
	body := `[
		{"time":"","floor":3,"winner":1,"playerAID":"1","playerBID":"2","playerAName":"a","playerBName":"b","playerACharCode":0,"playerBCharCode":1},
		{"time":"2024-01-02 03:04:05","floor":5,"winner":2,"playerAID":"10","playerBID":"11","playerAName":"c","playerBName":"d","playerACharCode":2,"playerBCharCode":3}
	]`

	matches, err := ParseJSONBatch(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match after skipping empty-time row, got %d", len(matches))
	}
	m := matches[0]
	if m.A.ID != 10 || m.B.ID != 11 {
		t.Fatalf("unexpected player ids: %+v", m)
	}
	if m.Winner != Player2 {
		t.Fatalf("expected winner Player2, got %v", m.Winner)
	}
	if m.Floor != Floor(5) {
		t.Fatalf("expected floor 5, got %v", m.Floor)
	}
}

func TestParseJSONBatchBadWinnerIsFatalError(t *testing.T) {
	body := `[{"time":"2024-01-02 03:04:05","floor":1,"winner":3,"playerAID":"1","playerBID":"2","playerAName":"a","playerBName":"b","playerACharCode":0,"playerBCharCode":1}]`

	_, err := ParseJSONBatch(strings.NewReader(body))
	if err == nil {
		t.Fatal("expected error for winner outside {1,2}")
	}
}

func TestParseJSONBatchBadCharacterCode(t *testing.T) {
	body := `[{"time":"2024-01-02 03:04:05","floor":1,"winner":1,"playerAID":"1","playerBID":"2","playerAName":"a","playerBName":"b","playerACharCode":250,"playerBCharCode":1}]`

	_, err := ParseJSONBatch(strings.NewReader(body))
	if err == nil {
		t.Fatal("expected error for out-of-range character code")
	}
}
