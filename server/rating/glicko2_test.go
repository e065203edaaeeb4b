package rating

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestUnratedIsPublic1500(t *testing.T) {
	r := Unrated()
	pub, rd := ToPublic(r.Value, r.Deviation)
	if !almostEqual(pub, 1500, 1e-9) {
		t.Fatalf("expected public rating 1500, got %v", pub)
	}
	if !almostEqual(rd, 350, 1e-9) {
		t.Fatalf("expected public rd 350, got %v", rd)
	}
}

func TestNewRatingNoGamesGrowsDeviationOnly(t *testing.T) {
	r := Unrated()
	next := NewRating(r, nil, DefaultTau)
	if next.Value != r.Value {
		t.Fatalf("expected value unchanged, got %v want %v", next.Value, r.Value)
	}
	if next.Deviation <= r.Deviation {
		t.Fatalf("expected deviation to grow, got %v from %v", next.Deviation, r.Deviation)
	}
	if next.Volatility != r.Volatility {
		t.Fatalf("expected volatility unchanged when no games played, got %v", next.Volatility)
	}
}

// Reproduces the worked example from Glickman's Glicko-2 paper (player
// rating 1500/200, facing three opponents, tau=0.5) to confirm the Illinois
// root finder and update equations match the reference numbers.
func TestNewRatingMatchesPaperExample(t *testing.T) {
	value, deviation := FromPublic(1500, 200)
	r := Rating{Value: value, Deviation: deviation, Volatility: 0.06}

	opp1v, opp1d := FromPublic(1400, 30)
	opp2v, opp2d := FromPublic(1550, 100)
	opp3v, opp3d := FromPublic(1700, 300)

	results := []Result{
		Win(Rating{Value: opp1v, Deviation: opp1d}),
		Loss(Rating{Value: opp2v, Deviation: opp2d}),
		Loss(Rating{Value: opp3v, Deviation: opp3d}),
	}

	next := NewRating(r, results, 0.5)
	pub, rd := ToPublic(next.Value, next.Deviation)

	if !almostEqual(pub, 1464.06, 0.5) {
		t.Fatalf("expected rating near 1464.06, got %v", pub)
	}
	if !almostEqual(rd, 151.52, 0.5) {
		t.Fatalf("expected rd near 151.52, got %v", rd)
	}
	if !almostEqual(next.Volatility, 0.05999, 0.001) {
		t.Fatalf("expected volatility near 0.05999, got %v", next.Volatility)
	}
}

func TestNewRatingWinnerGainsLoserLoses(t *testing.T) {
	a := Unrated()
	b := Unrated()

	aNext := NewRating(a, []Result{Win(b)}, DefaultTau)
	bNext := NewRating(b, []Result{Loss(a)}, DefaultTau)

	if aNext.Value <= 0 {
		t.Fatalf("expected winner value > 0 on internal scale, got %v", aNext.Value)
	}
	if bNext.Value >= 0 {
		t.Fatalf("expected loser value < 0 on internal scale, got %v", bNext.Value)
	}
}

func TestNewRatingNegativeDeviationNeverOccurs(t *testing.T) {
	r := Unrated()
	opp := Unrated()
	next := NewRating(r, []Result{Win(opp), Loss(opp), Win(opp)}, DefaultTau)
	if next.Deviation < 0 {
		t.Fatalf("deviation went negative: %v", next.Deviation)
	}
}
