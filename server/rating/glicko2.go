// Package rating implements the Glicko-2 rating-period update.
//
// Unlike a typical Glicko-2 wrapper, every value here lives on the Glicko-2
// internal scale already (mu/phi/sigma in Glickman's paper); callers convert
// to and from the public "1500-centered" scale at the edges (see Scale,
// ToPublic, FromPublic) rather than storing public-scale values internally.
// This mirrors how the source stores and computes ratings.
package rating

import "math"

// Scale is the conversion factor between the public Glicko scale (centered
// at 1500) and the internal Glicko-2 scale.
const Scale = 173.7178

// MaxDeviation is the internal-scale deviation threshold below which a
// rating is considered established.
const MaxDeviation = 100.0 / Scale

// HighRating is the internal-scale cutoff for "high-rated" play.
const HighRating = (1800.0 - 1500.0) / Scale

// DefaultTau is the Glicko-2 system constant used by the rating updater.
const DefaultTau = 0.1

const epsilon = 1e-6

// Rating is a (player, character) strength estimate on the internal scale.
type Rating struct {
	Value      float64
	Deviation  float64
	Volatility float64
}

// Unrated returns the default rating for a newly-seen (player, character)
// pair: public 1500/350/0.06 converted to the internal scale.
func Unrated() Rating {
	return Rating{
		Value:      0,
		Deviation:  350.0 / Scale,
		Volatility: 0.06,
	}
}

// ToPublic converts value/deviation to the public Glicko scale.
func ToPublic(value, deviation float64) (rating, rd float64) {
	return value*Scale + 1500.0, deviation * Scale
}

// FromPublic converts a public-scale rating/deviation pair to the internal
// scale.
func FromPublic(rating, rd float64) (value, deviation float64) {
	return (rating - 1500.0) / Scale, rd / Scale
}

// Result is one game outcome against an opponent, with the opponent's
// pre-period rating, as consumed by NewRating. Score is 1 for a win and 0
// for a loss (this system has no draws).
type Result struct {
	OppValue     float64
	OppDeviation float64
	Score        float64
}

// Win records a win against opp, whose rating is the pre-period rating.
func Win(opp Rating) Result {
	return Result{OppValue: opp.Value, OppDeviation: opp.Deviation, Score: 1}
}

// Loss records a loss against opp, whose rating is the pre-period rating.
func Loss(opp Rating) Result {
	return Result{OppValue: opp.Value, OppDeviation: opp.Deviation, Score: 0}
}

func g(phi float64) float64 {
	return 1.0 / math.Sqrt(1.0+3.0*phi*phi/(math.Pi*math.Pi))
}

func e(mu, muj, phij float64) float64 {
	return 1.0 / (1.0 + math.Exp(-g(phij)*(mu-muj)))
}

// NewRating applies one Glicko-2 rating-period update to r given the set of
// game results faced during the period, per Glickman's paper steps 3-8. An
// empty results slice still grows the deviation per the no-games rule (step
// 6 applied with delta=0).
func NewRating(r Rating, results []Result, tau float64) Rating {
	if len(results) == 0 {
		phiStar := math.Sqrt(r.Deviation*r.Deviation + r.Volatility*r.Volatility)
		return Rating{Value: r.Value, Deviation: phiStar, Volatility: r.Volatility}
	}

	var sumG2E, sumGSE float64
	for _, res := range results {
		gj := g(res.OppDeviation)
		ej := e(r.Value, res.OppValue, res.OppDeviation)
		sumG2E += gj * gj * ej * (1 - ej)
		sumGSE += gj * (res.Score - ej)
	}
	v := 1.0 / sumG2E
	delta := v * sumGSE

	newVol := volatility(r.Deviation, r.Volatility, v, delta, tau)

	phiStar := math.Sqrt(r.Deviation*r.Deviation + newVol*newVol)
	newPhi := 1.0 / math.Sqrt(1.0/(phiStar*phiStar)+1.0/v)
	newMu := r.Value + newPhi*newPhi*sumGSE

	return Rating{Value: newMu, Deviation: newPhi, Volatility: newVol}
}

// volatility solves for sigma' via the Illinois algorithm (paper step 5).
func volatility(phi, sigma, v, delta, tau float64) float64 {
	a := math.Log(sigma * sigma)
	f := func(x float64) float64 {
		ex := math.Exp(x)
		num := ex * (delta*delta - phi*phi - v - ex)
		den := 2.0 * (phi*phi + v + ex) * (phi*phi + v + ex)
		return num/den - (x-a)/(tau*tau)
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*tau) < 0 {
			k++
		}
		B = a - k*tau
	}

	fA, fB := f(A), f(B)
	for math.Abs(B-A) > epsilon {
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2.0)
}
