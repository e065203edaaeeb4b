package pipeline

import "math"

// winProbability is the ad-hoc logistic win chance for the side with
// rating value va against a side with rating value vb, both on the
// internal Glicko-2 scale. This is distinct from the Glicko-2 expected
// score function — it exists only to weight matchup-adjustment counters
// and the versus-matchup derivation.
func winProbability(va, vb float64) float64 {
	ea, eb := math.Exp(va), math.Exp(vb)
	return ea / (ea + eb)
}
