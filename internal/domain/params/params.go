// Package params defines the tunable hyperparameters of the Elo model and
// the search space the optimizer draws them from.
//
// Naming: *_mul values are multiplied into a term, *_mod values are added.
package params

import (
	"math"
	"math/rand/v2"
)

// Param identifies one hyperparameter. The numeric value is its gene index.
type Param int

const (
	Start   Param = iota // rating given to a team the first time it appears
	EloAvg               // mean rating reverted to at season start
	Revert               // share of the gap to EloAvg closed at season start
	RestMul              // rating per day of rest advantage
	HFAMod               // home advantage added for non-neutral games
	KStart               // K factor early in the season
	KEnd                 // K factor once KRate games are played
	KRate                // games played before switching to KEnd
	ACMul                // sensitivity of the autocorrelation adjustment
	ACMod                // damping of the autocorrelation adjustment
	MOVMul               // margin of victory multiplier
	MOVMod               // margin of victory modifier

	// Count is the number of parameters (and genes).
	Count = int(MOVMod) + 1
)

// Space is an evenly spaced range [Low, High) with step Step.
type Space struct {
	Low  float64
	High float64
	Step float64
}

type meta struct {
	key   string
	desc  string
	space Space
}

var table = [Count]meta{
	Start:   {"start", "starting elo", Space{800, 1500, 5}},
	EloAvg:  {"elo_avg", "elo mean", Space{900, 1700, 5}},
	Revert:  {"revert", "revert to mean", Space{0.05, 0.55, 0.01}},
	RestMul: {"rest_mul", "rest multiplier", Space{-25, 25, 0.25}},
	HFAMod:  {"hfa_mod", "home field advantage", Space{-20, 120, 0.5}},
	KStart:  {"k_start", "k start", Space{2, 60, 1}},
	KEnd:    {"k_end", "k end", Space{2, 60, 1}},
	KRate:   {"k_rate", "k rate", Space{4, 20, 1}},
	ACMul:   {"ac_mul", "autocorrelation multiplier", Space{0.001, 0.01, 0.001}},
	ACMod:   {"ac_mod", "autocorrelation modifier", Space{3.5, 12, 0.25}},
	MOVMul:  {"mov_mul", "margin of victory multiplier", Space{0.05, 0.95, 0.025}},
	MOVMod:  {"mov_mod", "margin of victory modifier", Space{0, 2, 0.2}},
}

// All returns every parameter in gene order.
func All() []Param {
	out := make([]Param, Count)
	for i := range out {
		out[i] = Param(i)
	}
	return out
}

// Valid reports whether p is a known parameter.
func (p Param) Valid() bool { return p >= 0 && int(p) < Count }

// String returns the parameter key, e.g. "k_start".
func (p Param) String() string {
	if !p.Valid() {
		return "unknown"
	}
	return table[p].key
}

// Desc returns a human readable name.
func (p Param) Desc() string {
	if !p.Valid() {
		return ""
	}
	return table[p].desc
}

// Space returns the search range of p.
func (p Param) Space() Space {
	if !p.Valid() {
		return Space{}
	}
	return table[p].space
}

// Lookup finds a parameter by key.
func Lookup(key string) (Param, bool) {
	for i, m := range table {
		if m.key == key {
			return Param(i), true
		}
	}
	return 0, false
}

// Len returns the number of grid points.
func (s Space) Len() int {
	if s.Step <= 0 || s.High <= s.Low {
		return 0
	}
	return int(math.Ceil((s.High-s.Low)/s.Step - 1e-9))
}

// At returns the i-th grid point.
func (s Space) At(i int) float64 {
	return roundTo(s.Low+float64(i)*s.Step, 9)
}

// Grid enumerates low, low+step, ... below high.
func (s Space) Grid() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// Sample draws one grid point uniformly.
func (s Space) Sample(rng *rand.Rand) float64 {
	n := s.Len()
	if n == 0 {
		return s.Low
	}
	return s.At(rng.IntN(n))
}

// Contains reports whether v lies inside [Low, High).
func (s Space) Contains(v float64) bool {
	return v >= s.Low && v < s.High
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
