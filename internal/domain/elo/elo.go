// Package elo implements the Elo update used by the rating engine and the
// optimizer: a pre-match shift, the pre-match rating difference, and a
// post-match shift with margin of victory and autocorrelation handling.
package elo

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/mrelo/internal/domain/params"
)

// Method selects how the margin of victory scales the update.
type Method int

const (
	// MOVLog scales by mov_mul*ln(max(|mov|, 1)) + mov_mod.
	MOVLog Method = iota
	// MOVExp scales by (|mov| + mov_mod)^mov_mul.
	MOVExp
)

func (m Method) String() string {
	if m == MOVExp {
		return "exp"
	}
	return "log"
}

// ParseMethod maps "log" and "exp" to a Method.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "log":
		return MOVLog, nil
	case "exp":
		return MOVExp, nil
	default:
		return MOVLog, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Probability returns the expected score of team1 given
// diff = rating1 - rating2.
func Probability(diff float64) float64 {
	return 1.0 / (math.Pow(10, -diff/400) + 1)
}

// ShiftPre returns the pre-match adjustment for a team that has played n
// games this season. Only the season opener (n == 0) moves, reverting
// toward elo_avg when it is configured.
func ShiftPre(pre float64, n int, cfg params.Set) float64 {
	if n > 0 || !cfg.Has(params.EloAvg) {
		return 0
	}
	revert := cfg.Get(params.Revert)
	post := cfg.Get(params.EloAvg)*revert + pre*(1-revert)
	return post - pre
}

// PreDiff returns the rating difference from team1's side after home
// advantage and rest adjustments.
func PreDiff(pre1, pre2 float64, rest1, rest2 int, neutral bool, cfg params.Set) float64 {
	diff := pre1 - pre2
	if !neutral && cfg.Has(params.HFAMod) {
		diff += cfg.Get(params.HFAMod)
	}
	if cfg.Has(params.RestMul) {
		diff += cfg.Get(params.RestMul) * float64(rest1-rest2)
	}
	return diff
}

// ShiftPost returns the zero-sum post-match shift: added to team1 and
// subtracted from team2. mov is score1 - score2; n1 and n2 are games played.
func ShiftPost(diff, mov float64, n1, n2 int, cfg params.Set, method Method) float64 {
	winnerDiff := diff
	switch {
	case mov == 0:
		winnerDiff = 0
	case mov < 0:
		winnerDiff = -diff
	}

	acAdj, movMult := 1.0, 1.0
	if cfg.Has(params.ACMod) {
		acMod := cfg.Get(params.ACMod)
		acAdj = acMod / (winnerDiff*cfg.Get(params.ACMul) + acMod)
	}
	if cfg.Has(params.MOVMul) {
		absMov := math.Abs(mov)
		if method == MOVExp {
			movMult = math.Pow(absMov+cfg.Get(params.MOVMod), cfg.Get(params.MOVMul))
		} else {
			movMult = cfg.Get(params.MOVMul)*math.Log(math.Max(absMov, 1)) + cfg.Get(params.MOVMod)
		}
	}

	win1 := 0.0
	if mov > 0 {
		win1 = 1
	}
	expectation := win1 - Probability(diff)

	k := cfg.Get(params.KStart)
	if cfg.Has(params.KRate) {
		if float64(n1+n2)/2 > cfg.Get(params.KRate) {
			k = cfg.Get(params.KEnd)
		}
	}
	return k * expectation * movMult * acAdj
}
