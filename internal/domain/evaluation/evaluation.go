// Package evaluation scores binary outcome forecasts.
//
// y holds observed outcomes (0 or 1) and p the forecast probability of a 1.
package evaluation

import "math"

// Epsilon bounds probabilities away from 0 and 1 in LogLoss.
const Epsilon = 1e-15

func check(y, p []float64) error {
	if len(y) == 0 {
		return ErrEmpty
	}
	if len(y) != len(p) {
		return ErrLengthMismatch
	}
	return nil
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// R2 is the coefficient of determination. With constant observations it
// returns 1 for a perfect forecast and 0 otherwise.
func R2(y, p []float64) (float64, error) {
	if err := check(y, p); err != nil {
		return 0, err
	}
	m := mean(y)
	var ssRes, ssTot float64
	for i := range y {
		ssRes += (y[i] - p[i]) * (y[i] - p[i])
		ssTot += (y[i] - m) * (y[i] - m)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// LogLoss is the mean negative log-likelihood.
func LogLoss(y, p []float64) (float64, error) {
	if err := check(y, p); err != nil {
		return 0, err
	}
	var s float64
	for i := range y {
		q := math.Min(math.Max(p[i], Epsilon), 1-Epsilon)
		s -= y[i]*math.Log(q) + (1-y[i])*math.Log(1-q)
	}
	return s / float64(len(y)), nil
}

// Accuracy is the share of forecasts that round to the outcome. Halves
// round to even, so 0.5 counts as a 0.
func Accuracy(y, p []float64) (float64, error) {
	if err := check(y, p); err != nil {
		return 0, err
	}
	hits := 0
	for i := range y {
		if math.RoundToEven(p[i]) == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(y)), nil
}

// BrierScore is the mean squared forecast error.
func BrierScore(y, p []float64) (float64, error) {
	if err := check(y, p); err != nil {
		return 0, err
	}
	var s float64
	for i := range y {
		s += (p[i] - y[i]) * (p[i] - y[i])
	}
	return s / float64(len(y)), nil
}

// BrierSkillScore compares the forecast to a reference forecast. A nil ref
// uses the observed base rate, which makes the score equal to R2.
func BrierSkillScore(y, p, ref []float64) (float64, error) {
	bs, err := BrierScore(y, p)
	if err != nil {
		return 0, err
	}
	if ref == nil {
		base := mean(y)
		ref = make([]float64, len(y))
		for i := range ref {
			ref[i] = base
		}
	}
	bsRef, err := BrierScore(y, ref)
	if err != nil {
		return 0, err
	}
	if bsRef == 0 {
		return 0, nil
	}
	return 1 - bs/bsRef, nil
}

// Scores bundles the metrics reported for a fitted parameter set.
type Scores struct {
	R2       float64 `json:"r2"`
	LogLoss  float64 `json:"ll"`
	Accuracy float64 `json:"ac"`
	BSS      float64 `json:"bss"`
}

// Score computes every metric at once.
func Score(y, p []float64) (Scores, error) {
	var s Scores
	var err error
	if s.R2, err = R2(y, p); err != nil {
		return Scores{}, err
	}
	if s.LogLoss, err = LogLoss(y, p); err != nil {
		return Scores{}, err
	}
	if s.Accuracy, err = Accuracy(y, p); err != nil {
		return Scores{}, err
	}
	if s.BSS, err = BrierSkillScore(y, p, nil); err != nil {
		return Scores{}, err
	}
	return s, nil
}
