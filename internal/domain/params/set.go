package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Set holds a value per configured parameter. Missing parameters disable
// the model term they drive.
type Set map[Param]float64

// Defaults returns a preset in the range of published NBA Elo models.
func Defaults() Set {
	return Set{
		Start:   1300,
		EloAvg:  1505,
		Revert:  0.25,
		RestMul: 0,
		HFAMod:  100,
		KStart:  20,
		KEnd:    20,
		KRate:   10,
		ACMul:   0.006,
		ACMod:   7.5,
		MOVMul:  0.8,
		MOVMod:  1,
	}
}

// Get returns the value of p, or 0 when unset.
func (s Set) Get(p Param) float64 { return s[p] }

// Has reports whether p is set.
func (s Set) Has(p Param) bool {
	_, ok := s[p]
	return ok
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Validate checks that every term has the parameters it needs.
func (s Set) Validate() error {
	if !s.Has(KStart) {
		return fmt.Errorf("%w: %s", ErrMissingParam, KStart)
	}
	pairs := [][2]Param{
		{EloAvg, Revert},
		{ACMod, ACMul},
		{MOVMul, MOVMod},
		{KRate, KEnd},
	}
	for _, pr := range pairs {
		if s.Has(pr[0]) && !s.Has(pr[1]) {
			return fmt.Errorf("%w: %s requires %s", ErrMissingParam, pr[0], pr[1])
		}
	}
	for p := range s {
		if !p.Valid() {
			return fmt.Errorf("%w: index %d", ErrUnknownParam, int(p))
		}
	}
	return nil
}

// FromGenes builds a full Set from a gene vector in Param order.
func FromGenes(genes []float64) (Set, error) {
	if len(genes) != Count {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrGeneCount, len(genes), Count)
	}
	s := make(Set, Count)
	for i, g := range genes {
		s[Param(i)] = g
	}
	return s, nil
}

// Genes returns the values in Param order; unset parameters are NaN.
func (s Set) Genes() []float64 {
	out := make([]float64, Count)
	for i := range out {
		v, ok := s[Param(i)]
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// Parse builds a Set from keys such as "k_start". Gene indexes ("5") are
// accepted too.
func Parse(m map[string]float64) (Set, error) {
	s := make(Set, len(m))
	for k, v := range m {
		key := strings.ToLower(strings.TrimSpace(k))
		p, ok := Lookup(key)
		if !ok {
			i, err := strconv.Atoi(key)
			if err != nil || !Param(i).Valid() {
				return nil, fmt.Errorf("%w: %q", ErrUnknownParam, k)
			}
			p = Param(i)
		}
		s[p] = v
	}
	return s, nil
}

// Names returns the keys of the set parameters in Param order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for _, p := range All() {
		if s.Has(p) {
			out = append(out, p.String())
		}
	}
	return out
}

// Pretty returns the set keyed by name with values rounded to places.
func (s Set) Pretty(places int) map[string]float64 {
	out := make(map[string]float64, len(s))
	for p, v := range s {
		out[p.String()] = roundTo(v, places)
	}
	return out
}

// String renders the set in Param order, e.g. "{start: 1300, k_start: 20}".
func (s Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, p := range All() {
		v, ok := s[p]
		if !ok {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(p.String())
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(roundTo(v, 5), 'f', -1, 64))
	}
	b.WriteByte('}')
	return b.String()
}
