package dorm

import (
	"database/sql/driver"
	"fmt"
	"math"

	"modernc.org/sqlite"
)

func init() { //nolint:gochecknoinits // functions must be registered before the first connection
	sqlite.MustRegisterFunction("stdev", &sqlite.FunctionImpl{
		NArgs:         1,
		Deterministic: true,
		MakeAggregate: func(sqlite.FunctionContext) (sqlite.AggregateFunction, error) {
			return &stdev{}, nil
		},
	})
}

// stdev is the sample standard deviation aggregate, computed with Welford's
// online update. NULL inputs are skipped; fewer than two values yield NULL.
type stdev struct {
	n    int
	mean float64
	m2   float64
}

func (s *stdev) Step(_ *sqlite.FunctionContext, args []driver.Value) error {
	x, ok, err := toFloat(args[0])
	if err != nil || !ok {
		return err
	}
	s.n++
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	s.m2 += delta * (x - s.mean)
	return nil
}

func (s *stdev) WindowInverse(_ *sqlite.FunctionContext, args []driver.Value) error {
	x, ok, err := toFloat(args[0])
	if err != nil || !ok {
		return err
	}
	if s.n <= 1 {
		*s = stdev{}
		return nil
	}
	prev := s.mean
	s.n--
	s.mean = (prev*float64(s.n+1) - x) / float64(s.n)
	s.m2 -= (x - s.mean) * (x - prev)
	if s.m2 < 0 {
		s.m2 = 0
	}
	return nil
}

func (s *stdev) WindowValue(*sqlite.FunctionContext) (driver.Value, error) {
	if s.n < 2 {
		return nil, nil
	}
	return math.Sqrt(s.m2 / float64(s.n-1)), nil
}

func (s *stdev) Final(*sqlite.FunctionContext) {}

func toFloat(v driver.Value) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return float64(x), true, nil
	case float64:
		return x, true, nil
	default:
		return 0, false, fmt.Errorf("stdev: non-numeric value %T", v)
	}
}
