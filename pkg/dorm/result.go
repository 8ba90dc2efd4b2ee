package dorm

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the text form of dates read by WithParseDates columns and
// written by Cmp.
const DateLayout = "2006-01-02 15:04:05"

// Result holds every row of an executed query together with the builder
// state it was produced from.
type Result struct {
	Columns []string
	Rows    [][]any

	selects    []string
	groups     []string
	parseDates map[string]struct{}
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.Rows) }

// First returns the first column of the first row, or nil for no rows.
func (r *Result) First() any {
	if len(r.Rows) == 0 || len(r.Rows[0]) == 0 {
		return nil
	}
	return r.Rows[0][0]
}

// Vals returns the raw rows.
func (r *Result) Vals() [][]any {
	return r.Rows
}

// Dicts returns one map per row keyed by the select expressions.
func (r *Result) Dicts() ([]map[string]any, error) {
	if err := checkDictSelect(r.selects); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		m, err := r.toDict(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Groups returns the rows keyed by their GROUP BY values. With several group
// columns the values are joined with "|" after a backslash escape of any
// backslash or "|" inside a value, so ("a|b", "c") keys as `a\|b|c` and
// ("a", "b|c") as `a|b\|c`. The group columns are dropped from each row map.
// A later row with the same key replaces an earlier one.
func (r *Result) Groups() (map[string]map[string]any, error) {
	if err := checkDictSelect(r.selects); err != nil {
		return nil, err
	}
	for _, g := range r.groups {
		if !slices.Contains(r.selects, g) {
			return nil, fmt.Errorf("%w: %s", ErrGroupSelect, g)
		}
	}
	out := make(map[string]map[string]any, len(r.Rows))
	for _, row := range r.Rows {
		m, err := r.toDict(row)
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(r.groups))
		for i, g := range r.groups {
			parts[i] = groupKey(m[g])
			if len(r.groups) > 1 {
				parts[i] = keyEscaper.Replace(parts[i])
			}
			delete(m, g)
		}
		out[strings.Join(parts, "|")] = m
	}
	return out, nil
}

func (r *Result) toDict(row []any) (map[string]any, error) {
	m := make(map[string]any, len(r.selects))
	for i, k := range r.selects {
		if i >= len(row) {
			break
		}
		v := row[i]
		if _, ok := r.parseDates[k]; ok {
			t, err := parseDate(v)
			if err != nil {
				return nil, fmt.Errorf("%w %s: %v", ErrParseDate, k, err)
			}
			v = t
		}
		m[k] = v
	}
	return m, nil
}

func parseDate(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x, nil
	case string:
		return time.Parse(DateLayout, x)
	case []byte:
		return time.Parse(DateLayout, string(x))
	default:
		return nil, fmt.Errorf("unexpected %T", v)
	}
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

func groupKey(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(DateLayout)
	}
	return fmt.Sprint(v)
}

func checkDictSelect(selects []string) error {
	if len(selects) == 0 || slices.Contains(selects, "*") {
		return fmt.Errorf("%w, not (%s)", ErrDictSelect, strings.Join(selects, ", "))
	}
	return nil
}
