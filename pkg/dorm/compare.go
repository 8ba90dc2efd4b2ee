package dorm

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Comparison operators. Any operator SQLite understands works with Cmp.
const (
	LT   = "<"
	GT   = ">"
	LTE  = "<="
	GTE  = ">="
	EQ   = "="
	NE   = "!="
	IN   = "IN"
	LIKE = "LIKE"
)

// Expr is a rendered SQL fragment. It is written into queries verbatim.
type Expr string

func (e Expr) String() string { return string(e) }

// Cmp renders "lhs op rhs" with rhs written as a SQL literal: strings and
// times are single quoted, slices become "(a, b)", Expr values and numbers
// are written as is.
func Cmp(lhs, op string, rhs any) Expr {
	return Expr(lhs + " " + op + " " + literal(rhs))
}

// And joins items with AND inside parentheses.
func And(items ...any) Expr { return join(" AND ", items) }

// Or joins items with OR inside parentheses.
func Or(items ...any) Expr { return join(" OR ", items) }

func join(sep string, items []any) Expr {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprint(it)
	}
	return Expr("(" + strings.Join(parts, sep) + ")")
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case Expr:
		return string(x)
	case string:
		return quote(x)
	case []byte:
		return quote(string(x))
	case time.Time:
		return quote(x.Format(DateLayout))
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case fmt.Stringer:
		return quote(x.String())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = literal(rv.Index(i).Interface())
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprint(v)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
