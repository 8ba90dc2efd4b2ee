package dorm

import "errors"

// Sentinel errors returned by the query builder.
var (
	ErrNoTable     = errors.New("dorm: no table selected")
	ErrNoColumns   = errors.New("dorm: no columns given")
	ErrNoRows      = errors.New("dorm: no rows given")
	ErrDictSelect  = errors.New("dorm: select must name actual columns")
	ErrGroupSelect = errors.New("dorm: group columns must be selected")
	ErrParseDate   = errors.New("dorm: cannot parse date column")
)
