package params

import "errors"

var (
	ErrMissingParam = errors.New("missing parameter")
	ErrUnknownParam = errors.New("unknown parameter")
	ErrGeneCount    = errors.New("wrong number of genes")
)
