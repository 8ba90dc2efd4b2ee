package evaluation

import "errors"

var (
	ErrEmpty          = errors.New("no observations")
	ErrLengthMismatch = errors.New("observations and predictions differ in length")
)
