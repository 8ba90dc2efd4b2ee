package api

import (
	"errors"
	"fmt"
)

// ErrBadRequest tags request validation failures.
var ErrBadRequest = errors.New("bad request")

// newKind tags kind with the operation that produced it.
func newKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// wrapKind tags kind and its cause with the operation.
func wrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
