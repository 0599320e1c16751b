package resultop

import (
	"errors"
	"fmt"
)

// Sequence-cardinality violations raised by in-memory execution.
var (
	ErrNoElements  = errors.New("sequence contains no elements")
	ErrMoreThanOne = errors.New("sequence contains more than one element")
)

func opError(name string, err error) error {
	return fmt.Errorf("%s: %w", name, err)
}
