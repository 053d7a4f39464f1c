package results

import (
	"errors"
	"fmt"
)

// ErrFileNotFound is returned (wrapped) when the results file does not exist.
var ErrFileNotFound = errors.New("results file not found")

// MissingColumnError reports a column referenced by an experiment that the
// table does not carry.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

// ValueError reports a cell that could not be read as a number.
type ValueError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("column %q row %d: invalid number %q", e.Column, e.Row, e.Value)
}

func (e *ValueError) Unwrap() error { return e.Err }

// IsMissingColumn reports whether err is (or wraps) a MissingColumnError.
func IsMissingColumn(err error) bool {
	var mc *MissingColumnError
	return errors.As(err, &mc)
}
