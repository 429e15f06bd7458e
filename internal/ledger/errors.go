package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network failures, timeouts, non-2xx answers and
	// bodies that do not decode.
	ErrTransport = errors.New("ledger transport failure")
	// ErrDataShape marks a record missing an expected field.
	ErrDataShape = errors.New("ledger data shape failure")

	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// TransportError is what the HTTP client returns for any failed call.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DataShapeError describes one dropped record.
type DataShapeError struct {
	Collection string
	Index      int
	Reason     string
}

func (e DataShapeError) Error() string {
	return fmt.Sprintf("%s[%d]: %s", e.Collection, e.Index, e.Reason)
}

func (e DataShapeError) Is(target error) bool { return target == ErrDataShape }
