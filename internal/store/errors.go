package store

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned by collection calls after the store was closed.
	ErrClosed = errors.New("store: closed")
	// ErrUnknownBackend is returned when no backend has the requested name.
	ErrUnknownBackend = errors.New("store: unknown backend")
)

// ConnectionError reports that the store could not be reached at startup.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store: cannot connect to %s: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
