package activo

import "errors"

var (
	// ErrClosed is returned when an operation is attempted on a closed
	// store or its flush worker.
	ErrClosed = errors.New("activo: store closed")

	// ErrCloseTimeout is returned when Close gives up waiting for an
	// in-flight flush to finish.
	ErrCloseTimeout = errors.New("activo: timed out waiting for flush worker")
)
