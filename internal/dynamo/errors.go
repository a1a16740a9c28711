package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for experimental components and sites.
var (
	// ErrDegenerateGeometry indicates parallel or zero-norm orientation vectors.
	ErrDegenerateGeometry = errors.New("dynamo: degenerate orientation (parallel or zero-length axes)")

	// ErrZeroLength indicates coincident end nodes without user-supplied axes.
	ErrZeroLength = errors.New("dynamo: element length is zero")

	// ErrDOFMismatch indicates a node whose DOF count differs from the geometry.
	ErrDOFMismatch = errors.New("dynamo: node DOF count does not match element")

	// ErrSizeMismatch indicates a matrix or vector of the wrong dimension.
	ErrSizeMismatch = errors.New("dynamo: size mismatch")

	// ErrNotAttached indicates the component has not been attached to nodes.
	ErrNotAttached = errors.New("dynamo: element not attached")

	// ErrInert indicates a component disabled by an earlier configuration error.
	ErrInert = errors.New("dynamo: element disabled by configuration error")

	// ErrNotImplemented indicates a geometry feature that is not available.
	ErrNotImplemented = errors.New("dynamo: not implemented")

	// ErrUnknownTag indicates a command tag the peer does not understand.
	ErrUnknownTag = errors.New("dynamo: unknown command tag")
)

// ConfigError wraps a configuration error with the component and the
// offending quantity.
type ConfigError struct {
	Element  int
	Quantity string
	Wrapped  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("element %d: %s: %v", e.Element, e.Quantity, e.Wrapped)
}

func (e *ConfigError) Unwrap() error {
	return e.Wrapped
}
