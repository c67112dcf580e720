package gitobj

import (
	"errors"
)

var (
	// ErrNotFound is returned when an object, ref, or revision does not
	// exist.
	ErrNotFound = errors.New("object not found")
	// ErrAmbiguous is returned when a hash prefix matches more than one
	// object.
	ErrAmbiguous = errors.New("ambiguous hash prefix")
)
