package proto

import (
	"errors"
)

var (
	// ErrRepoNotFound is returned when a repository is not found.
	ErrRepoNotFound = errors.New("repository not found")
	// ErrInvalidArgument is returned when a request parameter is malformed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnavailable is returned when an optional feature is missing at
	// runtime.
	ErrUnavailable = errors.New("unavailable")
	// ErrIncompleteBlame indicates a blame run stopped before every line
	// could be attributed. Callers still receive the lines resolved so far.
	ErrIncompleteBlame = errors.New("blame attribution incomplete")
)
