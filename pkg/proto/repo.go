package proto

import (
	"context"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

// Repository is a read-only Git repository.
type Repository interface {
	// Name returns the repository's name.
	Name() string
	// Description returns the repository's description.
	Description() string
	// DefaultBranch returns the short name of the repository's default
	// branch.
	DefaultBranch() string
	// Open returns the repository's object store.
	Open() (gitobj.Store, error)
}

// Backend discovers repositories.
type Backend interface {
	// Repository finds a repository by name.
	Repository(ctx context.Context, name string) (Repository, error)
	// Repositories returns all repositories, sorted by name.
	Repositories(ctx context.Context) ([]Repository, error)
}
