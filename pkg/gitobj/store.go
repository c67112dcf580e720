package gitobj

import (
	"context"
	"io"
)

// Store supplies primitive access to a repository's object graph and refs.
// Implementations must support concurrent readers. Objects are immutable;
// refs are re-read on every call and must never be assumed stable between
// two reads.
type Store interface {
	// Type reports the type of the object named by hash. Returns
	// ErrNotFound if no such object exists.
	Type(ctx context.Context, hash Hash) (ObjectType, error)

	// Commit reads a commit object.
	Commit(ctx context.Context, hash Hash) (*Commit, error)

	// Tree enumerates the immediate entries of a tree, sorted by name.
	Tree(ctx context.Context, hash Hash) ([]TreeEntry, error)

	// Blob opens a blob's raw content for streaming. The caller must close
	// the reader.
	Blob(ctx context.Context, hash Hash) (io.ReadCloser, int64, error)

	// Tag reads an annotated tag object.
	Tag(ctx context.Context, hash Hash) (*Tag, error)

	// Ref looks up a single ref by full name, dereferencing symbolic refs
	// transitively.
	Ref(ctx context.Context, name string) (*Ref, error)

	// Refs enumerates all non-symbolic refs, sorted by name.
	Refs(ctx context.Context) ([]*Ref, error)

	// Head returns the resolved HEAD ref. Its Name is the full refspec
	// HEAD points at (e.g. refs/heads/master).
	Head(ctx context.Context) (*Ref, error)

	// ResolvePrefix resolves a full or abbreviated hex hash to the single
	// object it names. Returns ErrNotFound if nothing matches and
	// ErrAmbiguous if the prefix matches more than one object.
	ResolvePrefix(ctx context.Context, prefix string) (Hash, error)
}
