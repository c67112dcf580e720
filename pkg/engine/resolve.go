// Package engine walks the immutable commit/tree/blob/tag object graph and
// turns it into shaped result sets: commit history, flattened trees, diffs,
// blame attribution, contributor counts, and archives. It is stateless; all
// state lives in the gitobj.Store it is handed per call.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

// Resolve turns a revision specifier (ref name, full hash, or hash prefix)
// into the hash of the object it names. Ref names win over hash
// interpretation.
func Resolve(ctx context.Context, s gitobj.Store, spec string) (gitobj.Hash, error) {
	if spec == "" {
		return "", fmt.Errorf("empty revision: %w", gitobj.ErrNotFound)
	}

	if spec == gitobj.HEAD {
		ref, err := s.Head(ctx)
		if err != nil {
			return "", err
		}
		return ref.Hash, nil
	}

	candidates := []string{
		spec,
		"refs/" + spec,
		gitobj.RefsHeads + spec,
		gitobj.RefsTags + spec,
	}
	for _, name := range candidates {
		ref, err := s.Ref(ctx, name)
		if err == nil {
			return ref.Hash, nil
		}
		if !errors.Is(err, gitobj.ErrNotFound) {
			return "", err
		}
	}

	return s.ResolvePrefix(ctx, spec)
}

// ResolveCommit resolves a revision specifier to the commit it ultimately
// names, peeling annotated tags (which may chain) along the way.
func ResolveCommit(ctx context.Context, s gitobj.Store, spec string) (*gitobj.Commit, error) {
	hash, err := Resolve(ctx, s, spec)
	if err != nil {
		return nil, err
	}
	return PeelCommit(ctx, s, hash)
}

// PeelCommit dereferences hash until it reaches a commit. Annotated tags are
// followed through chains; any other object type is NotFound.
func PeelCommit(ctx context.Context, s gitobj.Store, hash gitobj.Hash) (*gitobj.Commit, error) {
	seen := make(map[gitobj.Hash]bool)
	for {
		if seen[hash] {
			return nil, fmt.Errorf("tag chain loop at %s: %w", hash, gitobj.ErrNotFound)
		}
		seen[hash] = true

		typ, err := s.Type(ctx, hash)
		if err != nil {
			return nil, err
		}
		switch typ {
		case gitobj.CommitObject:
			return s.Commit(ctx, hash)
		case gitobj.TagObject:
			tag, err := s.Tag(ctx, hash)
			if err != nil {
				return nil, err
			}
			hash = tag.Target
		default:
			return nil, fmt.Errorf("object %s is a %s, not a commit: %w", hash, typ, gitobj.ErrNotFound)
		}
	}
}

// ResolveTree resolves hash to a tree: tree hashes pass through, commits and
// annotated tags are peeled to their tree.
func ResolveTree(ctx context.Context, s gitobj.Store, hash gitobj.Hash) (gitobj.Hash, error) {
	typ, err := s.Type(ctx, hash)
	if err != nil {
		return "", err
	}
	switch typ {
	case gitobj.TreeObject:
		return hash, nil
	case gitobj.CommitObject, gitobj.TagObject:
		commit, err := PeelCommit(ctx, s, hash)
		if err != nil {
			return "", err
		}
		return commit.Tree, nil
	default:
		return "", fmt.Errorf("object %s is a %s, not a tree: %w", hash, typ, gitobj.ErrNotFound)
	}
}
