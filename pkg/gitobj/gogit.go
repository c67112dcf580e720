package gitobj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// RepoStore is a Store backed by an on-disk repository, read through go-git.
// It keeps no mutable state of its own and is safe for concurrent use.
type RepoStore struct {
	repo *gogit.Repository
}

var _ Store = (*RepoStore)(nil)

// Open opens the repository at path. Both bare and non-bare layouts are
// accepted.
func Open(path string) (*RepoStore, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &RepoStore{repo: repo}, nil
}

// Type implements Store.
func (s *RepoStore) Type(_ context.Context, hash Hash) (ObjectType, error) {
	obj, err := s.repo.Storer.EncodedObject(plumbing.AnyObject, plumbing.NewHash(hash.String()))
	if err != nil {
		return "", objErr(hash, err)
	}
	return ObjectType(obj.Type().String()), nil
}

// Commit implements Store.
func (s *RepoStore) Commit(_ context.Context, hash Hash) (*Commit, error) {
	c, err := s.repo.CommitObject(plumbing.NewHash(hash.String()))
	if err != nil {
		return nil, objErr(hash, err)
	}
	parents := make([]Hash, len(c.ParentHashes))
	for i, p := range c.ParentHashes {
		parents[i] = Hash(p.String())
	}
	return &Commit{
		Hash:      Hash(c.Hash.String()),
		Tree:      Hash(c.TreeHash.String()),
		Parents:   parents,
		Author:    signature(c.Author),
		Committer: signature(c.Committer),
		Message:   c.Message,
	}, nil
}

// Tree implements Store.
func (s *RepoStore) Tree(_ context.Context, hash Hash) ([]TreeEntry, error) {
	t, err := s.repo.TreeObject(plumbing.NewHash(hash.String()))
	if err != nil {
		return nil, objErr(hash, err)
	}
	entries := make([]TreeEntry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entry := TreeEntry{
			Name: e.Name,
			Mode: uint32(e.Mode),
			Hash: Hash(e.Hash.String()),
		}
		if e.Mode != filemode.Dir && e.Mode != filemode.Submodule {
			blob, err := s.repo.Storer.EncodedObject(plumbing.BlobObject, e.Hash)
			if err != nil {
				return nil, objErr(Hash(e.Hash.String()), err)
			}
			entry.Size = blob.Size()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Blob implements Store.
func (s *RepoStore) Blob(_ context.Context, hash Hash) (io.ReadCloser, int64, error) {
	b, err := s.repo.BlobObject(plumbing.NewHash(hash.String()))
	if err != nil {
		return nil, 0, objErr(hash, err)
	}
	r, err := b.Reader()
	if err != nil {
		return nil, 0, fmt.Errorf("blob %s: %w", hash, err)
	}
	return r, b.Size, nil
}

// Tag implements Store.
func (s *RepoStore) Tag(_ context.Context, hash Hash) (*Tag, error) {
	t, err := s.repo.TagObject(plumbing.NewHash(hash.String()))
	if err != nil {
		return nil, objErr(hash, err)
	}
	return &Tag{
		Hash:       Hash(t.Hash.String()),
		Name:       t.Name,
		Target:     Hash(t.Target.String()),
		TargetType: ObjectType(t.TargetType.String()),
		Tagger:     signature(t.Tagger),
		Message:    t.Message,
	}, nil
}

// Ref implements Store.
func (s *RepoStore) Ref(_ context.Context, name string) (*Ref, error) {
	ref, err := s.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("ref %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("ref %s: %w", name, err)
	}
	return &Ref{Name: name, Hash: Hash(ref.Hash().String())}, nil
}

// Refs implements Store.
func (s *RepoStore) Refs(_ context.Context) ([]*Ref, error) {
	iter, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("refs: %w", err)
	}
	defer iter.Close()
	var refs []*Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		if !strings.HasPrefix(ref.Name().String(), "refs/") {
			return nil
		}
		refs = append(refs, &Ref{
			Name: ref.Name().String(),
			Hash: Hash(ref.Hash().String()),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("refs: %w", err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Head implements Store.
func (s *RepoStore) Head(_ context.Context) (*Ref, error) {
	ref, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("HEAD: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("HEAD: %w", err)
	}
	return &Ref{Name: ref.Name().String(), Hash: Hash(ref.Hash().String())}, nil
}

// ResolvePrefix implements Store.
func (s *RepoStore) ResolvePrefix(ctx context.Context, prefix string) (Hash, error) {
	prefix = strings.ToLower(prefix)
	if !validHexPrefix(prefix) {
		return "", fmt.Errorf("prefix %q: %w", prefix, ErrNotFound)
	}
	if len(prefix) == HashLen {
		h := Hash(prefix)
		if _, err := s.Type(ctx, h); err != nil {
			return "", err
		}
		return h, nil
	}

	iter, err := s.repo.Storer.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return "", fmt.Errorf("prefix %s: %w", prefix, err)
	}
	defer iter.Close()
	var match Hash
	err = iter.ForEach(func(obj plumbing.EncodedObject) error {
		hex := obj.Hash().String()
		if !strings.HasPrefix(hex, prefix) {
			return nil
		}
		if !match.IsZero() && match != Hash(hex) {
			return storer.ErrStop
		}
		match = Hash(hex)
		return nil
	})
	if errors.Is(err, storer.ErrStop) {
		return "", fmt.Errorf("prefix %s: %w", prefix, ErrAmbiguous)
	}
	if err != nil {
		return "", fmt.Errorf("prefix %s: %w", prefix, err)
	}
	if match.IsZero() {
		return "", fmt.Errorf("prefix %s: %w", prefix, ErrNotFound)
	}
	return match, nil
}

func signature(sig object.Signature) Signature {
	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

func objErr(hash Hash, err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return fmt.Errorf("object %s: %w", hash, ErrNotFound)
	}
	return fmt.Errorf("object %s: %w", hash, err)
}

func validHexPrefix(s string) bool {
	if len(s) < 4 || len(s) > HashLen {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
