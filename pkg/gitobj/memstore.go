package gitobj

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store. It content-addresses objects the same way
// a real repository does, so hash-prefix resolution behaves identically.
// It is primarily used to build fake object graphs in tests.
type MemStore struct {
	mu      sync.RWMutex
	types   map[Hash]ObjectType
	blobs   map[Hash][]byte
	trees   map[Hash][]TreeEntry
	commits map[Hash]*Commit
	tags    map[Hash]*Tag
	refs    map[string]string // target hash, or "ref: <name>" for symbolic
	head    string            // refspec HEAD points at
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store with HEAD pointing at
// refs/heads/master.
func NewMemStore() *MemStore {
	return &MemStore{
		types:   make(map[Hash]ObjectType),
		blobs:   make(map[Hash][]byte),
		trees:   make(map[Hash][]TreeEntry),
		commits: make(map[Hash]*Commit),
		tags:    make(map[Hash]*Tag),
		refs:    make(map[string]string),
		head:    RefsHeads + "master",
	}
}

func hashObject(kind ObjectType, payload []byte) Hash {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", kind, len(payload))
	h.Write(payload)
	return Hash(hex.EncodeToString(h.Sum(nil)))
}

// AddBlob stores raw content and returns its hash.
func (s *MemStore) AddBlob(data []byte) Hash {
	h := hashObject(BlobObject, data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[h] = append([]byte(nil), data...)
	s.types[h] = BlobObject
	return h
}

// AddTree stores a tree. Entries are sorted by name; blob sizes are filled
// in from the stored blobs.
func (s *MemStore) AddTree(entries []TreeEntry) Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	es := append([]TreeEntry(nil), entries...)
	sort.Slice(es, func(i, j int) bool { return es[i].Name < es[j].Name })
	var payload bytes.Buffer
	for i, e := range es {
		if e.Mode == 0 {
			e.Mode = ModeFile
		}
		if e.Type() == BlobObject {
			e.Size = int64(len(s.blobs[e.Hash]))
		}
		fmt.Fprintf(&payload, "%o %s\x00%s", e.Mode, e.Name, e.Hash)
		es[i] = e
	}
	h := hashObject(TreeObject, payload.Bytes())
	s.trees[h] = es
	s.types[h] = TreeObject
	return h
}

// AddCommit stores a commit, fills in its hash, and returns it.
func (s *MemStore) AddCommit(c *Commit) Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payload bytes.Buffer
	fmt.Fprintf(&payload, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&payload, "parent %s\n", p)
	}
	fmt.Fprintf(&payload, "author %s <%s> %d\n", c.Author.Name, c.Author.Email, c.Author.When.Unix())
	fmt.Fprintf(&payload, "committer %s <%s> %d\n\n%s", c.Committer.Name, c.Committer.Email, c.Committer.When.Unix(), c.Message)
	h := hashObject(CommitObject, payload.Bytes())
	c.Hash = h
	s.commits[h] = c
	s.types[h] = CommitObject
	return h
}

// AddTag stores an annotated tag, fills in its hash, and returns it.
func (s *MemStore) AddTag(t *Tag) Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := []byte(fmt.Sprintf("object %s\ntype %s\ntag %s\n\n%s", t.Target, t.TargetType, t.Name, t.Message))
	h := hashObject(TagObject, payload)
	t.Hash = h
	s.tags[h] = t
	s.types[h] = TagObject
	return h
}

// SetRef points a ref at a concrete hash.
func (s *MemStore) SetRef(name string, hash Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[name] = hash.String()
}

// SetSymbolicRef points a ref at another ref by name.
func (s *MemStore) SetSymbolicRef(name, target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[name] = "ref: " + target
}

// SetHead sets the refspec HEAD points at.
func (s *MemStore) SetHead(refspec string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = refspec
}

// Type implements Store.
func (s *MemStore) Type(_ context.Context, hash Hash) (ObjectType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[hash]
	if !ok {
		return "", fmt.Errorf("object %s: %w", hash, ErrNotFound)
	}
	return t, nil
}

// Commit implements Store.
func (s *MemStore) Commit(_ context.Context, hash Hash) (*Commit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.commits[hash]
	if !ok {
		return nil, fmt.Errorf("commit %s: %w", hash, ErrNotFound)
	}
	return c, nil
}

// Tree implements Store.
func (s *MemStore) Tree(_ context.Context, hash Hash) ([]TreeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trees[hash]
	if !ok {
		return nil, fmt.Errorf("tree %s: %w", hash, ErrNotFound)
	}
	return t, nil
}

// Blob implements Store.
func (s *MemStore) Blob(_ context.Context, hash Hash) (io.ReadCloser, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[hash]
	if !ok {
		return nil, 0, fmt.Errorf("blob %s: %w", hash, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), nil
}

// Tag implements Store.
func (s *MemStore) Tag(_ context.Context, hash Hash) (*Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tags[hash]
	if !ok {
		return nil, fmt.Errorf("tag %s: %w", hash, ErrNotFound)
	}
	return t, nil
}

// Ref implements Store.
func (s *MemStore) Ref(_ context.Context, name string) (*Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupRef(name)
}

func (s *MemStore) lookupRef(name string) (*Ref, error) {
	seen := make(map[string]bool)
	cur := name
	for {
		if seen[cur] {
			return nil, fmt.Errorf("ref %s: symbolic ref loop: %w", name, ErrNotFound)
		}
		seen[cur] = true
		target, ok := s.refs[cur]
		if !ok {
			return nil, fmt.Errorf("ref %s: %w", name, ErrNotFound)
		}
		if strings.HasPrefix(target, "ref: ") {
			cur = strings.TrimPrefix(target, "ref: ")
			continue
		}
		return &Ref{Name: name, Hash: Hash(target)}, nil
	}
}

// Refs implements Store.
func (s *MemStore) Refs(_ context.Context) ([]*Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.refs))
	for name, target := range s.refs {
		if strings.HasPrefix(target, "ref: ") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	refs := make([]*Ref, len(names))
	for i, name := range names {
		refs[i] = &Ref{Name: name, Hash: Hash(s.refs[name])}
	}
	return refs, nil
}

// Head implements Store.
func (s *MemStore) Head(_ context.Context) (*Ref, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, err := s.lookupRef(s.head)
	if err != nil {
		return nil, err
	}
	return &Ref{Name: s.head, Hash: ref.Hash}, nil
}

// ResolvePrefix implements Store.
func (s *MemStore) ResolvePrefix(_ context.Context, prefix string) (Hash, error) {
	prefix = strings.ToLower(prefix)
	if !validHexPrefix(prefix) {
		return "", fmt.Errorf("prefix %q: %w", prefix, ErrNotFound)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var match Hash
	for h := range s.types {
		if !strings.HasPrefix(h.String(), prefix) {
			continue
		}
		if !match.IsZero() {
			return "", fmt.Errorf("prefix %s: %w", prefix, ErrAmbiguous)
		}
		match = h
	}
	if match.IsZero() {
		return "", fmt.Errorf("prefix %s: %w", prefix, ErrNotFound)
	}
	return match, nil
}
