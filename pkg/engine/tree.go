package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

// Entry is a tree entry projected to its full slash-joined path.
type Entry struct {
	gitobj.TreeEntry
	Path string
}

// ListTree returns the direct entries of the tree at root, projected with
// their names as paths.
func ListTree(ctx context.Context, s gitobj.Store, root gitobj.Hash) ([]Entry, error) {
	entries, err := s.Tree(ctx, root)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{TreeEntry: e, Path: e.Name}
	}
	return out, nil
}

// treeFrame is one level of a depth-first tree expansion.
type treeFrame struct {
	entries []gitobj.TreeEntry
	next    int
	prefix  string
}

// WalkTree visits every entry under root in depth-first preorder: siblings
// in name order, each sub-tree visited immediately after its own entry and
// fully expanded before the next sibling. It uses an explicit work stack so
// stack depth is independent of directory nesting. Cancellation is checked
// between entries.
func WalkTree(ctx context.Context, s gitobj.Store, root gitobj.Hash, fn func(Entry) error) error {
	entries, err := s.Tree(ctx, root)
	if err != nil {
		return err
	}
	stack := []treeFrame{{entries: entries}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := &stack[len(stack)-1]
		if frame.next >= len(frame.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := frame.entries[frame.next]
		frame.next++

		path := frame.prefix + entry.Name
		if err := fn(Entry{TreeEntry: entry, Path: path}); err != nil {
			return err
		}
		if entry.IsTree() {
			children, err := s.Tree(ctx, entry.Hash)
			if err != nil {
				return err
			}
			stack = append(stack, treeFrame{entries: children, prefix: path + "/"})
		}
	}
	return nil
}

// FlattenTree recursively expands the tree at root into its leaf entries:
// blobs and submodule gitlinks keyed by full path, sub-trees replaced by
// their contents. Output order is the deterministic depth-first order of
// WalkTree.
func FlattenTree(ctx context.Context, s gitobj.Store, root gitobj.Hash) ([]Entry, error) {
	var out []Entry
	err := WalkTree(ctx, s, root, func(e Entry) error {
		if !e.IsTree() {
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolvePath descends from the tree at root along a slash-separated path
// and returns the entry it names. An empty path names the root tree itself.
// A trailing slash is tolerated on directory paths.
func ResolvePath(ctx context.Context, s gitobj.Store, root gitobj.Hash, path string) (Entry, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return Entry{TreeEntry: gitobj.TreeEntry{Mode: gitobj.ModeDir, Hash: root}, Path: ""}, nil
	}

	current := root
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		entries, err := s.Tree(ctx, current)
		if err != nil {
			return Entry{}, err
		}
		found := false
		for _, e := range entries {
			if e.Name != segment {
				continue
			}
			found = true
			if i == len(segments)-1 {
				return Entry{TreeEntry: e, Path: path}, nil
			}
			if !e.IsTree() {
				return Entry{}, fmt.Errorf("path %s: %s is not a directory: %w", path, strings.Join(segments[:i+1], "/"), gitobj.ErrNotFound)
			}
			current = e.Hash
			break
		}
		if !found {
			return Entry{}, fmt.Errorf("path %s: %w", path, gitobj.ErrNotFound)
		}
	}
	return Entry{}, fmt.Errorf("path %s: %w", path, gitobj.ErrNotFound)
}

// ReadBlob reads a blob's full content. Streaming callers should use the
// store directly.
func ReadBlob(ctx context.Context, s gitobj.Store, hash gitobj.Hash) ([]byte, error) {
	r, size, err := s.Blob(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer r.Close() // nolint: errcheck
	buf := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	return buf.Bytes(), nil
}
