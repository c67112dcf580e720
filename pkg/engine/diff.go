package engine

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

// DefaultContextLines is the number of unchanged lines surrounding each
// hunk when the caller does not say otherwise.
const DefaultContextLines = 3

// FileStatus classifies what happened to a path between two trees.
type FileStatus string

// File statuses.
const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusRemoved  FileStatus = "removed"
	StatusRenamed  FileStatus = "renamed"
)

// FileDiff is the difference of one path between two tree snapshots.
type FileDiff struct {
	// Path is the path on the new side; for removed files it is the old
	// path. OldPath is set when it differs from Path (renames).
	Path    string
	OldPath string
	Status  FileStatus

	OldHash gitobj.Hash
	NewHash gitobj.Hash
	OldMode uint32
	NewMode uint32

	Additions int
	Deletions int

	// Binary files carry no patch body.
	Binary bool
	// Patch holds the unified hunks for this file, without the diff --git
	// header block.
	Patch string
}

// Diff is an ordered set of per-file differences between two trees.
type Diff struct {
	Files []*FileDiff
}

// Additions returns the total number of added lines.
func (d *Diff) Additions() int {
	var n int
	for _, f := range d.Files {
		n += f.Additions
	}
	return n
}

// Deletions returns the total number of removed lines.
func (d *Diff) Deletions() int {
	var n int
	for _, f := range d.Files {
		n += f.Deletions
	}
	return n
}

// Patch renders the whole diff as a unified-diff document.
func (d *Diff) Patch() string {
	var b strings.Builder
	for _, f := range d.Files {
		writeFileHeader(&b, f)
		if !f.Binary && f.Patch != "" {
			b.WriteString(f.Patch)
		}
	}
	return b.String()
}

func writeFileHeader(b *strings.Builder, f *FileDiff) {
	oldPath := f.Path
	if f.OldPath != "" {
		oldPath = f.OldPath
	}
	fmt.Fprintf(b, "diff --git a/%s b/%s\n", oldPath, f.Path)
	switch f.Status {
	case StatusAdded:
		fmt.Fprintf(b, "new file mode %06o\n", f.NewMode)
	case StatusRemoved:
		fmt.Fprintf(b, "deleted file mode %06o\n", f.OldMode)
	case StatusRenamed:
		fmt.Fprintf(b, "similarity index 100%%\nrename from %s\nrename to %s\n", oldPath, f.Path)
	}
	if f.Status != StatusRenamed {
		fmt.Fprintf(b, "index %s..%s\n", abbrev(f.OldHash), abbrev(f.NewHash))
		if f.Binary {
			fmt.Fprintf(b, "Binary files differ\n")
			return
		}
		if f.Status == StatusAdded {
			fmt.Fprintf(b, "--- /dev/null\n+++ b/%s\n", f.Path)
		} else if f.Status == StatusRemoved {
			fmt.Fprintf(b, "--- a/%s\n+++ /dev/null\n", oldPath)
		} else {
			fmt.Fprintf(b, "--- a/%s\n+++ b/%s\n", oldPath, f.Path)
		}
	}
}

func abbrev(h gitobj.Hash) string {
	if h.IsZero() {
		return "0000000"
	}
	return h.String()[:7]
}

// DiffCommit diffs a commit against its first parent, or against an empty
// tree for a root commit.
func DiffCommit(ctx context.Context, s gitobj.Store, commit *gitobj.Commit, contextLines int) (*Diff, error) {
	var oldTree gitobj.Hash
	if parent := commit.FirstParent(); !parent.IsZero() {
		pc, err := s.Commit(ctx, parent)
		if err != nil {
			return nil, err
		}
		oldTree = pc.Tree
	}
	return DiffTrees(ctx, s, oldTree, commit.Tree, contextLines)
}

// DiffTrees compares two tree snapshots, which need not be related by
// ancestry. A zero hash denotes the empty tree. Both trees are flattened and
// walked in lock-step by path; changed text blobs get unified hunks with
// contextLines unchanged lines around each change.
func DiffTrees(ctx context.Context, s gitobj.Store, oldTree, newTree gitobj.Hash, contextLines int) (*Diff, error) {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	diff := &Diff{}
	if oldTree == newTree {
		return diff, nil
	}

	oldEntries, err := flattenSorted(ctx, s, oldTree)
	if err != nil {
		return nil, err
	}
	newEntries, err := flattenSorted(ctx, s, newTree)
	if err != nil {
		return nil, err
	}

	// Merge-join over the two path-sorted entry lists.
	var files []*FileDiff
	i, j := 0, 0
	for i < len(oldEntries) || j < len(newEntries) {
		switch {
		case j >= len(newEntries) || (i < len(oldEntries) && oldEntries[i].Path < newEntries[j].Path):
			e := oldEntries[i]
			files = append(files, &FileDiff{
				Path:    e.Path,
				Status:  StatusRemoved,
				OldHash: e.Hash,
				OldMode: e.Mode,
			})
			i++
		case i >= len(oldEntries) || newEntries[j].Path < oldEntries[i].Path:
			e := newEntries[j]
			files = append(files, &FileDiff{
				Path:    e.Path,
				Status:  StatusAdded,
				NewHash: e.Hash,
				NewMode: e.Mode,
			})
			j++
		default:
			oe, ne := oldEntries[i], newEntries[j]
			if oe.Hash != ne.Hash || oe.Mode != ne.Mode {
				files = append(files, &FileDiff{
					Path:    ne.Path,
					Status:  StatusModified,
					OldHash: oe.Hash,
					NewHash: ne.Hash,
					OldMode: oe.Mode,
					NewMode: ne.Mode,
				})
			}
			i++
			j++
		}
	}

	files = detectRenames(files)

	// Line-level work per file is independent; bound the fan-out so huge
	// commits do not exhaust file handles.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, f := range files {
		f := f
		if f.Status == StatusRenamed || f.OldMode == gitobj.ModeSubmodule || f.NewMode == gitobj.ModeSubmodule {
			continue
		}
		g.Go(func() error {
			return fillPatch(gctx, s, f, contextLines)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	diff.Files = files
	return diff, nil
}

// flattenSorted flattens a tree to its leaf entries sorted by plain path
// order, the comparator the merge-join in DiffTrees relies on. A zero hash
// is the empty tree.
func flattenSorted(ctx context.Context, s gitobj.Store, tree gitobj.Hash) ([]Entry, error) {
	if tree.IsZero() {
		return nil, nil
	}
	entries, err := FlattenTree(ctx, s, tree)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// detectRenames pairs removed entries with added entries carrying identical
// content. Only exact content matches count; partial-similarity scoring is
// out of scope.
func detectRenames(files []*FileDiff) []*FileDiff {
	removedByHash := make(map[gitobj.Hash]*FileDiff)
	for _, f := range files {
		if f.Status == StatusRemoved {
			if _, dup := removedByHash[f.OldHash]; !dup {
				removedByHash[f.OldHash] = f
			}
		}
	}
	if len(removedByHash) == 0 {
		return files
	}

	claimed := make(map[*FileDiff]bool)
	for _, f := range files {
		if f.Status != StatusAdded {
			continue
		}
		removed, ok := removedByHash[f.NewHash]
		if !ok || claimed[removed] {
			continue
		}
		claimed[removed] = true
		f.Status = StatusRenamed
		f.OldPath = removed.Path
		f.OldHash = removed.OldHash
		f.OldMode = removed.OldMode
	}
	if len(claimed) == 0 {
		return files
	}

	out := files[:0]
	for _, f := range files {
		if !claimed[f] {
			out = append(out, f)
		}
	}
	return out
}

// fillPatch reads both sides of a changed file and fills in its counts and
// hunks. Binary content on either side suppresses the patch body.
func fillPatch(ctx context.Context, s gitobj.Store, f *FileDiff, contextLines int) error {
	var oldData, newData []byte
	var err error
	if !f.OldHash.IsZero() {
		oldData, err = ReadBlob(ctx, s, f.OldHash)
		if err != nil {
			return err
		}
	}
	if !f.NewHash.IsZero() {
		newData, err = ReadBlob(ctx, s, f.NewHash)
		if err != nil {
			return err
		}
	}

	if IsBinary(oldData) || IsBinary(newData) {
		f.Binary = true
		return nil
	}
	f.Patch, f.Additions, f.Deletions = buildHunks(lineOps(oldData, newData), contextLines)
	return nil
}

const binarySniffLen = 8000

// IsBinary uses git's heuristic: a NUL byte in the first 8000 bytes marks
// the content binary.
func IsBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}
