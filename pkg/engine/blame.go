package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
	"github.com/restfulgit/restfulgit/pkg/proto"
)

// BlameLine attributes one line of the target revision's file to the commit
// that last touched it. A zero commit hash means attribution stopped early;
// see Blame.Incomplete.
type BlameLine struct {
	Commit gitobj.Hash
	LineNo int
	Text   string
}

// Blame is the line attribution of a file range at one revision, with the
// metadata of every referenced commit.
type Blame struct {
	Path    string
	Lines   []*BlameLine
	Commits map[gitobj.Hash]*gitobj.Commit

	// Incomplete is set when history could not be read all the way back:
	// resolved lines are kept, unresolved ones carry a zero commit hash.
	Incomplete bool
}

// BlameFile attributes every line of path in the range [firstLine,
// lastLine] at the target revision. lastLine <= 0 means the end of the
// file. oldest, when set, bounds the walk: lines not attributed by then are
// charged to the bound commit itself.
//
// The attribution walks history backward keeping a position map from each
// still-unresolved output line to its line number in the version at the
// commit being inspected. At each step the line diff against the first
// parent resolves inserted lines to the inspected commit and remaps
// unchanged lines to their parent positions.
//
// When history cannot be read all the way back, the partial blame is
// returned together with an error wrapping proto.ErrIncompleteBlame.
func BlameFile(ctx context.Context, s gitobj.Store, target *gitobj.Commit, path string, firstLine, lastLine int, oldest gitobj.Hash) (*Blame, error) {
	content, ok, err := fileAt(ctx, s, target, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("path %s at %s: %w", path, target.Hash, gitobj.ErrNotFound)
	}

	lines := splitAfterLines(string(content))
	if firstLine < 1 {
		return nil, fmt.Errorf("first line %d: %w", firstLine, proto.ErrInvalidArgument)
	}
	if lastLine <= 0 {
		lastLine = len(lines)
	}
	if firstLine > lastLine {
		return nil, fmt.Errorf("first line %d after last line %d: %w", firstLine, lastLine, proto.ErrInvalidArgument)
	}
	if lastLine > len(lines) {
		return nil, fmt.Errorf("line range %d-%d out of bounds for %d lines: %w", firstLine, lastLine, len(lines), proto.ErrInvalidArgument)
	}

	// positions maps output line number -> line number in the version at
	// the commit currently being inspected.
	positions := make(map[int]int, lastLine-firstLine+1)
	for n := firstLine; n <= lastLine; n++ {
		positions[n] = n
	}
	resolved := make(map[int]gitobj.Hash, len(positions))
	meta := make(map[gitobj.Hash]*gitobj.Commit)
	var lastWithFile *gitobj.Commit

	resolveAll := func(to *gitobj.Commit) {
		for n := range positions {
			resolved[n] = to.Hash
			delete(positions, n)
		}
		meta[to.Hash] = to
	}

	walkErr := Walk(ctx, s, target.Hash, WalkOptions{Until: oldest}, func(commit *gitobj.Commit) error {
		if len(positions) == 0 {
			return ErrStopWalk
		}

		current, ok, err := fileAt(ctx, s, commit, path)
		if err != nil {
			return err
		}
		if !ok {
			// The file vanishes here: whatever is unresolved originated in
			// the last commit that still had it.
			resolveAll(lastWithFile)
			return ErrStopWalk
		}
		lastWithFile = commit

		parentHash := commit.FirstParent()
		if parentHash.IsZero() {
			resolveAll(commit)
			return ErrStopWalk
		}
		parent, err := s.Commit(ctx, parentHash)
		if err != nil {
			return err
		}
		previous, ok, err := fileAt(ctx, s, parent, path)
		if err != nil {
			return err
		}
		if !ok {
			// Introduced wholesale by this commit.
			resolveAll(commit)
			return ErrStopWalk
		}

		inserted, remap := alignLines(previous, current)
		for out, pos := range positions {
			if inserted[pos] {
				resolved[out] = commit.Hash
				meta[commit.Hash] = commit
				delete(positions, out)
				continue
			}
			if old, ok := remap[pos]; ok {
				positions[out] = old
			}
		}
		return nil
	})

	blame := &Blame{Path: path, Commits: meta}
	var incomplete error
	if walkErr != nil {
		if errors.Is(walkErr, gitobj.ErrNotFound) || isStoreFailure(walkErr) {
			blame.Incomplete = true
			incomplete = fmt.Errorf("%s: %w: %v", path, proto.ErrIncompleteBlame, walkErr)
		} else {
			return nil, walkErr
		}
	}

	// Lines the walk never resolved belong to the boundary: the oldest
	// bound when one was given, otherwise the oldest commit seen with the
	// file.
	if len(positions) > 0 && !blame.Incomplete {
		boundary := lastWithFile
		if !oldest.IsZero() {
			c, err := s.Commit(ctx, oldest)
			if err != nil {
				return nil, err
			}
			boundary = c
		}
		resolveAll(boundary)
	}

	for n := firstLine; n <= lastLine; n++ {
		blame.Lines = append(blame.Lines, &BlameLine{
			Commit: resolved[n],
			LineNo: n,
			Text:   strings.TrimSuffix(lines[n-1], "\n"),
		})
	}
	return blame, incomplete
}

// fileAt reads path's blob content at a commit's tree. ok is false when the
// path does not exist or is not a blob there.
func fileAt(ctx context.Context, s gitobj.Store, commit *gitobj.Commit, path string) ([]byte, bool, error) {
	entry, err := ResolvePath(ctx, s, commit.Tree, path)
	if err != nil {
		if errors.Is(err, gitobj.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if entry.Type() != gitobj.BlobObject {
		return nil, false, nil
	}
	data, err := ReadBlob(ctx, s, entry.Hash)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// alignLines reports, for the new side of a line diff, which line numbers
// were inserted and the old line number of each unchanged line. All numbers
// are 1-based.
func alignLines(old, new []byte) (inserted map[int]bool, remap map[int]int) {
	inserted = make(map[int]bool)
	remap = make(map[int]int)
	oldLine, newLine := 1, 1
	for _, op := range lineOps(old, new) {
		switch op.kind {
		case opEqual:
			remap[newLine] = oldLine
			oldLine++
			newLine++
		case opDel:
			oldLine++
		case opAdd:
			inserted[newLine] = true
			newLine++
		}
	}
	return inserted, remap
}

// isStoreFailure reports whether an error is a mid-walk read failure rather
// than a bad argument; those produce partial blame output.
func isStoreFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, proto.ErrInvalidArgument)
}
