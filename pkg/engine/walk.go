package engine

import (
	"container/heap"
	"context"
	"errors"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

// ErrStopWalk can be returned from a walk visitor to terminate the walk
// early without error.
var ErrStopWalk = errors.New("stop walk")

// WalkOptions control a history walk.
type WalkOptions struct {
	// Limit is the maximum number of commits to visit. Zero means no
	// limit.
	Limit int

	// Until is a lower bound: the walk does not traverse past this commit
	// and the commit itself is not visited.
	Until gitobj.Hash
}

// commitHeap orders the walk frontier by committer time descending, ties
// broken by hash for determinism.
type commitHeap []*gitobj.Commit

func (h commitHeap) Len() int { return len(h) }

func (h commitHeap) Less(i, j int) bool {
	ti, tj := h[i].Committer.When, h[j].Committer.When
	if !ti.Equal(tj) {
		return ti.After(tj)
	}
	return h[i].Hash < h[j].Hash
}

func (h commitHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *commitHeap) Push(x any) { *h = append(*h, x.(*gitobj.Commit)) }

func (h *commitHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// Walk visits commits reachable from start in reverse-chronological graph
// order: a commit is never visited before a visited descendant. Merge
// parents are each enqueued exactly once; commits reachable through multiple
// paths are visited once. The visitor may return ErrStopWalk to end the walk
// early. Cancellation is checked between commits.
func Walk(ctx context.Context, s gitobj.Store, start gitobj.Hash, opts WalkOptions, fn func(*gitobj.Commit) error) error {
	first, err := s.Commit(ctx, start)
	if err != nil {
		return err
	}

	frontier := &commitHeap{first}
	heap.Init(frontier)
	seen := map[gitobj.Hash]bool{start: true}
	visited := 0

	for frontier.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.Limit > 0 && visited >= opts.Limit {
			return nil
		}

		commit := heap.Pop(frontier).(*gitobj.Commit)
		if !opts.Until.IsZero() && commit.Hash == opts.Until {
			// Boundary: not visited, parents not traversed.
			continue
		}

		if err := fn(commit); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
		visited++

		for _, parent := range commit.Parents {
			if seen[parent] {
				continue
			}
			seen[parent] = true
			pc, err := s.Commit(ctx, parent)
			if err != nil {
				return err
			}
			heap.Push(frontier, pc)
		}
	}

	return nil
}

// ListCommits collects the commits a Walk from start visits.
func ListCommits(ctx context.Context, s gitobj.Store, start gitobj.Hash, opts WalkOptions) ([]*gitobj.Commit, error) {
	var commits []*gitobj.Commit
	err := Walk(ctx, s, start, opts, func(c *gitobj.Commit) error {
		commits = append(commits, c)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return commits, nil
}
