package engine

import (
	"context"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

// MergeBase returns the best common ancestor of two commits: the first
// ancestor of right, in reverse-chronological walk order, that is also
// reachable from left. Returns nil when the two share no history.
func MergeBase(ctx context.Context, s gitobj.Store, left, right gitobj.Hash) (*gitobj.Commit, error) {
	if left == right {
		return s.Commit(ctx, left)
	}

	reachable := make(map[gitobj.Hash]bool)
	err := Walk(ctx, s, left, WalkOptions{}, func(c *gitobj.Commit) error {
		reachable[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	var base *gitobj.Commit
	err = Walk(ctx, s, right, WalkOptions{}, func(c *gitobj.Commit) error {
		if reachable[c.Hash] {
			base = c
			return ErrStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return base, nil
}
