package engine

import (
	"context"
	"testing"

	"github.com/matryer/is"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

func linearHistory(s *gitobj.MemStore, n int) []*gitobj.Commit {
	tree := flatTree(s, map[string]string{"readme": "hi\n"})
	commits := make([]*gitobj.Commit, n)
	for i := range commits {
		var parents []gitobj.Hash
		if i > 0 {
			parents = []gitobj.Hash{commits[i-1].Hash}
		}
		commits[i] = addCommit(s, tree, "alice", "commit\n", i, parents...)
	}
	return commits
}

func TestWalkLinearOrder(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()
	commits := linearHistory(s, 4)

	got, err := ListCommits(context.TODO(), s, commits[3].Hash, WalkOptions{})
	is.NoErr(err)
	is.Equal(len(got), 4)
	for i, c := range got {
		// Newest first.
		is.Equal(c.Hash, commits[3-i].Hash)
	}
}

func TestWalkLimit(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()
	commits := linearHistory(s, 5)

	got, err := ListCommits(context.TODO(), s, commits[4].Hash, WalkOptions{Limit: 2})
	is.NoErr(err)
	is.Equal(len(got), 2)
	is.Equal(got[0].Hash, commits[4].Hash)
	is.Equal(got[1].Hash, commits[3].Hash)
}

func TestWalkUntilBound(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()
	commits := linearHistory(s, 4)

	got, err := ListCommits(context.TODO(), s, commits[3].Hash, WalkOptions{Until: commits[1].Hash})
	is.NoErr(err)
	// The bound commit itself is excluded, and nothing past it appears.
	is.Equal(len(got), 2)
	is.Equal(got[0].Hash, commits[3].Hash)
	is.Equal(got[1].Hash, commits[2].Hash)
}

func TestWalkMergeVisitsOnce(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()
	tree := flatTree(s, map[string]string{"readme": "hi\n"})

	base := addCommit(s, tree, "alice", "base\n", 0)
	left := addCommit(s, tree, "alice", "left\n", 1, base.Hash)
	right := addCommit(s, tree, "bob", "right\n", 2, base.Hash)
	merge := addCommit(s, tree, "alice", "merge\n", 3, left.Hash, right.Hash)

	got, err := ListCommits(context.TODO(), s, merge.Hash, WalkOptions{})
	is.NoErr(err)
	is.Equal(len(got), 4)

	seen := make(map[gitobj.Hash]int)
	for _, c := range got {
		seen[c.Hash]++
	}
	is.Equal(seen[base.Hash], 1)
	is.Equal(got[0].Hash, merge.Hash)
	is.Equal(got[3].Hash, base.Hash)
}

func TestWalkStop(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()
	commits := linearHistory(s, 4)

	var visited int
	err := Walk(context.TODO(), s, commits[3].Hash, WalkOptions{}, func(*gitobj.Commit) error {
		visited++
		if visited == 2 {
			return ErrStopWalk
		}
		return nil
	})
	is.NoErr(err)
	is.Equal(visited, 2)
}

func TestWalkCancelled(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()
	commits := linearHistory(s, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ListCommits(ctx, s, commits[2].Hash, WalkOptions{})
	is.True(err != nil)
}
