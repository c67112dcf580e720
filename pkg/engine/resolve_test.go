package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

func TestResolve(t *testing.T) {
	is := is.New(t)
	ctx := context.TODO()
	s := gitobj.NewMemStore()

	tree := flatTree(s, map[string]string{"readme": "hi\n"})
	c1 := addCommit(s, tree, "alice", "initial\n", 0)
	c2 := addCommit(s, tree, "alice", "second\n", 1, c1.Hash)
	s.SetRef(gitobj.RefsHeads+"master", c2.Hash)
	s.SetRef(gitobj.RefsTags+"v1", c1.Hash)

	t.Run("branch short name", func(t *testing.T) {
		is := is.New(t)
		h, err := Resolve(ctx, s, "master")
		is.NoErr(err)
		is.Equal(h, c2.Hash)
	})

	t.Run("fully qualified ref", func(t *testing.T) {
		is := is.New(t)
		h, err := Resolve(ctx, s, gitobj.RefsHeads+"master")
		is.NoErr(err)
		is.Equal(h, c2.Hash)
	})

	t.Run("tag short name", func(t *testing.T) {
		is := is.New(t)
		h, err := Resolve(ctx, s, "v1")
		is.NoErr(err)
		is.Equal(h, c1.Hash)
	})

	t.Run("HEAD", func(t *testing.T) {
		is := is.New(t)
		h, err := Resolve(ctx, s, gitobj.HEAD)
		is.NoErr(err)
		is.Equal(h, c2.Hash)
	})

	t.Run("full hash", func(t *testing.T) {
		is := is.New(t)
		h, err := Resolve(ctx, s, string(c1.Hash))
		is.NoErr(err)
		is.Equal(h, c1.Hash)
	})

	t.Run("hash prefix", func(t *testing.T) {
		is := is.New(t)
		h, err := Resolve(ctx, s, string(c1.Hash[:10]))
		is.NoErr(err)
		is.Equal(h, c1.Hash)
	})

	t.Run("unknown revision", func(t *testing.T) {
		is := is.New(t)
		_, err := Resolve(ctx, s, "no-such-branch")
		is.True(errors.Is(err, gitobj.ErrNotFound))
	})

	t.Run("empty revision", func(t *testing.T) {
		is := is.New(t)
		_, err := Resolve(ctx, s, "")
		is.True(errors.Is(err, gitobj.ErrNotFound))
	})
}

func TestResolveCommitPeelsTags(t *testing.T) {
	is := is.New(t)
	ctx := context.TODO()
	s := gitobj.NewMemStore()

	tree := flatTree(s, map[string]string{"readme": "hi\n"})
	c1 := addCommit(s, tree, "alice", "initial\n", 0)

	inner := &gitobj.Tag{Name: "v1.0", Target: c1.Hash, TargetType: gitobj.CommitObject, Message: "release\n"}
	s.AddTag(inner)
	outer := &gitobj.Tag{Name: "v1.0-signed", Target: inner.Hash, TargetType: gitobj.TagObject, Message: "re-tag\n"}
	s.AddTag(outer)
	s.SetRef(gitobj.RefsTags+"v1.0-signed", outer.Hash)

	c, err := ResolveCommit(ctx, s, "v1.0-signed")
	is.NoErr(err)
	is.Equal(c.Hash, c1.Hash)
}

func TestResolveTree(t *testing.T) {
	is := is.New(t)
	ctx := context.TODO()
	s := gitobj.NewMemStore()

	blob := s.AddBlob([]byte("hi\n"))
	tree := s.AddTree([]gitobj.TreeEntry{{Name: "readme", Mode: gitobj.ModeFile, Hash: blob}})
	c1 := addCommit(s, tree, "alice", "initial\n", 0)

	tag := &gitobj.Tag{Name: "v1", Target: c1.Hash, TargetType: gitobj.CommitObject, Message: "release\n"}
	s.AddTag(tag)

	t.Run("commit", func(t *testing.T) {
		is := is.New(t)
		h, err := ResolveTree(ctx, s, c1.Hash)
		is.NoErr(err)
		is.Equal(h, tree)
	})

	t.Run("tree passes through", func(t *testing.T) {
		is := is.New(t)
		h, err := ResolveTree(ctx, s, tree)
		is.NoErr(err)
		is.Equal(h, tree)
	})

	t.Run("annotated tag", func(t *testing.T) {
		is := is.New(t)
		h, err := ResolveTree(ctx, s, tag.Hash)
		is.NoErr(err)
		is.Equal(h, tree)
	})

	t.Run("blob is not a tree", func(t *testing.T) {
		is := is.New(t)
		_, err := ResolveTree(ctx, s, blob)
		is.True(errors.Is(err, gitobj.ErrNotFound))
	})
}
