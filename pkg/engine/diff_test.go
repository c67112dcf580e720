package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

func TestDiffTreesIdentical(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()
	tree := flatTree(s, map[string]string{"a.txt": "one\ntwo\n"})

	d, err := DiffTrees(context.TODO(), s, tree, tree, DefaultContextLines)
	is.NoErr(err)
	is.Equal(len(d.Files), 0)
	is.Equal(d.Additions(), 0)
	is.Equal(d.Deletions(), 0)
}

func TestDiffTreesStatuses(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()

	oldTree := flatTree(s, map[string]string{
		"gone.txt": "bye\n",
		"kept.txt": "same\n",
		"main.go":  "one\ntwo\nthree\n",
	})
	newTree := flatTree(s, map[string]string{
		"kept.txt": "same\n",
		"main.go":  "one\n2\nthree\n",
		"new.txt":  "hello\n",
	})

	d, err := DiffTrees(context.TODO(), s, oldTree, newTree, DefaultContextLines)
	is.NoErr(err)
	is.Equal(len(d.Files), 3)

	byPath := make(map[string]*FileDiff)
	for _, f := range d.Files {
		byPath[f.Path] = f
	}

	gone := byPath["gone.txt"]
	is.Equal(gone.Status, StatusRemoved)
	is.Equal(gone.Deletions, 1)
	is.Equal(gone.Additions, 0)

	added := byPath["new.txt"]
	is.Equal(added.Status, StatusAdded)
	is.Equal(added.Additions, 1)

	mod := byPath["main.go"]
	is.Equal(mod.Status, StatusModified)
	is.Equal(mod.Additions, 1)
	is.Equal(mod.Deletions, 1)
	is.True(strings.Contains(mod.Patch, "@@ -1,3 +1,3 @@"))
	is.True(strings.Contains(mod.Patch, "-two\n"))
	is.True(strings.Contains(mod.Patch, "+2\n"))

	is.Equal(d.Additions(), 2)
	is.Equal(d.Deletions(), 2)
}

func TestDiffTreesAgainstEmpty(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()
	tree := flatTree(s, map[string]string{"a.txt": "one\n", "b.txt": "two\n"})

	d, err := DiffTrees(context.TODO(), s, "", tree, DefaultContextLines)
	is.NoErr(err)
	is.Equal(len(d.Files), 2)
	for _, f := range d.Files {
		is.Equal(f.Status, StatusAdded)
		is.True(f.OldHash.IsZero())
	}
}

func TestDiffTreesRename(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()

	oldTree := flatTree(s, map[string]string{"old_name.txt": "stable content\n"})
	newTree := flatTree(s, map[string]string{"new_name.txt": "stable content\n"})

	d, err := DiffTrees(context.TODO(), s, oldTree, newTree, DefaultContextLines)
	is.NoErr(err)
	is.Equal(len(d.Files), 1)

	f := d.Files[0]
	is.Equal(f.Status, StatusRenamed)
	is.Equal(f.Path, "new_name.txt")
	is.Equal(f.OldPath, "old_name.txt")
	is.Equal(f.Patch, "")
	is.True(strings.Contains(d.Patch(), "similarity index 100%"))
	is.True(strings.Contains(d.Patch(), "rename from old_name.txt"))
	is.True(strings.Contains(d.Patch(), "rename to new_name.txt"))
}

func TestDiffTreesBinary(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()

	oldBlob := s.AddBlob([]byte("PK\x00\x03\x04old"))
	newBlob := s.AddBlob([]byte("PK\x00\x03\x04new"))
	oldTree := s.AddTree([]gitobj.TreeEntry{{Name: "data.bin", Mode: gitobj.ModeFile, Hash: oldBlob}})
	newTree := s.AddTree([]gitobj.TreeEntry{{Name: "data.bin", Mode: gitobj.ModeFile, Hash: newBlob}})

	d, err := DiffTrees(context.TODO(), s, oldTree, newTree, DefaultContextLines)
	is.NoErr(err)
	is.Equal(len(d.Files), 1)
	is.True(d.Files[0].Binary)
	is.Equal(d.Files[0].Patch, "")
	is.Equal(d.Files[0].Additions, 0)
	is.Equal(d.Files[0].Deletions, 0)
}

func TestDiffTreesNoTrailingNewline(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()

	oldTree := flatTree(s, map[string]string{"a.txt": "one\ntwo"})
	newTree := flatTree(s, map[string]string{"a.txt": "one\ntwo\n"})

	d, err := DiffTrees(context.TODO(), s, oldTree, newTree, DefaultContextLines)
	is.NoErr(err)
	is.Equal(len(d.Files), 1)
	is.True(strings.Contains(d.Files[0].Patch, noNewlineMarker))
}

func TestDiffTreesContextLines(t *testing.T) {
	is := is.New(t)
	s := gitobj.NewMemStore()

	oldTree := flatTree(s, map[string]string{"a.txt": "1\n2\n3\n4\n5\n6\n7\n"})
	newTree := flatTree(s, map[string]string{"a.txt": "1\n2\n3\nX\n5\n6\n7\n"})

	d, err := DiffTrees(context.TODO(), s, oldTree, newTree, 1)
	is.NoErr(err)
	is.Equal(len(d.Files), 1)
	is.True(strings.Contains(d.Files[0].Patch, "@@ -3,3 +3,3 @@"))
	is.True(!strings.Contains(d.Files[0].Patch, " 1\n"))
}

func TestDiffCommit(t *testing.T) {
	is := is.New(t)
	ctx := context.TODO()
	s := gitobj.NewMemStore()

	t1 := flatTree(s, map[string]string{"a.txt": "one\n"})
	t2 := flatTree(s, map[string]string{"a.txt": "one\ntwo\n"})
	c1 := addCommit(s, t1, "alice", "initial\n", 0)
	c2 := addCommit(s, t2, "alice", "extend\n", 1, c1.Hash)

	t.Run("against first parent", func(t *testing.T) {
		is := is.New(t)
		d, err := DiffCommit(ctx, s, c2, DefaultContextLines)
		is.NoErr(err)
		is.Equal(len(d.Files), 1)
		is.Equal(d.Files[0].Status, StatusModified)
		is.Equal(d.Files[0].Additions, 1)
	})

	t.Run("root commit against empty tree", func(t *testing.T) {
		is := is.New(t)
		d, err := DiffCommit(ctx, s, c1, DefaultContextLines)
		is.NoErr(err)
		is.Equal(len(d.Files), 1)
		is.Equal(d.Files[0].Status, StatusAdded)
	})
}
