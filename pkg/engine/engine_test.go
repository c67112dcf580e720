package engine

import (
	"time"

	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

var testEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func testSignature(name string, minutes int) gitobj.Signature {
	return gitobj.Signature{
		Name:  name,
		Email: name + "@example.com",
		When:  testEpoch.Add(time.Duration(minutes) * time.Minute),
	}
}

func addCommit(s *gitobj.MemStore, tree gitobj.Hash, author, message string, minutes int, parents ...gitobj.Hash) *gitobj.Commit {
	sig := testSignature(author, minutes)
	c := &gitobj.Commit{
		Tree:      tree,
		Parents:   parents,
		Author:    sig,
		Committer: sig,
		Message:   message,
	}
	s.AddCommit(c)
	return c
}

// flatTree builds a single-level tree of regular files.
func flatTree(s *gitobj.MemStore, files map[string]string) gitobj.Hash {
	entries := make([]gitobj.TreeEntry, 0, len(files))
	for name, content := range files {
		entries = append(entries, gitobj.TreeEntry{
			Name: name,
			Mode: gitobj.ModeFile,
			Hash: s.AddBlob([]byte(content)),
		})
	}
	return s.AddTree(entries)
}
