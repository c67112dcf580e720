package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/restfulgit/restfulgit/pkg/backend"
	"github.com/restfulgit/restfulgit/pkg/config"
	"github.com/restfulgit/restfulgit/pkg/gitobj"
	"github.com/restfulgit/restfulgit/pkg/proto"
)

// fakeRepo serves an in-memory object graph.
type fakeRepo struct {
	name  string
	desc  string
	store *gitobj.MemStore
}

var _ proto.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) Name() string        { return f.name }
func (f *fakeRepo) Description() string { return f.desc }

func (f *fakeRepo) DefaultBranch() string {
	head, err := f.store.Head(context.Background())
	if err != nil {
		return ""
	}
	return head.ShortName()
}

func (f *fakeRepo) Open() (gitobj.Store, error) { return f.store, nil }

type fakeBackend struct {
	repos map[string]*fakeRepo
}

var _ proto.Backend = (*fakeBackend)(nil)

func (b *fakeBackend) Repository(_ context.Context, name string) (proto.Repository, error) {
	repo, ok := b.repos[name]
	if !ok {
		return nil, fmt.Errorf("repository %q: %w", name, proto.ErrRepoNotFound)
	}
	return repo, nil
}

func (b *fakeBackend) Repositories(_ context.Context) ([]proto.Repository, error) {
	out := make([]proto.Repository, 0, len(b.repos))
	for _, r := range b.repos {
		out = append(out, r)
	}
	return out, nil
}

var fixtureEpoch = time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *gitobj.MemStore

	initial *gitobj.Commit
	second  *gitobj.Commit
	feature *gitobj.Commit

	tagHash gitobj.Hash
}

func fixtureSignature(name string, minutes int) gitobj.Signature {
	return gitobj.Signature{
		Name:  name,
		Email: name + "@example.com",
		When:  fixtureEpoch.Add(time.Duration(minutes) * time.Minute),
	}
}

func fixtureCommit(s *gitobj.MemStore, tree gitobj.Hash, author, message string, minutes int, parents ...gitobj.Hash) *gitobj.Commit {
	sig := fixtureSignature(author, minutes)
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

// newFixture builds the repository every handler test runs against:
//
//	initial (master~1): README.md, src/main.go
//	second  (master):   README.md extended, src/main.go, data.bin added
//	feature (feature):  branched from initial
//
// plus an annotated tag v1.0 on initial and a lightweight tag light on
// second.
func newFixture() *fixture {
	s := gitobj.NewMemStore()

	srcV1 := s.AddTree([]gitobj.TreeEntry{
		{Name: "main.go", Mode: gitobj.ModeFile, Hash: s.AddBlob([]byte("package main\n"))},
	})
	treeV1 := s.AddTree([]gitobj.TreeEntry{
		{Name: "README.md", Mode: gitobj.ModeFile, Hash: s.AddBlob([]byte("# demo\n"))},
		{Name: "src", Mode: gitobj.ModeDir, Hash: srcV1},
	})
	treeV2 := s.AddTree([]gitobj.TreeEntry{
		{Name: "README.md", Mode: gitobj.ModeFile, Hash: s.AddBlob([]byte("# demo\nnow with docs\n"))},
		{Name: "data.bin", Mode: gitobj.ModeFile, Hash: s.AddBlob([]byte("\x00\x01\x02"))},
		{Name: "src", Mode: gitobj.ModeDir, Hash: srcV1},
	})

	initial := fixtureCommit(s, treeV1, "alice", "initial import\n", 0)
	second := fixtureCommit(s, treeV2, "bob", "extend readme\n", 10, initial.Hash)
	feature := fixtureCommit(s, treeV1, "alice", "feature work\n", 5, initial.Hash)

	s.SetRef(gitobj.RefsHeads+"master", second.Hash)
	s.SetRef(gitobj.RefsHeads+"feature", feature.Hash)
	s.SetHead(gitobj.RefsHeads + "master")

	tag := &gitobj.Tag{
		Name:       "v1.0",
		Target:     initial.Hash,
		TargetType: gitobj.CommitObject,
		Tagger:     fixtureSignature("alice", 1),
		Message:    "first release\n",
	}
	s.AddTag(tag)
	s.SetRef(gitobj.RefsTags+"v1.0", tag.Hash)
	s.SetRef(gitobj.RefsTags+"light", second.Hash)

	return &fixture{
		store:   s,
		initial: initial,
		second:  second,
		feature: feature,
		tagHash: tag.Hash,
	}
}

// testRouter wires the fixture behind a full router, middleware included.
func testRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RepoPath = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	be := &fakeBackend{repos: map[string]*fakeRepo{
		"demo": {name: "demo", desc: "a demo repository", store: f.store},
	}}

	ctx := config.WithContext(context.Background(), cfg)
	ctx = backend.WithContext(ctx, be)
	return NewRouter(ctx)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
