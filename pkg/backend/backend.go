// Package backend discovers repositories on disk.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/restfulgit/restfulgit/pkg/config"
	"github.com/restfulgit/restfulgit/pkg/gitobj"
	"github.com/restfulgit/restfulgit/pkg/proto"
)

// Backend serves repositories out of one flat root directory. Both bare
// repositories (name or name.git) and working copies containing a .git
// directory are recognized. The directory is scanned per request; nothing
// is cached, so repositories can be added and removed underneath a running
// server.
type Backend struct {
	root string
}

var _ proto.Backend = (*Backend)(nil)

// New returns a Backend serving the repositories under cfg.RepoPath.
func New(cfg *config.Config) (*Backend, error) {
	if cfg == nil {
		return nil, config.ErrNilConfig
	}
	info, err := os.Stat(cfg.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("repo path %s: %w", cfg.RepoPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repo path %s is not a directory", cfg.RepoPath)
	}
	return &Backend{root: cfg.RepoPath}, nil
}

// Repository implements proto.Backend.
func (b *Backend) Repository(_ context.Context, name string) (proto.Repository, error) {
	name = strings.TrimSuffix(filepath.Clean(name), ".git")
	if name == "" || name == "." || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("repository name %q: %w", name, proto.ErrRepoNotFound)
	}
	for _, dir := range []string{name, name + ".git"} {
		path := filepath.Join(b.root, dir)
		if isRepo(path) {
			return &repo{name: name, path: path}, nil
		}
	}
	return nil, fmt.Errorf("repository %q: %w", name, proto.ErrRepoNotFound)
}

// Repositories implements proto.Backend.
func (b *Backend) Repositories(ctx context.Context) ([]proto.Repository, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", b.root, err)
	}

	var repos []proto.Repository
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(b.root, entry.Name())
		if !isRepo(path) {
			continue
		}
		repos = append(repos, &repo{
			name: strings.TrimSuffix(entry.Name(), ".git"),
			path: path,
		})
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name() < repos[j].Name() })
	return repos, nil
}

// isRepo reports whether path looks like a git repository: bare (HEAD and
// an objects directory at the top) or a working copy with a .git directory.
func isRepo(path string) bool {
	if dirExists(filepath.Join(path, ".git")) {
		return true
	}
	if _, err := os.Stat(filepath.Join(path, "HEAD")); err != nil {
		return false
	}
	return dirExists(filepath.Join(path, "objects"))
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// repo is one discovered repository.
type repo struct {
	name string
	path string
}

var _ proto.Repository = (*repo)(nil)

// Name implements proto.Repository.
func (r *repo) Name() string {
	return r.name
}

// stockDescription is the template text git init leaves behind; it is
// treated as no description at all.
const stockDescription = "Unnamed repository; edit this file 'description' to name the repository."

// Description implements proto.Repository.
func (r *repo) Description() string {
	desc := filepath.Join(r.path, "description")
	if dirExists(filepath.Join(r.path, ".git")) {
		desc = filepath.Join(r.path, ".git", "description")
	}
	data, err := os.ReadFile(desc)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(data))
	if text == stockDescription {
		return ""
	}
	return text
}

// DefaultBranch implements proto.Repository.
func (r *repo) DefaultBranch() string {
	s, err := r.Open()
	if err != nil {
		return ""
	}
	head, err := s.Head(context.Background())
	if err != nil {
		return ""
	}
	return head.ShortName()
}

// Open implements proto.Repository.
func (r *repo) Open() (gitobj.Store, error) {
	return gitobj.Open(r.path)
}
