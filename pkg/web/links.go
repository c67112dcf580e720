package web

import (
	"fmt"
	"strings"

	"github.com/restfulgit/restfulgit/pkg/config"
	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

// linker builds the absolute URLs embedded in JSON responses, rooted at the
// configured public URL.
type linker struct {
	base string
	repo string
}

func newLinker(cfg *config.Config, repo string) linker {
	return linker{base: strings.TrimSuffix(cfg.HTTP.PublicURL, "/"), repo: repo}
}

func (l linker) repoURL() string {
	return fmt.Sprintf("%s/repos/%s/", l.base, l.repo)
}

func (l linker) commitURL(sha gitobj.Hash) string {
	return fmt.Sprintf("%s/repos/%s/git/commits/%s/", l.base, l.repo, sha)
}

func (l linker) treeURL(sha gitobj.Hash) string {
	return fmt.Sprintf("%s/repos/%s/git/trees/%s/", l.base, l.repo, sha)
}

func (l linker) blobURL(sha gitobj.Hash) string {
	return fmt.Sprintf("%s/repos/%s/git/blobs/%s/", l.base, l.repo, sha)
}

func (l linker) tagURL(sha gitobj.Hash) string {
	return fmt.Sprintf("%s/repos/%s/git/tags/%s/", l.base, l.repo, sha)
}

// objectURL picks the plumbing endpoint matching the object's type.
func (l linker) objectURL(typ gitobj.ObjectType, sha gitobj.Hash) string {
	switch typ {
	case gitobj.CommitObject:
		return l.commitURL(sha)
	case gitobj.TreeObject:
		return l.treeURL(sha)
	case gitobj.TagObject:
		return l.tagURL(sha)
	default:
		return l.blobURL(sha)
	}
}

// refURL points at the refs listing filtered down to path, which carries no
// leading "refs/".
func (l linker) refURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/git/refs/%s", l.base, l.repo, path)
}

func (l linker) porcelainCommitURL(rev string) string {
	return fmt.Sprintf("%s/repos/%s/commits/%s/", l.base, l.repo, rev)
}

func (l linker) branchURL(name string) string {
	return fmt.Sprintf("%s/repos/%s/branches/%s/", l.base, l.repo, name)
}

func (l linker) reposTagURL(name string) string {
	return fmt.Sprintf("%s/repos/%s/tags/%s/", l.base, l.repo, name)
}

func (l linker) rawURL(rev, path string) string {
	return fmt.Sprintf("%s/repos/%s/raw/%s/%s", l.base, l.repo, rev, path)
}
