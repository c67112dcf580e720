package web

import (
	"context"
	"encoding/base64"
	"time"
	"unicode/utf8"

	"github.com/restfulgit/restfulgit/pkg/engine"
	"github.com/restfulgit/restfulgit/pkg/gitobj"
	"github.com/restfulgit/restfulgit/pkg/proto"
)

// The response shapes below follow the GitHub git data API conventions:
// plumbing objects carry absolute link fields, signatures carry RFC 3339
// dates, and porcelain views embed the plumbing commit.

type signatureJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
}

func jsonSignature(sig gitobj.Signature) signatureJSON {
	return signatureJSON{
		Name:  sig.Name,
		Email: sig.Email,
		Date:  sig.When.Format(time.RFC3339),
	}
}

type linkJSON struct {
	SHA string `json:"sha"`
	URL string `json:"url"`
}

type typedLinkJSON struct {
	Type string `json:"type"`
	SHA  string `json:"sha"`
	URL  string `json:"url"`
}

type commitJSON struct {
	URL       string        `json:"url"`
	SHA       string        `json:"sha"`
	Author    signatureJSON `json:"author"`
	Committer signatureJSON `json:"committer"`
	Message   string        `json:"message"`
	Tree      linkJSON      `json:"tree"`
	Parents   []linkJSON    `json:"parents"`
}

func jsonCommit(l linker, c *gitobj.Commit) commitJSON {
	parents := make([]linkJSON, len(c.Parents))
	for i, p := range c.Parents {
		parents[i] = linkJSON{SHA: p.String(), URL: l.commitURL(p)}
	}
	return commitJSON{
		URL:       l.commitURL(c.Hash),
		SHA:       c.Hash.String(),
		Author:    jsonSignature(c.Author),
		Committer: jsonSignature(c.Committer),
		Message:   c.Message,
		Tree:      linkJSON{SHA: c.Tree.String(), URL: l.treeURL(c.Tree)},
		Parents:   parents,
	}
}

type treeEntryJSON struct {
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"`
	Size *int64 `json:"size,omitempty"`
	URL  string `json:"url,omitempty"`
	Mode string `json:"mode"`
}

type treeJSON struct {
	URL  string          `json:"url"`
	SHA  string          `json:"sha"`
	Tree []treeEntryJSON `json:"tree"`
}

func jsonTree(ctx context.Context, s gitobj.Store, l linker, root gitobj.Hash, recursive bool) (*treeJSON, error) {
	entries, err := jsonTreeEntries(ctx, s, l, root, recursive, "")
	if err != nil {
		return nil, err
	}
	return &treeJSON{URL: l.treeURL(root), SHA: root.String(), Tree: entries}, nil
}

// jsonTreeEntries lists one tree level; in recursive mode each sub-tree's
// contents are spliced in ahead of the sub-tree's own entry.
func jsonTreeEntries(ctx context.Context, s gitobj.Store, l linker, tree gitobj.Hash, recursive bool, prefix string) ([]treeEntryJSON, error) {
	entries, err := s.Tree(ctx, tree)
	if err != nil {
		return nil, err
	}
	out := make([]treeEntryJSON, 0, len(entries))
	for _, e := range entries {
		path := prefix + e.Name
		mode := octalMode(e.Mode)
		switch {
		case e.IsSubmodule():
			out = append(out, treeEntryJSON{
				Path: path,
				SHA:  e.Hash.String(),
				Type: "submodule",
				Mode: mode,
			})
		case e.IsTree():
			if recursive {
				children, err := jsonTreeEntries(ctx, s, l, e.Hash, true, path+"/")
				if err != nil {
					return nil, err
				}
				out = append(out, children...)
			}
			out = append(out, treeEntryJSON{
				Path: path,
				SHA:  e.Hash.String(),
				Type: "tree",
				URL:  l.treeURL(e.Hash),
				Mode: mode,
			})
		default:
			size := e.Size
			out = append(out, treeEntryJSON{
				Path: path,
				SHA:  e.Hash.String(),
				Type: "blob",
				Size: &size,
				URL:  l.blobURL(e.Hash),
				Mode: mode,
			})
		}
	}
	return out, nil
}

func octalMode(mode uint32) string {
	const digits = "01234567"
	buf := [6]byte{}
	for i := 5; i >= 0; i-- {
		buf[i] = digits[mode&7]
		mode >>= 3
	}
	return string(buf[:])
}

type blobJSON struct {
	URL      string `json:"url"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Data     string `json:"data"`
}

func jsonBlob(l linker, sha gitobj.Hash, data []byte) blobJSON {
	b := blobJSON{
		URL:  l.blobURL(sha),
		SHA:  sha.String(),
		Size: int64(len(data)),
	}
	if engine.IsBinary(data) || !utf8.Valid(data) {
		b.Encoding = "base64"
		b.Data = base64.StdEncoding.EncodeToString(data)
	} else {
		b.Encoding = "utf-8"
		b.Data = string(data)
	}
	return b
}

type tagJSON struct {
	URL     string        `json:"url"`
	SHA     string        `json:"sha"`
	Tag     string        `json:"tag"`
	Tagger  signatureJSON `json:"tagger"`
	Message string        `json:"message"`
	Object  typedLinkJSON `json:"object"`
}

func jsonTag(l linker, t *gitobj.Tag) tagJSON {
	return tagJSON{
		URL:     l.tagURL(t.Hash),
		SHA:     t.Hash.String(),
		Tag:     t.Name,
		Tagger:  jsonSignature(t.Tagger),
		Message: t.Message,
		Object: typedLinkJSON{
			Type: string(t.TargetType),
			SHA:  t.Target.String(),
			URL:  l.objectURL(t.TargetType, t.Target),
		},
	}
}

type refJSON struct {
	URL    string        `json:"url"`
	Ref    string        `json:"ref"`
	Object typedLinkJSON `json:"object"`
}

func jsonRef(ctx context.Context, s gitobj.Store, l linker, ref *gitobj.Ref) (refJSON, error) {
	typ, err := s.Type(ctx, ref.Hash)
	if err != nil {
		return refJSON{}, err
	}
	const cut = len("refs/")
	path := ref.Name
	if len(path) > cut {
		path = path[cut:]
	}
	return refJSON{
		URL: l.refURL(path),
		Ref: ref.Name,
		Object: typedLinkJSON{
			Type: string(typ),
			SHA:  ref.Hash.String(),
			URL:  l.objectURL(typ, ref.Hash),
		},
	}, nil
}

type repoJSON struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
}

func jsonRepo(l linker, r proto.Repository) repoJSON {
	var desc *string
	if d := r.Description(); d != "" {
		desc = &d
	}
	return repoJSON{Name: r.Name(), Description: desc, URL: l.repoURL()}
}

type statsJSON struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

type fileJSON struct {
	SHA       string `json:"sha"`
	Status    string `json:"status"`
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
	RawURL    string `json:"raw_url"`
	Patch     string `json:"patch,omitempty"`
}

type porcelainCommitJSON struct {
	Commit    commitJSON     `json:"commit"`
	URL       string         `json:"url"`
	SHA       string         `json:"sha,omitempty"`
	Author    *signatureJSON `json:"author,omitempty"`
	Committer *signatureJSON `json:"committer,omitempty"`
	Parents   []linkJSON     `json:"parents"`
	Stats     *statsJSON     `json:"stats,omitempty"`
	Files     []fileJSON     `json:"files,omitempty"`
}

func jsonPorcelainCommit(l linker, c *gitobj.Commit, diff *engine.Diff) porcelainCommitJSON {
	parents := make([]linkJSON, len(c.Parents))
	for i, p := range c.Parents {
		parents[i] = linkJSON{SHA: p.String(), URL: l.porcelainCommitURL(p.String())}
	}
	out := porcelainCommitJSON{
		Commit:  jsonCommit(l, c),
		URL:     l.porcelainCommitURL(c.Hash.String()),
		Parents: parents,
	}
	if diff != nil {
		additions, deletions := diff.Additions(), diff.Deletions()
		out.Stats = &statsJSON{
			Additions: additions,
			Deletions: deletions,
			Total:     additions + deletions,
		}
		files := make([]fileJSON, 0, len(diff.Files))
		for _, f := range diff.Files {
			files = append(files, jsonFile(l, c, f))
		}
		out.Files = files
	}
	return out
}

func jsonFile(l linker, c *gitobj.Commit, f *engine.FileDiff) fileJSON {
	sha := f.NewHash
	rawRev := c.Hash.String()
	if f.Status == engine.StatusRemoved {
		sha = f.OldHash
		if parent := c.FirstParent(); !parent.IsZero() {
			rawRev = parent.String()
		}
	}
	return fileJSON{
		SHA:       sha.String(),
		Status:    string(f.Status),
		Filename:  f.Path,
		Additions: f.Additions,
		Deletions: f.Deletions,
		Changes:   f.Additions + f.Deletions,
		RawURL:    l.rawURL(rawRev, f.Path),
		Patch:     f.Patch,
	}
}

type branchJSON struct {
	Name   string              `json:"name"`
	Commit porcelainCommitJSON `json:"commit"`
	URL    string              `json:"url"`
	Links  struct {
		Self string `json:"self"`
	} `json:"_links"`
}

func jsonBranch(l linker, name string, c *gitobj.Commit) branchJSON {
	commit := jsonPorcelainCommit(l, c, nil)
	// The branch view flattens a few plumbing fields onto the porcelain
	// commit, matching the GitHub branch payload.
	commit.SHA = commit.Commit.SHA
	author, committer := commit.Commit.Author, commit.Commit.Committer
	commit.Author = &author
	commit.Committer = &committer
	out := branchJSON{
		Name:   name,
		Commit: commit,
		URL:    l.branchURL(name),
	}
	out.Links.Self = out.URL
	return out
}

type blameLineJSON struct {
	Commit string `json:"commit"`
	LineNo int    `json:"lineno"`
	Line   string `json:"line"`
}

type blameJSON struct {
	Commits    map[string]commitJSON `json:"commits"`
	Lines      []blameLineJSON       `json:"lines"`
	Incomplete bool                  `json:"incomplete"`
}

func jsonBlame(l linker, b *engine.Blame) blameJSON {
	commits := make(map[string]commitJSON, len(b.Commits))
	for sha, c := range b.Commits {
		commits[sha.String()] = jsonCommit(l, c)
	}
	lines := make([]blameLineJSON, len(b.Lines))
	for i, line := range b.Lines {
		lines[i] = blameLineJSON{
			Commit: line.Commit.String(),
			LineNo: line.LineNo,
			Line:   line.Text,
		}
	}
	return blameJSON{Commits: commits, Lines: lines, Incomplete: b.Incomplete}
}

type contributorJSON struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Contributions int    `json:"contributions"`
}
