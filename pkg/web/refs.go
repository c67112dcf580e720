package web

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/restfulgit/restfulgit/pkg/config"
	"github.com/restfulgit/restfulgit/pkg/engine"
	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

func getRefs(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "refs")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	filter := ""
	if path := mux.Vars(r)["path"]; path != "" {
		filter = "refs/" + path
	}

	refs, err := store.Refs(ctx)
	if err != nil {
		renderError(w, r, err)
		return
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })

	cfg := config.FromContext(ctx)
	l := newLinker(cfg, repo.Name())
	out := make([]refJSON, 0, len(refs))
	for _, ref := range refs {
		if !strings.HasPrefix(ref.Name, filter) {
			continue
		}
		rj, err := jsonRef(ctx, store, l, ref)
		if err != nil {
			renderError(w, r, err)
			return
		}
		out = append(out, rj)
	}

	// An exact single match collapses to the object itself.
	if len(out) == 1 && out[0].Ref == filter {
		renderJSON(w, http.StatusOK, out[0])
		return
	}
	renderJSON(w, http.StatusOK, out)
}

func getTagObject(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "tag")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	hash, err := store.ResolvePrefix(ctx, mux.Vars(r)["sha"])
	if err != nil {
		renderError(w, r, err)
		return
	}
	tag, err := store.Tag(ctx, hash)
	if err != nil {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(ctx)
	renderJSON(w, http.StatusOK, jsonTag(newLinker(cfg, repo.Name()), tag))
}

// branchRefs returns the repository's branches sorted by short name.
func branchRefs(r *http.Request, store gitobj.Store) ([]*gitobj.Ref, error) {
	refs, err := store.Refs(r.Context())
	if err != nil {
		return nil, err
	}
	branches := refs[:0]
	for _, ref := range refs {
		if ref.IsBranch() {
			branches = append(branches, ref)
		}
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].ShortName() < branches[j].ShortName() })
	return branches, nil
}

func getBranches(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "branches")
	if err != nil {
		renderError(w, r, err)
		return
	}
	branches, err := branchRefs(r, store)
	if err != nil {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(r.Context())
	l := newLinker(cfg, repo.Name())
	type branchItem struct {
		Name   string   `json:"name"`
		Commit linkJSON `json:"commit"`
	}
	out := make([]branchItem, 0, len(branches))
	for _, b := range branches {
		out = append(out, branchItem{
			Name:   b.ShortName(),
			Commit: linkJSON{SHA: b.Hash.String(), URL: l.porcelainCommitURL(b.Hash.String())},
		})
	}
	renderJSON(w, http.StatusOK, out)
}

func getBranch(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "branch")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	name := mux.Vars(r)["branch"]
	ref, err := store.Ref(ctx, gitobj.RefsHeads+name)
	if err != nil {
		renderError(w, r, err)
		return
	}
	commit, err := engine.PeelCommit(ctx, store, ref.Hash)
	if err != nil {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(ctx)
	renderJSON(w, http.StatusOK, jsonBranch(newLinker(cfg, repo.Name()), name, commit))
}

// getMergedBranches lists the branches whose entire history is contained in
// the named branch: their merge base with it is their own head.
func getMergedBranches(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "merged_branches")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	name := mux.Vars(r)["branch"]
	target, err := store.Ref(ctx, gitobj.RefsHeads+name)
	if err != nil {
		renderError(w, r, err)
		return
	}
	targetHead, err := engine.PeelCommit(ctx, store, target.Hash)
	if err != nil {
		renderError(w, r, err)
		return
	}

	branches, err := branchRefs(r, store)
	if err != nil {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(ctx)
	l := newLinker(cfg, repo.Name())
	type branchItem struct {
		Name   string   `json:"name"`
		Commit linkJSON `json:"commit"`
	}
	out := make([]branchItem, 0, len(branches))
	for _, b := range branches {
		head, err := engine.PeelCommit(ctx, store, b.Hash)
		if err != nil {
			renderError(w, r, err)
			return
		}
		base, err := engine.MergeBase(ctx, store, head.Hash, targetHead.Hash)
		if err != nil {
			renderError(w, r, err)
			return
		}
		if base == nil || base.Hash != head.Hash {
			continue
		}
		out = append(out, branchItem{
			Name:   b.ShortName(),
			Commit: linkJSON{SHA: head.Hash.String(), URL: l.porcelainCommitURL(head.Hash.String())},
		})
	}
	renderJSON(w, http.StatusOK, out)
}

func getTags(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "tags")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	refs, err := store.Refs(ctx)
	if err != nil {
		renderError(w, r, err)
		return
	}
	var tags []*gitobj.Ref
	for _, ref := range refs {
		if ref.IsTag() {
			tags = append(tags, ref)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ShortName() < tags[j].ShortName() })

	cfg := config.FromContext(ctx)
	l := newLinker(cfg, repo.Name())
	type tagItem struct {
		Name   string   `json:"name"`
		Commit linkJSON `json:"commit"`
		URL    string   `json:"url"`
	}
	out := make([]tagItem, 0, len(tags))
	for _, t := range tags {
		commit, err := engine.PeelCommit(ctx, store, t.Hash)
		if err != nil {
			renderError(w, r, err)
			return
		}
		out = append(out, tagItem{
			Name:   t.ShortName(),
			Commit: linkJSON{SHA: commit.Hash.String(), URL: l.porcelainCommitURL(commit.Hash.String())},
			URL:    l.reposTagURL(t.ShortName()),
		})
	}
	renderJSON(w, http.StatusOK, out)
}

func getReposTag(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "repos_tag")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	name := mux.Vars(r)["tag"]
	ref, err := store.Ref(ctx, gitobj.RefsTags+name)
	if err != nil {
		renderError(w, r, fmt.Errorf("tag %q: %w", name, err))
		return
	}
	commit, err := engine.PeelCommit(ctx, store, ref.Hash)
	if err != nil {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(ctx)
	l := newLinker(cfg, repo.Name())
	out := struct {
		Name   string              `json:"name"`
		Commit porcelainCommitJSON `json:"commit"`
		URL    string              `json:"url"`
		Tag    *tagJSON            `json:"tag,omitempty"`
	}{
		Name:   name,
		Commit: jsonPorcelainCommit(l, commit, nil),
		URL:    l.reposTagURL(name),
	}
	// Annotated tags carry the tag object alongside the peeled commit.
	if ref.Hash != commit.Hash {
		if tag, err := store.Tag(ctx, ref.Hash); err == nil {
			tj := jsonTag(l, tag)
			out.Tag = &tj
		}
	}
	renderJSON(w, http.StatusOK, out)
}
