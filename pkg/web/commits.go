package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/restfulgit/restfulgit/pkg/config"
	"github.com/restfulgit/restfulgit/pkg/engine"
	"github.com/restfulgit/restfulgit/pkg/gitobj"
	"github.com/restfulgit/restfulgit/pkg/proto"
)

func getCommitList(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "commit_list")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()
	cfg := config.FromContext(ctx)

	limit, err := queryInt(r, "limit", cfg.DefaultCommitLimit)
	if err != nil {
		renderError(w, r, err)
		return
	}

	// start_sha wins over ref_name; with neither the walk starts at HEAD.
	spec := r.URL.Query().Get("start_sha")
	if spec == "" {
		spec = r.URL.Query().Get("ref_name")
	}
	if spec == "" {
		spec = gitobj.HEAD
	}
	start, err := engine.ResolveCommit(ctx, store, spec)
	if err != nil {
		renderError(w, r, err)
		return
	}

	commits, err := engine.ListCommits(ctx, store, start.Hash, engine.WalkOptions{Limit: limit})
	if err != nil {
		renderError(w, r, err)
		return
	}

	l := newLinker(cfg, repo.Name())
	out := make([]commitJSON, 0, len(commits))
	for _, c := range commits {
		out = append(out, jsonCommit(l, c))
	}
	renderJSON(w, http.StatusOK, out)
}

func getCommit(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "commit")
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
	commit, err := store.Commit(ctx, hash)
	if err != nil {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(ctx)
	renderJSON(w, http.StatusOK, jsonCommit(newLinker(cfg, repo.Name()), commit))
}

func getMergeBase(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "merge_base")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()
	vars := mux.Vars(r)

	var hashes [2]gitobj.Hash
	for i, spec := range []string{vars["left"], vars["right"]} {
		commit, err := engine.ResolveCommit(ctx, store, spec)
		if err != nil {
			renderError(w, r, err)
			return
		}
		hashes[i] = commit.Hash
	}

	base, err := engine.MergeBase(ctx, store, hashes[0], hashes[1])
	if err != nil {
		renderError(w, r, err)
		return
	}
	if base == nil {
		// Disjoint histories share no ancestor.
		renderJSON(w, http.StatusOK, struct{}{})
		return
	}
	cfg := config.FromContext(ctx)
	renderJSON(w, http.StatusOK, jsonCommit(newLinker(cfg, repo.Name()), base))
}

func getPorcelainCommit(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "porcelain_commit")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	commit, err := engine.ResolveCommit(ctx, store, mux.Vars(r)["rev"])
	if err != nil {
		renderError(w, r, err)
		return
	}
	diff, err := engine.DiffCommit(ctx, store, commit, engine.DefaultContextLines)
	if err != nil {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(ctx)
	renderJSON(w, http.StatusOK, jsonPorcelainCommit(newLinker(cfg, repo.Name()), commit, diff))
}

func getContributors(w http.ResponseWriter, r *http.Request) {
	_, store, err := openRepo(r, "contributors")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	head, err := engine.ResolveCommit(ctx, store, gitobj.HEAD)
	if err != nil {
		if errors.Is(err, gitobj.ErrNotFound) {
			// An empty repository has no contributors.
			renderJSON(w, http.StatusOK, []contributorJSON{})
			return
		}
		renderError(w, r, err)
		return
	}
	contributors, err := engine.Contributors(ctx, store, head.Hash)
	if err != nil {
		renderError(w, r, err)
		return
	}

	out := make([]contributorJSON, 0, len(contributors))
	for _, c := range contributors {
		out = append(out, contributorJSON{
			Name:          c.Name,
			Email:         c.Email,
			Contributions: c.Contributions,
		})
	}
	renderJSON(w, http.StatusOK, out)
}

func getBlame(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "blame")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()
	vars := mux.Vars(r)

	commit, err := engine.ResolveCommit(ctx, store, vars["rev"])
	if err != nil {
		renderError(w, r, err)
		return
	}

	firstLine, err := queryInt(r, "firstLine", 1)
	if err != nil {
		renderError(w, r, err)
		return
	}
	lastLine, err := queryInt(r, "lastLine", 0)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var oldest gitobj.Hash
	if spec := r.URL.Query().Get("oldest"); spec != "" {
		c, err := engine.ResolveCommit(ctx, store, spec)
		if err != nil {
			renderError(w, r, fmt.Errorf("oldest %q: %w", spec, err))
			return
		}
		oldest = c.Hash
	}

	blame, err := engine.BlameFile(ctx, store, commit, vars["path"], firstLine, lastLine, oldest)
	if err != nil && !errors.Is(err, proto.ErrIncompleteBlame) {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(ctx)
	renderJSON(w, http.StatusOK, jsonBlame(newLinker(cfg, repo.Name()), blame))
}
