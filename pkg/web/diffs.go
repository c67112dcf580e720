package web

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/restfulgit/restfulgit/pkg/engine"
)

const diffMediaType = "text/x-diff; charset=utf-8"

func getCommitDiff(w http.ResponseWriter, r *http.Request) {
	_, store, err := openRepo(r, "commit_diff")
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

	w.Header().Set("Content-Type", diffMediaType)
	io.WriteString(w, diff.Patch()) // nolint: errcheck
}

func getCompareDiff(w http.ResponseWriter, r *http.Request) {
	_, store, err := openRepo(r, "compare")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()
	vars := mux.Vars(r)

	contextLines, err := queryInt(r, "context", engine.DefaultContextLines)
	if err != nil {
		renderError(w, r, err)
		return
	}

	oldCommit, err := engine.ResolveCommit(ctx, store, vars["old"])
	if err != nil {
		renderError(w, r, err)
		return
	}
	newCommit, err := engine.ResolveCommit(ctx, store, vars["new"])
	if err != nil {
		renderError(w, r, err)
		return
	}

	diff, err := engine.DiffTrees(ctx, store, oldCommit.Tree, newCommit.Tree, contextLines)
	if err != nil {
		renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", diffMediaType)
	io.WriteString(w, diff.Patch()) // nolint: errcheck
}
