package web

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/restfulgit/restfulgit/pkg/config"
)

// RepoController registers the repository API routes.
func RepoController(_ context.Context, r *mux.Router) {
	r.HandleFunc("/repos/", getRepoList)

	repo := r.PathPrefix("/repos/{repo}").Subrouter()
	repo.HandleFunc("/", getRepo)
	repo.HandleFunc("/description/", getDescription)

	// Plumbing
	repo.HandleFunc("/git/commits/", getCommitList)
	repo.HandleFunc("/git/commits/{left:[0-9a-fA-F]{1,40}}/merge-base/{right:[0-9a-fA-F]{1,40}}/", getMergeBase)
	repo.HandleFunc("/git/commits/{sha:[0-9a-fA-F]{1,40}}/", getCommit)
	repo.HandleFunc("/git/trees/{sha:[0-9a-fA-F]{1,40}}/", getTreeObject)
	repo.HandleFunc("/git/blobs/{sha:[0-9a-fA-F]{1,40}}/", getBlobObject)
	repo.HandleFunc("/git/tags/{sha:[0-9a-fA-F]{1,40}}/", getTagObject)
	repo.HandleFunc("/git/refs/", getRefs)
	repo.HandleFunc("/git/refs/{path:.+}", getRefs)

	// Porcelain
	repo.HandleFunc("/branches/", getBranches)
	repo.HandleFunc("/branches/{branch}/", getBranch)
	repo.HandleFunc("/branches/{branch}/merged/", getMergedBranches)
	repo.HandleFunc("/tags/", getTags)
	repo.HandleFunc("/tags/{tag}/", getReposTag)
	repo.HandleFunc("/commits/{rev}.diff", getCommitDiff)
	repo.HandleFunc("/commits/{rev}/", getPorcelainCommit)
	repo.HandleFunc("/compare/{old}...{new}.diff", getCompareDiff)
	repo.HandleFunc("/blame/{rev}/{path:.+}", getBlame)
	repo.HandleFunc("/contributors/", getContributors)
	repo.HandleFunc("/contents/", getContents)
	repo.HandleFunc("/contents/{path:.+}", getContents)
	repo.HandleFunc("/raw/{rev}/{path:.+}", getRaw)
	repo.HandleFunc("/tarball/{rev}/", getTarball)
	repo.HandleFunc("/zipball/{rev}/", getZipball)
}

func getRepoList(w http.ResponseWriter, r *http.Request) {
	requestCounter.WithLabelValues("", "repos").Inc()
	be := backendFrom(r)
	cfg := config.FromContext(r.Context())
	repos, err := be.Repositories(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}
	out := make([]repoJSON, 0, len(repos))
	for _, repo := range repos {
		out = append(out, jsonRepo(newLinker(cfg, repo.Name()), repo))
	}
	renderJSON(w, http.StatusOK, out)
}

func getRepo(w http.ResponseWriter, r *http.Request) {
	repo, _, err := openRepo(r, "repo")
	if err != nil {
		renderError(w, r, err)
		return
	}
	cfg := config.FromContext(r.Context())
	renderJSON(w, http.StatusOK, jsonRepo(newLinker(cfg, repo.Name()), repo))
}

func getDescription(w http.ResponseWriter, r *http.Request) {
	repo, _, err := openRepo(r, "description")
	if err != nil {
		renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, repo.Description()) // nolint: errcheck
}
