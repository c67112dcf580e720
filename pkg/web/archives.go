package web

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/restfulgit/restfulgit/pkg/engine"
)

func getTarball(w http.ResponseWriter, r *http.Request) {
	serveArchive(w, r, engine.TarGzFormat)
}

func getZipball(w http.ResponseWriter, r *http.Request) {
	serveArchive(w, r, engine.ZipFormat)
}

func serveArchive(w http.ResponseWriter, r *http.Request, format engine.ArchiveFormat) {
	repo, store, err := openRepo(r, "archive")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()
	rev := mux.Vars(r)["rev"]

	commit, err := engine.ResolveCommit(ctx, store, rev)
	if err != nil {
		renderError(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s-%s%s", repo.Name(), rev, format.Extension())
	prefix := fmt.Sprintf("%s-%s", repo.Name(), commit.Hash)

	w.Header().Set("Content-Type", format.MediaType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	// Headers are out the door; a mid-stream failure can only be logged.
	if err := engine.WriteArchive(ctx, store, w, commit.Tree, prefix, commit.Hash.String(), format); err != nil {
		logger := log.FromContext(ctx)
		logger.Error("archive stream aborted", "repo", repo.Name(), "rev", rev, "err", err)
	}
}
