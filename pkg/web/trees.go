package web

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"path"

	"github.com/gorilla/mux"

	"github.com/restfulgit/restfulgit/pkg/config"
	"github.com/restfulgit/restfulgit/pkg/engine"
	"github.com/restfulgit/restfulgit/pkg/gitobj"
)

func getTreeObject(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "tree")
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
	if typ, err := store.Type(ctx, hash); err != nil {
		renderError(w, r, err)
		return
	} else if typ != gitobj.TreeObject {
		renderError(w, r, fmt.Errorf("object %s is a %s, not a tree: %w", hash, typ, gitobj.ErrNotFound))
		return
	}

	recursive := r.URL.Query().Get("recursive") == "1"
	cfg := config.FromContext(ctx)
	tree, err := jsonTree(ctx, store, newLinker(cfg, repo.Name()), hash, recursive)
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, tree)
}

func getBlobObject(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "blob")
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
	if typ, err := store.Type(ctx, hash); err != nil {
		renderError(w, r, err)
		return
	} else if typ != gitobj.BlobObject {
		renderError(w, r, fmt.Errorf("object %s is a %s, not a blob: %w", hash, typ, gitobj.ErrNotFound))
		return
	}

	data, err := engine.ReadBlob(ctx, store, hash)
	if err != nil {
		renderError(w, r, err)
		return
	}
	cfg := config.FromContext(ctx)
	renderJSON(w, http.StatusOK, jsonBlob(newLinker(cfg, repo.Name()), hash, data))
}

// contentJSON is the GitHub-style contents payload: one object for a file,
// an array of these for a directory listing.
type contentJSON struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding,omitempty"`
	Size     int64  `json:"size"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content,omitempty"`
	SHA      string `json:"sha"`
	URL      string `json:"url"`
}

func getContents(w http.ResponseWriter, r *http.Request) {
	repo, store, err := openRepo(r, "contents")
	if err != nil {
		renderError(w, r, err)
		return
	}
	ctx := r.Context()

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		ref = gitobj.HEAD
	}
	commit, err := engine.ResolveCommit(ctx, store, ref)
	if err != nil {
		renderError(w, r, err)
		return
	}

	cfg := config.FromContext(ctx)
	l := newLinker(cfg, repo.Name())
	entry, err := engine.ResolvePath(ctx, store, commit.Tree, mux.Vars(r)["path"])
	if err != nil {
		renderError(w, r, err)
		return
	}

	switch {
	case entry.IsTree():
		children, err := engine.ListTree(ctx, store, entry.Hash)
		if err != nil {
			renderError(w, r, err)
			return
		}
		out := make([]contentJSON, 0, len(children))
		for _, child := range children {
			childPath := child.Name
			if entry.Path != "" {
				childPath = entry.Path + "/" + child.Name
			}
			out = append(out, contentEntry(l, child, childPath))
		}
		renderJSON(w, http.StatusOK, out)
	case entry.IsSubmodule():
		renderJSON(w, http.StatusOK, contentEntry(l, entry, entry.Path))
	default:
		data, err := engine.ReadBlob(ctx, store, entry.Hash)
		if err != nil {
			renderError(w, r, err)
			return
		}
		file := contentEntry(l, entry, entry.Path)
		file.Encoding = "base64"
		file.Content = base64.StdEncoding.EncodeToString(data)
		renderJSON(w, http.StatusOK, file)
	}
}

func contentEntry(l linker, e engine.Entry, fullPath string) contentJSON {
	out := contentJSON{
		Size: e.Size,
		Name: path.Base(fullPath),
		Path: fullPath,
		SHA:  e.Hash.String(),
	}
	switch {
	case e.IsSubmodule():
		out.Type = "submodule"
	case e.IsTree():
		out.Type = "dir"
		out.URL = l.treeURL(e.Hash)
	default:
		out.Type = "file"
		out.URL = l.blobURL(e.Hash)
	}
	return out
}

func getRaw(w http.ResponseWriter, r *http.Request) {
	_, store, err := openRepo(r, "raw")
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
	entry, err := engine.ResolvePath(ctx, store, commit.Tree, vars["path"])
	if err != nil {
		renderError(w, r, err)
		return
	}
	if entry.Type() != gitobj.BlobObject {
		w.WriteHeader(http.StatusNotAcceptable)
		fmt.Fprint(w, "not a file") // nolint: errcheck
		return
	}

	data, err := engine.ReadBlob(ctx, store, entry.Hash)
	if err != nil {
		renderError(w, r, err)
		return
	}

	// Extension first, content sniffing as the fallback.
	contentType := mime.TypeByExtension(path.Ext(entry.Path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data) // nolint: errcheck
}
