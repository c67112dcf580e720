package web

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/matryer/is"
)

func decodeJSON(t *testing.T, body *bytes.Buffer, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", body.String(), err)
	}
}

func TestGetRepoList(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Header().Get("Content-Type"), "application/json; charset=utf-8")

	var repos []repoJSON
	decodeJSON(t, rec.Body, &repos)
	is.Equal(len(repos), 1)
	is.Equal(repos[0].Name, "demo")
	is.True(repos[0].Description != nil)
	is.Equal(*repos[0].Description, "a demo repository")
	is.Equal(repos[0].URL, "http://localhost:8080/repos/demo/")
}

func TestGetRepo(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/")
	is.Equal(rec.Code, http.StatusOK)

	var repo repoJSON
	decodeJSON(t, rec.Body, &repo)
	is.Equal(repo.Name, "demo")
}

func TestGetRepoNotFound(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/nope/")
	is.Equal(rec.Code, http.StatusNotFound)

	var body jsonError
	decodeJSON(t, rec.Body, &body)
	is.True(body.Error != "")
}

func TestGetDescription(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/description/")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Header().Get("Content-Type"), "text/plain; charset=utf-8")
	is.Equal(rec.Body.String(), "a demo repository")
}

func TestUnknownRoute(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/nope")
	is.Equal(rec.Code, http.StatusNotFound)

	var body jsonError
	decodeJSON(t, rec.Body, &body)
	is.Equal(body.Error, "not found")
}

func TestHealth(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	is.Equal(get(t, h, "/livez").Code, http.StatusOK)
	is.Equal(get(t, h, "/readyz").Code, http.StatusOK)
}

func TestGetCommit(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	sha := f.second.Hash.String()
	rec := get(t, h, "/repos/demo/git/commits/"+sha+"/")
	is.Equal(rec.Code, http.StatusOK)

	var c commitJSON
	decodeJSON(t, rec.Body, &c)
	is.Equal(c.SHA, sha)
	is.Equal(c.Message, "extend readme\n")
	is.Equal(c.Author.Name, "bob")
	is.Equal(c.Author.Email, "bob@example.com")
	is.Equal(c.Author.Date, "2021-06-01T12:10:00Z")
	is.Equal(c.URL, "http://localhost:8080/repos/demo/git/commits/"+sha+"/")
	is.Equal(c.Tree.SHA, f.second.Tree.String())
	is.Equal(len(c.Parents), 1)
	is.Equal(c.Parents[0].SHA, f.initial.Hash.String())
}

func TestGetCommitByPrefix(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/git/commits/"+f.second.Hash.String()[:10]+"/")
	is.Equal(rec.Code, http.StatusOK)

	var c commitJSON
	decodeJSON(t, rec.Body, &c)
	is.Equal(c.SHA, f.second.Hash.String())
}

func TestGetCommitUnknown(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/git/commits/deadbeef/")
	is.Equal(rec.Code, http.StatusNotFound)
}

func TestGetCommitList(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/git/commits/")
	is.Equal(rec.Code, http.StatusOK)

	var commits []commitJSON
	decodeJSON(t, rec.Body, &commits)
	is.Equal(len(commits), 2) // master history, newest first
	is.Equal(commits[0].SHA, f.second.Hash.String())
	is.Equal(commits[1].SHA, f.initial.Hash.String())
}

func TestGetCommitListParams(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/git/commits/?limit=1")
	var commits []commitJSON
	decodeJSON(t, rec.Body, &commits)
	is.Equal(len(commits), 1)

	rec = get(t, h, "/repos/demo/git/commits/?ref_name=feature")
	decodeJSON(t, rec.Body, &commits)
	is.Equal(len(commits), 2)
	is.Equal(commits[0].SHA, f.feature.Hash.String())

	// start_sha wins over ref_name
	rec = get(t, h, "/repos/demo/git/commits/?ref_name=feature&start_sha="+f.initial.Hash.String())
	decodeJSON(t, rec.Body, &commits)
	is.Equal(len(commits), 1)
	is.Equal(commits[0].SHA, f.initial.Hash.String())
}

func TestGetCommitListBadLimit(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	is.Equal(get(t, h, "/repos/demo/git/commits/?limit=bogus").Code, http.StatusBadRequest)
	is.Equal(get(t, h, "/repos/demo/git/commits/?limit=-1").Code, http.StatusBadRequest)
}

func TestGetMergeBase(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	left, right := f.second.Hash.String(), f.feature.Hash.String()
	rec := get(t, h, "/repos/demo/git/commits/"+left+"/merge-base/"+right+"/")
	is.Equal(rec.Code, http.StatusOK)

	var c commitJSON
	decodeJSON(t, rec.Body, &c)
	is.Equal(c.SHA, f.initial.Hash.String())
}

func TestGetPorcelainCommit(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/commits/master/")
	is.Equal(rec.Code, http.StatusOK)

	var c porcelainCommitJSON
	decodeJSON(t, rec.Body, &c)
	is.Equal(c.Commit.SHA, f.second.Hash.String())
	is.Equal(c.URL, "http://localhost:8080/repos/demo/commits/"+f.second.Hash.String()+"/")
	is.True(c.Stats != nil)
	is.Equal(c.Stats.Additions, 1)
	is.Equal(c.Stats.Deletions, 0)
	is.Equal(c.Stats.Total, 1)

	is.Equal(len(c.Files), 2)
	is.Equal(c.Files[0].Filename, "README.md")
	is.Equal(c.Files[0].Status, "modified")
	is.True(strings.Contains(c.Files[0].Patch, "+now with docs"))
	is.Equal(c.Files[1].Filename, "data.bin")
	is.Equal(c.Files[1].Status, "added")
	is.Equal(c.Files[1].Patch, "") // binary
}

func TestGetTreeObject(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	sha := f.second.Tree.String()
	rec := get(t, h, "/repos/demo/git/trees/"+sha+"/")
	is.Equal(rec.Code, http.StatusOK)

	var tree treeJSON
	decodeJSON(t, rec.Body, &tree)
	is.Equal(tree.SHA, sha)
	is.Equal(len(tree.Tree), 3)
	is.Equal(tree.Tree[0].Path, "README.md")
	is.Equal(tree.Tree[0].Type, "blob")
	is.Equal(tree.Tree[0].Mode, "100644")
	is.True(tree.Tree[0].Size != nil)
	is.Equal(*tree.Tree[0].Size, int64(len("# demo\nnow with docs\n")))
	is.Equal(tree.Tree[2].Path, "src")
	is.Equal(tree.Tree[2].Type, "tree")
	is.Equal(tree.Tree[2].Mode, "040000")
}

func TestGetTreeObjectRecursive(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/git/trees/"+f.second.Tree.String()+"/?recursive=1")
	var tree treeJSON
	decodeJSON(t, rec.Body, &tree)

	paths := make([]string, len(tree.Tree))
	for i, e := range tree.Tree {
		paths[i] = e.Path
	}
	// Children come ahead of their directory's own entry.
	is.Equal(paths, []string{"README.md", "data.bin", "src/main.go", "src"})
}

func TestGetTreeObjectWrongType(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/git/trees/"+f.second.Hash.String()+"/")
	is.Equal(rec.Code, http.StatusNotFound)
}

func TestGetBlobObject(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	sha := f.store.AddBlob([]byte("# demo\nnow with docs\n")).String()
	rec := get(t, h, "/repos/demo/git/blobs/"+sha+"/")
	is.Equal(rec.Code, http.StatusOK)

	var blob blobJSON
	decodeJSON(t, rec.Body, &blob)
	is.Equal(blob.SHA, sha)
	is.Equal(blob.Encoding, "utf-8")
	is.Equal(blob.Data, "# demo\nnow with docs\n")
	is.Equal(blob.Size, int64(21))
}

func TestGetBlobObjectBinary(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	sha := f.store.AddBlob([]byte("\x00\x01\x02")).String()
	rec := get(t, h, "/repos/demo/git/blobs/"+sha+"/")
	is.Equal(rec.Code, http.StatusOK)

	var blob blobJSON
	decodeJSON(t, rec.Body, &blob)
	is.Equal(blob.Encoding, "base64")
	is.Equal(blob.Data, base64.StdEncoding.EncodeToString([]byte{0, 1, 2}))
}

func TestGetTagObject(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/git/tags/"+f.tagHash.String()+"/")
	is.Equal(rec.Code, http.StatusOK)

	var tag tagJSON
	decodeJSON(t, rec.Body, &tag)
	is.Equal(tag.Tag, "v1.0")
	is.Equal(tag.Message, "first release\n")
	is.Equal(tag.Object.Type, "commit")
	is.Equal(tag.Object.SHA, f.initial.Hash.String())
}

func TestGetRefs(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/git/refs/")
	is.Equal(rec.Code, http.StatusOK)

	var refs []refJSON
	decodeJSON(t, rec.Body, &refs)
	is.Equal(len(refs), 4) // sorted by full refspec
	is.Equal(refs[0].Ref, "refs/heads/feature")
	is.Equal(refs[1].Ref, "refs/heads/master")
	is.Equal(refs[2].Ref, "refs/tags/light")
	is.Equal(refs[3].Ref, "refs/tags/v1.0")
	is.Equal(refs[3].Object.Type, "tag")
	is.Equal(refs[2].Object.Type, "commit")
}

func TestGetRefsFiltered(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/git/refs/heads")
	var refs []refJSON
	decodeJSON(t, rec.Body, &refs)
	is.Equal(len(refs), 2)
}

func TestGetRefsExactMatchCollapses(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/git/refs/heads/master")
	is.Equal(rec.Code, http.StatusOK)

	var ref refJSON
	decodeJSON(t, rec.Body, &ref)
	is.Equal(ref.Ref, "refs/heads/master")
	is.Equal(ref.Object.SHA, f.second.Hash.String())
}

func TestGetBranches(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/branches/")
	is.Equal(rec.Code, http.StatusOK)

	var branches []struct {
		Name   string   `json:"name"`
		Commit linkJSON `json:"commit"`
	}
	decodeJSON(t, rec.Body, &branches)
	is.Equal(len(branches), 2)
	is.Equal(branches[0].Name, "feature")
	is.Equal(branches[1].Name, "master")
	is.Equal(branches[1].Commit.SHA, f.second.Hash.String())
}

func TestGetBranch(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/branches/master/")
	is.Equal(rec.Code, http.StatusOK)

	var branch branchJSON
	decodeJSON(t, rec.Body, &branch)
	is.Equal(branch.Name, "master")
	is.Equal(branch.Commit.SHA, f.second.Hash.String())
	is.True(branch.Commit.Author != nil)
	is.Equal(branch.Commit.Author.Name, "bob")
	is.Equal(branch.Links.Self, "http://localhost:8080/repos/demo/branches/master/")
}

func TestGetMergedBranches(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/branches/master/merged/")
	is.Equal(rec.Code, http.StatusOK)

	var branches []struct {
		Name string `json:"name"`
	}
	decodeJSON(t, rec.Body, &branches)
	// feature diverged, so only master itself is contained in master.
	is.Equal(len(branches), 1)
	is.Equal(branches[0].Name, "master")
}

func TestGetTags(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/tags/")
	is.Equal(rec.Code, http.StatusOK)

	var tags []struct {
		Name   string   `json:"name"`
		Commit linkJSON `json:"commit"`
		URL    string   `json:"url"`
	}
	decodeJSON(t, rec.Body, &tags)
	is.Equal(len(tags), 2)
	is.Equal(tags[0].Name, "light")
	is.Equal(tags[0].Commit.SHA, f.second.Hash.String())
	is.Equal(tags[1].Name, "v1.0")
	// Annotated tags list their peeled commit.
	is.Equal(tags[1].Commit.SHA, f.initial.Hash.String())
}

func TestGetReposTag(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/tags/v1.0/")
	is.Equal(rec.Code, http.StatusOK)

	var tag struct {
		Name   string              `json:"name"`
		Commit porcelainCommitJSON `json:"commit"`
		Tag    *tagJSON            `json:"tag"`
	}
	decodeJSON(t, rec.Body, &tag)
	is.Equal(tag.Name, "v1.0")
	is.Equal(tag.Commit.Commit.SHA, f.initial.Hash.String())
	is.True(tag.Tag != nil)
	is.Equal(tag.Tag.SHA, f.tagHash.String())
}

func TestGetReposTagLightweight(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/tags/light/")
	is.Equal(rec.Code, http.StatusOK)

	var tag struct {
		Commit porcelainCommitJSON `json:"commit"`
		Tag    *tagJSON            `json:"tag"`
	}
	decodeJSON(t, rec.Body, &tag)
	is.Equal(tag.Commit.Commit.SHA, f.second.Hash.String())
	is.Equal(tag.Tag, (*tagJSON)(nil))
}

func TestGetCommitDiff(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/commits/"+f.second.Hash.String()+".diff")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Header().Get("Content-Type"), "text/x-diff; charset=utf-8")

	body := rec.Body.String()
	is.True(strings.Contains(body, "diff --git a/README.md b/README.md"))
	is.True(strings.Contains(body, "+now with docs"))
}

func TestGetCompareDiff(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/compare/"+f.initial.Hash.String()+"..."+f.second.Hash.String()+".diff")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Header().Get("Content-Type"), "text/x-diff; charset=utf-8")
	is.True(strings.Contains(rec.Body.String(), "diff --git a/data.bin b/data.bin"))
}

func TestGetBlame(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/blame/master/README.md")
	is.Equal(rec.Code, http.StatusOK)

	var blame blameJSON
	decodeJSON(t, rec.Body, &blame)
	is.Equal(len(blame.Lines), 2)
	is.Equal(blame.Lines[0].Commit, f.initial.Hash.String())
	is.Equal(blame.Lines[0].LineNo, 1)
	is.Equal(blame.Lines[0].Line, "# demo")
	is.Equal(blame.Lines[1].Commit, f.second.Hash.String())
	is.Equal(blame.Lines[1].Line, "now with docs")
	is.Equal(len(blame.Commits), 2)
	is.Equal(blame.Incomplete, false)
}

func TestGetBlameRange(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/blame/master/README.md?firstLine=2&lastLine=2")
	is.Equal(rec.Code, http.StatusOK)

	var blame blameJSON
	decodeJSON(t, rec.Body, &blame)
	is.Equal(len(blame.Lines), 1)
	is.Equal(blame.Lines[0].LineNo, 2)
	is.Equal(blame.Lines[0].Commit, f.second.Hash.String())
}

func TestGetBlameBadRange(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	is.Equal(get(t, h, "/repos/demo/blame/master/README.md?firstLine=3&lastLine=2").Code, http.StatusBadRequest)
	is.Equal(get(t, h, "/repos/demo/blame/master/missing.txt").Code, http.StatusNotFound)
}

func TestGetContributors(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/contributors/")
	is.Equal(rec.Code, http.StatusOK)

	var contributors []contributorJSON
	decodeJSON(t, rec.Body, &contributors)
	is.Equal(len(contributors), 2) // feature's commits are not reachable from HEAD

	byName := make(map[string]int, len(contributors))
	for _, c := range contributors {
		byName[c.Name] = c.Contributions
	}
	is.Equal(byName["alice"], 1)
	is.Equal(byName["bob"], 1)
}

func TestGetContentsDirectory(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/contents/")
	is.Equal(rec.Code, http.StatusOK)

	var entries []contentJSON
	decodeJSON(t, rec.Body, &entries)
	is.Equal(len(entries), 3)
	is.Equal(entries[0].Name, "README.md")
	is.Equal(entries[0].Type, "file")
	is.Equal(entries[2].Name, "src")
	is.Equal(entries[2].Type, "dir")
}

func TestGetContentsFile(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/contents/src/main.go")
	is.Equal(rec.Code, http.StatusOK)

	var file contentJSON
	decodeJSON(t, rec.Body, &file)
	is.Equal(file.Type, "file")
	is.Equal(file.Name, "main.go")
	is.Equal(file.Path, "src/main.go")
	is.Equal(file.Encoding, "base64")
	is.Equal(file.Content, base64.StdEncoding.EncodeToString([]byte("package main\n")))
}

func TestGetContentsRef(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	// data.bin only exists on master
	is.Equal(get(t, h, "/repos/demo/contents/data.bin").Code, http.StatusOK)
	is.Equal(get(t, h, "/repos/demo/contents/data.bin?ref=feature").Code, http.StatusNotFound)
}

func TestGetRaw(t *testing.T) {
	is := is.New(t)
	h := testRouter(t, newFixture())

	rec := get(t, h, "/repos/demo/raw/master/src/main.go")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Body.String(), "package main\n")

	rec = get(t, h, "/repos/demo/raw/master/src")
	is.Equal(rec.Code, http.StatusNotAcceptable)

	rec = get(t, h, "/repos/demo/raw/master/missing.txt")
	is.Equal(rec.Code, http.StatusNotFound)
}

func TestGetTarball(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/tarball/master/")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Header().Get("Content-Type"), "application/x-gzip")
	is.True(strings.Contains(rec.Header().Get("Content-Disposition"), "demo-master.tar.gz"))

	zr, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
	is.NoErr(err)
	tr := tar.NewReader(zr)

	prefix := "demo-" + f.second.Hash.String()
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		is.NoErr(err)
		names = append(names, hdr.Name)
	}
	is.Equal(names, []string{
		prefix + "/",
		prefix + "/README.md",
		prefix + "/data.bin",
		prefix + "/src/",
		prefix + "/src/main.go",
	})
}

func TestGetZipball(t *testing.T) {
	is := is.New(t)
	f := newFixture()
	h := testRouter(t, f)

	rec := get(t, h, "/repos/demo/zipball/v1.0/")
	is.Equal(rec.Code, http.StatusOK)
	is.Equal(rec.Header().Get("Content-Type"), "application/zip")
	is.True(strings.Contains(rec.Header().Get("Content-Disposition"), "demo-v1.0.zip"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	is.NoErr(err)

	var readme string
	for _, zf := range zr.File {
		if strings.HasSuffix(zf.Name, "README.md") {
			rc, err := zf.Open()
			is.NoErr(err)
			data, err := io.ReadAll(rc)
			is.NoErr(err)
			rc.Close()
			readme = string(data)
		}
	}
	is.Equal(readme, "# demo\n")
}
