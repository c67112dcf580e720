// Package gitobj provides read-only access to the Git object graph. The
// traversal engine consumes the Store interface and never parses on-disk
// formats itself.
package gitobj

import (
	"time"
)

// HashLen is the length of a full hex object hash.
const HashLen = 40

// Hash is the hex content hash naming a graph object. Two objects with the
// same hash are byte-identical.
type Hash string

// String returns the hex representation of the hash.
func (h Hash) String() string { return string(h) }

// IsZero returns true if the hash is empty.
func (h Hash) IsZero() bool { return h == "" }

// ObjectType is the type of a Git object.
type ObjectType string

// Object types.
const (
	CommitObject ObjectType = "commit"
	TreeObject   ObjectType = "tree"
	BlobObject   ObjectType = "blob"
	TagObject    ObjectType = "tag"
)

// File modes as stored in tree entries.
const (
	ModeFile      uint32 = 0o100644
	ModeExec      uint32 = 0o100755
	ModeSymlink   uint32 = 0o120000
	ModeDir       uint32 = 0o040000
	ModeSubmodule uint32 = 0o160000
)

// Signature is an author or committer identity with its timestamp.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Commit is an immutable commit object.
type Commit struct {
	Hash      Hash
	Tree      Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Message   string
}

// FirstParent returns the commit's primary lineage parent, or an empty hash
// for a root commit.
func (c *Commit) FirstParent() Hash {
	if len(c.Parents) == 0 {
		return ""
	}
	return c.Parents[0]
}

// TreeEntry is a single entry of a tree object. Size is only meaningful for
// blob entries.
type TreeEntry struct {
	Name string
	Mode uint32
	Hash Hash
	Size int64
}

// Type returns the object type the entry points at, derived from its mode.
// Submodule entries point at commits in another repository.
func (e TreeEntry) Type() ObjectType {
	switch e.Mode {
	case ModeDir:
		return TreeObject
	case ModeSubmodule:
		return CommitObject
	default:
		return BlobObject
	}
}

// IsTree returns true if the entry is a sub-tree.
func (e TreeEntry) IsTree() bool { return e.Mode == ModeDir }

// IsSubmodule returns true if the entry is a submodule gitlink.
func (e TreeEntry) IsSubmodule() bool { return e.Mode == ModeSubmodule }

// Tag is an annotated tag object. Lightweight tags are plain refs and never
// appear as Tag objects.
type Tag struct {
	Hash       Hash
	Name       string
	Target     Hash
	TargetType ObjectType
	Tagger     Signature
	Message    string
}

// Ref is a named pointer to an object. Symbolic refs are dereferenced by the
// store before they are returned, so Hash is always concrete.
type Ref struct {
	Name string
	Hash Hash
}

// Ref name prefixes.
const (
	RefsHeads = "refs/heads/"
	RefsTags  = "refs/tags/"
	HEAD      = "HEAD"
)

// ShortName returns the ref name without its refs/heads/ or refs/tags/
// prefix.
func (r *Ref) ShortName() string {
	name := r.Name
	for _, prefix := range []string{RefsHeads, RefsTags, "refs/"} {
		if len(name) > len(prefix) && name[:len(prefix)] == prefix {
			return name[len(prefix):]
		}
	}
	return name
}

// IsBranch returns true if the ref is a branch.
func (r *Ref) IsBranch() bool { return len(r.Name) > len(RefsHeads) && r.Name[:len(RefsHeads)] == RefsHeads }

// IsTag returns true if the ref is a tag.
func (r *Ref) IsTag() bool { return len(r.Name) > len(RefsTags) && r.Name[:len(RefsTags)] == RefsTags }
