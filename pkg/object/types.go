package object

// Hash is a 64-character hex-encoded SHA-256 digest.
type Hash string

// Short returns the first n characters of the hash, or the whole hash when
// it is shorter.
func (h Hash) Short(n int) string {
	if len(h) <= n {
		return string(h)
	}
	return string(h[:n])
}

// ObjectType identifies the kind of object stored.
type ObjectType string

const (
	TypeBlob   ObjectType = "blob"
	TypeTree   ObjectType = "tree"
	TypeCommit ObjectType = "commit"
)

// EntryKind is the kind of object a tree entry points at.
type EntryKind string

const (
	KindBlob EntryKind = "blob"
	KindTree EntryKind = "tree"
)

// Blob holds raw file data.
type Blob struct {
	Data []byte
}

// TreeEntry is one entry in a tree object.
type TreeEntry struct {
	Name string
	Kind EntryKind
	Hash Hash
}

// IsDir reports whether the entry points at a subtree.
func (e TreeEntry) IsDir() bool {
	return e.Kind == KindTree
}

// TreeObj holds a list of tree entries. Entries are serialized sorted by
// Name regardless of their order in the slice.
type TreeObj struct {
	Entries []TreeEntry
}

// Entry returns the entry with the given name.
func (t *TreeObj) Entry(name string) (TreeEntry, bool) {
	for _, e := range t.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return TreeEntry{}, false
}

// CommitObj represents a commit pointing to a tree with metadata.
type CommitObj struct {
	TreeHash  Hash
	Parents   []Hash
	Author    string
	Timestamp int64
	Signature string
	Message   string
}

// IsMerge reports whether the commit has more than one parent.
func (c *CommitObj) IsMerge() bool {
	return len(c.Parents) > 1
}
