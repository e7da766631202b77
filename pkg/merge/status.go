package merge

import (
	"fmt"

	"github.com/odvcencio/twig/pkg/object"
)

// Status describes how a path changed on each side relative to the ancestor.
type Status int

const (
	Unchanged      Status = iota
	ModifiedOurs          // ours modified, theirs unchanged
	ModifiedTheirs        // theirs modified, ours unchanged
	ModifiedBoth          // both modified, identically or not
	AddedOurs             // new in ours, absent in base and theirs
	AddedTheirs           // new in theirs, absent in base and ours
	AddedBoth             // new on both sides
	DeletedOurs           // deleted by ours
	DeletedTheirs         // deleted by theirs
	DeletedBoth           // deleted by both
)

func (s Status) String() string {
	switch s {
	case Unchanged:
		return "Unchanged"
	case ModifiedOurs:
		return "ModifiedOurs"
	case ModifiedTheirs:
		return "ModifiedTheirs"
	case ModifiedBoth:
		return "ModifiedBoth"
	case AddedOurs:
		return "AddedOurs"
	case AddedTheirs:
		return "AddedTheirs"
	case AddedBoth:
		return "AddedBoth"
	case DeletedOurs:
		return "DeletedOurs"
	case DeletedTheirs:
		return "DeletedTheirs"
	case DeletedBoth:
		return "DeletedBoth"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// version is one side's view of a tree entry. The zero value means absent.
type version struct {
	kind object.EntryKind
	hash object.Hash
}

func (v version) present() bool { return v.kind != "" }

func (v version) isFile() bool { return v.kind == object.KindBlob }

func versionOf(e object.TreeEntry) version {
	return version{kind: e.Kind, hash: e.Hash}
}

// classify compares the three versions of one path. It returns the status,
// whether the path conflicts, and the version the merged tree should carry.
// A conflicted path keeps the base version, which is absent when the path
// did not exist in base.
func classify(base, ours, theirs version) (Status, bool, version) {
	if !base.present() {
		switch {
		case ours.present() && !theirs.present():
			return AddedOurs, false, ours
		case !ours.present() && theirs.present():
			return AddedTheirs, false, theirs
		case ours == theirs:
			return AddedBoth, false, ours
		default:
			return AddedBoth, true, version{}
		}
	}

	oursChanged := ours != base
	theirsChanged := theirs != base
	switch {
	case !oursChanged && !theirsChanged:
		return Unchanged, false, base
	case !oursChanged:
		if !theirs.present() {
			return DeletedTheirs, false, theirs
		}
		return ModifiedTheirs, false, theirs
	case !theirsChanged:
		if !ours.present() {
			return DeletedOurs, false, ours
		}
		return ModifiedOurs, false, ours
	}

	// Both sides touched the path.
	switch {
	case !ours.present() && !theirs.present():
		return DeletedBoth, false, version{}
	case !ours.present():
		return DeletedOurs, true, base
	case !theirs.present():
		return DeletedTheirs, true, base
	case ours == theirs:
		return ModifiedBoth, false, ours
	default:
		return ModifiedBoth, true, base
	}
}
