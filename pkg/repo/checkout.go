package repo

import (
	"bytes"
	"fmt"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
)

// Checkout switches the working directory to the state of the target. A
// branch name attaches HEAD to that branch; any other ref (a digest prefix
// or HEAD) detaches it.
//
// The working tree must be clean: staged changes, modified or deleted
// tracked files all refuse the switch with ErrDirtyWorktree. Untracked files
// survive unless the target would overwrite them.
func (r *Repo) Checkout(target string) error {
	if r.MergeInProgress() {
		return fmt.Errorf("checkout: %w", ErrMergeInProgress)
	}
	if err := r.ensureClean(); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	isBranch := r.BranchExists(target)
	var targetHash object.Hash
	var err error
	if isBranch {
		targetHash, err = r.BranchTip(target)
	} else {
		targetHash, err = r.Resolve(target)
	}
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	fromTree, err := r.headTree()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	toTree, err := r.commitTree(targetHash)
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.materialize(fromTree, toTree); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.ClearStaging(); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	if isBranch {
		err = r.setHeadBranch(target)
	} else {
		err = r.setHeadDetached(targetHash)
	}
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}

	r.log.WithFields(logging.Fields{
		logging.RefFieldKey:    target,
		logging.CommitFieldKey: string(targetHash),
		"detached":             !isBranch,
	}).Debug("checkout")
	return nil
}

// CheckoutNewBranch creates a branch at HEAD and switches to it.
func (r *Repo) CheckoutNewBranch(name string) error {
	head, ok, err := r.HeadCommit()
	if err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if !ok {
		return fmt.Errorf("checkout: %w: HEAD has no commits", ErrNoSuchCommit)
	}
	if err := r.CreateBranch(name, head); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	if err := r.setHeadBranch(name); err != nil {
		return fmt.Errorf("checkout: %w", err)
	}
	return nil
}

// materialize moves the working directory from tree `from` to tree `to`,
// touching only the paths that differ. Nothing is written when an untracked
// file would be overwritten.
func (r *Repo) materialize(from, to object.Hash) error {
	changes, err := merge.DiffTrees(r.Store, from, to)
	if err != nil {
		return err
	}
	if err := r.checkOverwrites(changes); err != nil {
		return err
	}
	return r.applyChanges(changes)
}

// checkOverwrites reports ErrDirtyWorktree when an added path is occupied
// by an untracked file with other content, or by a directory holding files
// the change set does not remove.
func (r *Repo) checkOverwrites(changes []merge.Change) error {
	removed := make(map[string]struct{})
	for _, c := range changes {
		if c.Type == merge.Deleted {
			removed[c.Path] = struct{}{}
		}
	}
	for _, c := range changes {
		if c.Type != merge.Added {
			continue
		}
		if r.Work.Exists(c.Path) {
			data, err := r.Work.ReadFile(c.Path)
			if err != nil {
				return err
			}
			if object.BlobHash(data) != c.To {
				return fmt.Errorf("%w: untracked file %q would be overwritten", ErrDirtyWorktree, c.Path)
			}
			continue
		}
		if !r.Work.IsDir(c.Path) {
			continue
		}
		under, err := r.Work.ListUnder(c.Path)
		if err != nil {
			return err
		}
		for _, p := range under {
			if _, ok := removed[p]; !ok {
				return fmt.Errorf("%w: %q would be replaced by a file", ErrDirtyWorktree, p)
			}
		}
	}
	return nil
}

// applyChanges removes deleted paths first so that a file can replace a
// directory and the other way round.
func (r *Repo) applyChanges(changes []merge.Change) error {
	for _, c := range changes {
		if c.Type != merge.Deleted {
			continue
		}
		if err := r.Work.Remove(c.Path); err != nil {
			return err
		}
	}
	for _, c := range changes {
		if c.Type == merge.Deleted {
			continue
		}
		if err := r.writeBlobTo(c.Path, c.To); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) writeBlobTo(path string, h object.Hash) error {
	blob, err := r.Store.ReadBlob(h)
	if err != nil {
		return fmt.Errorf("read blob %s for %q: %w", h.Short(12), path, err)
	}
	return r.Work.WriteFile(path, blob.Data)
}

// forceTree makes every file of tree `to` present with its committed
// content, and removes files tracked by `from` (plus any extra paths) that
// `to` does not contain. Local edits are discarded.
func (r *Repo) forceTree(from, to object.Hash, extra []string) error {
	fromFiles, err := r.treeFileMap(from)
	if err != nil {
		return err
	}
	toFiles, err := r.treeFileMap(to)
	if err != nil {
		return err
	}

	candidates := make(map[string]struct{}, len(fromFiles)+len(extra))
	for p := range fromFiles {
		candidates[p] = struct{}{}
	}
	for _, p := range extra {
		candidates[p] = struct{}{}
	}
	for _, p := range sortedPathSet(candidates) {
		if _, keep := toFiles[p]; keep {
			continue
		}
		if err := r.Work.Remove(p); err != nil {
			return err
		}
	}

	for _, p := range sortedFileKeys(toFiles) {
		want := toFiles[p].BlobHash
		if r.Work.Exists(p) {
			data, err := r.Work.ReadFile(p)
			if err != nil {
				return err
			}
			if object.BlobHash(data) == want {
				continue
			}
		}
		if err := r.writeBlobTo(p, want); err != nil {
			return err
		}
	}
	return nil
}

func sortedFileKeys(m map[string]TreeFileEntry) []string {
	set := make(map[string]struct{}, len(m))
	for p := range m {
		set[p] = struct{}{}
	}
	return sortedPathSet(set)
}

// writeConflictFile replaces a conflicted path with both competing versions
// between markers. An absent side renders as an empty section.
func (r *Repo) writeConflictFile(c merge.Conflict) error {
	var ours, theirs []byte
	if c.Ours != "" {
		b, err := r.Store.ReadBlob(c.Ours)
		if err != nil {
			return fmt.Errorf("conflict %q: %w", c.Path, err)
		}
		ours = b.Data
	}
	if c.Theirs != "" {
		b, err := r.Store.ReadBlob(c.Theirs)
		if err != nil {
			return fmt.Errorf("conflict %q: %w", c.Path, err)
		}
		theirs = b.Data
	}
	return r.Work.WriteFile(c.Path, renderFileConflict(ours, theirs))
}

func renderFileConflict(ours, theirs []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<<<<<< ours\n")
	buf.Write(ours)
	if len(ours) > 0 && ours[len(ours)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("=======\n")
	buf.Write(theirs)
	if len(theirs) > 0 && theirs[len(theirs)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(">>>>>>> theirs\n")
	return buf.Bytes()
}
