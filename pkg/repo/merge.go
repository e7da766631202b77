package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
)

// MergeKind classifies how two commits were combined.
type MergeKind int

const (
	// MergeUpToDate means theirs is already contained in ours.
	MergeUpToDate MergeKind = iota
	// MergeFastForward means ours is an ancestor of theirs; the result is
	// theirs itself.
	MergeFastForward
	// MergeClean means both sides diverged and merged without conflicts.
	MergeClean
	// MergeConflicted means at least one path needs manual resolution.
	MergeConflicted
)

func (k MergeKind) String() string {
	switch k {
	case MergeUpToDate:
		return "up-to-date"
	case MergeFastForward:
		return "fast-forward"
	case MergeClean:
		return "clean"
	case MergeConflicted:
		return "conflicted"
	}
	return fmt.Sprintf("MergeKind(%d)", int(k))
}

// MergeOutcome describes a merge. Commit is the commit the target ends up
// at: ours when up to date, theirs on fast-forward, the new merge commit on
// a clean merge, and empty on conflict. Tree is the merged tree; on
// conflict it holds the ancestor's version of every conflicted path.
type MergeOutcome struct {
	Kind      MergeKind
	Base      object.Hash
	Ours      object.Hash
	Theirs    object.Hash
	Commit    object.Hash
	Tree      object.Hash
	Conflicts []merge.Conflict
	Paths     []merge.PathResult
}

// MergeOptions carries the metadata of a merge commit.
type MergeOptions struct {
	Message string
	Author  string
	Signer  CommitSigner
}

// MergeCommits computes the merge of theirs into ours without moving any
// ref or touching the working directory. Only tree objects are written; a
// clean result has Commit empty until a caller records it.
func (r *Repo) MergeCommits(ours, theirs object.Hash) (*MergeOutcome, error) {
	base, err := r.LowestCommonAncestor(ours, theirs)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	out := &MergeOutcome{Base: base, Ours: ours, Theirs: theirs}

	switch base {
	case theirs:
		out.Kind = MergeUpToDate
		out.Commit = ours
		if out.Tree, err = r.commitTree(ours); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		return out, nil
	case ours:
		out.Kind = MergeFastForward
		out.Commit = theirs
		if out.Tree, err = r.commitTree(theirs); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		return out, nil
	}

	var trees [3]object.Hash
	for i, h := range []object.Hash{base, ours, theirs} {
		if trees[i], err = r.commitTree(h); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
	}
	res, err := merge.Trees(r.Store, trees[0], trees[1], trees[2])
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	out.Tree = res.Tree
	out.Conflicts = res.Conflicts
	out.Paths = res.Paths
	out.Kind = MergeClean
	if !res.Clean() {
		out.Kind = MergeConflicted
	}
	return out, nil
}

// MergeBranches merges branch source into branch target and moves target.
//
// A fast-forward moves the pointer without creating a commit. A clean
// divergent merge records a two-parent commit (target tip first). A
// conflicted merge leaves every ref untouched and returns the conflicts.
//
// When target is the checked-out branch the working tree must be clean and
// is updated to the result. On conflict MERGE_HEAD is written, conflicted
// files get markers, and the remaining merged paths are staged, so that
// resolving, adding and committing concludes the merge.
func (r *Repo) MergeBranches(target, source string, opts MergeOptions) (*MergeOutcome, error) {
	ours, err := r.BranchTip(target)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	theirs, err := r.Resolve(source)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	current, err := r.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	checkedOut := current == target
	if checkedOut {
		if r.MergeInProgress() {
			return nil, fmt.Errorf("merge: %w", ErrMergeInProgress)
		}
		if err := r.ensureClean(); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
	}

	out, err := r.MergeCommits(ours, theirs)
	if err != nil {
		return nil, err
	}
	log := r.log.WithFields(logging.Fields{
		logging.BranchFieldKey: target,
		"source":               source,
		"kind":                 out.Kind.String(),
	})

	switch out.Kind {
	case MergeUpToDate:
		log.Debug("merge")
		return out, nil

	case MergeFastForward:
		if err := r.moveMergeTarget(target, ours, out, checkedOut, "merge "+source+": fast-forward"); err != nil {
			return nil, err
		}
		log.WithField(logging.CommitFieldKey, string(out.Commit)).Debug("merge")
		return out, nil

	case MergeClean:
		message := opts.Message
		if message == "" {
			message = fmt.Sprintf("Merge %s into %s", source, target)
		}
		h, err := r.CommitTree(out.Tree, message, []object.Hash{ours, theirs}, CommitOptions{
			Author: opts.Author,
			Signer: opts.Signer,
		})
		if err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		out.Commit = h
		if err := r.moveMergeTarget(target, ours, out, checkedOut, "merge "+source); err != nil {
			return nil, err
		}
		log.WithField(logging.CommitFieldKey, string(h)).Debug("merge")
		return out, nil
	}

	log.WithField("conflicts", len(out.Conflicts)).Debug("merge")
	if checkedOut {
		if err := r.startConflictedMerge(out); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
	}
	return out, nil
}

// moveMergeTarget advances target from old to out.Commit. The working tree
// is checked for overwritten untracked files before the ref moves and
// updated after.
func (r *Repo) moveMergeTarget(target string, old object.Hash, out *MergeOutcome, checkedOut bool, reason string) error {
	var changes []merge.Change
	if checkedOut {
		oursTree, err := r.commitTree(old)
		if err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		if changes, err = merge.DiffTrees(r.Store, oursTree, out.Tree); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
		if err := r.checkOverwrites(changes); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
	}

	err := r.applyRefUpdate(refUpdate{
		name:     branchRef(target),
		newHash:  out.Commit,
		oldHash:  old,
		checkOld: true,
		reason:   reason,
	})
	if err != nil && !errors.Is(err, ErrRefUpdatedButReflogAppendFailed) {
		return fmt.Errorf("merge: %w", err)
	}
	if err != nil {
		r.log.WithError(err).Warn("merge recorded without reflog entry")
	}

	if checkedOut {
		if err := r.applyChanges(changes); err != nil {
			return fmt.Errorf("merge: update working tree: %w", err)
		}
	}
	return nil
}

// startConflictedMerge brings the working tree to the merged tree, writes
// conflict markers, stages every cleanly merged change and records
// MERGE_HEAD. Paths at or below a conflict keep ours' version on disk and
// stay out of the index; conflicts between a file and a directory get no
// markers.
func (r *Repo) startConflictedMerge(out *MergeOutcome) error {
	oursTree, err := r.commitTree(out.Ours)
	if err != nil {
		return err
	}
	all, err := merge.DiffTrees(r.Store, oursTree, out.Tree)
	if err != nil {
		return err
	}
	conflicted := make(map[string]struct{}, len(out.Conflicts))
	for _, c := range out.Conflicts {
		conflicted[c.Path] = struct{}{}
	}
	changes := make([]merge.Change, 0, len(all))
	for _, c := range all {
		if !underConflict(conflicted, c.Path) {
			changes = append(changes, c)
		}
	}
	if err := r.checkOverwrites(changes); err != nil {
		return err
	}

	var markable []merge.Conflict
	for _, c := range out.Conflicts {
		if c.OursKind == object.KindTree || c.TheirsKind == object.KindTree {
			continue
		}
		if c.Ours == "" {
			// The marker file replaces whatever sits at the path, so an
			// untracked file there must already hold theirs' content.
			if r.Work.IsDir(c.Path) {
				return fmt.Errorf("%w: untracked directory %q would be overwritten", ErrDirtyWorktree, c.Path)
			}
			if r.Work.Exists(c.Path) {
				data, err := r.Work.ReadFile(c.Path)
				if err != nil {
					return err
				}
				if object.BlobHash(data) != c.Theirs {
					return fmt.Errorf("%w: untracked file %q would be overwritten", ErrDirtyWorktree, c.Path)
				}
			}
		}
		markable = append(markable, c)
	}

	if err := r.applyChanges(changes); err != nil {
		return err
	}
	for _, c := range markable {
		if err := r.writeConflictFile(c); err != nil {
			return err
		}
	}

	stg := &Staging{}
	for _, c := range changes {
		stg.Add(c.Path)
	}
	if err := r.WriteStaging(stg); err != nil {
		return err
	}
	return r.writeMergeHead(out.Theirs)
}

// underConflict reports whether p or one of its parent directories is a
// conflict path.
func underConflict(conflicted map[string]struct{}, p string) bool {
	for {
		if _, ok := conflicted[p]; ok {
			return true
		}
		i := strings.LastIndexByte(p, '/')
		if i < 0 {
			return false
		}
		p = p[:i]
	}
}

// Merge merges ref into the checked-out branch.
func (r *Repo) Merge(ref string, opts MergeOptions) (*MergeOutcome, error) {
	current, err := r.CurrentBranch()
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	if current == "" {
		return nil, fmt.Errorf("merge: %w", ErrDetachedHead)
	}
	return r.MergeBranches(current, ref, opts)
}

// AbortMerge abandons a conflicted merge: MERGE_HEAD is dropped, staging is
// cleared and the working tree is restored to HEAD.
func (r *Repo) AbortMerge() error {
	theirs, ok, err := r.readMergeHead()
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	if !ok {
		return fmt.Errorf("abort merge: %w", ErrNoMergeInProgress)
	}
	head, _, err := r.HeadCommit()
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	headTree, err := r.commitTree(head)
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}

	stg, err := r.ReadStaging()
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	extra := append([]string(nil), stg.Paths...)
	out, err := r.MergeCommits(head, theirs)
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	for _, c := range out.Conflicts {
		extra = append(extra, c.Path)
	}

	if err := r.forceTree(headTree, headTree, extra); err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	if err := r.ClearStaging(); err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	if err := r.clearMergeHead(); err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	r.log.WithField(logging.CommitFieldKey, string(theirs)).Debug("merge aborted")
	return nil
}
