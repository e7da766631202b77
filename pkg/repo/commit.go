package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

// CommitOptions carries the optional commit metadata. Zero values fall back
// to the configured user name and the session clock.
type CommitOptions struct {
	Author    string
	Timestamp int64
	Signer    CommitSigner
}

const maxParents = 2

// CommitTree writes a commit object for an already stored tree. It does not
// move any ref.
//
// Every parent must be a stored commit and the tree must be stored. A
// single-parent commit whose tree equals the parent's tree is rejected with
// ErrEmptyCommit; root and merge commits are not checked.
func (r *Repo) CommitTree(tree object.Hash, message string, parents []object.Hash, opts CommitOptions) (object.Hash, error) {
	if len(parents) > maxParents {
		return "", fmt.Errorf("commit: %w: %d", ErrTooManyParents, len(parents))
	}
	if typ, err := r.Store.TypeOf(tree); err != nil {
		return "", fmt.Errorf("commit: tree %s: %w", tree, err)
	} else if typ != object.TypeTree {
		return "", fmt.Errorf("commit: %s: %w", tree, object.ErrTypeMismatch)
	}

	for _, p := range parents {
		typ, err := r.Store.TypeOf(p)
		if err != nil || typ != object.TypeCommit {
			return "", fmt.Errorf("commit: parent: %w: %s", ErrNoSuchCommit, displayHash(p))
		}
	}
	if len(parents) == 1 {
		parentTree, err := r.commitTree(parents[0])
		if err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
		if parentTree == tree {
			return "", fmt.Errorf("commit: %w", ErrEmptyCommit)
		}
	}

	c := &object.CommitObj{
		TreeHash:  tree,
		Parents:   append([]object.Hash(nil), parents...),
		Author:    opts.Author,
		Timestamp: opts.Timestamp,
		Message:   message,
	}
	if c.Author == "" {
		c.Author = r.DefaultAuthor()
	}
	if c.Timestamp == 0 {
		c.Timestamp = r.now().Unix()
	}
	if opts.Signer != nil {
		payload, err := c.SigningPayload()
		if err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
		sig, err := opts.Signer(payload)
		if err != nil {
			return "", fmt.Errorf("commit: sign commit: %w", err)
		}
		c.Signature = sig
	}

	h, err := r.Store.WriteCommit(c)
	if err != nil {
		return "", fmt.Errorf("commit: write commit: %w", err)
	}
	return h, nil
}

// Commit records the staging set as a new commit on the current branch.
//
// The tree is built from the HEAD tree with every staged path re-read from
// the working directory. When a conflicted merge is being concluded the
// commit gets MERGE_HEAD as its second parent. On success staging is
// cleared and MERGE_HEAD removed.
func (r *Repo) Commit(message string, opts CommitOptions) (object.Hash, error) {
	stg, err := r.ReadStaging()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	mergeHead, inMerge, err := r.readMergeHead()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if stg.Len() == 0 && !inMerge {
		return "", fmt.Errorf("commit: nothing staged: %w", ErrEmptyCommit)
	}

	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	parent, hasParent, err := r.HeadCommit()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	var parentTree object.Hash
	var parents []object.Hash
	if hasParent {
		parents = append(parents, parent)
		if parentTree, err = r.commitTree(parent); err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
	}
	if inMerge {
		parents = append(parents, mergeHead)
	}

	tree, err := r.BuildTree(parentTree, stg.Paths, r.Work)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	h, err := r.CommitTree(tree, message, parents, opts)
	if err != nil {
		return "", err
	}

	reason := "commit: " + subjectLine(message)
	if inMerge {
		reason = "commit (merge): " + subjectLine(message)
	}
	u := refUpdate{name: head, newHash: h, oldHash: parent, checkOld: true, reason: reason}
	if !strings.HasPrefix(head, "refs/") {
		u.name = "HEAD"
	}
	if err := r.applyRefUpdate(u); err != nil {
		if !errors.Is(err, ErrRefUpdatedButReflogAppendFailed) {
			return "", fmt.Errorf("commit: %w", err)
		}
		r.log.WithError(err).Warn("commit recorded without reflog entry")
	}

	if err := r.ClearStaging(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if inMerge {
		if err := r.clearMergeHead(); err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
	}

	r.log.WithFields(logging.Fields{
		logging.RefFieldKey:    head,
		logging.CommitFieldKey: string(h),
		"parents":              len(parents),
	}).Debug("commit")
	return h, nil
}

// subjectLine returns the first line of a commit message.
func subjectLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}

func (r *Repo) mergeHeadPath() string {
	return filepath.Join(r.TwigDir, "MERGE_HEAD")
}

// readMergeHead returns the commit recorded by an unfinished merge.
func (r *Repo) readMergeHead() (object.Hash, bool, error) {
	data, err := os.ReadFile(r.mergeHeadPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read MERGE_HEAD: %w", err)
	}
	h := object.Hash(strings.TrimSpace(string(data)))
	if h == "" {
		return "", false, nil
	}
	return h, true, nil
}

func (r *Repo) writeMergeHead(h object.Hash) error {
	if err := writeFileAtomic(r.mergeHeadPath(), []byte(string(h)+"\n")); err != nil {
		return fmt.Errorf("write MERGE_HEAD: %w", err)
	}
	return nil
}

func (r *Repo) clearMergeHead() error {
	if err := os.Remove(r.mergeHeadPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove MERGE_HEAD: %w", err)
	}
	return nil
}

// MergeInProgress reports whether a conflicted merge is waiting to be
// concluded by a commit or abandoned with AbortMerge.
func (r *Repo) MergeInProgress() bool {
	_, ok, err := r.readMergeHead()
	return err == nil && ok
}
