package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/worktree"
)

const (
	refLockRetryDelay = 5 * time.Millisecond
	refLockWaitLimit  = 2 * time.Second

	headsPrefix = "refs/heads/"
)

// Init creates a new twig repository at path. It creates the .twig/
// directory structure: HEAD, config.toml, objects/, refs/heads/ and logs/.
// Returns an error if a .twig/ directory already exists.
func Init(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("init: abs path: %w", err)
	}
	twigDir := filepath.Join(abs, MetaDirName)

	if _, err := os.Stat(twigDir); err == nil {
		return nil, fmt.Errorf("init: %w at %s", ErrRepositoryExists, twigDir)
	}

	dirs := []string{
		filepath.Join(twigDir, "objects"),
		filepath.Join(twigDir, "refs", "heads"),
		filepath.Join(twigDir, "logs", "refs", "heads"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("init: mkdir %s: %w", d, err)
		}
	}

	cfg := DefaultConfig()
	if err := cfg.Save(filepath.Join(twigDir, ConfigFileName)); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}

	headPath := filepath.Join(twigDir, "HEAD")
	if err := os.WriteFile(headPath, []byte("ref: "+headsPrefix+cfg.Core.DefaultBranch+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("init: write HEAD: %w", err)
	}

	r, err := newRepo(abs, twigDir, opts)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	r.log.Debug("initialized repository")
	return r, nil
}

// Open searches upward from path for a .twig/ directory and opens the
// repository.
func Open(path string, opts ...Option) (*Repo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("open: abs path: %w", err)
	}

	cur := abs
	for {
		twigDir := filepath.Join(cur, MetaDirName)
		info, err := os.Stat(twigDir)
		if err == nil && info.IsDir() {
			r, err := newRepo(cur, twigDir, opts)
			if err != nil {
				return nil, fmt.Errorf("open: %w", err)
			}
			return r, nil
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil, fmt.Errorf("open: %w", ErrNotARepository)
		}
		cur = parent
	}
}

func newRepo(root, twigDir string, opts []Option) (*Repo, error) {
	cfg, err := LoadConfig(filepath.Join(twigDir, ConfigFileName))
	if err != nil {
		return nil, err
	}
	work, err := worktree.Open(root, MetaDirName)
	if err != nil {
		return nil, err
	}
	r := &Repo{
		RootDir: root,
		TwigDir: twigDir,
		Store:   object.NewStore(twigDir, object.WithCompression(cfg.Core.Compression)),
		Work:    work,
		Config:  cfg,
		log:     logging.Default(),
		now:     time.Now,
		graph:   newCommitGraph(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.WithField(logging.RepoFieldKey, root)
	return r, nil
}

// Head reads .twig/HEAD. If the content starts with "ref: ", it returns the
// ref path (e.g., "refs/heads/main"). Otherwise it returns the raw content
// as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := os.ReadFile(filepath.Join(r.TwigDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")

	if strings.HasPrefix(content, "ref: ") {
		return strings.TrimPrefix(content, "ref: "), nil
	}
	return content, nil
}

// HeadCommit returns the commit HEAD points at. ok is false on an unborn
// branch, before the first commit.
func (r *Repo) HeadCommit() (h object.Hash, ok bool, err error) {
	head, err := r.Head()
	if err != nil {
		return "", false, err
	}
	if !strings.HasPrefix(head, "refs/") {
		return object.Hash(head), true, nil
	}
	h, err = readRefHash(filepath.Join(r.TwigDir, filepath.FromSlash(head)))
	if err != nil {
		return "", false, fmt.Errorf("head: read %s: %w", head, err)
	}
	return h, h != "", nil
}

// headTree returns the tree of the HEAD commit, or "" on an unborn branch.
func (r *Repo) headTree() (object.Hash, error) {
	h, ok, err := r.HeadCommit()
	if err != nil || !ok {
		return "", err
	}
	return r.commitTree(h)
}

func (r *Repo) commitTree(h object.Hash) (object.Hash, error) {
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return "", fmt.Errorf("read commit %s: %w", h.Short(12), err)
	}
	return c.TreeHash, nil
}

// setHeadBranch points HEAD at refs/heads/<name>.
func (r *Repo) setHeadBranch(name string) error {
	if err := writeFileAtomic(filepath.Join(r.TwigDir, "HEAD"), []byte("ref: "+headsPrefix+name+"\n")); err != nil {
		return fmt.Errorf("update HEAD: %w", err)
	}
	return nil
}

// setHeadDetached points HEAD directly at a commit.
func (r *Repo) setHeadDetached(h object.Hash) error {
	if err := writeFileAtomic(filepath.Join(r.TwigDir, "HEAD"), []byte(string(h)+"\n")); err != nil {
		return fmt.Errorf("update HEAD: %w", err)
	}
	return nil
}

// UpdateRefCAS writes a hash to the named ref file under .twig/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it; an empty
// expected hash means the ref must not exist yet.
//
// Reflog append happens after the ref rename; if reflog append fails, the ref
// update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	u := refUpdate{name: name, newHash: h, reason: "update"}
	if len(expectedOld) == 1 {
		u.checkOld = true
		u.oldHash = expectedOld[0]
	}
	return r.applyRefUpdate(u)
}

type refUpdate struct {
	name     string
	newHash  object.Hash
	oldHash  object.Hash
	checkOld bool
	reason   string
}

func (r *Repo) applyRefUpdate(u refUpdate) error {
	name := u.name
	if strings.HasPrefix(name, headsPrefix) {
		typ, err := r.Store.TypeOf(u.newHash)
		if err != nil || typ != object.TypeCommit {
			return fmt.Errorf("update ref %q: %w: %s", name, ErrNoSuchCommit, u.newHash)
		}
	}

	refPath := filepath.Join(r.TwigDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("update ref %q: mkdir: %w", name, err)
	}

	lockPath := refPath + ".lock"
	lockFile, err := acquireRefLock(lockPath)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", name, err)
	}
	cleanupLock := true
	defer func() {
		if lockFile != nil {
			_ = lockFile.Close()
		}
		if cleanupLock {
			_ = os.Remove(lockPath)
		}
	}()

	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", name, err)
	}
	if u.checkOld && oldHash != u.oldHash {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			name,
			ErrRefCASMismatch,
			displayHash(u.oldHash),
			displayHash(oldHash),
		)
	}

	if _, err := lockFile.WriteString(string(u.newHash) + "\n"); err != nil {
		return fmt.Errorf("update ref %q: write: %w", name, err)
	}
	if err := lockFile.Sync(); err != nil {
		return fmt.Errorf("update ref %q: sync: %w", name, err)
	}
	if err := lockFile.Close(); err != nil {
		lockFile = nil
		return fmt.Errorf("update ref %q: close: %w", name, err)
	}
	lockFile = nil

	if err := os.Rename(lockPath, refPath); err != nil {
		return fmt.Errorf("update ref %q: rename: %w", name, err)
	}
	cleanupLock = false

	r.log.WithFields(logging.Fields{
		logging.RefFieldKey:    name,
		logging.CommitFieldKey: string(u.newHash),
		"old":                  string(oldHash),
	}).Debug(u.reason)

	if err := r.appendReflog(name, oldHash, u.newHash, u.reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     name,
			OldHash: oldHash,
			NewHash: u.newHash,
			Err:     err,
		}
	}
	return nil
}

func displayHash(h object.Hash) string {
	if h == "" {
		return "(none)"
	}
	return string(h)
}

func acquireRefLock(lockPath string) (*os.File, error) {
	deadline := time.Now().Add(refLockWaitLimit)
	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, nil
		}
		if os.IsExist(err) {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for lock %q", lockPath)
			}
			time.Sleep(refLockRetryDelay)
			continue
		}
		return nil, err
	}
}

func readRefHash(refPath string) (object.Hash, error) {
	data, err := os.ReadFile(refPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return object.Hash(strings.TrimSpace(string(data))), nil
}
