package repo

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/twig/pkg/object"
)

// tickClock returns a clock that advances one second per call, starting at
// a fixed instant, so commit digests are reproducible.
func tickClock() func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func initRepo(t *testing.T) (*Repo, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := Init(dir, WithClock(tickClock()))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return r, dir
}

func writeWorkFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func readWorkFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func assertNoWorkFile(t *testing.T, dir, name string) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); !os.IsNotExist(err) {
		t.Fatalf("%s should not exist (stat err = %v)", name, err)
	}
}

// commitFiles writes each file, stages it and commits.
func commitFiles(t *testing.T, r *Repo, dir string, files map[string]string, message string) object.Hash {
	t.Helper()
	paths := make([]string, 0, len(files))
	for name, content := range files {
		writeWorkFile(t, dir, name, content)
		paths = append(paths, name)
	}
	if err := r.Add(paths); err != nil {
		t.Fatalf("Add %v: %v", paths, err)
	}
	h, err := r.Commit(message, CommitOptions{Author: "test-author"})
	if err != nil {
		t.Fatalf("Commit %q: %v", message, err)
	}
	return h
}

func commitFile(t *testing.T, r *Repo, dir, name, content, message string) object.Hash {
	t.Helper()
	return commitFiles(t, r, dir, map[string]string{name: content}, message)
}

func headHash(t *testing.T, r *Repo) object.Hash {
	t.Helper()
	h, err := r.Resolve("HEAD")
	if err != nil {
		t.Fatalf("Resolve(HEAD): %v", err)
	}
	return h
}

func TestCommit_CreatesObject(t *testing.T) {
	r, dir := initRepo(t)
	h := commitFile(t, r, dir, "main.go", "package main\n", "initial commit")

	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Message != "initial commit" {
		t.Errorf("Message = %q, want %q", c.Message, "initial commit")
	}
	if c.Author != "test-author" {
		t.Errorf("Author = %q, want %q", c.Author, "test-author")
	}
	if len(c.Parents) != 0 {
		t.Errorf("root commit has %d parents", len(c.Parents))
	}
	if c.Timestamp != 1_700_000_001 {
		t.Errorf("Timestamp = %d, want %d", c.Timestamp, 1_700_000_001)
	}

	files, err := r.FlattenTree(c.TreeHash)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(files) != 1 || files[0].Path != "main.go" {
		t.Fatalf("tree files = %+v, want [main.go]", files)
	}
	if files[0].BlobHash != object.BlobHash([]byte("package main\n")) {
		t.Errorf("blob hash = %s, want digest of content", files[0].BlobHash)
	}
}

func TestCommit_UpdatesBranchAndClearsStaging(t *testing.T) {
	r, dir := initRepo(t)
	h := commitFile(t, r, dir, "a.txt", "a\n", "first")

	tip, err := r.BranchTip("main")
	if err != nil {
		t.Fatalf("BranchTip(main): %v", err)
	}
	if tip != h {
		t.Fatalf("main = %s, want %s", tip, h)
	}
	stg, err := r.ReadStaging()
	if err != nil {
		t.Fatalf("ReadStaging: %v", err)
	}
	if stg.Len() != 0 {
		t.Fatalf("staging not cleared: %v", stg.Paths)
	}
}

func TestCommit_SecondHasParent(t *testing.T) {
	r, dir := initRepo(t)
	first := commitFile(t, r, dir, "a.txt", "1\n", "first")
	second := commitFile(t, r, dir, "a.txt", "2\n", "second")

	c, err := r.Store.ReadCommit(second)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(c.Parents) != 1 || c.Parents[0] != first {
		t.Fatalf("Parents = %v, want [%s]", c.Parents, first)
	}
}

func TestCommit_NothingStaged(t *testing.T) {
	r, _ := initRepo(t)
	_, err := r.Commit("empty", CommitOptions{})
	if !errors.Is(err, ErrEmptyCommit) {
		t.Fatalf("Commit with empty staging = %v, want ErrEmptyCommit", err)
	}
}

func TestCommit_UnchangedTreeIsEmptyCommit(t *testing.T) {
	r, dir := initRepo(t)
	commitFile(t, r, dir, "a.txt", "same\n", "first")

	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := r.Commit("again", CommitOptions{})
	if !errors.Is(err, ErrEmptyCommit) {
		t.Fatalf("Commit with unchanged tree = %v, want ErrEmptyCommit", err)
	}
}

func TestCommit_StagedDeletion(t *testing.T) {
	r, dir := initRepo(t)
	commitFiles(t, r, dir, map[string]string{"keep.txt": "k\n", "gone.txt": "g\n"}, "first")

	if err := os.Remove(filepath.Join(dir, "gone.txt")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Add([]string{"gone.txt"}); err != nil {
		t.Fatalf("Add(gone.txt): %v", err)
	}
	h, err := r.Commit("delete gone.txt", CommitOptions{})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	tree, err := r.commitTree(h)
	if err != nil {
		t.Fatalf("commitTree: %v", err)
	}
	files, err := r.FlattenTree(tree)
	if err != nil {
		t.Fatalf("FlattenTree: %v", err)
	}
	if len(files) != 1 || files[0].Path != "keep.txt" {
		t.Fatalf("files = %+v, want only keep.txt", files)
	}
}

func TestCommit_DefaultAuthorFromConfig(t *testing.T) {
	r, dir := initRepo(t)
	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	cfg.User.Name = "Ada"
	if err := r.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	writeWorkFile(t, dir, "a.txt", "a\n")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit("first", CommitOptions{})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Author != "Ada" {
		t.Fatalf("Author = %q, want %q", c.Author, "Ada")
	}
}

func TestCommit_DigestIsDeterministic(t *testing.T) {
	build := func() object.Hash {
		r, dir := initRepo(t)
		commitFile(t, r, dir, "a.txt", "1\n", "first")
		return commitFile(t, r, dir, "b/c.txt", "2\n", "second")
	}
	if a, b := build(), build(); a != b {
		t.Fatalf("same history produced %s and %s", a, b)
	}
}

func TestCommit_Signer(t *testing.T) {
	r, dir := initRepo(t)
	writeWorkFile(t, dir, "a.txt", "a\n")
	if err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var signed []byte
	signer := func(payload []byte) (string, error) {
		signed = append([]byte(nil), payload...)
		return "test-signature", nil
	}
	h, err := r.Commit("signed", CommitOptions{Signer: signer})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Signature != "test-signature" {
		t.Fatalf("Signature = %q", c.Signature)
	}
	payload, err := c.SigningPayload()
	if err != nil {
		t.Fatalf("SigningPayload: %v", err)
	}
	if string(payload) != string(signed) {
		t.Fatalf("signed payload differs from recomputed payload")
	}
	if strings.Contains(string(payload), "test-signature") {
		t.Fatal("signing payload must not include the signature")
	}
}

func TestCommitTree_Validation(t *testing.T) {
	r, dir := initRepo(t)
	first := commitFile(t, r, dir, "a.txt", "1\n", "first")
	tree, err := r.commitTree(first)
	if err != nil {
		t.Fatalf("commitTree: %v", err)
	}

	_, err = r.CommitTree(tree, "three parents", []object.Hash{first, first, first}, CommitOptions{})
	if !errors.Is(err, ErrTooManyParents) {
		t.Errorf("three parents = %v, want ErrTooManyParents", err)
	}

	missing := object.Hash(strings.Repeat("ab", object.HashSize/2))
	_, err = r.CommitTree(tree, "dangling", []object.Hash{missing}, CommitOptions{})
	if !errors.Is(err, ErrNoSuchCommit) {
		t.Errorf("missing parent = %v, want ErrNoSuchCommit", err)
	}

	_, err = r.CommitTree(tree, "tree as parent", []object.Hash{tree}, CommitOptions{})
	if !errors.Is(err, ErrNoSuchCommit) {
		t.Errorf("tree as parent = %v, want ErrNoSuchCommit", err)
	}

	_, err = r.CommitTree(missing, "no tree", nil, CommitOptions{})
	if !errors.Is(err, object.ErrNotFound) {
		t.Errorf("missing tree = %v, want object.ErrNotFound", err)
	}

	_, err = r.CommitTree(tree, "no change", []object.Hash{first}, CommitOptions{})
	if !errors.Is(err, ErrEmptyCommit) {
		t.Errorf("unchanged single parent = %v, want ErrEmptyCommit", err)
	}

	// Root and merge commits skip the unchanged-tree check.
	if _, err := r.CommitTree(tree, "another root", nil, CommitOptions{}); err != nil {
		t.Errorf("root commit with same tree: %v", err)
	}
	if _, err := r.CommitTree(tree, "merge", []object.Hash{first, first}, CommitOptions{}); err != nil {
		t.Errorf("merge commit with same tree: %v", err)
	}

	// CommitTree never moves refs.
	if tip := headHash(t, r); tip != first {
		t.Fatalf("HEAD moved to %s", tip)
	}
}

func TestCommit_DetachedHead(t *testing.T) {
	r, dir := initRepo(t)
	first := commitFile(t, r, dir, "a.txt", "1\n", "first")
	commitFile(t, r, dir, "a.txt", "2\n", "second")

	if err := r.Checkout(string(first)); err != nil {
		t.Fatalf("Checkout(first): %v", err)
	}
	h := commitFile(t, r, dir, "a.txt", "3\n", "detached work")

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != string(h) {
		t.Fatalf("HEAD = %q, want detached %s", head, h)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(c.Parents) != 1 || c.Parents[0] != first {
		t.Fatalf("Parents = %v, want [%s]", c.Parents, first)
	}
}
