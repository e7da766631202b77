package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	twigDir := filepath.Join(dir, ".twig")
	if r.TwigDir != twigDir {
		t.Errorf("TwigDir = %q, want %q", r.TwigDir, twigDir)
	}
	assertDir(t, filepath.Join(twigDir, "objects"))
	assertDir(t, filepath.Join(twigDir, "refs", "heads"))
	assertDir(t, filepath.Join(twigDir, "logs", "refs", "heads"))
	assertFile(t, filepath.Join(twigDir, "HEAD"))
	assertFile(t, filepath.Join(twigDir, ConfigFileName))
}

func TestInit_ExistingRepo_Error(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	_, err := Init(dir)
	if !errors.Is(err, ErrRepositoryExists) {
		t.Fatalf("second Init = %v, want ErrRepositoryExists", err)
	}
}

func TestInit_HeadDefault(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != "refs/heads/main" {
		t.Fatalf("Head = %q, want %q", head, "refs/heads/main")
	}
	if _, ok, err := r.HeadCommit(); err != nil || ok {
		t.Fatalf("HeadCommit on unborn branch = ok %v, err %v", ok, err)
	}
	stg, err := r.ReadStaging()
	if err != nil {
		t.Fatalf("ReadStaging: %v", err)
	}
	if stg.Len() != 0 {
		t.Fatalf("staging starts with %v", stg.Paths)
	}
}

func TestOpen_FromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	r, err := Open(sub)
	if err != nil {
		t.Fatalf("Open(sub): %v", err)
	}
	abs, _ := filepath.Abs(dir)
	if r.RootDir != abs {
		t.Fatalf("RootDir = %q, want %q", r.RootDir, abs)
	}
}

func TestOpen_NoRepo_Error(t *testing.T) {
	_, err := Open(t.TempDir())
	if !errors.Is(err, ErrNotARepository) {
		t.Fatalf("Open = %v, want ErrNotARepository", err)
	}
}

func TestOpen_SharesStateWithInit(t *testing.T) {
	r, dir := initRepo(t)
	h := commitFile(t, r, dir, "a.txt", "a\n", "first")

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := reopened.Resolve("main")
	if err != nil {
		t.Fatalf("Resolve(main): %v", err)
	}
	if got != h {
		t.Fatalf("main = %s, want %s", got, h)
	}
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if !info.IsDir() {
		t.Fatalf("%s is not a directory", path)
	}
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if info.IsDir() {
		t.Fatalf("%s is a directory, want file", path)
	}
}
