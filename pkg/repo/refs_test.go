package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/twig/pkg/object"
)

func TestUpdateRefCAS(t *testing.T) {
	r, dir := initRepo(t)
	a := commitFile(t, r, dir, "a.txt", "a", "A")
	b := commitFile(t, r, dir, "a.txt", "b", "B")

	if err := r.UpdateRefCAS("refs/heads/main", a, a); !errors.Is(err, ErrRefCASMismatch) {
		t.Fatalf("stale CAS = %v, want ErrRefCASMismatch", err)
	}
	if err := r.UpdateRefCAS("refs/heads/main", a, b); err != nil {
		t.Fatalf("CAS: %v", err)
	}
	if headHash(t, r) != a {
		t.Fatal("CAS did not move main")
	}

	blob, err := r.Store.WriteBlob(&object.Blob{Data: []byte("not a commit")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if err := r.UpdateRefCAS("refs/heads/main", blob); !errors.Is(err, ErrNoSuchCommit) {
		t.Fatalf("blob target = %v, want ErrNoSuchCommit", err)
	}
	if _, err := os.Stat(filepath.Join(r.TwigDir, "refs", "heads", "main.lock")); !os.IsNotExist(err) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

func TestListRefs(t *testing.T) {
	r, dir := initRepo(t)
	refs, err := r.ListRefs()
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("refs before first commit = %v", refs)
	}

	a := commitFile(t, r, dir, "a.txt", "a", "A")
	if err := r.CreateBranch("topic/x", a); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	refs, err = r.ListRefs()
	if err != nil {
		t.Fatalf("ListRefs: %v", err)
	}
	if len(refs) != 2 || refs["refs/heads/main"] != a || refs["refs/heads/topic/x"] != a {
		t.Fatalf("refs = %v", refs)
	}
}

func TestReflog(t *testing.T) {
	r, dir := initRepo(t)
	a := commitFile(t, r, dir, "a.txt", "a", "first")
	b := commitFile(t, r, dir, "a.txt", "b", "second\n\nbody")
	if err := r.CreateBranch("topic", a); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	entries, err := r.ReadReflog("", 0)
	if err != nil {
		t.Fatalf("ReadReflog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].NewHash != b || entries[0].OldHash != a || entries[0].Reason != "commit: second" {
		t.Fatalf("newest = %+v", entries[0])
	}
	if !entries[1].Created() || entries[1].NewHash != a {
		t.Fatalf("oldest = %+v", entries[1])
	}
	if entries[0].When.Before(entries[1].When) {
		t.Fatal("entries not newest first")
	}

	limited, err := r.ReadReflog("main", 1)
	if err != nil || len(limited) != 1 || limited[0].NewHash != b {
		t.Fatalf("ReadReflog(main, 1) = %+v, %v", limited, err)
	}

	topic, err := r.ReadReflog("topic", 0)
	if err != nil {
		t.Fatalf("ReadReflog(topic): %v", err)
	}
	if len(topic) != 1 || topic[0].NewHash != a || topic[0].Reason != "branch: created from "+a.Short(12) {
		t.Fatalf("topic reflog = %+v", topic)
	}

	if err := r.DeleteBranch("topic"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	topic, err = r.ReadReflog("topic", 0)
	if err != nil || len(topic) != 2 || !topic[0].Deleted() || topic[0].Reason != "branch: deleted" {
		t.Fatalf("topic reflog after delete = %+v, %v", topic, err)
	}

	none, err := r.ReadReflog("nothing", 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("ReadReflog(nothing) = %+v, %v", none, err)
	}
}

func TestVerify(t *testing.T) {
	r, dir := initRepo(t)
	commitFiles(t, r, dir, map[string]string{"a.txt": "a", "d/b.txt": "b"}, "first")
	commitFile(t, r, dir, "a.txt", "a2", "second")

	rep, err := r.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rep.Refs != 1 || rep.Objects.Commits != 2 || rep.Commits != 2 {
		t.Fatalf("report = %+v / %+v", rep, rep.Objects)
	}
	if rep.Reachable != rep.Objects.Objects {
		t.Fatalf("reachable %d, stored %d", rep.Reachable, rep.Objects.Objects)
	}

	blob := object.BlobHash([]byte("b"))
	if err := os.Remove(filepath.Join(r.TwigDir, "objects", string(blob[:2]), string(blob[2:]))); err != nil {
		t.Fatalf("remove blob: %v", err)
	}
	rep, err = r.Verify()
	if err == nil {
		t.Fatal("Verify passed with a missing blob")
	}
	if rep == nil || rep.Objects == nil || len(rep.Objects.Missing) != 1 || rep.Objects.Missing[0] != blob {
		t.Fatalf("report = %+v", rep)
	}
}

func TestParseReflogLine(t *testing.T) {
	h := object.BlobHash([]byte("x"))
	e, err := parseReflogLine("refs/heads/main", string(zeroHash)+" "+string(h)+" 1700000000 commit (initial): root")
	if err != nil {
		t.Fatalf("parseReflogLine: %v", err)
	}
	if !e.Created() || e.NewHash != h || e.When.Unix() != 1_700_000_000 || e.Reason != "commit (initial): root" {
		t.Fatalf("entry = %+v", e)
	}
	for _, bad := range []string{"", "a b c", "a b notanumber reason"} {
		if _, err := parseReflogLine("HEAD", bad); err == nil {
			t.Errorf("parseReflogLine(%q) succeeded", bad)
		}
	}
}
