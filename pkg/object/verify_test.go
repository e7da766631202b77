package object

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerifyCleanStore(t *testing.T) {
	s := tempStore(t)
	bh, err := s.WriteBlob(&Blob{Data: []byte("a")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	th, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Name: "a", Kind: KindBlob, Hash: bh}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if _, err := s.WriteCommit(&CommitObj{TreeHash: th, Author: "x", Message: "m"}); err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	summary, err := s.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if summary.Objects != 3 || summary.Blobs != 1 || summary.Trees != 1 || summary.Commits != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestVerifyReportsMissingAndCorrupt(t *testing.T) {
	s := tempStore(t, WithCompression(false))
	missing := HashObject(TypeBlob, []byte("never written"))
	if _, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Name: "gone", Kind: KindBlob, Hash: missing}}}); err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	bh, err := s.WriteBlob(&Blob{Data: []byte("original")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	path := filepath.Join(s.root, "objects", string(bh[:2]), string(bh[2:]))
	if err := os.WriteFile(path, []byte("blob 8\x00tampered"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	summary, err := s.Verify()
	if err == nil {
		t.Fatal("Verify should fail on a damaged store")
	}
	if len(summary.Missing) != 1 || summary.Missing[0] != missing {
		t.Errorf("Missing = %v, want [%s]", summary.Missing, missing.Short(8))
	}
	msg := err.Error()
	if !strings.Contains(msg, "hash mismatch") || !strings.Contains(msg, "missing object") {
		t.Errorf("Verify error does not report both problems: %s", msg)
	}
}
