package object

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestHashBytesDeterminism(t *testing.T) {
	data := []byte("hello world")
	h1 := HashBytes(data)
	h2 := HashBytes(data)
	if h1 != h2 {
		t.Errorf("HashBytes not deterministic: %q != %q", h1, h2)
	}
	if len(h1) != HashSize {
		t.Errorf("Hash length: got %d, want %d", len(h1), HashSize)
	}
}

func TestHashObjectEnvelope(t *testing.T) {
	data := []byte("hello")
	h1 := HashObject(TypeBlob, data)
	if h1 == HashBytes(data) {
		t.Error("HashObject should differ from HashBytes due to envelope")
	}
	if h1 != HashObject(TypeBlob, data) {
		t.Error("HashObject not deterministic")
	}
	if h1 == HashObject(TypeTree, data) {
		t.Error("Different types should produce different hashes")
	}
	if h1 != BlobHash(data) {
		t.Error("BlobHash should match HashObject(TypeBlob, ...)")
	}
	if !ValidHash(h1) {
		t.Errorf("HashObject produced invalid hash %q", h1)
	}
}

func TestValidHashAndPrefix(t *testing.T) {
	h := HashBytes([]byte("test"))
	if !ValidHash(h) {
		t.Errorf("ValidHash(%q) = false", h)
	}
	if ValidHash(Hash(strings.ToUpper(string(h)))) {
		t.Error("uppercase hash should be invalid")
	}
	if ValidHash(h[:10]) {
		t.Error("short hash should be invalid")
	}
	if !ValidPrefix("ab12") || ValidPrefix("") || ValidPrefix("xyz") {
		t.Error("ValidPrefix gave wrong answers")
	}
	if got := h.Short(7); len(got) != 7 || !strings.HasPrefix(string(h), got) {
		t.Errorf("Short(7) = %q", got)
	}
}

func tempStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(dir, opts...)
}

func TestStoreWriteRead(t *testing.T) {
	for _, compress := range []bool{true, false} {
		s := tempStore(t, WithCompression(compress))
		data := []byte("hello world")
		h, err := s.Write(TypeBlob, data)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		if h != HashObject(TypeBlob, data) {
			t.Errorf("Write returned %q, want content digest", h)
		}

		gotType, gotData, err := s.Read(h)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if gotType != TypeBlob {
			t.Errorf("Type: got %q, want %q", gotType, TypeBlob)
		}
		if !bytes.Equal(gotData, data) {
			t.Errorf("Data: got %q, want %q", gotData, data)
		}
	}
}

func TestStoreReadsBothEncodings(t *testing.T) {
	dir := t.TempDir()
	plain := NewStore(dir, WithCompression(false))
	h1, err := plain.Write(TypeBlob, []byte("stored plain"))
	if err != nil {
		t.Fatalf("Write plain: %v", err)
	}
	packed := NewStore(dir)
	h2, err := packed.Write(TypeBlob, []byte("stored compressed"))
	if err != nil {
		t.Fatalf("Write compressed: %v", err)
	}

	for _, s := range []*Store{plain, packed} {
		for _, h := range []Hash{h1, h2} {
			if _, _, err := s.Read(h); err != nil {
				t.Errorf("Read %s: %v", h.Short(8), err)
			}
		}
	}
}

func TestStoreHas(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(TypeBlob, []byte("exists"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !s.Has(h) {
		t.Error("Has returned false for existing object")
	}
	if s.Has(Hash(strings.Repeat("0", HashSize))) {
		t.Error("Has returned true for non-existing object")
	}
	if s.Has("../../etc/passwd") {
		t.Error("Has returned true for a non-hash")
	}
}

func TestStoreFanoutLayout(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(TypeBlob, []byte("fanout test"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	objPath := filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
	if _, err := os.Stat(objPath); os.IsNotExist(err) {
		t.Errorf("Expected fan-out file at %s", objPath)
	}
}

func TestStoreObjectFormat(t *testing.T) {
	s := tempStore(t, WithCompression(false))
	h, err := s.Write(TypeBlob, []byte("format check"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(s.root, "objects", string(h[:2]), string(h[2:])))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	expected := "blob 12\x00format check"
	if string(raw) != expected {
		t.Errorf("On-disk format: got %q, want %q", raw, expected)
	}
}

func TestStoreCompressedOnDisk(t *testing.T) {
	s := tempStore(t)
	h, err := s.Write(TypeBlob, []byte(strings.Repeat("compress me ", 100)))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(s.root, "objects", string(h[:2]), string(h[2:])))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !isZstdFrame(raw) {
		t.Errorf("object file does not start with zstd magic: %x", raw[:4])
	}
}

func TestStoreDuplicateWrite(t *testing.T) {
	s := tempStore(t)
	data := []byte("duplicate")
	h1, err := s.Write(TypeBlob, data)
	if err != nil {
		t.Fatalf("Write 1: %v", err)
	}
	h2, err := s.Write(TypeBlob, data)
	if err != nil {
		t.Fatalf("Write 2: %v", err)
	}
	if h1 != h2 {
		t.Errorf("Same content produced different hashes: %q vs %q", h1, h2)
	}
	all, err := s.ListHashes()
	if err != nil {
		t.Fatalf("ListHashes: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListHashes = %d objects, want 1", len(all))
	}
}

func TestStoreConcurrentWrites(t *testing.T) {
	s := tempStore(t)
	data := []byte("racing writers")
	want := HashObject(TypeBlob, data)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := s.Write(TypeBlob, data)
			if err != nil {
				errs <- err
				return
			}
			if h != want {
				errs <- errors.New("unexpected hash " + string(h))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Write: %v", err)
	}
	if _, _, err := s.Read(want); err != nil {
		t.Fatalf("Read after concurrent writes: %v", err)
	}
}

func TestStoreReadMissing(t *testing.T) {
	s := tempStore(t)
	_, _, err := s.Read(Hash(strings.Repeat("0", HashSize)))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing: err = %v, want ErrNotFound", err)
	}
	_, err = s.ReadCommit("not-a-hash")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadCommit invalid: err = %v, want ErrNotFound", err)
	}
}

func TestStoreWriteReadBlob(t *testing.T) {
	s := tempStore(t)
	orig := &Blob{Data: []byte("blob content\nwith newlines")}
	h, err := s.WriteBlob(orig)
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if h != BlobHash(orig.Data) {
		t.Errorf("WriteBlob hash = %q, want BlobHash", h)
	}
	got, err := s.ReadBlob(h)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if !bytes.Equal(got.Data, orig.Data) {
		t.Errorf("ReadBlob: got %q, want %q", got.Data, orig.Data)
	}
}

func TestStoreEmptyBlob(t *testing.T) {
	s := tempStore(t)
	h, err := s.WriteBlob(&Blob{})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	got, err := s.ReadBlob(h)
	if err != nil {
		t.Fatalf("ReadBlob: %v", err)
	}
	if len(got.Data) != 0 {
		t.Errorf("empty blob read back %d bytes", len(got.Data))
	}
}

func TestStoreWriteReadTree(t *testing.T) {
	s := tempStore(t)
	bh, err := s.WriteBlob(&Blob{Data: []byte("x")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	orig := &TreeObj{Entries: []TreeEntry{
		{Name: "main.go", Kind: KindBlob, Hash: bh},
		{Name: "README", Kind: KindBlob, Hash: bh},
	}}
	h, err := s.WriteTree(orig)
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	got, err := s.ReadTree(h)
	if err != nil {
		t.Fatalf("ReadTree: %v", err)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(got.Entries))
	}
	if got.Entries[0].Name != "README" || got.Entries[1].Name != "main.go" {
		t.Errorf("entries not sorted: %+v", got.Entries)
	}
	if e, ok := got.Entry("main.go"); !ok || e.Hash != bh {
		t.Errorf("Entry(main.go) = %+v, %v", e, ok)
	}
}

func TestStoreWriteReadCommit(t *testing.T) {
	s := tempStore(t)
	th, err := s.WriteTree(&TreeObj{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if th != EmptyTreeHash {
		t.Errorf("empty tree hash = %q, want EmptyTreeHash", th)
	}
	orig := &CommitObj{
		TreeHash:  th,
		Author:    "tester",
		Timestamp: 42,
		Message:   "initial",
	}
	h, err := s.WriteCommit(orig)
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	got, err := s.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if got.TreeHash != th || got.Author != "tester" || got.Timestamp != 42 || got.Message != "initial" {
		t.Errorf("ReadCommit = %+v", got)
	}
	if len(got.Parents) != 0 {
		t.Errorf("Parents = %v, want none", got.Parents)
	}
}

func TestStoreReadTypeMismatch(t *testing.T) {
	s := tempStore(t)
	h, err := s.WriteTree(&TreeObj{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	if _, err := s.ReadBlob(h); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("ReadBlob(tree): err = %v, want ErrTypeMismatch", err)
	}
	if _, err := s.ReadCommit(h); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("ReadCommit(tree): err = %v, want ErrTypeMismatch", err)
	}
	typ, err := s.TypeOf(h)
	if err != nil || typ != TypeTree {
		t.Errorf("TypeOf = %q, %v; want tree", typ, err)
	}
}

func TestStoreFindPrefix(t *testing.T) {
	s := tempStore(t)
	var hashes []Hash
	for _, payload := range []string{"one", "two", "three", "four"} {
		h, err := s.Write(TypeBlob, []byte(payload))
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		hashes = append(hashes, h)
	}

	for _, h := range hashes {
		got, err := s.FindPrefix(string(h[:8]))
		if err != nil {
			t.Fatalf("FindPrefix: %v", err)
		}
		if len(got) != 1 || got[0] != h {
			t.Errorf("FindPrefix(%s) = %v, want [%s]", h[:8], got, h)
		}
		full, err := s.FindPrefix(string(h))
		if err != nil || len(full) != 1 {
			t.Errorf("FindPrefix(full) = %v, %v", full, err)
		}
	}

	got, err := s.FindPrefix(string(hashes[0][:1]))
	if err != nil {
		t.Fatalf("FindPrefix(1 char): %v", err)
	}
	if len(got) == 0 {
		t.Error("FindPrefix(1 char) found nothing")
	}

	none, err := s.FindPrefix(strings.Repeat("f", 20))
	if err != nil {
		t.Fatalf("FindPrefix(missing): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("FindPrefix(missing) = %v", none)
	}

	if _, err := s.FindPrefix("ZZ"); err == nil {
		t.Error("FindPrefix should reject non-hex input")
	}
}

func TestStoreReachable(t *testing.T) {
	s := tempStore(t)
	bh, err := s.WriteBlob(&Blob{Data: []byte("content")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	th, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Name: "f", Kind: KindBlob, Hash: bh}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	ch, err := s.WriteCommit(&CommitObj{TreeHash: th, Author: "a", Message: "m"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	orphan, err := s.WriteBlob(&Blob{Data: []byte("orphan")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	kinds, missing, err := s.Reachable([]Hash{ch, "", ch})
	if err != nil {
		t.Fatalf("Reachable: %v", err)
	}
	want := map[Hash]ObjectType{ch: TypeCommit, th: TypeTree, bh: TypeBlob}
	if len(kinds) != len(want) {
		t.Fatalf("reachable = %v, want %v", kinds, want)
	}
	for h, typ := range want {
		if kinds[h] != typ {
			t.Errorf("kind(%s) = %q, want %q", h.Short(8), kinds[h], typ)
		}
	}
	if _, ok := kinds[orphan]; ok {
		t.Error("orphan blob reported reachable")
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v", missing)
	}
}

func TestStoreReachable_ReportsMissing(t *testing.T) {
	s := tempStore(t)
	absent := BlobHash([]byte("never written"))
	th, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Name: "gone", Kind: KindBlob, Hash: absent}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}

	kinds, missing, err := s.Reachable([]Hash{th})
	if err != nil {
		t.Fatalf("Reachable: %v", err)
	}
	if len(kinds) != 1 || kinds[th] != TypeTree {
		t.Fatalf("reachable = %v", kinds)
	}
	if len(missing) != 1 || missing[0] != absent {
		t.Fatalf("missing = %v, want [%s]", missing, absent.Short(8))
	}
}
