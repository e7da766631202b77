package object

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a digest is not present in the store.
	ErrNotFound = errors.New("object not found")
	// ErrTypeMismatch is returned by the typed readers when the stored
	// object has a different kind than requested.
	ErrTypeMismatch = errors.New("object type mismatch")
)

// Store keeps immutable objects under <root>/objects, one file per object,
// fanned out by the first two hex digits of the digest:
// objects/ab/cdef0123... Files hold the envelope, zstd-compressed unless
// compression is disabled.
type Store struct {
	root     string
	compress bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCompression controls whether new objects are zstd-compressed on disk.
// Reading always accepts both forms.
func WithCompression(enabled bool) StoreOption {
	return func(s *Store) { s.compress = enabled }
}

// NewStore returns a Store rooted at root. Directories are created on the
// first write.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{root: root, compress: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) objectsDir() string { return filepath.Join(s.root, "objects") }

func (s *Store) pathOf(h Hash) string {
	return filepath.Join(s.objectsDir(), string(h[:2]), string(h[2:]))
}

// Has reports whether an object with digest h is stored.
func (s *Store) Has(h Hash) bool {
	if !ValidHash(h) {
		return false
	}
	_, err := os.Stat(s.pathOf(h))
	return err == nil
}

// Write stores data as an object of the given type and returns its digest.
// Storing content that is already present does nothing. The file appears
// atomically, so concurrent writers of the same object are harmless.
func (s *Store) Write(objType ObjectType, data []byte) (Hash, error) {
	h := HashObject(objType, data)
	if s.Has(h) {
		return h, nil
	}
	body := encodeEnvelope(objType, data)
	if s.compress {
		var err error
		if body, err = compressZstd(body); err != nil {
			return "", fmt.Errorf("object write %s: compress: %w", h.Short(12), err)
		}
	}
	if err := writeAtomic(s.pathOf(h), body); err != nil {
		return "", fmt.Errorf("object write %s: %w", h.Short(12), err)
	}
	return h, nil
}

// writeAtomic writes body to a temp file beside path and renames it over
// path.
func writeAtomic(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
	}
	return err
}

// Read returns the type and content of object h. Unknown or malformed
// digests yield an error matching ErrNotFound.
func (s *Store) Read(h Hash) (ObjectType, []byte, error) {
	if !ValidHash(h) {
		return "", nil, fmt.Errorf("object read %q: %w", h, ErrNotFound)
	}
	body, err := os.ReadFile(s.pathOf(h))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, fmt.Errorf("object read %s: %w", h, ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}
	if isZstdFrame(body) {
		if body, err = decompressZstd(body); err != nil {
			return "", nil, fmt.Errorf("object read %s: decompress: %w", h, err)
		}
	}
	objType, content, err := decodeEnvelope(body)
	if err != nil {
		return "", nil, fmt.Errorf("object read %s: %w", h, err)
	}
	return objType, content, nil
}

// scan calls fn for every stored digest whose fan-out directory name
// satisfies keepDir. Stray files such as leftover temp files are skipped.
func (s *Store) scan(keepDir func(string) bool, fn func(Hash)) error {
	fanouts, err := os.ReadDir(s.objectsDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, d := range fanouts {
		if !d.IsDir() || len(d.Name()) != 2 || !isLowerHex(d.Name()) || !keepDir(d.Name()) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.objectsDir(), d.Name()))
		if err != nil {
			return err
		}
		for _, f := range files {
			if h := Hash(d.Name() + f.Name()); !f.IsDir() && ValidHash(h) {
				fn(h)
			}
		}
	}
	return nil
}

// ListHashes returns every stored digest, sorted.
func (s *Store) ListHashes() ([]Hash, error) {
	var out []Hash
	err := s.scan(func(string) bool { return true }, func(h Hash) { out = append(out, h) })
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// FindPrefix returns the stored digests that start with prefix, sorted.
// The prefix must be lowercase hex.
func (s *Store) FindPrefix(prefix string) ([]Hash, error) {
	if !ValidPrefix(prefix) {
		return nil, fmt.Errorf("find prefix: invalid hex prefix %q", prefix)
	}
	if len(prefix) == HashSize {
		if s.Has(Hash(prefix)) {
			return []Hash{Hash(prefix)}, nil
		}
		return nil, nil
	}
	// Only fan-out directories compatible with the prefix are read.
	keepDir := func(dir string) bool {
		if len(prefix) >= 2 {
			return dir == prefix[:2]
		}
		return dir[0] == prefix[0]
	}
	var out []Hash
	err := s.scan(keepDir, func(h Hash) {
		if strings.HasPrefix(string(h), prefix) {
			out = append(out, h)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("find prefix: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// readAs reads h, checks that it is a want object and decodes it.
func readAs[T any](s *Store, h Hash, want ObjectType, decode func([]byte) (T, error)) (T, error) {
	var zero T
	got, data, err := s.Read(h)
	if err != nil {
		return zero, err
	}
	if got != want {
		return zero, fmt.Errorf("object %s: %w: got %q, want %q", h, ErrTypeMismatch, got, want)
	}
	return decode(data)
}

// TypeOf returns the stored kind of h.
func (s *Store) TypeOf(h Hash) (ObjectType, error) {
	objType, _, err := s.Read(h)
	return objType, err
}

func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Write(TypeBlob, MarshalBlob(b))
}

func (s *Store) ReadBlob(h Hash) (*Blob, error) {
	return readAs(s, h, TypeBlob, UnmarshalBlob)
}

func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	data, err := MarshalTree(tr)
	if err != nil {
		return "", err
	}
	return s.Write(TypeTree, data)
}

func (s *Store) ReadTree(h Hash) (*TreeObj, error) {
	return readAs(s, h, TypeTree, UnmarshalTree)
}

func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	data, err := MarshalCommit(c)
	if err != nil {
		return "", err
	}
	return s.Write(TypeCommit, data)
}

func (s *Store) ReadCommit(h Hash) (*CommitObj, error) {
	return readAs(s, h, TypeCommit, UnmarshalCommit)
}

// EmptyTreeHash is the digest of a tree with no entries.
var EmptyTreeHash = HashObject(TypeTree, nil)
