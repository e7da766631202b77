package object

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidEntryName is returned for tree entry names that cannot be
	// serialized unambiguously.
	ErrInvalidEntryName = errors.New("invalid tree entry name")
	// ErrMalformedObject is returned when stored bytes do not parse.
	ErrMalformedObject = errors.New("malformed object")
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// ValidateEntryName checks that name can be a single path component.
func ValidateEntryName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidEntryName, name)
	case strings.ContainsAny(name, "/\x00\n"):
		return fmt.Errorf("%w: %q", ErrInvalidEntryName, name)
	}
	return nil
}

// MarshalTree serializes a TreeObj. Entries are sorted by Name for
// deterministic output. Each entry is one line:
//
//	kind hash name
//
// Names are the remainder of the line, so they may contain spaces but never
// a newline or slash.
func MarshalTree(tr *TreeObj) ([]byte, error) {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	var buf bytes.Buffer
	for i, e := range sorted {
		if err := ValidateEntryName(e.Name); err != nil {
			return nil, fmt.Errorf("marshal tree: %w", err)
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return nil, fmt.Errorf("marshal tree: duplicate entry %q", e.Name)
		}
		if e.Kind != KindBlob && e.Kind != KindTree {
			return nil, fmt.Errorf("marshal tree: entry %q: unknown kind %q", e.Name, e.Kind)
		}
		if !ValidHash(e.Hash) {
			return nil, fmt.Errorf("marshal tree: entry %q: invalid hash %q", e.Name, e.Hash)
		}
		fmt.Fprintf(&buf, "%s %s %s\n", e.Kind, e.Hash, e.Name)
	}
	return buf.Bytes(), nil
}

// UnmarshalTree parses a TreeObj from its serialized form.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	text := string(data)
	if text == "" {
		return tr, nil
	}
	if !strings.HasSuffix(text, "\n") {
		return nil, fmt.Errorf("unmarshal tree: %w: missing trailing newline", ErrMalformedObject)
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unmarshal tree: %w: entry %q", ErrMalformedObject, line)
		}
		kind := EntryKind(parts[0])
		if kind != KindBlob && kind != KindTree {
			return nil, fmt.Errorf("unmarshal tree: %w: unknown kind %q", ErrMalformedObject, parts[0])
		}
		tr.Entries = append(tr.Entries, TreeEntry{
			Name: parts[2],
			Kind: kind,
			Hash: Hash(parts[1]),
		})
	}
	return tr, nil
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H     (zero or more, in order)
//	author A
//	timestamp T
//	signature S  (optional)
//
//	message
func MarshalCommit(c *CommitObj) ([]byte, error) {
	if !ValidHash(c.TreeHash) {
		return nil, fmt.Errorf("marshal commit: invalid tree hash %q", c.TreeHash)
	}
	for _, p := range c.Parents {
		if !ValidHash(p) {
			return nil, fmt.Errorf("marshal commit: invalid parent hash %q", p)
		}
	}
	if strings.ContainsAny(c.Author, "\n\x00") {
		return nil, fmt.Errorf("marshal commit: author must be a single line")
	}
	if strings.ContainsAny(c.Signature, "\n\x00") {
		return nil, fmt.Errorf("marshal commit: signature must be a single line")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.TreeHash)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author)
	fmt.Fprintf(&buf, "timestamp %d\n", c.Timestamp)
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes(), nil
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: %w: missing header/message separator", ErrMalformedObject)
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &CommitObj{Message: message}
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: %w: header line %q", ErrMalformedObject, line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			c.Author = val
		case "timestamp":
			ts, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: bad timestamp %q: %w", val, err)
			}
			c.Timestamp = ts
		case "signature":
			c.Signature = val
		default:
			return nil, fmt.Errorf("unmarshal commit: %w: unknown header key %q", ErrMalformedObject, key)
		}
	}
	if c.TreeHash == "" {
		return nil, fmt.Errorf("unmarshal commit: %w: missing tree", ErrMalformedObject)
	}
	return c, nil
}

// SigningPayload returns the bytes a commit signature covers: the commit
// serialized with its signature cleared. c is not modified.
func (c *CommitObj) SigningPayload() ([]byte, error) {
	unsigned := *c
	unsigned.Signature = ""
	return MarshalCommit(&unsigned)
}
