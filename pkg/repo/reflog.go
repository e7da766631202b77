package repo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/odvcencio/twig/pkg/object"
)

// zeroHash stands in for "no commit" on either side of a reflog entry.
var zeroHash = object.Hash(strings.Repeat("0", object.HashSize))

var errBadReflogLine = errors.New("malformed reflog line")

// ReflogEntry records one movement of a ref. Entries live under
// .twig/logs/<ref>, one per line: "<old> <new> <unix-seconds> <reason>".
type ReflogEntry struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	When    time.Time
	Reason  string
}

// Created reports whether the entry brought the ref into existence.
func (e ReflogEntry) Created() bool { return e.OldHash == zeroHash }

// Deleted reports whether the entry removed the ref.
func (e ReflogEntry) Deleted() bool { return e.NewHash == zeroHash }

func (e ReflogEntry) line() string {
	old, nw := e.OldHash, e.NewHash
	if old == "" {
		old = zeroHash
	}
	if nw == "" {
		nw = zeroHash
	}
	reason := strings.Join(strings.Fields(e.Reason), " ")
	if reason == "" {
		reason = "update"
	}
	return fmt.Sprintf("%s %s %d %s\n", old, nw, e.When.Unix(), reason)
}

func parseReflogLine(ref, line string) (ReflogEntry, error) {
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 {
		return ReflogEntry{}, errBadReflogLine
	}
	secs, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return ReflogEntry{}, errBadReflogLine
	}
	return ReflogEntry{
		Ref:     ref,
		OldHash: object.Hash(fields[0]),
		NewHash: object.Hash(fields[1]),
		When:    time.Unix(secs, 0).UTC(),
		Reason:  fields[3],
	}, nil
}

func (r *Repo) reflogPath(ref string) string {
	return filepath.Join(r.TwigDir, "logs", filepath.FromSlash(ref))
}

// appendReflog records a ref movement. Empty hashes are written as the
// zero hash so creation and deletion stay visible in the log.
func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	if ref = strings.TrimSpace(ref); ref == "" {
		return nil
	}
	entry := ReflogEntry{Ref: ref, OldHash: oldHash, NewHash: newHash, When: r.now(), Reason: reason}

	path := r.reflogPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog %s: %w", ref, err)
	}
	_, werr := f.WriteString(entry.line())
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("reflog %s: %w", ref, werr)
	}
	return nil
}

// ReadReflog returns up to limit entries for ref, newest first. An empty
// ref or "HEAD" means the checked-out branch; limit <= 0 means no limit.
// A ref that never moved has an empty log. Lines that do not parse are
// skipped and logged.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	name, err := r.reflogRef(ref)
	if err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	f, err := os.Open(r.reflogPath(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		e, err := parseReflogLine(name, text)
		if err != nil {
			r.log.WithField("ref", name).Warnf("reflog line %d: %v", n, err)
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read reflog: %w", err)
	}

	newest := make([]ReflogEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(newest) == limit {
			break
		}
		newest = append(newest, entries[i])
	}
	return newest, nil
}

// reflogRef maps a user-supplied name to the ref whose log is read.
func (r *Repo) reflogRef(ref string) (string, error) {
	switch ref = strings.TrimSpace(ref); {
	case ref == "" || ref == "HEAD":
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(head, "refs/") {
			return head, nil
		}
		return "HEAD", nil
	case strings.HasPrefix(ref, "refs/"):
		return ref, nil
	}
	if err := ValidateBranchName(ref); err != nil {
		return "", err
	}
	return headsPrefix + ref, nil
}
