package object

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// VerifySummary reports the outcome of Store.Verify.
type VerifySummary struct {
	Objects int
	Blobs   int
	Trees   int
	Commits int
	Missing []Hash // referenced from a stored object but absent
}

// Verify re-hashes every stored object and checks that it parses as its
// declared kind and that everything it references is present. All problems
// are collected; the returned error is a *multierror.Error when any object
// fails.
func (s *Store) Verify() (*VerifySummary, error) {
	hashes, err := s.ListHashes()
	if err != nil {
		return nil, err
	}

	report := &VerifySummary{}
	var result *multierror.Error
	missing := make(map[Hash]struct{})

	for _, h := range hashes {
		objType, content, err := s.Read(h)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("verify %s: %w", h, err))
			continue
		}
		if actual := HashObject(objType, content); actual != h {
			result = multierror.Append(result, fmt.Errorf("verify %s: hash mismatch (computed %s)", h, actual))
			continue
		}
		refs, err := referencedHashes(objType, content)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("verify %s (%s): %w", h, objType, err))
			continue
		}
		for _, ref := range refs {
			if !s.Has(ref) {
				if _, seen := missing[ref]; !seen {
					missing[ref] = struct{}{}
					report.Missing = append(report.Missing, ref)
				}
				result = multierror.Append(result, fmt.Errorf("verify %s: references missing object %s", h, ref))
			}
		}

		report.Objects++
		switch objType {
		case TypeBlob:
			report.Blobs++
		case TypeTree:
			report.Trees++
		case TypeCommit:
			report.Commits++
		}
	}

	return report, result.ErrorOrNil()
}
