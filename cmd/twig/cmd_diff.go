package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/merge"
	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/repo"
)

const diffContextLines = 3

func newDiffCmd() *cobra.Command {
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "diff [from [to]]",
		Short: "Show changes between commits, or between HEAD and the working tree",
		Long: `With no arguments, diff shows tracked and staged changes in the working
tree relative to HEAD. With one ref it compares that ref to HEAD; with two
it compares them to each other.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			var (
				changes  []merge.Change
				worktree = len(args) == 0
			)
			switch len(args) {
			case 0:
				changes, err = r.WorktreeChanges()
			case 1:
				changes, err = r.DiffCommits(args[0], "HEAD")
			default:
				changes, err = r.DiffCommits(args[0], args[1])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if nameOnly {
				printChanges(out, changes)
				return nil
			}
			return writeUnifiedDiffs(out, r, changes, worktree)
		},
	}
	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list changed paths only")
	return cmd
}

// writeUnifiedDiffs renders each change as a unified text diff. When
// worktree is set the new side is read from the working directory rather
// than the object store.
func writeUnifiedDiffs(out io.Writer, r *repo.Repo, changes []merge.Change, worktree bool) error {
	for _, c := range changes {
		before, err := blobContent(r, c.From)
		if err != nil {
			return err
		}
		var after []byte
		if worktree && c.Type != merge.Deleted {
			after, err = r.Work.ReadFile(c.Path)
		} else {
			after, err = blobContent(r, c.To)
		}
		if err != nil {
			return err
		}
		if err := writeUnifiedDiff(out, c, before, after); err != nil {
			return err
		}
	}
	return nil
}

func writeUnifiedDiff(out io.Writer, c merge.Change, before, after []byte) error {
	fromFile, toFile := "a/"+c.Path, "b/"+c.Path
	switch c.Type {
	case merge.Added:
		fromFile = "/dev/null"
	case merge.Deleted:
		toFile = "/dev/null"
	}
	fmt.Fprintln(out, headerColor.Sprintf("diff --twig a/%s b/%s", c.Path, c.Path))
	if isBinary(before) || isBinary(after) {
		fmt.Fprintf(out, "Binary files %s and %s differ\n", fromFile, toFile)
		return nil
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  diffContextLines,
	})
	if err != nil {
		return fmt.Errorf("diff %s: %w", c.Path, err)
	}
	_, err = io.WriteString(out, text)
	return err
}

func blobContent(r *repo.Repo, h object.Hash) ([]byte, error) {
	if h == "" {
		return nil, nil
	}
	b, err := r.Store.ReadBlob(h)
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

func isBinary(data []byte) bool {
	return bytes.IndexByte(data, 0) >= 0
}
