package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/object"
	"github.com/odvcencio/twig/pkg/repo"
)

func newLogCmd() *cobra.Command {
	var (
		oneline bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "log [ref]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var start object.Hash
			if len(args) == 1 {
				if start, err = r.Resolve(args[0]); err != nil {
					return err
				}
			} else {
				h, ok, err := r.HeadCommit()
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "no commits yet")
					return nil
				}
				start = h
			}

			decorations, err := branchDecorations(r)
			if err != nil {
				return err
			}

			it := r.Log(start)
			for n := 0; (limit <= 0 || n < limit) && it.Next(); n++ {
				e := it.Value()
				deco := ""
				if names := decorations[e.Hash]; len(names) > 0 {
					deco = " (" + strings.Join(names, ", ") + ")"
				}
				if oneline {
					fmt.Fprintf(out, "%s%s %s\n", hashColor.Sprint(short(e.Hash)), deco, subject(e.Commit.Message))
					continue
				}
				fmt.Fprintf(out, "%s%s\n", hashColor.Sprintf("commit %s", e.Hash), deco)
				if e.Commit.IsMerge() {
					parents := make([]string, len(e.Commit.Parents))
					for i, p := range e.Commit.Parents {
						parents[i] = short(p)
					}
					fmt.Fprintf(out, "Merge:  %s\n", strings.Join(parents, " "))
				}
				fmt.Fprintf(out, "Author: %s\n", e.Commit.Author)
				fmt.Fprintf(out, "Date:   %s\n", formatTime(e.Commit.Timestamp))
				fmt.Fprintln(out)
				for _, line := range strings.Split(e.Commit.Message, "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
				fmt.Fprintln(out)
			}
			return it.Err()
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "one line per commit")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of commits (0 means all)")
	return cmd
}

// branchDecorations maps commit digests to the branches pointing at them,
// with the current branch shown as "HEAD -> name".
func branchDecorations(r *repo.Repo) (map[object.Hash][]string, error) {
	branches, err := r.ListBranches()
	if err != nil {
		return nil, err
	}
	current, err := r.CurrentBranch()
	if err != nil {
		return nil, err
	}
	out := make(map[object.Hash][]string, len(branches))
	for _, b := range branches {
		h, err := r.BranchTip(b)
		if err != nil {
			return nil, err
		}
		name := b
		if b == current {
			name = "HEAD -> " + b
		}
		out[h] = append(out[h], name)
	}
	if current == "" {
		if h, ok, err := r.HeadCommit(); err == nil && ok {
			out[h] = append([]string{"HEAD"}, out[h]...)
		}
	}
	return out, nil
}
