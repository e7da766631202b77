package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/repo"
)

func newMergeCmd() *cobra.Command {
	var (
		abort   bool
		message string
		author  string
		into    string
	)

	cmd := &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a branch into the current branch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if abort {
				if err := r.AbortMerge(); err != nil {
					return err
				}
				fmt.Fprintln(out, "merge aborted")
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("merge needs a branch to merge")
			}

			opts := repo.MergeOptions{Message: message, Author: author}
			var outcome *repo.MergeOutcome
			target := into
			if target == "" {
				if target, err = r.CurrentBranch(); err != nil {
					return err
				}
				outcome, err = r.Merge(args[0], opts)
			} else {
				outcome, err = r.MergeBranches(into, args[0], opts)
			}
			if err != nil {
				return err
			}
			printMergeOutcome(out, args[0], target, outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&abort, "abort", false, "abandon a conflicted merge and restore HEAD")
	cmd.Flags().StringVarP(&message, "message", "m", "", "merge commit message")
	cmd.Flags().StringVar(&author, "author", "", "merge commit author")
	cmd.Flags().StringVar(&into, "into", "", "merge into this branch instead of the current one")
	return cmd
}

func printMergeOutcome(out io.Writer, source, target string, o *repo.MergeOutcome) {
	switch o.Kind {
	case repo.MergeUpToDate:
		fmt.Fprintln(out, "already up to date")
	case repo.MergeFastForward:
		fmt.Fprintf(out, "fast-forward %s to %s\n", target, short(o.Commit))
	case repo.MergeClean:
		fmt.Fprintf(out, "merged %s into %s\n", source, target)
		fmt.Fprintf(out, "[%s %s] merge commit\n", target, short(o.Commit))
	case repo.MergeConflicted:
		printConflicts(out, o.Conflicts)
		n := len(o.Conflicts)
		noun := "conflict"
		if n != 1 {
			noun = "conflicts"
		}
		fmt.Fprintf(out, "merge of %s into %s stopped with %d %s\n", source, target, n, noun)
		fmt.Fprintln(out, "fix conflicts, twig add them, and run twig commit")
	}
}
