package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/repo"
)

func newRevertCmd() *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "revert <commit>",
		Short: "Record a commit that undoes an earlier commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			res, err := r.Revert(args[0], repo.CommitOptions{Author: author})
			if err != nil {
				return err
			}
			if len(res.Conflicts) > 0 {
				printConflicts(out, res.Conflicts)
				return fmt.Errorf("revert of %s conflicts with later changes", short(res.Reverted))
			}
			fmt.Fprintf(out, "reverted %s as %s\n", short(res.Reverted), short(res.Commit))
			return nil
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "override author")
	return cmd
}
