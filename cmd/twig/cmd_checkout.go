package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var createBranch bool

	cmd := &cobra.Command{
		Use:   "checkout <branch|commit>",
		Short: "Switch branches or detach HEAD at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if createBranch {
				if err := r.CheckoutNewBranch(target); err != nil {
					return err
				}
				fmt.Fprintf(out, "switched to new branch '%s'\n", target)
				return nil
			}

			if err := r.Checkout(target); err != nil {
				return err
			}
			if current, err := r.CurrentBranch(); err == nil && current != "" {
				fmt.Fprintf(out, "switched to branch '%s'\n", current)
				return nil
			}
			h, _, err := r.HeadCommit()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "HEAD is now at %s (detached)\n", short(h))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&createBranch, "branch", "b", false, "create and switch to a new branch")
	return cmd
}
