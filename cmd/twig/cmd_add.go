package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var all, verbose bool

	cmd := &cobra.Command{
		Use:   "add <pathspec>... | -A",
		Short: "Stage files for the next commit",
		Long: "Stage files, directories or tracked files that were deleted. " +
			"Content is read when the commit is made, not when the path is staged.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("nothing specified, nothing added (use -A to stage everything)")
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			if all {
				err = r.StageAll()
			} else {
				err = r.Add(args)
			}
			if err != nil || !verbose {
				return err
			}
			stg, err := r.ReadStaging()
			if err != nil {
				return err
			}
			for _, p := range stg.Paths {
				fmt.Fprintf(cmd.OutOrStdout(), "staged %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "A", false, "stage every new, modified and deleted file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list the staged paths")
	return cmd
}
