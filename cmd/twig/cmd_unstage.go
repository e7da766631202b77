package main

import (
	"github.com/spf13/cobra"
)

func newUnstageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unstage [paths...]",
		Short: "Remove paths from the staging set (all paths when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			return r.Unstage(args)
		},
	}
}
