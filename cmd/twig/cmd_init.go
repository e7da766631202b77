package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/repo"
)

func newInitCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create an empty twig repository",
		Long:  "Create an empty repository in directory (default: the current one), creating the directory if needed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("init: %w", err)
			}

			r, err := repo.Init(dir)
			if errors.Is(err, repo.ErrRepositoryExists) {
				return fmt.Errorf("%s already holds a twig repository", dir)
			}
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "initialized empty twig repository in %s (branch %s)\n",
					r.TwigDir, r.Config.Core.DefaultBranch)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print nothing on success")
	return cmd
}
