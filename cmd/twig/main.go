package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/repo"
)

const version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "twig:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "twig",
		Short:         "A minimal content-addressed version control system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newUnstageCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCommitCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newBranchCmd())
	root.AddCommand(newCheckoutCmd())
	root.AddCommand(newMergeCmd())
	root.AddCommand(newRevertCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newReflogCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newPullRequestCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "twig %s\n", version)
		},
	}
}

// openRepo opens the repository containing the working directory and
// applies its [log] settings unless overridden on the command line.
func openRepo(cmd *cobra.Command) (*repo.Repo, error) {
	r, err := repo.Open(".")
	if err != nil {
		return nil, err
	}
	if err := configureLogging(cmd, r.Config.Log); err != nil {
		return nil, err
	}
	return r, nil
}

func configureLogging(cmd *cobra.Command, cfg repo.LogConfig) error {
	level, format := cfg.Level, cfg.Format
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		level = f.Value.String()
	}
	if f := cmd.Flag("log-format"); f != nil && f.Changed {
		format = f.Value.String()
	}
	logging.SetOutput(cmd.ErrOrStderr())
	if level != "" {
		if err := logging.SetLevel(level); err != nil {
			return err
		}
	}
	if format != "" {
		if err := logging.SetOutputFormat(format); err != nil {
			return err
		}
	}
	return nil
}
