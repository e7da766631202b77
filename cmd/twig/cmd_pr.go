package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/pullrequest"
	"github.com/odvcencio/twig/pkg/repo"
)

func newPullRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pr",
		Aliases: []string{"pull-request"},
		Short:   "Manage pull requests between local branches",
	}
	cmd.AddCommand(newPRCreateCmd())
	cmd.AddCommand(newPRListCmd())
	cmd.AddCommand(newPRShowCmd())
	cmd.AddCommand(newPRCloseCmd())
	cmd.AddCommand(newPRMergeCmd())
	cmd.AddCommand(newPRDiffCmd())
	return cmd
}

func openPullRequests(cmd *cobra.Command) (*repo.Repo, *pullrequest.Service, error) {
	r, err := openRepo(cmd)
	if err != nil {
		return nil, nil, err
	}
	return r, pullrequest.ForRepo(r), nil
}

func parsePRID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid pull request id %q", arg)
	}
	return id, nil
}

func newPRCreateCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "create <source> <target>",
		Short: "Open a pull request to merge source into target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, prs, err := openPullRequests(cmd)
			if err != nil {
				return err
			}
			pr, err := prs.Create(args[0], args[1], pullrequest.CreateOptions{
				Title:  title,
				Author: r.DefaultAuthor(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pull request #%d created from %s -> %s\n", pr.ID, pr.Source, pr.Target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "pull request title")
	return cmd
}

func newPRListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pull requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, prs, err := openPullRequests(cmd)
			if err != nil {
				return err
			}
			list, err := prs.List(pullrequest.Status(status))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "no pull requests")
				return nil
			}
			t := newTable(out, "ID", "Source", "Target", "Status", "Title")
			for _, pr := range list {
				t.AppendRow([]interface{}{pr.ID, pr.Source, pr.Target, string(pr.Status), pr.Title})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list pull requests in this state (open, merged, closed)")
	return cmd
}

func newPRShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one pull request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePRID(args[0])
			if err != nil {
				return err
			}
			_, prs, err := openPullRequests(cmd)
			if err != nil {
				return err
			}
			pr, err := prs.Get(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pull request #%d\n", pr.ID)
			if pr.Title != "" {
				fmt.Fprintf(out, "Title:   %s\n", pr.Title)
			}
			if pr.Author != "" {
				fmt.Fprintf(out, "Author:  %s\n", pr.Author)
			}
			fmt.Fprintf(out, "Branch:  %s -> %s\n", pr.Source, pr.Target)
			fmt.Fprintf(out, "Status:  %s\n", pr.Status)
			fmt.Fprintf(out, "Created: %s\n", formatTime(pr.CreatedAt.Unix()))
			if pr.MergedCommit != "" {
				fmt.Fprintf(out, "Merged:  %s\n", pr.MergedCommit)
			}
			return nil
		},
	}
}

func newPRCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Close a pull request without merging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePRID(args[0])
			if err != nil {
				return err
			}
			_, prs, err := openPullRequests(cmd)
			if err != nil {
				return err
			}
			if _, err := prs.Close(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pull request #%d closed\n", id)
			return nil
		},
	}
}

func newPRMergeCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "merge <id>",
		Short: "Merge a pull request's source branch into its target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePRID(args[0])
			if err != nil {
				return err
			}
			_, prs, err := openPullRequests(cmd)
			if err != nil {
				return err
			}
			res, err := prs.Merge(id, repo.MergeOptions{Message: message})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pr := res.PullRequest
			printMergeOutcome(out, pr.Source, pr.Target, res.Outcome)
			if res.Conflicted() {
				fmt.Fprintf(out, "pull request #%d stays open\n", id)
				return nil
			}
			fmt.Fprintf(out, "pull request #%d merged\n", id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "merge commit message")
	return cmd
}

func newPRDiffCmd() *cobra.Command {
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "diff <id>",
		Short: "Show what merging a pull request would change on its target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePRID(args[0])
			if err != nil {
				return err
			}
			r, prs, err := openPullRequests(cmd)
			if err != nil {
				return err
			}
			pr, err := prs.Get(id)
			if err != nil {
				return err
			}
			changes, err := prs.Diff(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pull request #%d: %s -> %s\n", pr.ID, pr.Source, pr.Target)
			if nameOnly {
				printChanges(out, changes)
				return nil
			}
			return writeUnifiedDiffs(out, r, changes, false)
		},
	}
	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list changed paths only")
	return cmd
}
