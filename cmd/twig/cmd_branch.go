package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/repo"
)

func newBranchCmd() *cobra.Command {
	var del string

	cmd := &cobra.Command{
		Use:   "branch [name [start]]",
		Short: "List, create, or delete branches",
		Long: "Without arguments, list branches with their tips. With a name, create a " +
			"branch at start (default HEAD). With -d, delete a branch other than the " +
			"current or default one.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case del != "":
				if err := r.DeleteBranch(del); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted branch %s\n", del)
				return nil
			case len(args) > 0:
				return createBranch(out, r, args)
			}
			return listBranches(out, r)
		},
	}
	cmd.Flags().StringVarP(&del, "delete", "d", "", "delete the named branch")
	return cmd
}

func createBranch(out io.Writer, r *repo.Repo, args []string) error {
	start := "HEAD"
	if len(args) == 2 {
		start = args[1]
	}
	at, err := r.Resolve(start)
	if err != nil {
		return err
	}
	if err := r.CreateBranch(args[0], at); err != nil {
		return err
	}
	fmt.Fprintf(out, "created branch %s at %s\n", args[0], hashColor.Sprint(short(at)))
	return nil
}

func listBranches(out io.Writer, r *repo.Repo) error {
	names, err := r.ListBranches()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "no branches yet")
		return nil
	}
	current, err := r.CurrentBranch()
	if err != nil {
		return err
	}
	t := newTable(out, "", "Branch", "Commit", "Subject")
	for _, name := range names {
		tip, err := r.BranchTip(name)
		if err != nil {
			return err
		}
		c, err := r.Store.ReadCommit(tip)
		if err != nil {
			return err
		}
		var mark string
		if name == current {
			mark = "*"
			name = branchColor.Sprint(name)
		}
		t.AppendRow(table.Row{mark, name, short(tip), subject(c.Message)})
	}
	t.Render()
	return nil
}
