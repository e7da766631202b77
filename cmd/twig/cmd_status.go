package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			st, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case st.Detached:
				fmt.Fprintf(out, "HEAD detached at %s\n", short(st.Head))
			case st.Head == "":
				fmt.Fprintf(out, "on %s (no commits yet)\n", st.Branch)
			default:
				fmt.Fprintf(out, "on %s\n", st.Branch)
			}
			if st.MergeHead != "" {
				fmt.Fprintf(out, "merging %s (commit to conclude, twig merge --abort to cancel)\n", short(st.MergeHead))
			}

			if len(st.Staged) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headerColor.Sprint("staged:"))
				printChanges(out, st.Staged)
			}
			if len(st.Modified)+len(st.Deleted) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headerColor.Sprint("unstaged:"))
				for _, p := range st.Modified {
					fmt.Fprintf(out, "  %s\n", modifiedColor.Sprintf("~ %s", p))
				}
				for _, p := range st.Deleted {
					fmt.Fprintf(out, "  %s\n", deletedColor.Sprintf("- %s", p))
				}
			}
			if len(st.Untracked) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, headerColor.Sprint("untracked:"))
				for _, p := range st.Untracked {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			if st.Clean() && len(st.Untracked) == 0 {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
			}
			return nil
		},
	}
}
