package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newReflogCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "reflog [branch|ref]",
		Short: "Show how a ref moved over time",
		Long:  "Show the recorded movements of a ref, newest first. Without an argument the checked-out branch is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			var ref string
			if len(args) == 1 {
				ref = args[0]
			}
			entries, err := r.ReadReflog(ref, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no reflog entries")
				return nil
			}

			t := newTable(out, "#", "From", "To", "When", "Reason")
			for i, e := range entries {
				from, to := short(e.OldHash), short(e.NewHash)
				if e.Created() {
					from = "-"
				}
				if e.Deleted() {
					to = "-"
				}
				t.AppendRow(table.Row{i, from, hashColor.Sprint(to), formatTime(e.When.Unix()), e.Reason})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum entries to show (0 for all)")
	return cmd
}
