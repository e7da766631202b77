package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>[:path]",
		Short: "Show a commit and its changes, or a file at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			ref, path, hasPath := strings.Cut(args[0], ":")
			if ref == "" {
				ref = "HEAD"
			}
			if hasPath {
				data, ok, err := r.FileAt(ref, path)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("path %q does not exist in %s", path, ref)
				}
				_, err = out.Write(data)
				return err
			}

			h, err := r.Resolve(ref)
			if err != nil {
				return err
			}
			c, err := r.Store.ReadCommit(h)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hashColor.Sprintf("commit %s", h))
			fmt.Fprintf(out, "Tree:   %s\n", c.TreeHash)
			for _, p := range c.Parents {
				fmt.Fprintf(out, "Parent: %s\n", p)
			}
			fmt.Fprintf(out, "Author: %s\n", c.Author)
			fmt.Fprintf(out, "Date:   %s\n", formatTime(c.Timestamp))
			if c.Signature != "" {
				fmt.Fprintln(out, "Signed: yes")
			}
			fmt.Fprintln(out)
			for _, line := range strings.Split(c.Message, "\n") {
				fmt.Fprintf(out, "    %s\n", line)
			}

			if len(c.Parents) == 0 {
				return nil
			}
			changes, err := r.DiffCommits(string(c.Parents[0]), string(h))
			if err != nil {
				return err
			}
			if len(changes) > 0 {
				fmt.Fprintln(out)
				printChanges(out, changes)
			}
			return nil
		},
	}
}
