package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/logging"
	"github.com/odvcencio/twig/pkg/object"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify object integrity, ref reachability and commit signatures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			report, err := r.Verify()
			if err != nil {
				return err
			}

			hashes, err := r.Store.ListHashes()
			if err != nil {
				return err
			}
			signed := 0
			for _, h := range hashes {
				typ, err := r.Store.TypeOf(h)
				if err != nil {
					return err
				}
				if typ != object.TypeCommit {
					continue
				}
				c, err := r.Store.ReadCommit(h)
				if err != nil {
					return err
				}
				if c.Signature == "" {
					continue
				}
				fingerprint, err := verifyCommitSignature(c)
				if err != nil {
					return fmt.Errorf("commit %s: %w", short(h), err)
				}
				r.Logger().WithFields(logging.Fields{
					logging.CommitFieldKey: string(h),
					"key":                  fingerprint,
				}).Debug("signature ok")
				signed++
			}

			fmt.Fprintf(out,
				"ok: verified %d object(s) (%d blob, %d tree, %d commit), %d ref(s), %d reachable, %d signed commit(s)\n",
				report.Objects.Objects,
				report.Objects.Blobs,
				report.Objects.Trees,
				report.Objects.Commits,
				report.Refs,
				report.Reachable,
				signed,
			)
			return nil
		},
	}
}
