package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/twig/pkg/repo"
)

func newCommitCmd() *cobra.Command {
	var (
		message string
		author  string
		all     bool
		sign    bool
		keyPath string
	)

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Record staged changes to the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			if all {
				if err := r.StageAll(); err != nil {
					return err
				}
			}

			signer, err := commitSigner(r, sign, keyPath)
			if err != nil {
				return err
			}
			opts := repo.CommitOptions{Author: author, Signer: signer}

			h, err := r.Commit(message, opts)
			if err != nil {
				return err
			}

			branch, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			if branch == "" {
				branch = "detached HEAD"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, short(h), subject(message))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&author, "author", "", "override author (default: user.name from config)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "stage every new, modified and deleted file first")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&keyPath, "key", "", "SSH private key for signing (default: signing.key or ~/.ssh/id_*)")
	return cmd
}

// commitSigner returns a signer when --sign is given or signing.sign is set
// in config. It returns nil when the commit should not be signed.
func commitSigner(r *repo.Repo, sign bool, keyPath string) (repo.CommitSigner, error) {
	if !sign && !r.Config.Signing.Sign {
		return nil, nil
	}
	if keyPath == "" {
		keyPath = r.Config.Signing.Key
	}
	signer, resolved, err := newSSHCommitSigner(keyPath)
	if err != nil {
		return nil, err
	}
	r.Logger().WithField("key", resolved).Debug("signing commit")
	return signer, nil
}
