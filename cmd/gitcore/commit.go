package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/repository"
)

func newCommitCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "record the staged index as a new commit",
		Args:  cobra.NoArgs,
	}

	message := cmd.Flags().StringP("message", "m", "", "commit message")
	author := cmd.Flags().String("author", "", "override author, as 'Name <email>'")

	cmd.RunE = withCaller("commit", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}

		idx, err := r.LoadIndex()
		if err != nil {
			return err
		}

		var parents []plumbing.OID
		if head, err := r.Refs.Reference(repository.DefaultBranch); err == nil {
			parents = append(parents, head.Hash())
		}

		id, err := parseIdentity(*author)
		if err != nil {
			return err
		}

		oid, err := commit.Commit(r.DB, r.Refs, r.Cfg, idx.Entries, commit.Options{
			Branch:  repository.DefaultBranch,
			Message: *message,
			Author:  id,
			Parents: parents,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), oid.String())
		return nil
	})

	return cmd
}
