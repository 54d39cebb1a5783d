package main

import (
	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/repository"
)

func newCheckoutCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout REVISION",
		Short: "switch HEAD, the index and the worktree to a branch or commit",
		Args:  cobra.ExactArgs(1),
	}

	force := cmd.Flags().BoolP("force", "f", false, "discard unstaged worktree changes")

	cmd.RunE = withCaller("checkout", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}

		opts := repository.CheckoutOptions{Force: *force}
		branch := refstore.NewBranchReferenceName(args[0])
		if _, err := r.Refs.Reference(branch); err == nil {
			opts.Branch = branch
		} else {
			oid, err := resolveRevision(r, args[0])
			if err != nil {
				return err
			}
			opts.OID = oid
		}

		return r.Checkout(opts)
	})

	return cmd
}
