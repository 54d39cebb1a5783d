package main

import (
	"github.com/spf13/cobra"
)

func newAddCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add PATH...",
		Short: "stage worktree paths into the index",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.RunE = withCaller("add", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}
		return r.Add(args...)
	})

	return cmd
}
