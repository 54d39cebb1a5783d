package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "create an empty repository",
		Args:  cobra.MaximumNArgs(1),
	}

	bare := cmd.Flags().Bool("bare", false, "create a bare repository, with no worktree")

	cmd.RunE = withCaller("init", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			path = args[0]
		}

		if _, err := initRepository(path, *bare); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty repository in %s\n", path)
		return nil
	})

	return cmd
}
