package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newIndexPackCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index-pack PACKFILE",
		Short: "validate a packfile and build its index",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = withCaller("index-pack", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		name, err := r.Backend.WritePack(f, r.DB.Format())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	})

	return cmd
}
