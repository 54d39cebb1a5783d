package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/repository"
)

func newStatusCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "show staged, unstaged and untracked paths",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = withCaller("status", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}
		statuses, err := r.Status()
		if err != nil {
			return err
		}

		paths := make([]string, 0, len(statuses))
		for p := range statuses {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		out := cmd.OutOrStdout()
		for _, p := range paths {
			s := statuses[p]
			fmt.Fprintf(out, "%c%c %s\n", statusChar(s.Staging), statusChar(s.Worktree), p)
		}
		return nil
	})

	return cmd
}

func statusChar(c repository.Code) byte {
	if c == 0 {
		return byte(repository.Unmodified)
	}
	return byte(c)
}
