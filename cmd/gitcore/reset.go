package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/repository"
)

func newResetCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset [REVISION]",
		Short: "move the current branch and, per mode, the index and worktree",
		Args:  cobra.MaximumNArgs(1),
	}

	soft := cmd.Flags().Bool("soft", false, "move HEAD only")
	hard := cmd.Flags().Bool("hard", false, "move HEAD and overwrite the index and worktree")

	cmd.RunE = withCaller("reset", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}

		rev := "HEAD"
		if len(args) > 0 {
			rev = args[0]
		}
		target, err := resolveRevision(r, rev)
		if err != nil {
			return err
		}

		mode := repository.ResetMixed
		switch {
		case *soft && *hard:
			return errors.New("--soft and --hard are mutually exclusive")
		case *soft:
			mode = repository.ResetSoft
		case *hard:
			mode = repository.ResetHard
		}

		return r.Reset(mode, target)
	})

	return cmd
}
