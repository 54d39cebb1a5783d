package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/repository"
)

func newTagCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag NAME [TARGET]",
		Short: "create or delete a tag",
		Args:  cobra.RangeArgs(1, 2),
	}

	annotated := cmd.Flags().BoolP("annotate", "a", false, "create an annotated tag object")
	message := cmd.Flags().StringP("message", "m", "", "annotated tag message")
	del := cmd.Flags().BoolP("delete", "d", false, "delete the named tag")

	cmd.RunE = withCaller("tag", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}

		name := args[0]
		if *del {
			return r.DeleteTag(name)
		}

		rev := "HEAD"
		if len(args) > 1 {
			rev = args[1]
		}
		target, err := resolveRevision(r, rev)
		if err != nil {
			return err
		}

		if err := r.Tag(name, repository.TagOptions{
			Target:    target,
			Annotated: *annotated,
			Message:   *message,
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, target)
		return nil
	})

	return cmd
}
