package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/merge"
	"github.com/opencore/gitcore/plumbing/format/index"
	"github.com/opencore/gitcore/repository"
)

func newMergeCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge REVISION",
		Short: "merge another commit into the current branch",
		Args:  cobra.ExactArgs(1),
	}

	message := cmd.Flags().StringP("message", "m", "", "merge commit message")
	ff := cmd.Flags().String("ff", "", "fast-forward policy: true, only, or false")

	cmd.RunE = withCaller("merge", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}

		head, err := r.Refs.Reference(repository.DefaultBranch)
		if err != nil {
			return err
		}
		theirs, err := resolveRevision(r, args[0])
		if err != nil {
			return err
		}

		idx, err := r.LoadIndex()
		if err != nil {
			return err
		}
		if paths := idx.UnmergedPaths(); len(paths) > 0 {
			return errkind.New(errkind.UnmergedPaths, "merge", nil).WithData(errkind.DataUnmergedPaths{Filepaths: paths})
		}

		root, err := r.Backend.Root()
		if err != nil {
			return err
		}

		result, err := merge.Run(r.DB, r.Refs, r.Cfg, head.Hash(), theirs, merge.Options{
			Branch:      repository.DefaultBranch,
			Message:     *message,
			FastForward: *ff,
			Root:        root,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(result.Conflicts) > 0 {
			paths := make([]string, len(result.Conflicts))
			for i, c := range result.Conflicts {
				fmt.Fprintf(out, "CONFLICT: %s\n", c.Path)
				paths[i] = c.Path
			}
			if err := r.SaveIndex(&index.Index{Version: index.VersionSupported, Entries: result.Entries}); err != nil {
				return err
			}
			return errkind.New(errkind.MergeConflict, "merge", nil).WithData(errkind.DataMergeConflict{Filepaths: paths})
		}

		if result.Entries != nil {
			if err := r.SaveIndex(&index.Index{Version: index.VersionSupported, Entries: result.Entries}); err != nil {
				return err
			}
		}

		switch {
		case result.FastForward && result.Commit.Equal(head.Hash()):
			fmt.Fprintln(out, "Already up to date.")
		case result.FastForward:
			fmt.Fprintf(out, "Fast-forward to %s\n", result.Commit)
		default:
			fmt.Fprintf(out, "Merge commit %s\n", result.Commit)
		}
		return nil
	})

	return cmd
}
