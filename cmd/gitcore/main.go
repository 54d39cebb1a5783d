// Command gitcore is a thin command surface over the object database,
// ref store, index and working-tree packages: enough to add, commit,
// merge, inspect and move around a repository from a shell, plus the
// plumbing-level subcommands scripts tend to reach for.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/errkind"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "gitcore",
		Short:         "a Git object-model and plumbing toolkit",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	dir := cmd.PersistentFlags().StringP("C", "C", "", "run as if gitcore was started in the given directory")

	cmd.AddCommand(
		newInitCmd(dir),
		newAddCmd(dir),
		newCommitCmd(dir),
		newMergeCmd(dir),
		newStatusCmd(dir),
		newCheckoutCmd(dir),
		newResetCmd(dir),
		newTagCmd(dir),
		newNotesCmd(dir),
		newCatFileCmd(dir),
		newHashObjectCmd(dir),
		newPackObjectsCmd(dir),
		newIndexPackCmd(dir),
		newShowRefCmd(dir),
	)

	return cmd
}

// withCaller wraps run so every command surface error carries the
// command's name as "git.<name>", matching the caller-tagging convention
// the rest of this module's public entry points follow.
func withCaller(name string, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := run(cmd, args); err != nil {
			return errkind.WithCaller(err, "git."+name)
		}
		return nil
	}
}
