package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/refstore"
)

func newShowRefCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-ref",
		Short: "list every reference and the OID it resolves to",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = withCaller("show-ref", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}

		var refs []*refstore.Reference
		if err := r.Refs.IterReferences(func(ref *refstore.Reference) error {
			refs = append(refs, ref)
			return nil
		}); err != nil {
			return err
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].Name() < refs[j].Name() })

		out := cmd.OutOrStdout()
		for _, ref := range refs {
			if ref.Type() != refstore.HashReference {
				continue
			}
			fmt.Fprintf(out, "%s %s\n", ref.Hash(), ref.Name())
		}
		return nil
	})

	return cmd
}
