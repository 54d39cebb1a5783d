package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
)

func newHashObjectCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-object FILE",
		Short: "compute the object ID for a file, optionally writing it",
		Args:  cobra.ExactArgs(1),
	}

	typ := cmd.Flags().StringP("type", "t", "blob", "object type: blob, tree, commit or tag")
	write := cmd.Flags().BoolP("write", "w", false, "write the object to the database rather than only hashing it")

	cmd.RunE = withCaller("hash-object", func(cmd *cobra.Command, args []string) error {
		objType, err := parseObjectType(*typ)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		if !*write {
			fmt.Fprintln(cmd.OutOrStdout(), plumbing.HashObject(plumbing.FormatSHA1, objType, data))
			return nil
		}

		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}
		oid, err := r.DB.WriteObject(objType, data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), oid)
		return nil
	})

	return cmd
}

func parseObjectType(s string) (plumbing.ObjectType, error) {
	switch s {
	case "blob":
		return plumbing.BlobObject, nil
	case "tree":
		return plumbing.TreeObject, nil
	case "commit":
		return plumbing.CommitObject, nil
	case "tag":
		return plumbing.TagObject, nil
	default:
		return 0, errkind.New(errkind.ParseError, "hash-object", nil).WithData(s)
	}
}
