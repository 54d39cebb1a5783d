package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/object"
)

func newCatFileCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat-file OBJECT",
		Short: "print the type, size or pretty-printed content of an object",
		Args:  cobra.ExactArgs(1),
	}

	typeOnly := cmd.Flags().BoolP("type", "t", false, "print the object's type")
	sizeOnly := cmd.Flags().BoolP("size", "s", false, "print the object's size")
	pretty := cmd.Flags().BoolP("pretty", "p", false, "pretty-print the object's content")

	cmd.RunE = withCaller("cat-file", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}
		oid, err := resolveRevision(r, args[0])
		if err != nil {
			return err
		}
		typ, payload, err := r.DB.ReadObject(oid)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case *typeOnly:
			fmt.Fprintln(out, typ)
		case *sizeOnly:
			fmt.Fprintln(out, strconv.Itoa(len(payload)))
		case *pretty:
			return prettyPrintObject(out, r.DB.Format(), typ, payload)
		default:
			return errkind.New(errkind.MissingParameter, "cat-file", nil).WithData("one of -t, -s, -p is required")
		}
		return nil
	})

	return cmd
}

func prettyPrintObject(out io.Writer, format plumbing.ObjectFormat, typ plumbing.ObjectType, payload []byte) error {
	switch typ {
	case plumbing.CommitObject:
		c, err := object.DecodeCommit(payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "tree %s\n", c.Tree)
		for _, p := range c.Parents {
			fmt.Fprintf(out, "parent %s\n", p)
		}
		fmt.Fprintf(out, "author %s\n", c.Author.Encode())
		fmt.Fprintf(out, "committer %s\n", c.Committer.Encode())
		fmt.Fprintln(out)
		fmt.Fprint(out, c.Message)
	case plumbing.TreeObject:
		t, err := object.DecodeTree(format, payload)
		if err != nil {
			return err
		}
		for _, e := range t.Entries {
			entryType := plumbing.BlobObject
			if e.Mode.IsDir() {
				entryType = plumbing.TreeObject
			}
			fmt.Fprintf(out, "%s %s %s\t%s\n", e.Mode, entryType, e.OID, e.Name)
		}
	case plumbing.TagObject:
		t, err := object.DecodeTag(payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "object %s\n", t.Object)
		fmt.Fprintf(out, "type %s\n", t.Type)
		fmt.Fprintf(out, "tag %s\n", t.Name)
		fmt.Fprintf(out, "tagger %s\n", t.Tagger.Encode())
		fmt.Fprintln(out)
		fmt.Fprint(out, t.Message)
	case plumbing.BlobObject:
		_, err := out.Write(payload)
		return err
	}
	return nil
}
