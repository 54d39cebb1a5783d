package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/format/packfile"
)

func newPackObjectsCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack-objects",
		Short: "write a packfile for the OIDs read from stdin to stdout",
		Args:  cobra.NoArgs,
	}

	cmd.RunE = withCaller("pack-objects", func(cmd *cobra.Command, args []string) error {
		path, err := workingDir(dir)
		if err != nil {
			return err
		}
		r, err := openRepository(path)
		if err != nil {
			return err
		}

		var oids []plumbing.OID
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			oid, err := plumbing.FromHex(line)
			if err != nil {
				return err
			}
			oids = append(oids, oid)
		}
		if err := scanner.Err(); err != nil {
			return err
		}

		checksum, err := packfile.WritePack(cmd.OutOrStdout(), r.DB.Format(), r.DB, oids)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, checksum)
		return nil
	})

	return cmd
}
