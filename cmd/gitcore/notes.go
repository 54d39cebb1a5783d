package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/repository"
)

func newNotesCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "attach, remove or read notes on an object",
	}

	cmd.AddCommand(
		newNotesAddCmd(dir),
		newNotesRemoveCmd(dir),
		newNotesShowCmd(dir),
	)
	return cmd
}

func newNotesAddCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add REVISION",
		Short: "attach or replace a note",
		Args:  cobra.ExactArgs(1),
	}
	message := cmd.Flags().StringP("message", "m", "", "note text")

	cmd.RunE = withCaller("notes add", func(cmd *cobra.Command, args []string) error {
		r, target, err := openForNotes(dir, args[0])
		if err != nil {
			return err
		}
		author, err := commit.ResolveAuthor(r.Cfg, commit.Identity{})
		if err != nil {
			return err
		}
		_, err = r.NotesIn(repository.DefaultNotesRef).Add(target, *message, author, time.Now())
		return err
	})
	return cmd
}

func newNotesRemoveCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove REVISION",
		Short: "remove a note",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = withCaller("notes remove", func(cmd *cobra.Command, args []string) error {
		r, target, err := openForNotes(dir, args[0])
		if err != nil {
			return err
		}
		author, err := commit.ResolveAuthor(r.Cfg, commit.Identity{})
		if err != nil {
			return err
		}
		_, err = r.NotesIn(repository.DefaultNotesRef).Remove(target, author, time.Now())
		return err
	})
	return cmd
}

func newNotesShowCmd(dir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show REVISION",
		Short: "print a note's text",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = withCaller("notes show", func(cmd *cobra.Command, args []string) error {
		r, target, err := openForNotes(dir, args[0])
		if err != nil {
			return err
		}
		text, ok, err := r.NotesIn(repository.DefaultNotesRef).Read(target)
		if err != nil {
			return err
		}
		if !ok {
			return errkind.New(errkind.NotFound, "notes show", nil).WithData(args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	})
	return cmd
}

func openForNotes(dir *string, rev string) (*repository.Repository, plumbing.OID, error) {
	path, err := workingDir(dir)
	if err != nil {
		return nil, plumbing.OID{}, err
	}
	r, err := openRepository(path)
	if err != nil {
		return nil, plumbing.OID{}, err
	}
	target, err := resolveRevision(r, rev)
	if err != nil {
		return nil, plumbing.OID{}, err
	}
	return r, target, nil
}
