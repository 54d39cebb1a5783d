package main

import (
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/repository"
	"github.com/opencore/gitcore/storage/filesystem"
)

const dotGitDir = ".git"

// workingDir resolves the -C flag (if set) or the process's current
// directory.
func workingDir(dir *string) (string, error) {
	if dir != nil && *dir != "" {
		return *dir, nil
	}
	return ".", nil
}

// dotGitFilesystem splits path into a worktree filesystem and the
// filesystem rooted at its .git directory, mirroring go-git's own
// PlainInit/PlainOpen split between a bare and a non-bare layout.
func dotGitFilesystem(path string, bare bool) (wt, dot billy.Filesystem) {
	if bare {
		return nil, osfs.New(path)
	}
	root := osfs.New(path)
	return root, root.Dir(dotGitDir)
}

// openRepository opens an existing repository rooted at path, detecting
// a bare layout (no .git subdirectory) the same way go-git's PlainOpen
// does.
func openRepository(path string) (*repository.Repository, error) {
	var wt, dot billy.Filesystem
	root := osfs.New(path)
	if _, err := root.Stat(dotGitDir); err != nil {
		dot = root
	} else {
		wt, dot = root, root.Dir(dotGitDir)
	}
	backend := filesystem.NewBackend(dot)
	return repository.Open(backend, wt)
}

// initRepository creates a new repository rooted at path.
func initRepository(path string, bare bool) (*repository.Repository, error) {
	wt, dot := dotGitFilesystem(path, bare)
	backend := filesystem.NewBackend(dot)
	return repository.Init(backend, nil, wt)
}

// resolveRevision resolves rev to an OID, trying (in order) a literal
// hex OID, an abbreviated hex prefix, rev itself as a reference name
// (which covers HEAD and fully qualified names), and finally a bare
// branch or tag name under refs/heads or refs/tags.
func resolveRevision(r *repository.Repository, rev string) (plumbing.OID, error) {
	if oid, err := plumbing.FromHex(rev); err == nil {
		if ok, _ := r.DB.HasObject(oid); ok {
			return oid, nil
		}
	}
	if oid, err := r.DB.ExpandPrefix(rev); err == nil {
		return oid, nil
	}

	candidates := []refstore.ReferenceName{
		refstore.ReferenceName(rev),
		refstore.NewBranchReferenceName(rev),
		refstore.NewTagReferenceName(rev),
	}
	for _, name := range candidates {
		if ref, err := r.Refs.Resolve(name); err == nil {
			return ref.Hash(), nil
		}
	}

	return plumbing.OID{}, errkind.New(errkind.NotFound, "resolveRevision", nil).WithData(rev)
}

// parseIdentity parses a "Name <email>" override string as accepted by
// --author flags. An empty string is the zero Identity, letting the
// caller's config cascade resolve it instead.
func parseIdentity(s string) (commit.Identity, error) {
	if s == "" {
		return commit.Identity{}, nil
	}
	open := strings.IndexByte(s, '<')
	shut := strings.IndexByte(s, '>')
	if open < 0 || shut < open {
		return commit.Identity{}, errkind.New(errkind.ParseError, "parseIdentity", nil).WithData(s)
	}
	return commit.Identity{
		Name:  strings.TrimSpace(s[:open]),
		Email: strings.TrimSpace(s[open+1 : shut]),
	}, nil
}
