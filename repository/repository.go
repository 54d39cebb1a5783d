// Package repository ties the object database, ref store and config
// together into the porcelain operations git exposes at the working-tree
// level: staging (Add), inspection (Status), moving HEAD (Checkout,
// Reset), and the tag/notes namespaces.
//
// Grounded on go-git's top-level Repository/Worktree split
// (repository.go's Init/Open constructor pattern, worktree.go's
// HEAD-update helpers), adapted to this module's storage.Backend and
// storage.RootFS facades and to a billy.Filesystem worktree that may be
// nil for a bare repository.
package repository

import (
	"github.com/go-git/go-billy/v5"

	"github.com/opencore/gitcore/config"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/odb"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/storage"
)

// DefaultBranch is the branch HEAD points at in a freshly initialized
// repository, matching modern git's default.
const DefaultBranch refstore.ReferenceName = "refs/heads/main"

// Repository is one repository's object database, reference store and
// config, plus (for a non-bare repository) the worktree filesystem Add/
// Checkout/Reset operate over.
type Repository struct {
	Backend  storage.Backend
	DB       *odb.DB
	Refs     *refstore.RefStore
	Cfg      *config.Config
	Worktree billy.Filesystem // nil for a bare repository
}

// Init creates a new repository over backend: writes HEAD as a symbolic
// reference to DefaultBranch and persists cfg (or a fresh config.New()
// if cfg is nil). Returns errkind.AlreadyExists if backend already has a
// HEAD.
func Init(backend storage.Backend, cfg *config.Config, worktree billy.Filesystem) (*Repository, error) {
	root, err := backend.Root()
	if err != nil {
		return nil, err
	}
	refs := refstore.New(root, nil)

	if _, err := refs.Reference(refstore.HEAD); err == nil {
		return nil, errkind.New(errkind.AlreadyExists, "repository.Init", nil)
	} else if !isNotFound(err) {
		return nil, err
	}

	if cfg == nil {
		cfg = config.New()
	}
	cfg.Core.Bare = worktree == nil

	r := &Repository{
		Backend:  backend,
		DB:       odb.New(backend, objectFormat(cfg)),
		Refs:     refs,
		Cfg:      cfg,
		Worktree: worktree,
	}

	head := refstore.NewSymbolicReference(refstore.HEAD, DefaultBranch)
	if err := refs.SetReference(head); err != nil {
		return nil, err
	}
	if err := config.Save(root, cfg); err != nil {
		return nil, err
	}
	return r, nil
}

// Open loads an existing repository from backend. Returns
// errkind.NotFound if backend has no HEAD yet (Init was never called).
func Open(backend storage.Backend, worktree billy.Filesystem) (*Repository, error) {
	root, err := backend.Root()
	if err != nil {
		return nil, err
	}
	refs := refstore.New(root, nil)

	if _, err := refs.Reference(refstore.HEAD); err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	return &Repository{
		Backend:  backend,
		DB:       odb.New(backend, objectFormat(cfg)),
		Refs:     refs,
		Cfg:      cfg,
		Worktree: worktree,
	}, nil
}

// SaveConfig re-encodes and persists r.Cfg, for callers that mutate it
// in place (setting a remote, a branch tracking entry, an identity).
func (r *Repository) SaveConfig() error {
	root, err := r.Backend.Root()
	if err != nil {
		return err
	}
	return config.Save(root, r.Cfg)
}

func objectFormat(cfg *config.Config) plumbing.ObjectFormat {
	if cfg.Extensions.ObjectFormat != "" {
		return cfg.Extensions.ObjectFormat
	}
	return plumbing.FormatSHA1
}

func isNotFound(err error) bool {
	ge, ok := err.(*errkind.Error)
	return ok && ge.Kind == errkind.NotFound
}
