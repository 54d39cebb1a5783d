package repository

import (
	"time"

	"github.com/opencore/gitcore/commit"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/object"
	"github.com/opencore/gitcore/refstore"
	"github.com/opencore/gitcore/sign"
)

// TagOptions configures Tag.
type TagOptions struct {
	// Target is the object the tag names, usually a commit.
	Target plumbing.OID
	// Annotated requests a full tag object (message, tagger, optional
	// signature) rather than a bare ref pointing straight at Target.
	Annotated bool
	Message   string
	Tagger    commit.Identity // zero value: resolve from config
	Now       time.Time       // zero value: time.Now()
	// Signer, if set, signs the tag object. Only meaningful when
	// Annotated is true.
	Signer sign.Signer
}

// Tag creates refs/tags/<name>, either as a lightweight ref directly at
// opts.Target or, when opts.Annotated is set, as an annotated tag
// object the ref points at. Grounded on real git's tag-object layout
// (object.Tag) rather than any one teacher file, since go-git's own
// tag creation lives in repository.go's CreateTag, outside the
// packages this module carries forward.
func (r *Repository) Tag(name string, opts TagOptions) error {
	refName := refstore.NewTagReferenceName(name)
	if _, err := r.Refs.Reference(refName); err == nil {
		return errkind.New(errkind.AlreadyExists, "repository.Tag", nil).WithData(name)
	} else if !isNotFound(err) {
		return err
	}

	target := opts.Target
	if !opts.Annotated {
		return r.Refs.SetReference(refstore.NewHashReference(refName, target))
	}

	typ, _, err := r.DB.ReadObject(target)
	if err != nil {
		return err
	}

	tagger, err := commit.ResolveTagger(r.Cfg, opts.Tagger)
	if err != nil {
		return err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	t := &object.Tag{
		Object:  target,
		Type:    typ,
		Name:    name,
		Tagger:  commit.Stamp(tagger, now),
		Message: opts.Message,
	}

	if opts.Signer != nil {
		payload, err := t.Encode()
		if err != nil {
			return err
		}
		armored, err := opts.Signer.Sign(payload)
		if err != nil {
			return err
		}
		t.GPGSig = armored
	}

	payload, err := t.Encode()
	if err != nil {
		return err
	}
	oid, err := r.DB.WriteObject(plumbing.TagObject, payload)
	if err != nil {
		return err
	}
	return r.Refs.SetReference(refstore.NewHashReference(refName, oid))
}

// DeleteTag removes refs/tags/<name>.
func (r *Repository) DeleteTag(name string) error {
	return r.Refs.RemoveReference(refstore.NewTagReferenceName(name))
}
