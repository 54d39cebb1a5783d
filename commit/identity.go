package commit

import (
	"os"
	"time"

	"github.com/opencore/gitcore/config"
	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing/object"
)

// Identity is one side (author or committer) of a commit, before it's
// stamped with a time.
type Identity struct {
	Name  string
	Email string
}

func (i Identity) empty() bool { return i.Name == "" && i.Email == "" }

// resolveIdentity applies git's own normalization cascade: an explicit
// override wins, then role-specific config ([author]/[committer]), then
// the shared [user] section, then the GIT_*_NAME/EMAIL environment
// variables, in that order. Returns errkind.MissingName if nothing in the
// cascade supplies both a name and an email.
func resolveIdentity(cfg *config.Config, override Identity, role string, nameEnv, emailEnv string) (Identity, error) {
	filled := func(id Identity) (Identity, error) {
		id = fill(id, cfg, role)
		if id.Name == "" || id.Email == "" {
			return Identity{}, errkind.New(errkind.MissingName, "resolveIdentity", nil).WithData(role)
		}
		return id, nil
	}

	if !override.empty() {
		return filled(override)
	}

	var roleCfg Identity
	switch role {
	case "author":
		roleCfg = Identity{Name: cfg.Author.Name, Email: cfg.Author.Email}
	case "committer":
		roleCfg = Identity{Name: cfg.Committer.Name, Email: cfg.Committer.Email}
	}
	if !roleCfg.empty() {
		return filled(roleCfg)
	}

	user := Identity{Name: cfg.User.Name, Email: cfg.User.Email}
	if !user.empty() {
		return filled(user)
	}

	env := Identity{Name: os.Getenv(nameEnv), Email: os.Getenv(emailEnv)}
	if env.Name != "" && env.Email != "" {
		return env, nil
	}

	return Identity{}, errkind.New(errkind.MissingName, "resolveIdentity", nil).WithData(role)
}

// fill completes a partial identity (only one of Name/Email set) from the
// shared [user] section, rather than failing outright.
func fill(id Identity, cfg *config.Config, role string) Identity {
	if id.Name == "" {
		id.Name = cfg.User.Name
	}
	if id.Email == "" {
		id.Email = cfg.User.Email
	}
	return id
}

// ResolveAuthor resolves the author identity: override, [author],
// [user], GIT_AUTHOR_NAME/EMAIL.
func ResolveAuthor(cfg *config.Config, override Identity) (Identity, error) {
	return resolveIdentity(cfg, override, "author", "GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL")
}

// ResolveCommitter resolves the committer identity: override,
// [committer], [user], GIT_COMMITTER_NAME/EMAIL.
func ResolveCommitter(cfg *config.Config, override Identity) (Identity, error) {
	return resolveIdentity(cfg, override, "committer", "GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL")
}

// ResolveTagger resolves the tagger identity for an annotated tag:
// override, [user], GIT_COMMITTER_NAME/EMAIL. Real git has no dedicated
// [tagger] config section, it stamps a tag with the same identity a
// commit's committer would get.
func ResolveTagger(cfg *config.Config, override Identity) (Identity, error) {
	return resolveIdentity(cfg, override, "tagger", "GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL")
}

// Stamp turns an Identity into a Signature at the given instant.
func Stamp(id Identity, at time.Time) object.Signature {
	_, offset := at.Zone()
	return object.NewSignature(id.Name, id.Email, at.Unix(), offset/60)
}
