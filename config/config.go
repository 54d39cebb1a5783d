// Package config is the typed view over a repository's git-config file:
// user/author/committer identity, core settings, merge policy and
// remotes, layered over the lower-level section/option tree in
// plumbing/format/config.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"dario.cat/mergo"

	"github.com/opencore/gitcore/plumbing"
	format "github.com/opencore/gitcore/plumbing/format/config"
)

const (
	coreSection       = "core"
	userSection       = "user"
	authorSection     = "author"
	committerSection  = "committer"
	mergeSection      = "merge"
	remoteSection     = "remote"
	branchSection     = "branch"
	extensionsSection = "extensions"

	bareKey                    = "bare"
	worktreeKey                = "worktree"
	repositoryFormatVersionKey = "repositoryformatversion"
	filemodeKey                = "filemode"
	objectFormatKey            = "objectformat"
	nameKey                    = "name"
	emailKey                   = "email"
	ffKey                      = "ff"
	urlKey                     = "url"
	fetchKey                   = "fetch"
	mergeKey                   = "merge"
	remoteKey                  = "remote"

	// DefaultFileMode matches git's own default: honor the worktree
	// executable bit.
	DefaultFileMode = true
)

// ErrInvalid is returned when a named Remote or Branch entry's key
// doesn't match its own Name field.
var ErrInvalid = errors.New("config: remote or branch name mismatch")

// Config is the parsed, typed form of one git-config file (or the result
// of merging several, see Merge).
type Config struct {
	Core struct {
		Bare                    bool
		Worktree                string
		FileMode                bool
		RepositoryFormatVersion format.RepositoryFormatVersion
	}

	User struct {
		Name  string
		Email string
	}
	Author struct {
		Name  string
		Email string
	}
	Committer struct {
		Name  string
		Email string
	}

	Extensions struct {
		ObjectFormat plumbing.ObjectFormat
	}

	Merge struct {
		// FastForward controls the default fast-forward policy: "true"
		// (default), "false" (always create a merge commit), or "only"
		// (refuse a non-fast-forward merge).
		FastForward string
	}

	Remotes  map[string]*Remote
	Branches map[string]*Branch

	// Raw is the underlying section/option tree this Config was decoded
	// from (or will be re-encoded into). Round-tripping through Raw
	// preserves any section this typed view doesn't know about.
	Raw *format.Config
}

// New returns a Config with git's built-in defaults and no sections set.
func New() *Config {
	c := &Config{
		Remotes:  make(map[string]*Remote),
		Branches: make(map[string]*Branch),
		Raw:      format.New(),
	}
	c.Core.FileMode = DefaultFileMode
	c.Core.RepositoryFormatVersion = format.DefaultRepositoryFormatVersion
	c.Merge.FastForward = "true"
	return c
}

// Merge layers each of src, in order, over a copy of the built-in
// defaults, later entries win. A nil entry is skipped. Used to combine
// on-disk config with a caller-supplied partial override.
func Merge(src ...*Config) (*Config, error) {
	result := New()
	for _, c := range src {
		if c == nil {
			continue
		}
		if err := mergo.Merge(result, c, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Decode parses b as a git-config file and returns the typed Config.
func Decode(b []byte) (*Config, error) {
	c := New()
	c.Raw = format.New()
	if err := format.NewDecoder(bytes.NewReader(b)).Decode(c.Raw); err != nil {
		return nil, err
	}
	c.unmarshalCore()
	c.unmarshalExtensions()
	c.unmarshalIdentity()
	c.unmarshalMerge()
	c.unmarshalRemotes()
	c.unmarshalBranches()
	return c, nil
}

// Encode serializes c back into git-config text, through Raw.
func (c *Config) Encode() ([]byte, error) {
	c.marshalCore()
	c.marshalExtensions()
	c.marshalIdentity()
	c.marshalMerge()
	c.marshalRemotes()
	c.marshalBranches()

	var buf bytes.Buffer
	if err := format.NewEncoder(&buf).Encode(c.Raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks that every map key in Remotes/Branches matches the
// entry's own Name field, the one invariant git-config relies on for a
// subsection-keyed map to round-trip correctly.
func (c *Config) Validate() error {
	for name, r := range c.Remotes {
		if r.Name != name {
			return ErrInvalid
		}
	}
	for name, b := range c.Branches {
		if b.Name != name {
			return ErrInvalid
		}
	}
	return nil
}

func (c *Config) unmarshalCore() {
	s := c.Raw.Section(coreSection)
	c.Core.Bare = s.Option(bareKey) == "true"
	c.Core.Worktree = s.Option(worktreeKey)
	c.Core.FileMode = s.Option(filemodeKey) != "false"
	if s.Option(repositoryFormatVersionKey) == string(format.Version1) {
		c.Core.RepositoryFormatVersion = format.Version1
	} else {
		c.Core.RepositoryFormatVersion = format.Version0
	}
}

func (c *Config) unmarshalExtensions() {
	s := c.Raw.Section(extensionsSection)
	c.Extensions.ObjectFormat = plumbing.ObjectFormat(s.Option(objectFormatKey))
}

func (c *Config) unmarshalIdentity() {
	s := c.Raw.Section(userSection)
	c.User.Name, c.User.Email = s.Option(nameKey), s.Option(emailKey)

	s = c.Raw.Section(authorSection)
	c.Author.Name, c.Author.Email = s.Option(nameKey), s.Option(emailKey)

	s = c.Raw.Section(committerSection)
	c.Committer.Name, c.Committer.Email = s.Option(nameKey), s.Option(emailKey)
}

func (c *Config) unmarshalMerge() {
	s := c.Raw.Section(mergeSection)
	if ff := s.Option(ffKey); ff != "" {
		c.Merge.FastForward = ff
	}
}

func (c *Config) unmarshalRemotes() {
	s := c.Raw.Section(remoteSection)
	for _, sub := range s.Subsections {
		r := unmarshalRemote(sub)
		c.Remotes[r.Name] = r
	}
}

func (c *Config) unmarshalBranches() {
	s := c.Raw.Section(branchSection)
	for _, sub := range s.Subsections {
		b := unmarshalBranch(sub)
		c.Branches[b.Name] = b
	}
}

func (c *Config) marshalCore() {
	s := c.Raw.Section(coreSection)
	s.SetOption(bareKey, fmt.Sprintf("%t", c.Core.Bare))
	if c.Core.Worktree != "" {
		s.SetOption(worktreeKey, c.Core.Worktree)
	}
	s.SetOption(filemodeKey, fmt.Sprintf("%t", c.Core.FileMode))
	if c.Core.RepositoryFormatVersion != "" {
		s.SetOption(repositoryFormatVersionKey, string(c.Core.RepositoryFormatVersion))
	}
}

func (c *Config) marshalExtensions() {
	if c.Core.RepositoryFormatVersion == format.Version1 && c.Extensions.ObjectFormat != "" {
		c.Raw.Section(extensionsSection).SetOption(objectFormatKey, string(c.Extensions.ObjectFormat))
	}
}

func (c *Config) marshalIdentity() {
	if c.User.Name != "" || c.User.Email != "" {
		s := c.Raw.Section(userSection)
		setIfNonEmpty(s, nameKey, c.User.Name)
		setIfNonEmpty(s, emailKey, c.User.Email)
	}
	if c.Author.Name != "" || c.Author.Email != "" {
		s := c.Raw.Section(authorSection)
		setIfNonEmpty(s, nameKey, c.Author.Name)
		setIfNonEmpty(s, emailKey, c.Author.Email)
	}
	if c.Committer.Name != "" || c.Committer.Email != "" {
		s := c.Raw.Section(committerSection)
		setIfNonEmpty(s, nameKey, c.Committer.Name)
		setIfNonEmpty(s, emailKey, c.Committer.Email)
	}
}

func setIfNonEmpty(s *format.Section, key, value string) {
	if value != "" {
		s.SetOption(key, value)
	}
}

func (c *Config) marshalMerge() {
	if c.Merge.FastForward != "" && c.Merge.FastForward != "true" {
		c.Raw.Section(mergeSection).SetOption(ffKey, c.Merge.FastForward)
	}
}

func (c *Config) marshalRemotes() {
	names := sortedKeys(c.Remotes)
	s := c.Raw.Section(remoteSection)
	s.Subsections = make(format.Subsections, 0, len(names))
	for _, name := range names {
		s.Subsections = append(s.Subsections, c.Remotes[name].marshal())
	}
}

func (c *Config) marshalBranches() {
	names := sortedKeys(c.Branches)
	s := c.Raw.Section(branchSection)
	s.Subsections = make(format.Subsections, 0, len(names))
	for _, name := range names {
		s.Subsections = append(s.Subsections, c.Branches[name].marshal())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
