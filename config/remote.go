package config

import (
	"errors"

	format "github.com/opencore/gitcore/plumbing/format/config"
)

// ErrRemoteConfigEmptyURL is returned when a remote has no URL.
var ErrRemoteConfigEmptyURL = errors.New("config: remote has no URL")

// ErrRemoteConfigEmptyName is returned when a remote has no name.
var ErrRemoteConfigEmptyName = errors.New("config: remote has no name")

// Remote is one [remote "name"] entry.
type Remote struct {
	Name  string
	URLs  []string
	Fetch []string
}

// Validate checks that a remote has a name and at least one URL.
func (r *Remote) Validate() error {
	if r.Name == "" {
		return ErrRemoteConfigEmptyName
	}
	if len(r.URLs) == 0 {
		return ErrRemoteConfigEmptyURL
	}
	return nil
}

func unmarshalRemote(sub *format.Subsection) *Remote {
	return &Remote{
		Name:  sub.Name,
		URLs:  sub.OptionAll(urlKey),
		Fetch: sub.OptionAll(fetchKey),
	}
}

func (r *Remote) marshal() *format.Subsection {
	sub := &format.Subsection{Name: r.Name}
	for _, url := range r.URLs {
		sub.AddOption(urlKey, url)
	}
	for _, f := range r.Fetch {
		sub.AddOption(fetchKey, f)
	}
	return sub
}

// Branch is one [branch "name"] entry: the upstream remote and merge ref
// `git pull`/`git push` resolve for this local branch.
type Branch struct {
	Name   string
	Remote string
	Merge  string
}

// Validate checks that a branch has a name.
func (b *Branch) Validate() error {
	if b.Name == "" {
		return ErrInvalid
	}
	return nil
}

func unmarshalBranch(sub *format.Subsection) *Branch {
	return &Branch{
		Name:   sub.Name,
		Remote: sub.Option(remoteKey),
		Merge:  sub.Option(mergeKey),
	}
}

func (b *Branch) marshal() *format.Subsection {
	sub := &format.Subsection{Name: b.Name}
	if b.Remote != "" {
		sub.SetOption(remoteKey, b.Remote)
	}
	if b.Merge != "" {
		sub.SetOption(mergeKey, b.Merge)
	}
	return sub
}
