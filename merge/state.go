package merge

import (
	"strings"

	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/storage"
)

const (
	headPath = "MERGE_HEAD"
	msgPath  = "MERGE_MSG"
	modePath = "MERGE_MODE"
)

// State is the on-disk record of an in-progress merge: the OID(s) being
// merged in (MERGE_HEAD, one line per parent for an octopus merge), the
// message seeded into the eventual merge commit (MERGE_MSG), and
// whatever MERGE_MODE has to say about how the merge commit must be
// made (currently just "no-ff", set when Options.FastForward == "false"
// forced a real merge commit despite ours being fast-forwardable).
// LoadState treats the presence of MERGE_HEAD as "a merge is in
// progress"; the commit package does not read this state.
type State struct {
	Heads   []plumbing.OID
	Message string
	Mode    string
}

// SaveState writes MERGE_HEAD, MERGE_MSG and, if s.Mode is set,
// MERGE_MODE, so an interrupted merge (stopped by conflicts) can be
// resumed or aborted later.
func SaveState(root storage.RootFS, s State) error {
	var heads strings.Builder
	for _, h := range s.Heads {
		heads.WriteString(h.String())
		heads.WriteString("\n")
	}
	if err := root.WriteFile(headPath, []byte(heads.String())); err != nil {
		return err
	}
	if err := root.WriteFile(msgPath, []byte(s.Message)); err != nil {
		return err
	}
	if s.Mode == "" {
		return nil
	}
	return root.WriteFile(modePath, []byte(s.Mode))
}

// LoadState reads back a previously saved merge state. Returns
// (State{}, false, nil) if no merge is in progress.
func LoadState(root storage.RootFS) (State, bool, error) {
	headData, err := root.ReadFile(headPath)
	if err != nil {
		if err == storage.ErrNotExist {
			return State{}, false, nil
		}
		return State{}, false, err
	}

	var heads []plumbing.OID
	for _, line := range strings.Split(strings.TrimSpace(string(headData)), "\n") {
		if line == "" {
			continue
		}
		oid, err := plumbing.FromHex(line)
		if err != nil {
			return State{}, false, err
		}
		heads = append(heads, oid)
	}

	msgData, err := root.ReadFile(msgPath)
	if err != nil && err != storage.ErrNotExist {
		return State{}, false, err
	}

	modeData, err := root.ReadFile(modePath)
	if err != nil && err != storage.ErrNotExist {
		return State{}, false, err
	}

	return State{Heads: heads, Message: string(msgData), Mode: string(modeData)}, true, nil
}

// ClearState removes MERGE_HEAD, MERGE_MSG and MERGE_MODE, either
// because the merge commit landed or because the merge was aborted.
func ClearState(root storage.RootFS) error {
	if err := root.RemoveFile(headPath); err != nil && err != storage.ErrNotExist {
		return err
	}
	if err := root.RemoveFile(msgPath); err != nil && err != storage.ErrNotExist {
		return err
	}
	if err := root.RemoveFile(modePath); err != nil && err != storage.ErrNotExist {
		return err
	}
	return nil
}
