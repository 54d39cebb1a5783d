// Package filemode defines the tree-entry modes used by gitcore, following
// go-git's plumbing/filemode package split out from the object codecs.
package filemode

import (
	"fmt"
	"strconv"
)

// FileMode is one of the five modes a tree entry may carry.
type FileMode uint32

const (
	Dir        FileMode = 0040000
	Regular    FileMode = 0100644
	Executable FileMode = 0100755
	Symlink    FileMode = 0120000
	Submodule  FileMode = 0160000
)

// String renders the mode the way it appears in a tree object and in
// `git ls-tree` output: no leading zero trimming beyond what git itself
// produces for each mode.
func (m FileMode) String() string {
	switch m {
	case Dir:
		return "40000"
	case Regular:
		return "100644"
	case Executable:
		return "100755"
	case Symlink:
		return "120000"
	case Submodule:
		return "160000"
	default:
		return strconv.FormatUint(uint64(m), 8)
	}
}

// IsDir reports whether this mode denotes a tree (directory) entry.
func (m FileMode) IsDir() bool { return m == Dir }

// IsRegular reports whether the mode is a plain or executable file.
func (m FileMode) IsRegular() bool { return m == Regular || m == Executable }

// Parse maps the textual tree-entry mode to a FileMode, rejecting any
// value outside the five modes git recognizes.
func Parse(s string) (FileMode, error) {
	switch s {
	case "40000", "040000":
		return Dir, nil
	case "100644":
		return Regular, nil
	case "100755":
		return Executable, nil
	case "120000":
		return Symlink, nil
	case "160000":
		return Submodule, nil
	default:
		return 0, fmt.Errorf("gitcore: unknown file mode %q", s)
	}
}
