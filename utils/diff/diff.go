// Package diff provides a line-oriented diff over two strings, built on
// sergi/go-diff/diffmatchpatch: texts are first collapsed to one rune per
// line so the patience/Myers-style core algorithm operates on lines
// instead of characters, then expanded back.
package diff

import (
	"bytes"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Do computes the line-level diff between src and dst.
func Do(src, dst string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	wSrc, wDst, lines := dmp.DiffLinesToRunes(src, dst)
	diffs := dmp.DiffMainRunes(wSrc, wDst, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

// Src reconstructs the original src string from a diff produced by Do.
func Src(diffs []diffmatchpatch.Diff) string {
	return side(diffs, diffmatchpatch.DiffInsert)
}

// Dst reconstructs the original dst string from a diff produced by Do.
func Dst(diffs []diffmatchpatch.Diff) string {
	return side(diffs, diffmatchpatch.DiffDelete)
}

func side(diffs []diffmatchpatch.Diff, exclude diffmatchpatch.Operation) string {
	var b bytes.Buffer
	for _, d := range diffs {
		if d.Type != exclude {
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
