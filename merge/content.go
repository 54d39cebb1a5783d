package merge

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/opencore/gitcore/utils/diff"
)

const (
	markerOurs   = "<<<<<<<"
	markerSplit  = "======="
	markerTheirs = ">>>>>>>"
)

// ContentResult is the outcome of merging one file's three versions.
type ContentResult struct {
	Text        string
	HasConflict bool
}

// Content performs the default line-based three-way content merge: base
// is diffed independently against ours and theirs, and the two edit
// streams are walked together, emitting a conflict region (in the
// standard <<<<<<</=======/>>>>>>> form) wherever both sides touch the
// same base line range with different results.
func Content(base, ours, theirs, labelOurs, labelTheirs string) ContentResult {
	if ours == theirs {
		return ContentResult{Text: ours}
	}
	if base == ours {
		return ContentResult{Text: theirs}
	}
	if base == theirs {
		return ContentResult{Text: ours}
	}

	oursDiffs := diff.Do(base, ours)
	theirsDiffs := diff.Do(base, theirs)

	oursBlocks := blocksFromDiff(oursDiffs)
	theirsBlocks := blocksFromDiff(theirsDiffs)

	var out strings.Builder
	conflict := false

	oi, ti := 0, 0
	for oi < len(oursBlocks) || ti < len(theirsBlocks) {
		switch {
		case oi < len(oursBlocks) && ti < len(theirsBlocks):
			ob, tb := oursBlocks[oi], theirsBlocks[ti]
			switch {
			case ob.baseText == "" && tb.baseText == "":
				// Both sides are pure context at this step; consume together.
				out.WriteString(ob.text)
				oi++
				ti++
			case ob.baseText == tb.baseText && ob.text == tb.text:
				out.WriteString(ob.text)
				oi++
				ti++
			case ob.baseText == "" || tb.baseText == "":
				// One side is context, advance whichever one isn't.
				if ob.baseText == "" {
					out.WriteString(ob.text)
					oi++
				} else {
					out.WriteString(tb.text)
					ti++
				}
			default:
				conflict = true
				writeConflict(&out, ob.text, tb.text, labelOurs, labelTheirs)
				oi++
				ti++
			}
		case oi < len(oursBlocks):
			out.WriteString(oursBlocks[oi].text)
			oi++
		default:
			out.WriteString(theirsBlocks[ti].text)
			ti++
		}
	}

	return ContentResult{Text: out.String(), HasConflict: conflict}
}

// block is one diff hunk, aligned so both sides can be walked in lockstep:
// baseText is the base-side content this hunk replaces (empty for a pure
// context/equal hunk), text is the replacement content on this side.
type block struct {
	baseText string
	text     string
}

func blocksFromDiff(diffs []diffmatchpatch.Diff) []block {
	blocks := make([]block, 0, len(diffs))
	i := 0
	for i < len(diffs) {
		d := diffs[i]
		if d.Type == diffmatchpatch.DiffEqual {
			blocks = append(blocks, block{text: d.Text})
			i++
			continue
		}

		var baseText, text string
		for i < len(diffs) && diffs[i].Type != diffmatchpatch.DiffEqual {
			switch diffs[i].Type {
			case diffmatchpatch.DiffDelete:
				baseText += diffs[i].Text
			case diffmatchpatch.DiffInsert:
				text += diffs[i].Text
			}
			i++
		}
		blocks = append(blocks, block{baseText: baseText, text: text})
	}
	return blocks
}

func writeConflict(out *strings.Builder, ours, theirs, labelOurs, labelTheirs string) {
	out.WriteString(markerOurs)
	if labelOurs != "" {
		out.WriteString(" " + labelOurs)
	}
	out.WriteString("\n")
	out.WriteString(ours)
	if !strings.HasSuffix(ours, "\n") && ours != "" {
		out.WriteString("\n")
	}
	out.WriteString(markerSplit + "\n")
	out.WriteString(theirs)
	if !strings.HasSuffix(theirs, "\n") && theirs != "" {
		out.WriteString("\n")
	}
	out.WriteString(markerTheirs)
	if labelTheirs != "" {
		out.WriteString(" " + labelTheirs)
	}
	out.WriteString("\n")
}
