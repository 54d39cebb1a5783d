package index

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opencore/gitcore/plumbing"
)

// Encoder writes an Index to a stream in the on-disk DIRC format,
// appending the trailing checksum over everything written.
type Encoder struct {
	w      io.Writer
	hasher interface {
		io.Writer
		Sum([]byte) []byte
	}
	format plumbing.ObjectFormat
}

// NewEncoder returns an Encoder writing to w for the given object
// format.
func NewEncoder(w io.Writer, format plumbing.ObjectFormat) *Encoder {
	h := plumbing.NewPlainHash(format)
	return &Encoder{w: io.MultiWriter(w, h), hasher: h, format: format}
}

// Encode writes idx, sorting entries by (name, stage) as the format
// requires.
func (e *Encoder) Encode(idx *Index) error {
	sorted := make([]*Entry, len(idx.Entries))
	copy(sorted, idx.Entries)
	sortEntries(sorted)

	if err := e.encodeHeader(len(sorted)); err != nil {
		return err
	}
	for _, entry := range sorted {
		if err := e.encodeEntry(entry); err != nil {
			return err
		}
	}
	if idx.Cache != nil {
		if err := e.encodeTreeExtension(idx.Cache); err != nil {
			return err
		}
	}
	if idx.ResolveUndo != nil {
		if err := e.encodeResolveUndoExtension(idx.ResolveUndo); err != nil {
			return err
		}
	}

	sum := e.hasher.Sum(nil)
	_, err := e.w.Write(sum)
	return err
}

func sortEntries(entries []*Entry) {
	// insertion sort is fine here: index sizes are small relative to a
	// repository's object count, and this keeps the comparison (name,
	// then stage) inline rather than behind a less-obvious Less method.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entryLess(entries[j], entries[j-1]); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

func entryLess(a, b *Entry) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Stage < b.Stage
}

func (e *Encoder) writeUint32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := e.w.Write(b[:])
	return err
}

func (e *Encoder) encodeHeader(count int) error {
	if _, err := e.w.Write(Signature[:]); err != nil {
		return err
	}
	if err := e.writeUint32(VersionSupported); err != nil {
		return err
	}
	return e.writeUint32(uint32(count))
}

func (e *Encoder) encodeEntry(entry *Entry) error {
	sec, nsec := uint32(0), uint32(0)
	if !entry.CreatedAt.IsZero() {
		sec, nsec = uint32(entry.CreatedAt.Unix()), uint32(entry.CreatedAt.Nanosecond())
	}
	msec, mnsec := uint32(0), uint32(0)
	if !entry.ModifiedAt.IsZero() {
		msec, mnsec = uint32(entry.ModifiedAt.Unix()), uint32(entry.ModifiedAt.Nanosecond())
	}

	for _, v := range []uint32{sec, nsec, msec, mnsec, entry.Dev, entry.Inode, uint32(entry.Mode), entry.UID, entry.GID, entry.Size} {
		if err := e.writeUint32(v); err != nil {
			return err
		}
	}

	if _, err := e.w.Write(entry.Hash.Bytes()); err != nil {
		return err
	}

	nameLen := len(entry.Name)
	flags := uint16(nameLen)
	if nameLen > nameMask {
		flags = nameMask
	}
	flags |= uint16(entry.Stage&0x3) << 12
	extended := entry.IntentToAdd || entry.SkipWorktree
	if extended {
		flags |= entryExtended
	}

	var flagsBuf [2]byte
	binary.BigEndian.PutUint16(flagsBuf[:], flags)
	if _, err := e.w.Write(flagsBuf[:]); err != nil {
		return err
	}

	read := entryHeaderLength - plumbing.SHA1Size + entry.Hash.Size()
	if extended {
		var extBuf [2]byte
		var ext uint16
		if entry.IntentToAdd {
			ext |= intentToAddMask
		}
		if entry.SkipWorktree {
			ext |= skipWorktreeMask
		}
		binary.BigEndian.PutUint16(extBuf[:], ext)
		if _, err := e.w.Write(extBuf[:]); err != nil {
			return err
		}
		read += 2
	}

	if _, err := e.w.Write([]byte(entry.Name)); err != nil {
		return err
	}

	entrySize := read + nameLen
	padLen := 8 - entrySize%8
	_, err := e.w.Write(make([]byte, padLen))
	return err
}

func (e *Encoder) encodeTreeExtension(tree *Tree) error {
	var body []byte
	for _, te := range tree.Entries {
		body = append(body, []byte(te.Path)...)
		body = append(body, 0)
		body = append(body, []byte(fmt.Sprintf("%d %d\n", te.Entries, te.Trees))...)
		if te.Entries >= 0 {
			body = append(body, te.Hash.Bytes()...)
		}
	}
	return e.writeExtension(treeExtSignature, body)
}

func (e *Encoder) encodeResolveUndoExtension(ru *ResolveUndo) error {
	var body []byte
	for _, entry := range ru.Entries {
		body = append(body, []byte(entry.Path)...)
		body = append(body, 0)
		for stage := AncestorStage; stage <= TheirStage; stage++ {
			oid, ok := entry.Stages[stage]
			mode := "0"
			_ = oid
			if ok {
				mode = "100644" // REUC preserves only the blob hash path; mode is not separately tracked by ResolveUndoEntry
			}
			body = append(body, []byte(mode)...)
			body = append(body, 0)
		}
		for stage := AncestorStage; stage <= TheirStage; stage++ {
			if oid, ok := entry.Stages[stage]; ok {
				body = append(body, oid.Bytes()...)
			}
		}
	}
	return e.writeExtension(reucExtSignature, body)
}

func (e *Encoder) writeExtension(sig [4]byte, body []byte) error {
	if _, err := e.w.Write(sig[:]); err != nil {
		return err
	}
	if err := e.writeUint32(uint32(len(body))); err != nil {
		return err
	}
	_, err := e.w.Write(body)
	return err
}
