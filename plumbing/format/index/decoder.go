package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/opencore/gitcore/errkind"
	"github.com/opencore/gitcore/plumbing"
	"github.com/opencore/gitcore/plumbing/filemode"
)

const (
	entryHeaderLength = 62
	entryExtended     = 0x4000
	nameMask          = 0xfff
	intentToAddMask   = 1 << 13
	skipWorktreeMask  = 1 << 14
)

// Decoder reads a staging index from a stream, verifying its trailing
// checksum as it consumes the file.
type Decoder struct {
	buf      *bufio.Reader
	r        io.Reader
	hasher   hash.Hash
	hashSize int
	format   plumbing.ObjectFormat
}

// NewDecoder returns a Decoder reading from r. format selects the
// object-id width entries are stored with.
func NewDecoder(r io.Reader, format plumbing.ObjectFormat) *Decoder {
	buf := bufio.NewReader(r)
	h := plumbing.NewPlainHash(format)
	return &Decoder{
		buf:      buf,
		r:        io.TeeReader(buf, h),
		hasher:   h,
		hashSize: format.Size(),
		format:   format,
	}
}

// Decode reads the whole index into idx.
func (d *Decoder) Decode(idx *Index) error {
	version, err := d.readHeader()
	if err != nil {
		return err
	}
	if version != VersionSupported {
		return errkind.New(errkind.ParseError, "Decoder.Decode", fmt.Errorf("%w: version %d", ErrUnsupportedVersion, version))
	}
	idx.Version = version

	count, err := d.readUint32()
	if err != nil {
		return errkind.New(errkind.ParseError, "Decoder.Decode", err)
	}

	for i := uint32(0); i < count; i++ {
		e, err := d.readEntry()
		if err != nil {
			return errkind.New(errkind.ParseError, "Decoder.Decode", err)
		}
		idx.Entries = append(idx.Entries, e)
	}

	return d.readExtensions(idx)
}

func (d *Decoder) readHeader() (uint32, error) {
	var sig [4]byte
	if _, err := io.ReadFull(d.r, sig[:]); err != nil {
		return 0, errkind.New(errkind.ParseError, "Decoder.readHeader", err)
	}
	if sig != Signature {
		return 0, errkind.New(errkind.ParseError, "Decoder.readHeader", ErrMalformedSignature)
	}
	return d.readUint32()
}

func (d *Decoder) readUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (d *Decoder) readEntry() (*Entry, error) {
	e := &Entry{}

	var sec, nsec, msec, mnsec uint32
	for _, p := range []*uint32{&sec, &nsec, &msec, &mnsec, &e.Dev, &e.Inode} {
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		*p = v
	}

	modeRaw, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	e.Mode = filemode.FileMode(modeRaw)

	for _, p := range []*uint32{&e.UID, &e.GID, &e.Size} {
		v, err := d.readUint32()
		if err != nil {
			return nil, err
		}
		*p = v
	}

	hashBuf := make([]byte, d.hashSize)
	if _, err := io.ReadFull(d.r, hashBuf); err != nil {
		return nil, err
	}
	oid, err := plumbing.FromBytes(d.format, hashBuf)
	if err != nil {
		return nil, err
	}
	e.Hash = oid

	var flagsBuf [2]byte
	if _, err := io.ReadFull(d.r, flagsBuf[:]); err != nil {
		return nil, err
	}
	flags := binary.BigEndian.Uint16(flagsBuf[:])

	read := entryHeaderLength - 20 + d.hashSize // header length scales with OID width

	if sec != 0 || nsec != 0 {
		e.CreatedAt = time.Unix(int64(sec), int64(nsec))
	}
	if msec != 0 || mnsec != 0 {
		e.ModifiedAt = time.Unix(int64(msec), int64(mnsec))
	}
	e.Stage = Stage((flags >> 12) & 0x3)

	if flags&entryExtended != 0 {
		var extBuf [2]byte
		if _, err := io.ReadFull(d.r, extBuf[:]); err != nil {
			return nil, err
		}
		extended := binary.BigEndian.Uint16(extBuf[:])
		read += 2
		e.IntentToAdd = extended&intentToAddMask != 0
		e.SkipWorktree = extended&skipWorktreeMask != 0
	}

	nameLen := int(flags & nameMask)
	nameBuf := make([]byte, nameLen)
	if _, err := io.ReadFull(d.r, nameBuf); err != nil {
		return nil, err
	}
	e.Name = string(nameBuf)

	entrySize := read + nameLen
	padLen := 8 - entrySize%8
	if _, err := io.CopyN(io.Discard, d.r, int64(padLen)); err != nil {
		return nil, err
	}

	return e, nil
}

func (d *Decoder) readExtensions(idx *Index) error {
	peekLen := 4 + 4 + d.hashSize
	for {
		expected := d.hasher.Sum(nil)
		peeked, err := d.buf.Peek(peekLen)
		if len(peeked) < peekLen {
			return d.readChecksum(expected)
		}
		if err != nil {
			return err
		}
		if err := d.readExtension(idx); err != nil {
			return err
		}
	}
}

func (d *Decoder) readExtension(idx *Index) error {
	var sig [4]byte
	if _, err := io.ReadFull(d.r, sig[:]); err != nil {
		return err
	}
	size, err := d.readUint32()
	if err != nil {
		return err
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return err
	}

	switch sig {
	case treeExtSignature:
		tree, err := decodeTreeExtension(body, d.format)
		if err != nil {
			return err
		}
		idx.Cache = tree
	case reucExtSignature:
		ru, err := decodeResolveUndoExtension(body)
		if err != nil {
			return err
		}
		idx.ResolveUndo = ru
	default:
		// Uppercase first byte marks an extension git itself requires
		// understanding to interpret the index correctly; this
		// implementation only acts on TREE/REUC, so only those two are
		// round-tripped and unknown extensions are dropped rather than
		// preserved byte-for-byte.
	}
	return nil
}

func (d *Decoder) readChecksum(expected []byte) error {
	got := make([]byte, d.hashSize)
	if _, err := io.ReadFull(d.buf, got); err != nil {
		return errkind.New(errkind.ParseError, "Decoder.readChecksum", err)
	}
	if !bytes.Equal(expected, got) {
		return errkind.New(errkind.ParseError, "Decoder.readChecksum", ErrInvalidChecksum)
	}
	return nil
}

func decodeTreeExtension(body []byte, format plumbing.ObjectFormat) (*Tree, error) {
	tree := &Tree{}
	for len(body) > 0 {
		nul := bytes.IndexByte(body, 0)
		if nul < 0 {
			return nil, fmt.Errorf("gitcore: malformed TREE extension: missing path terminator")
		}
		path := string(body[:nul])
		body = body[nul+1:]

		sp := bytes.IndexByte(body, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("gitcore: malformed TREE extension: missing entry count")
		}
		entryCount := string(body[:sp])
		body = body[sp+1:]

		nl := bytes.IndexByte(body, '\n')
		if nl < 0 {
			return nil, fmt.Errorf("gitcore: malformed TREE extension: missing subtree count")
		}
		subtrees := string(body[:nl])
		body = body[nl+1:]

		var n, subN int
		if _, err := fmt.Sscanf(entryCount, "%d", &n); err != nil {
			return nil, err
		}
		if _, err := fmt.Sscanf(subtrees, "%d", &subN); err != nil {
			return nil, err
		}

		te := TreeEntry{Path: path, Entries: n, Trees: subN}
		if n >= 0 {
			if len(body) < format.Size() {
				return nil, fmt.Errorf("gitcore: malformed TREE extension: truncated hash")
			}
			oid, err := plumbing.FromBytes(format, body[:format.Size()])
			if err != nil {
				return nil, err
			}
			te.Hash = oid
			body = body[format.Size():]
		}
		tree.Entries = append(tree.Entries, te)
	}
	return tree, nil
}

func decodeResolveUndoExtension(body []byte) (*ResolveUndo, error) {
	ru := &ResolveUndo{}
	for len(body) > 0 {
		nul := bytes.IndexByte(body, 0)
		if nul < 0 {
			return nil, fmt.Errorf("gitcore: malformed REUC extension: missing path terminator")
		}
		path := string(body[:nul])
		body = body[nul+1:]

		var modes [3]int64
		for i := 0; i < 3; i++ {
			nul := bytes.IndexByte(body, 0)
			if nul < 0 {
				return nil, fmt.Errorf("gitcore: malformed REUC extension: missing mode")
			}
			if nul > 0 {
				if _, err := fmt.Sscanf(string(body[:nul]), "%o", &modes[i]); err != nil {
					return nil, err
				}
			}
			body = body[nul+1:]
		}

		e := ResolveUndoEntry{Path: path, Stages: map[Stage]plumbing.OID{}}
		for i, mode := range modes {
			if mode == 0 {
				continue
			}
			if len(body) < plumbing.SHA1Size {
				return nil, fmt.Errorf("gitcore: malformed REUC extension: truncated hash")
			}
			oid, err := plumbing.FromBytes(plumbing.FormatSHA1, body[:plumbing.SHA1Size])
			if err != nil {
				return nil, err
			}
			e.Stages[Stage(i+1)] = oid
			body = body[plumbing.SHA1Size:]
		}
		ru.Entries = append(ru.Entries, e)
	}
	return ru, nil
}
