package plumbing

// ObjectFormat is the repository-wide hash algorithm. Mixing formats within
// one repository is forbidden.
type ObjectFormat string

const (
	FormatSHA1   ObjectFormat = "sha1"
	FormatSHA256 ObjectFormat = "sha256"
)

// Size in raw bytes and in hex digits for each supported format.
const (
	SHA1Size      = 20
	SHA1HexSize   = 40
	SHA256Size    = 32
	SHA256HexSize = 64
)

func (f ObjectFormat) byteSize() int {
	if f == FormatSHA256 {
		return SHA256Size
	}
	return SHA1Size
}

// Size returns the raw digest length for the format: 20 for SHA-1, 32
// for SHA-256. Exported for codecs outside this package (pack index,
// packfile) that need to size hash buffers without hardcoding the
// format-to-length mapping themselves.
func (f ObjectFormat) Size() int { return f.byteSize() }

// EmptyTreeOID returns the well-known hash of a zero-entry tree for the
// given object format.
func EmptyTreeOID(f ObjectFormat) OID {
	if f == FormatSHA256 {
		var z OID
		z.format = FormatSHA256
		return z
	}
	h, _ := FromHex("4b825dc642cb6eb9a060e54bf8d69288fbee4904")
	return h
}
