// Package sign provides the Signer/Verifier contract commit and tag
// signing use, and the two implementations git itself recognizes:
// OpenPGP and SSH.
package sign

// Method identifies which signature scheme produced a GPGSig payload.
// Despite the field name git itself stayed with for the commit/tag
// header, the value stored there need not be OpenPGP.
type Method string

const (
	MethodOpenPGP Method = "openpgp"
	MethodSSH     Method = "ssh"
)

// TrustLevel summarizes how much a successful Verify should be trusted,
// mirroring gpg's own trust model rather than collapsing to a bare bool.
type TrustLevel int

const (
	TrustUndefined TrustLevel = iota
	TrustNever
	TrustMarginal
	TrustFull
	TrustUltimate
)

// Signer signs a commit or tag's canonical payload (its Encode() output
// with GPGSig left empty) and returns the armored signature to store
// back in that same field.
type Signer interface {
	Sign(payload []byte) (string, error)
}

// Verifier checks an armored signature against the payload it was
// produced from.
type Verifier interface {
	Verify(payload []byte, armored string) (*Result, error)
}

// Result is the outcome of a signature verification.
type Result struct {
	Method      Method
	Valid       bool
	Trust       TrustLevel
	Signer      string // best-effort identity: PGP identity name, or SSH fingerprint
	KeyID       string
	Fingerprint string
	Err         error
}
