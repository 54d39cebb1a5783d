package sign

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/opencore/gitcore/errkind"
)

// GPGSigner signs with a single OpenPGP entity's private key.
type GPGSigner struct {
	entity *openpgp.Entity
}

// NewGPGSigner wraps an already-unlocked openpgp.Entity.
func NewGPGSigner(entity *openpgp.Entity) (*GPGSigner, error) {
	if entity == nil {
		return nil, errkind.New(errkind.InvalidSignature, "sign.NewGPGSigner", fmt.Errorf("nil entity"))
	}
	return &GPGSigner{entity: entity}, nil
}

// Sign produces an armored detached OpenPGP signature over payload.
func (s *GPGSigner) Sign(payload []byte) (string, error) {
	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&buf, s.entity, bytes.NewReader(payload), nil); err != nil {
		return "", errkind.New(errkind.InvalidSignature, "GPGSigner.Sign", err)
	}
	return buf.String(), nil
}

// GPGVerifier checks OpenPGP signatures against a fixed keyring.
type GPGVerifier struct {
	keyring openpgp.EntityList
}

// NewGPGVerifier parses an armored public keyring.
func NewGPGVerifier(armoredKeyRing string) (*GPGVerifier, error) {
	if strings.TrimSpace(armoredKeyRing) == "" {
		return nil, errkind.New(errkind.InvalidSignature, "sign.NewGPGVerifier", fmt.Errorf("empty keyring"))
	}
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKeyRing))
	if err != nil {
		return nil, errkind.New(errkind.InvalidSignature, "sign.NewGPGVerifier", err)
	}
	if len(keyring) == 0 {
		return nil, errkind.New(errkind.InvalidSignature, "sign.NewGPGVerifier", fmt.Errorf("keyring contains no keys"))
	}
	return &GPGVerifier{keyring: keyring}, nil
}

// NewGPGVerifierFromKeyring wraps an already-parsed keyring.
func NewGPGVerifierFromKeyring(keyring openpgp.EntityList) *GPGVerifier {
	return &GPGVerifier{keyring: keyring}
}

// Verify checks an armored detached signature against payload.
func (v *GPGVerifier) Verify(payload []byte, armored string) (*Result, error) {
	result := &Result{Method: MethodOpenPGP}

	entity, err := openpgp.CheckArmoredDetachedSignature(v.keyring, bytes.NewReader(payload), strings.NewReader(armored), nil)
	if err != nil {
		result.Valid = false
		result.Trust = TrustUndefined
		result.Err = err
		return result, nil
	}

	result.Valid = true
	result.Trust = TrustFull
	result.KeyID = fmt.Sprintf("%016X", entity.PrimaryKey.KeyId)
	result.Fingerprint = fmt.Sprintf("%X", entity.PrimaryKey.Fingerprint)
	if ident := entity.PrimaryIdentity(); ident != nil {
		result.Signer = ident.Name
	}
	return result, nil
}
