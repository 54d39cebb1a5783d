package sign

import (
	"bytes"
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"github.com/opencore/gitcore/errkind"
)

// sshNamespace is the Git namespace SSH signatures are scoped to,
// distinguishing a commit/tag signature from, say, an SSH certificate
// signed by the same key.
const sshNamespace = "git"

const (
	sshSigMagic     = "SSHSIG"
	sshSigVersion   = 1
	sshSigArmorHead = "-----BEGIN SSH SIGNATURE-----"
	sshSigArmorTail = "-----END SSH SIGNATURE-----"
)

// SSHSigner signs with a single SSH private key, producing an armored
// SSHSIG blob in git's "ssh" gpg.format.
type SSHSigner struct {
	signer ssh.Signer
}

// NewSSHSigner wraps an ssh.Signer (e.g. from ssh.NewSignerFromKey).
func NewSSHSigner(signer ssh.Signer) *SSHSigner {
	return &SSHSigner{signer: signer}
}

// Sign hashes payload with SHA-512, signs the SSHSIG-wrapped digest, and
// returns the armored result.
func (s *SSHSigner) Sign(payload []byte) (string, error) {
	h := sha512.Sum512(payload)

	signedData := sshSignedData(sshNamespace, "sha512", h[:])
	sig, err := s.signer.Sign(rand.Reader, signedData)
	if err != nil {
		return "", errkind.New(errkind.InvalidSignature, "SSHSigner.Sign", err)
	}

	blob := sshSignatureBlob(s.signer.PublicKey(), sshNamespace, "sha512", sig)
	return armorSSHSignature(blob), nil
}

// SSHVerifier checks SSHSIG signatures against a set of principals
// trusted to sign, in the shape of an allowed_signers file (see
// ParseAllowedSigners).
type SSHVerifier struct {
	allowed map[string]ssh.PublicKey
}

// NewSSHVerifier trusts exactly the principal -> key pairs given.
func NewSSHVerifier(allowed map[string]ssh.PublicKey) *SSHVerifier {
	return &SSHVerifier{allowed: allowed}
}

// Verify parses an armored SSHSIG blob and checks it against payload
// and every key in the verifier's trusted set; any match succeeds.
func (v *SSHVerifier) Verify(payload []byte, armored string) (*Result, error) {
	result := &Result{Method: MethodSSH}

	sig, err := parseSSHSignature([]byte(armored))
	if err != nil {
		result.Err = err
		return result, nil
	}
	result.Fingerprint = ssh.FingerprintSHA256(sig.PublicKey)

	if sig.Namespace != sshNamespace {
		result.Err = fmt.Errorf("sign: unexpected SSH signature namespace %q", sig.Namespace)
		return result, nil
	}

	var digest []byte
	switch sig.HashAlgorithm {
	case "sha512":
		h := sha512.Sum512(payload)
		digest = h[:]
	default:
		result.Err = fmt.Errorf("sign: unsupported SSH signature hash %q", sig.HashAlgorithm)
		return result, nil
	}
	signedData := sshSignedData(sig.Namespace, sig.HashAlgorithm, digest)

	if err := sig.PublicKey.Verify(signedData, sig.Signature); err != nil {
		result.Err = err
		return result, nil
	}

	for principal, key := range v.allowed {
		if gliderssh.KeysEqual(key, sig.PublicKey) {
			result.Valid = true
			result.Trust = TrustFull
			result.Signer = principal
			return result, nil
		}
	}
	result.Err = fmt.Errorf("sign: signing key %s is not an allowed signer", result.Fingerprint)
	return result, nil
}

// sshSignature is a parsed SSHSIG blob.
type sshSignature struct {
	Version       uint32
	PublicKey     ssh.PublicKey
	Namespace     string
	HashAlgorithm string
	Signature     *ssh.Signature
}

func sshSignedData(namespace, hashAlg string, digest []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(sshSigMagic)
	writeSSHString(&buf, []byte(namespace))
	writeSSHString(&buf, nil) // reserved
	writeSSHString(&buf, []byte(hashAlg))
	writeSSHString(&buf, digest)
	return buf.Bytes()
}

func sshSignatureBlob(pub ssh.PublicKey, namespace, hashAlg string, sig *ssh.Signature) []byte {
	var buf bytes.Buffer
	buf.WriteString(sshSigMagic)
	binary.Write(&buf, binary.BigEndian, uint32(sshSigVersion))
	writeSSHString(&buf, pub.Marshal())
	writeSSHString(&buf, []byte(namespace))
	writeSSHString(&buf, nil)
	writeSSHString(&buf, []byte(hashAlg))
	writeSSHString(&buf, marshalSSHSignature(sig))
	return buf.Bytes()
}

func marshalSSHSignature(sig *ssh.Signature) []byte {
	var buf bytes.Buffer
	writeSSHString(&buf, []byte(sig.Format))
	writeSSHString(&buf, sig.Blob)
	return buf.Bytes()
}

func armorSSHSignature(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var buf strings.Builder
	buf.WriteString(sshSigArmorHead)
	buf.WriteByte('\n')
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		buf.WriteString(encoded[i:end])
		buf.WriteByte('\n')
	}
	buf.WriteString(sshSigArmorTail)
	buf.WriteByte('\n')
	return buf.String()
}

func parseSSHSignature(armored []byte) (*sshSignature, error) {
	content := strings.TrimSpace(string(armored))
	if !strings.HasPrefix(content, sshSigArmorHead) {
		return nil, errkind.New(errkind.InvalidSignature, "sign.parseSSHSignature", fmt.Errorf("missing SSH signature header"))
	}
	content = strings.TrimPrefix(content, sshSigArmorHead)
	content = strings.TrimSuffix(strings.TrimSpace(content), sshSigArmorTail)
	content = strings.NewReplacer("\n", "", "\r", "").Replace(strings.TrimSpace(content))

	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, errkind.New(errkind.InvalidSignature, "sign.parseSSHSignature", err)
	}
	return parseSSHSignatureBlob(data)
}

func parseSSHSignatureBlob(data []byte) (*sshSignature, error) {
	if len(data) < len(sshSigMagic) || string(data[:len(sshSigMagic)]) != sshSigMagic {
		return nil, errkind.New(errkind.InvalidSignature, "sign.parseSSHSignatureBlob", fmt.Errorf("invalid magic"))
	}
	r := bytes.NewReader(data[len(sshSigMagic):])
	sig := &sshSignature{}

	if err := binary.Read(r, binary.BigEndian, &sig.Version); err != nil {
		return nil, errkind.New(errkind.InvalidSignature, "sign.parseSSHSignatureBlob", err)
	}
	if sig.Version != sshSigVersion {
		return nil, errkind.New(errkind.InvalidSignature, "sign.parseSSHSignatureBlob", fmt.Errorf("unsupported version %d", sig.Version))
	}

	pubKeyBytes, err := readSSHString(r)
	if err != nil {
		return nil, err
	}
	sig.PublicKey, err = ssh.ParsePublicKey(pubKeyBytes)
	if err != nil {
		return nil, errkind.New(errkind.InvalidSignature, "sign.parseSSHSignatureBlob", err)
	}

	nsBytes, err := readSSHString(r)
	if err != nil {
		return nil, err
	}
	sig.Namespace = string(nsBytes)

	if _, err := readSSHString(r); err != nil { // reserved
		return nil, err
	}

	hashBytes, err := readSSHString(r)
	if err != nil {
		return nil, err
	}
	sig.HashAlgorithm = string(hashBytes)

	sigBytes, err := readSSHString(r)
	if err != nil {
		return nil, err
	}
	sig.Signature, err = parseSSHSignatureWireFormat(sigBytes)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func parseSSHSignatureWireFormat(data []byte) (*ssh.Signature, error) {
	r := bytes.NewReader(data)
	format, err := readSSHString(r)
	if err != nil {
		return nil, err
	}
	blob, err := readSSHString(r)
	if err != nil {
		return nil, err
	}
	return &ssh.Signature{Format: string(format), Blob: blob}, nil
}

func writeSSHString(buf *bytes.Buffer, data []byte) {
	binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
}

func readSSHString(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, errkind.New(errkind.InvalidSignature, "sign.readSSHString", err)
	}
	if length > 1<<20 {
		return nil, errkind.New(errkind.InvalidSignature, "sign.readSSHString", fmt.Errorf("string too long: %d", length))
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errkind.New(errkind.InvalidSignature, "sign.readSSHString", err)
	}
	return data, nil
}
