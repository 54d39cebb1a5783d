package sign_test

import (
	"bytes"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/require"

	"github.com/opencore/gitcore/sign"
)

func newPGPEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity("Ada Lovelace", "", "ada@example.com", nil)
	require.NoError(t, err)
	return entity
}

func armorPublicKey(t *testing.T, entity *openpgp.Entity) string {
	t.Helper()
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())
	return buf.String()
}

func TestGPGSignAndVerifyRoundTrips(t *testing.T) {
	entity := newPGPEntity(t)
	signer, err := sign.NewGPGSigner(entity)
	require.NoError(t, err)

	payload := []byte("tree deadbeef\nauthor Ada <ada@example.com> 0 +0000\n\nhello\n")
	armored, err := signer.Sign(payload)
	require.NoError(t, err)
	require.Contains(t, armored, "BEGIN PGP SIGNATURE")

	verifier, err := sign.NewGPGVerifier(armorPublicKey(t, entity))
	require.NoError(t, err)

	result, err := verifier.Verify(payload, armored)
	require.NoError(t, err)
	require.True(t, result.Valid)
	require.Equal(t, sign.TrustFull, result.Trust)
}

func TestGPGVerifyRejectsTamperedPayload(t *testing.T) {
	entity := newPGPEntity(t)
	signer, err := sign.NewGPGSigner(entity)
	require.NoError(t, err)

	payload := []byte("original content\n")
	armored, err := signer.Sign(payload)
	require.NoError(t, err)

	verifier, err := sign.NewGPGVerifier(armorPublicKey(t, entity))
	require.NoError(t, err)

	result, err := verifier.Verify([]byte("tampered content\n"), armored)
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.Error(t, result.Err)
}

func TestNewGPGVerifierRejectsEmptyKeyring(t *testing.T) {
	_, err := sign.NewGPGVerifier("")
	require.Error(t, err)
}
