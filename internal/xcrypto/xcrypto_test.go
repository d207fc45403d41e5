package xcrypto_test

import (
	"testing"

	"github.com/apxfed/apx/internal/xcrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSASignVerifyRoundtrip(t *testing.T) {
	sk, err := xcrypto.GenerateRSAKeypair()
	require.NoError(t, err)
	pk := sk.Public()

	msg := []byte("hello activitypub")
	sig, err := sk.Sign(msg)
	require.NoError(t, err)

	assert.True(t, pk.Verify(msg, sig))
	assert.False(t, pk.Verify([]byte("hello ActivityPub"), sig))

	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0xff
	assert.False(t, pk.Verify(msg, tampered))
}

func TestEd25519SignVerifyRoundtrip(t *testing.T) {
	sk, err := xcrypto.GenerateEd25519Keypair()
	require.NoError(t, err)
	pk := sk.Public()

	msg := []byte("hello activitypub")
	sig, err := sk.Sign(msg)
	require.NoError(t, err)

	assert.True(t, pk.Verify(msg, sig))
	assert.False(t, pk.Verify([]byte("flipped"), sig))
}

func TestMultikeyRoundtripEd25519(t *testing.T) {
	sk, err := xcrypto.GenerateEd25519Keypair()
	require.NoError(t, err)
	pk := sk.Public()

	encoded := pk.Multikey()
	assert.True(t, len(encoded) > 1 && encoded[0] == 'z')

	decoded, err := xcrypto.DecodeMultikey(encoded)
	require.NoError(t, err)
	assert.Equal(t, xcrypto.KeyTypeEd25519, decoded.Type())
	assert.Equal(t, pk.Fingerprint(), decoded.Fingerprint())
}

func TestMultikeyRoundtripRSA(t *testing.T) {
	sk, err := xcrypto.GenerateRSAKeypair()
	require.NoError(t, err)
	pk := sk.Public()

	encoded := pk.Multikey()
	decoded, err := xcrypto.DecodeMultikey(encoded)
	require.NoError(t, err)
	assert.Equal(t, xcrypto.KeyTypeRSA, decoded.Type())
	assert.Equal(t, pk.Fingerprint(), decoded.Fingerprint())
}

func TestDecodeMultikeyRejectsBadPrefix(t *testing.T) {
	_, err := xcrypto.DecodeMultikey("not-multibase")
	require.Error(t, err)
	var kfe *xcrypto.KeyFormatError
	assert.ErrorAs(t, err, &kfe)
}

func TestPEMRoundtrip(t *testing.T) {
	sk, err := xcrypto.GenerateRSAKeypair()
	require.NoError(t, err)

	parsed, err := xcrypto.ParseRSAPrivateKeyPEM(sk.PEM())
	require.NoError(t, err)

	msg := []byte("roundtrip")
	sig, err := parsed.Sign(msg)
	require.NoError(t, err)
	assert.True(t, sk.Public().Verify(msg, sig))
}

func TestSecp256k1SignVerifyRoundtrip(t *testing.T) {
	sk, err := xcrypto.GenerateSecp256k1Keypair()
	require.NoError(t, err)
	pk := sk.Public()

	msg := []byte("hello activitypub")
	sig, err := sk.Sign(msg)
	require.NoError(t, err)

	assert.True(t, pk.Verify(msg, sig))
	assert.False(t, pk.Verify([]byte("tampered"), sig))
}

func TestMultikeyRoundtripSecp256k1(t *testing.T) {
	sk, err := xcrypto.GenerateSecp256k1Keypair()
	require.NoError(t, err)
	pk := sk.Public()

	encoded := pk.Multikey()
	decoded, err := xcrypto.DecodeMultikey(encoded)
	require.NoError(t, err)
	assert.Equal(t, xcrypto.KeyTypeSecp256k1, decoded.Type())
	assert.Equal(t, pk.Fingerprint(), decoded.Fingerprint())
}

func TestKeccak256KnownVector(t *testing.T) {
	// Keccak-256("") per the reference test vectors.
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	sum := xcrypto.Keccak256(nil)
	assert.Equal(t, want, hexEncode(sum[:]))
}

func hexEncode(b []byte) string {
	const hex = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hex[v>>4]
		out[i*2+1] = hex[v&0xf]
	}
	return string(out)
}
