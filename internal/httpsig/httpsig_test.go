package httpsig_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/apxfed/apx/internal/httpsig"
	"github.com/apxfed/apx/internal/xcrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, target, r)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/activity+json")
	return req
}

func TestCavageVerifyHappyPath(t *testing.T) {
	key, err := xcrypto.GenerateEd25519Keypair()
	require.NoError(t, err)

	body := []byte(`{"type":"Like","id":"https://a.example/1","actor":"https://a.example/alice"}`)
	req := newRequest(t, "POST", "https://b.example/inbox", body)

	const keyID = "https://a.example/alice#ed"
	require.NoError(t, httpsig.SignCavage(req, keyID, key, body))

	parsed, err := httpsig.VerifyCavage(req, body, key.Public(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, keyID, parsed.KeyID)

	result, err := httpsig.VerifyRequest(context.Background(), req, body, time.Now(), func(_ context.Context, id string) (xcrypto.PublicKey, error) {
		assert.Equal(t, keyID, id)
		return key.Public(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "draft-cavage", result.Format)
}

func TestCavageVerifyRejectsDigestMismatch(t *testing.T) {
	key, err := xcrypto.GenerateEd25519Keypair()
	require.NoError(t, err)

	body := []byte(`{"type":"Like"}`)
	req := newRequest(t, "POST", "https://b.example/inbox", body)
	require.NoError(t, httpsig.SignCavage(req, "https://a.example/alice#ed", key, body))

	tampered := []byte(`{"type":"Block"}`)
	_, err = httpsig.VerifyCavage(req, tampered, key.Public(), time.Now())
	assert.Error(t, err)
}

func TestCavageVerifyRejectsMissingRequestTargetCoverage(t *testing.T) {
	key, err := xcrypto.GenerateEd25519Keypair()
	require.NoError(t, err)

	req := newRequest(t, "GET", "https://b.example/users/alice", nil)
	require.NoError(t, httpsig.SignCavage(req, "https://a.example/alice#ed", key, nil))
	req.Header.Set("Signature", `keyId="https://a.example/alice#ed",algorithm="ed25519",headers="date",signature="AA=="`)

	_, err = httpsig.VerifyCavage(req, nil, key.Public(), time.Now())
	assert.Error(t, err)
}

func TestCavageVerifyRejectsStaleDateHeader(t *testing.T) {
	key, err := xcrypto.GenerateEd25519Keypair()
	require.NoError(t, err)

	req := newRequest(t, "GET", "https://b.example/users/alice", nil)
	require.NoError(t, httpsig.SignCavage(req, "https://a.example/alice#ed", key, nil))

	_, err = httpsig.VerifyCavage(req, nil, key.Public(), time.Now().Add(10*time.Minute))
	assert.Error(t, err)
}

func TestParseCavageSignatureExtractsCreatedAndExpires(t *testing.T) {
	req := newRequest(t, "GET", "https://b.example/users/alice", nil)
	req.Header.Set("Signature", fmt.Sprintf(
		`keyId="https://a.example/alice#ed",algorithm="ed25519",headers="(request-target) date",created="1893456000",expires="1893456300",signature="AA=="`,
	))

	parsed, err := httpsig.ParseCavageSignature(req)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1893456000, 0).UTC(), parsed.Created)
	require.NotNil(t, parsed.Expires)
	assert.Equal(t, time.Unix(1893456300, 0).UTC(), *parsed.Expires)
}

func TestRFC9421SignVerifyRoundtrip(t *testing.T) {
	key, err := xcrypto.GenerateRSAKeypair()
	require.NoError(t, err)

	body := []byte(`{"type":"Follow"}`)
	req := newRequest(t, "POST", "https://b.example/inbox", body)

	now := time.Unix(1893456000, 0).UTC()
	const keyID = "https://a.example/alice#main-key"
	require.NoError(t, httpsig.SignRFC9421(req, keyID, key, body, now))

	parsed, err := httpsig.VerifyRFC9421(req, body, key.Public(), now)
	require.NoError(t, err)
	assert.Equal(t, keyID, parsed.KeyID)

	result, err := httpsig.VerifyRequest(context.Background(), req, body, now, func(_ context.Context, id string) (xcrypto.PublicKey, error) {
		return key.Public(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "rfc-9421", result.Format)
}

func TestRFC9421VerifyRejectsExpiredSkew(t *testing.T) {
	key, err := xcrypto.GenerateEd25519Keypair()
	require.NoError(t, err)

	req := newRequest(t, "GET", "https://b.example/users/alice", nil)
	signedAt := time.Unix(1893456000, 0).UTC()
	require.NoError(t, httpsig.SignRFC9421(req, "https://a.example/alice#ed", key, nil, signedAt))

	_, err = httpsig.VerifyRFC9421(req, nil, key.Public(), signedAt.Add(10*time.Minute))
	assert.Error(t, err)
}

func TestVerifyRequestRejectsNoSignature(t *testing.T) {
	req := newRequest(t, "GET", "https://b.example/users/alice", nil)
	_, err := httpsig.VerifyRequest(context.Background(), req, nil, time.Now(), func(context.Context, string) (xcrypto.PublicKey, error) {
		t.Fatal("resolver should not be called")
		return nil, nil
	})
	assert.Error(t, err)
}
