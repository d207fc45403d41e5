package portable_test

import (
	"testing"

	"github.com/apxfed/apx/internal/urlid"
	"github.com/apxfed/apx/portable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPortableRecognizesApAndGatewayForms(t *testing.T) {
	assert.True(t, portable.IsPortable("ap://did:key:zABC/notes/1"))
	assert.True(t, portable.IsPortable("https://gateway.example/.well-known/apgateway/did:key:zABC/notes/1"))
	assert.False(t, portable.IsPortable("https://example.social/notes/1"))
}

func TestCanonicalizeRewritesGatewayServedID(t *testing.T) {
	got, err := portable.Canonicalize("https://gateway.example/.well-known/apgateway/did:key:zABC/notes/1")
	require.NoError(t, err)
	assert.Equal(t, "ap://did:key:zABC/notes/1", got)
}

func TestCanonicalizeLeavesNonPortableIDUnchanged(t *testing.T) {
	got, err := portable.Canonicalize("https://example.social/notes/1")
	require.NoError(t, err)
	assert.Equal(t, "https://example.social/notes/1", got)
}

// S6 from the delivery scenarios: canonical id ap://did:key:zABC/notes/1,
// served from a foreign gateway. Verification succeeds regardless of
// which gateway serves the bytes; storage records the canonical id.
func TestCompatibleIDRoundTripsThroughForeignGateway(t *testing.T) {
	canonical := "ap://did:key:zABC/notes/1"
	gateway, err := urlid.ParseHttpUrl("https://gateway.example")
	require.NoError(t, err)

	compat, err := portable.CompatibleID(canonical, gateway)
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example/.well-known/apgateway/did:key:zABC/notes/1", compat)

	roundTripped, err := portable.Canonicalize(compat)
	require.NoError(t, err)
	assert.Equal(t, canonical, roundTripped)
}

func TestSelectGatewayPrefersPublicationOrder(t *testing.T) {
	raw := []any{"https://first.example", "https://second.example"}
	gateways := portable.ParseGateways(raw)
	require.Len(t, gateways, 2)

	g, err := portable.SelectGateway(gateways)
	require.NoError(t, err)
	assert.Equal(t, "first.example", g.Host())
}

func TestSelectGatewayFailsWhenEmpty(t *testing.T) {
	_, err := portable.SelectGateway(nil)
	assert.Error(t, err)
}

func TestParseGatewaysSkipsUnparseable(t *testing.T) {
	raw := []any{"https://good.example", 42, "not a url"}
	gateways := portable.ParseGateways(raw)
	require.Len(t, gateways, 1)
	assert.Equal(t, "good.example", gateways[0].Host())
}

func TestTrustedOriginsAllowsExactMatchOnly(t *testing.T) {
	trusted := portable.TrustedOrigins{"https://gateway.example"}
	assert.True(t, trusted.Allows("https://gateway.example"))
	assert.False(t, trusted.Allows("https://evil.example"))
	assert.False(t, trusted.Allows("http://gateway.example"))
}

func TestResolveKeyMethodRejectsUnsupportedDidMethod(t *testing.T) {
	err := portable.ResolveKeyMethod("ap://did:web:example.com/notes/1")
	require.Error(t, err)
	var methodErr *urlid.DidMethodError
	assert.ErrorAs(t, err, &methodErr)
}

func TestResolveKeyMethodAcceptsDidKey(t *testing.T) {
	err := portable.ResolveKeyMethod("ap://did:key:zABC/notes/1")
	assert.NoError(t, err)
}
