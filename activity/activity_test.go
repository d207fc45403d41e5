package activity_test

import (
	"testing"

	"github.com/apxfed/apx/activity"
	"github.com/apxfed/apx/internal/xcrypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPriorityActorBeatsActivityShape(t *testing.T) {
	obj := map[string]any{
		"id":    "https://example.social/users/alice",
		"type":  "Create",
		"inbox": "https://example.social/users/alice/inbox",
		"actor": "https://example.social/users/alice",
	}
	assert.Equal(t, activity.TypeActor, activity.Classify(obj))
}

func TestClassifyVerificationMethodRequiresNoInbox(t *testing.T) {
	obj := map[string]any{
		"id":                 "https://example.social/keys/1",
		"publicKeyMultibase": "zAbc123",
	}
	assert.Equal(t, activity.TypeVerificationMethod, activity.Classify(obj))
}

func TestClassifyCollectionAndPage(t *testing.T) {
	col := map[string]any{"type": "OrderedCollection", "first": "https://x/1"}
	assert.Equal(t, activity.TypeCollection, activity.Classify(col))

	page := map[string]any{"type": "OrderedCollectionPage", "partOf": "https://x"}
	assert.Equal(t, activity.TypeCollectionPage, activity.Classify(page))
}

func TestClassifyActivityRequiresVerbAndActor(t *testing.T) {
	obj := map[string]any{
		"id":    "https://example.social/activities/1",
		"type":  "Create",
		"actor": "https://example.social/users/alice",
	}
	assert.Equal(t, activity.TypeActivity, activity.Classify(obj))
}

func TestClassifyFallsBackToObject(t *testing.T) {
	obj := map[string]any{
		"id":   "https://example.social/notes/1",
		"type": "Note",
	}
	assert.Equal(t, activity.TypeObject, activity.Classify(obj))
}

func TestClassifyLinkRequiresNoID(t *testing.T) {
	obj := map[string]any{"type": "Link", "href": "https://example.social/notes/1"}
	assert.Equal(t, activity.TypeLink, activity.Classify(obj))
}

func TestValidateOriginAcceptsCreateFromSameOrigin(t *testing.T) {
	raw := map[string]any{
		"id":    "https://remote.example/activities/1",
		"type":  "Create",
		"actor": "https://remote.example/users/bob",
		"object": map[string]any{
			"id":           "https://remote.example/notes/1",
			"attributedTo": "https://remote.example/users/bob",
		},
	}
	a := activity.ParseActivity(raw)
	err := activity.ValidateOrigin("https://local.example", a, "https://remote.example")
	require.NoError(t, err)
}

func TestValidateOriginRejectsSpoofedObjectHost(t *testing.T) {
	raw := map[string]any{
		"id":    "https://remote.example/activities/1",
		"type":  "Create",
		"actor": "https://remote.example/users/bob",
		"object": map[string]any{
			"id":           "https://other.example/notes/1",
			"attributedTo": "https://remote.example/users/bob",
		},
	}
	a := activity.ParseActivity(raw)
	err := activity.ValidateOrigin("https://local.example", a, "https://remote.example")
	assert.Error(t, err)
}

func TestValidateOriginUndoUnwrapsOneLevel(t *testing.T) {
	raw := map[string]any{
		"id":    "https://remote.example/activities/2",
		"type":  "Undo",
		"actor": "https://remote.example/users/bob",
		"object": map[string]any{
			"id":     "https://remote.example/activities/1",
			"type":   "Follow",
			"actor":  "https://remote.example/users/bob",
			"object": "https://local.example/users/alice",
		},
	}
	a := activity.ParseActivity(raw)
	err := activity.ValidateOrigin("https://local.example", a, "https://remote.example")
	require.NoError(t, err)
}

func TestRecipientsCanonicalizesPublicAndDedupes(t *testing.T) {
	raw := map[string]any{
		"to": []any{"as:Public", "https://x/followers"},
		"cc": []any{"Public", "https://x/followers"},
	}
	recipients := activity.Recipients(raw)
	assert.ElementsMatch(t, []string{activity.PublicMarker, "https://x/followers"}, recipients)
	assert.True(t, activity.IsPublic(recipients))
}

func TestParseTagsSplitsMentionsAndHashtags(t *testing.T) {
	raw := map[string]any{
		"tag": []any{
			map[string]any{"type": "Mention", "href": "https://x/users/carol", "name": "@carol"},
			map[string]any{"type": "Hashtag", "name": "#go"},
		},
	}
	mentions, hashtags := activity.ParseTags(raw)
	require.Len(t, mentions, 1)
	require.Len(t, hashtags, 1)
	assert.Equal(t, "https://x/users/carol", mentions[0].Href)
	assert.Equal(t, "go", hashtags[0].Name)
}

func TestParseAttachmentsDropsUnresolvable(t *testing.T) {
	raw := map[string]any{
		"attachment": []any{
			map[string]any{"url": "https://x/img.png", "mediaType": "image/png"},
			map[string]any{"url": map[string]any{}},
		},
	}
	got := activity.ParseAttachments(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "https://x/img.png", got[0].URL)
}

func TestSupportsRFC9421ReadsHrefObjectForm(t *testing.T) {
	raw := map[string]any{
		"implements": []any{
			map[string]any{"href": activity.RFC9421SignaturesCapability, "name": "RFC-9421 HTTP Message Signatures"},
		},
	}
	assert.True(t, activity.SupportsRFC9421(raw))
}

func TestSupportsRFC9421FalseWithoutCapability(t *testing.T) {
	assert.False(t, activity.SupportsRFC9421(map[string]any{}))
	assert.False(t, activity.SupportsRFC9421(map[string]any{"implements": []any{"https://example/other-fep"}}))
}

func TestPublicKeyFindsSingularPublicKeyEntry(t *testing.T) {
	key, err := xcrypto.GenerateRSAKeypair()
	require.NoError(t, err)

	raw := map[string]any{
		"id": "https://example.social/users/alice",
		"publicKey": map[string]any{
			"id":           "https://example.social/users/alice#main-key",
			"owner":        "https://example.social/users/alice",
			"publicKeyPem": string(key.Public().(*xcrypto.RSAPublicKey).PEM()),
		},
	}

	pub, err := activity.PublicKey(raw, "https://example.social/users/alice#main-key")
	require.NoError(t, err)
	assert.Equal(t, key.Public().Fingerprint(), pub.Fingerprint())
}

func TestPublicKeyFindsAssertionMethodMultibaseEntry(t *testing.T) {
	key, err := xcrypto.GenerateEd25519Keypair()
	require.NoError(t, err)

	raw := map[string]any{
		"id": "ap://did:key:z6Mk.../actor",
		"assertionMethod": []any{
			map[string]any{
				"id":                 "ap://did:key:z6Mk.../actor#main-key",
				"publicKeyMultibase": key.Public().Multikey(),
			},
		},
	}

	pub, err := activity.PublicKey(raw, "ap://did:key:z6Mk.../actor#main-key")
	require.NoError(t, err)
	assert.Equal(t, key.Public().Fingerprint(), pub.Fingerprint())
}

func TestPublicKeyFailsWhenNoEntryMatchesKeyID(t *testing.T) {
	raw := map[string]any{
		"publicKey": map[string]any{
			"id":           "https://example.social/users/bob#main-key",
			"publicKeyPem": "not-a-real-key",
		},
	}
	_, err := activity.PublicKey(raw, "https://example.social/users/alice#main-key")
	assert.Error(t, err)
}
