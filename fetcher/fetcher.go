// Package fetcher implements signed, SSRF-protected retrieval of
// remote ActivityPub documents: FetchObject, FetchActor, and
// FetchCollection generalize teacher's RemoteActorFetcher /
// RemoteStatusFetcher (which decoded straight into a gorm model) to
// decode into a generic document, classify it, verify its identity or
// integrity proof, and hand back a *Result (the raw document plus its
// classification) for the caller to interpret.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/apxfed/apx/activity"
	"github.com/apxfed/apx/internal/ferr"
	"github.com/apxfed/apx/internal/jcs"
	"github.com/apxfed/apx/internal/transport"
	"github.com/apxfed/apx/internal/urlid"
	"github.com/apxfed/apx/internal/xcrypto"
)

const objectAccept = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

// Options configures FetchObject. FepEf61TrustedOrigins, when non-empty,
// restricts which HTTP origins are allowed to serve a portable
// (ap://) object — without it any origin may serve one, since the
// integrity proof is the real authority check; the allowlist exists
// for callers that additionally want to bound which gateways they'll
// even attempt cryptographic verification against.
type Options struct {
	SkipVerification      bool
	FepEf61TrustedOrigins []string
	FollowFragment        bool
}

// Result is a classified, verified fetched document.
type Result struct {
	Type CoreType
	Raw  map[string]any
	ID   string
}

// CoreType re-exports activity.CoreType so callers of this package
// don't need to import activity just to switch on a Result's Type.
type CoreType = activity.CoreType

// FetchObject retrieves uri through agent, classifies the response,
// and verifies either its post-redirect HTTP origin (non-portable) or
// its FEP-8b32 integrity proof (portable, ap:// canonical id).
func FetchObject(ctx context.Context, agent *transport.Agent, uri string, opts Options) (*Result, error) {
	const op = "fetcher.FetchObject"

	body, resp, err := agent.Get(ctx, uri, objectAccept, transport.AcceptedObjectTypes)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("decode json: %w", err))
	}

	if opts.FollowFragment {
		if i := strings.IndexByte(uri, '#'); i >= 0 {
			if frag := resolveFragment(raw, uri[i+1:]); frag != nil {
				raw = frag
			}
		}
	}

	id, _ := raw["id"].(string)
	if id == "" {
		return nil, ferr.New(ferr.TypeConfusion, op, fmt.Errorf("document has no id"))
	}

	if !opts.SkipVerification {
		if strings.HasPrefix(id, "ap://") {
			if err := verifyPortable(raw, id, opts.FepEf61TrustedOrigins, finalOrigin(resp)); err != nil {
				return nil, ferr.New(ferr.ProofInvalid, op, err)
			}
		} else {
			if err := verifyNonPortableOrigin(raw, id, resp); err != nil {
				return nil, ferr.New(ferr.TypeConfusion, op, err)
			}
		}
	}

	return &Result{Type: activity.Classify(raw), Raw: raw, ID: id}, nil
}

// FetchActor fetches uri and requires it classify as an Actor,
// additionally enforcing the per-actor invariants spec names: key
// owners canonical to the actor, and bounded alias/identity-proof
// counts.
func FetchActor(ctx context.Context, agent *transport.Agent, uri string, opts Options) (*Result, error) {
	const op = "fetcher.FetchActor"

	res, err := FetchObject(ctx, agent, uri, opts)
	if err != nil {
		return nil, err
	}
	if res.Type != activity.TypeActor {
		return nil, ferr.New(ferr.TypeConfusion, op, fmt.Errorf("fetched document classified as %s, not Actor", res.Type))
	}
	if err := validateActor(res.Raw); err != nil {
		return nil, ferr.New(ferr.TypeConfusion, op, err)
	}
	return res, nil
}

const (
	maxAliases        = 10
	maxIdentityProofs = 10
)

func validateActor(raw map[string]any) error {
	actorID, _ := raw["id"].(string)

	seen := make(map[string]bool)
	aliases := stringsOf(raw["alsoKnownAs"])
	for _, a := range aliases {
		if seen[a] {
			return fmt.Errorf("duplicate alias %q", a)
		}
		seen[a] = true
	}
	if len(seen) > maxAliases {
		return fmt.Errorf("too many aliases: %d", len(seen))
	}

	proofs, _ := raw["identityProofs"].([]any)
	if len(proofs) > maxIdentityProofs {
		return fmt.Errorf("too many identity proofs: %d", len(proofs))
	}

	for _, entry := range publicKeys(raw) {
		owner, _ := entry["owner"].(string)
		if owner != "" && owner != actorID {
			return fmt.Errorf("public key owner %q does not match actor %q", owner, actorID)
		}
	}
	return nil
}

func publicKeys(raw map[string]any) []map[string]any {
	var out []map[string]any
	switch v := raw["publicKey"].(type) {
	case map[string]any:
		out = append(out, v)
	case []any:
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	for _, key := range []string{"assertionMethod", "authentication"} {
		for _, e := range stringsOrMapsOf(raw[key]) {
			out = append(out, e)
		}
	}
	return out
}

func stringsOrMapsOf(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, e := range items {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringsOf(v any) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// finalOrigin renders the origin of the response's (post-redirect)
// final URL, the string compared against a portable object's trusted
// gateway allowlist.
func finalOrigin(resp *http.Response) string {
	if resp == nil || resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	u, err := urlid.ParseHttpUrl(resp.Request.URL.String())
	if err != nil {
		return ""
	}
	return u.Origin().String()
}

// verifyNonPortableOrigin enforces step 7: a non-portable fetched
// object's id must match the post-redirect final URL by origin and by
// canonical path.
func verifyNonPortableOrigin(raw map[string]any, id string, resp *http.Response) error {
	fetched, err := urlid.ParseHttpUrl(resp.Request.URL.String())
	if err != nil {
		return fmt.Errorf("final url: %w", err)
	}
	declared, err := urlid.ParseHttpUrl(id)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", id, err)
	}
	if !fetched.Origin().Equal(declared.Origin()) {
		return fmt.Errorf("id origin %s does not match fetched origin %s", declared.Origin(), fetched.Origin())
	}
	if fetched.Path() != declared.Path() {
		return fmt.Errorf("id path %q does not match fetched path %q", declared.Path(), fetched.Path())
	}
	return nil
}

// resolveFragment looks for an embedded node matching the given
// fragment, either because the top-level document already carries it
// or inside a JSON-LD "@graph" array — the two shapes a fragment
// reference can resolve through.
func resolveFragment(raw map[string]any, frag string) map[string]any {
	if id, _ := raw["id"].(string); strings.HasSuffix(id, "#"+frag) {
		return raw
	}
	graph, _ := raw["@graph"].([]any)
	for _, e := range graph {
		if m, ok := e.(map[string]any); ok {
			if id, _ := m["id"].(string); strings.HasSuffix(id, "#"+frag) {
				return m
			}
		}
	}
	return nil
}

// verifyPortable enforces step 8: a portable (ap://) object's
// integrity proof must verify under the key its canonical DID
// authority names, and (when trustedOrigins is non-empty) the
// responding origin must be on the allowlist.
func verifyPortable(raw map[string]any, id string, trustedOrigins []string, origin string) error {
	ap, err := urlid.ParseApUrl(id)
	if err != nil {
		return fmt.Errorf("invalid ap:// id: %w", err)
	}
	if !ap.Authority.IsKey() {
		return fmt.Errorf("unsupported did method %q for portable object", ap.Authority.Method)
	}

	if len(trustedOrigins) > 0 && !containsString(trustedOrigins, origin) {
		return fmt.Errorf("origin %q is not a trusted fep-ef61 gateway", origin)
	}

	proofRaw, ok := raw["proof"]
	if !ok {
		return fmt.Errorf("portable object has no integrity proof")
	}
	proofMap, ok := proofRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("malformed proof")
	}
	proofJSON, err := json.Marshal(proofMap)
	if err != nil {
		return err
	}
	var proof jcs.Proof
	if err := json.Unmarshal(proofJSON, &proof); err != nil {
		return fmt.Errorf("malformed proof: %w", err)
	}

	vmDid := strings.SplitN(proof.VerificationMethod, "#", 2)[0]
	if vmDid != ap.Authority.Did() {
		return fmt.Errorf("verification method %q does not belong to canonical authority %q", vmDid, ap.Authority.Did())
	}

	multibase, err := ap.Authority.ResolveKeyMultibase()
	if err != nil {
		return err
	}
	pub, err := xcrypto.DecodeMultikey(multibase)
	if err != nil {
		return fmt.Errorf("decode authority key: %w", err)
	}

	raw = copyWithoutKeys(raw, "proof", "signature")
	context := raw["@context"]

	return jcs.Verify(pub, raw, proof, context)
}

func copyWithoutKeys(m map[string]any, keys ...string) map[string]any {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if !drop[k] {
			out[k] = v
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
