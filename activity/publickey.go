package activity

import (
	"fmt"

	"github.com/apxfed/apx/internal/xcrypto"
)

// PublicKey resolves the key material for keyID (a verificationMethod
// or publicKey.id URI) out of an actor document's publicKey,
// assertionMethod, or authentication entries, accepting either a
// publicKeyPem (RSA) or a publicKeyMultibase (any xcrypto-supported
// family) encoding. Callers resolving an HTTP-signature or a
// Data-Integrity-proof verification method both go through this.
func PublicKey(raw map[string]any, keyID string) (xcrypto.PublicKey, error) {
	for _, entry := range keyEntries(raw) {
		id, _ := entry["id"].(string)
		if id != "" && id != keyID {
			continue
		}
		if pem, ok := entry["publicKeyPem"].(string); ok && pem != "" {
			return xcrypto.ParseRSAPublicKeyPEM([]byte(pem))
		}
		if mb, ok := entry["publicKeyMultibase"].(string); ok && mb != "" {
			return xcrypto.DecodeMultikey(mb)
		}
	}
	return nil, fmt.Errorf("activity: no key material for %q", keyID)
}

func keyEntries(raw map[string]any) []map[string]any {
	var out []map[string]any
	out = append(out, entriesOf(raw["publicKey"])...)
	out = append(out, entriesOf(raw["assertionMethod"])...)
	out = append(out, entriesOf(raw["authentication"])...)
	return out
}

func entriesOf(v any) []map[string]any {
	switch v := v.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		var out []map[string]any
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
