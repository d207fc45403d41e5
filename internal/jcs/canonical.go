// Package jcs implements RFC 8785 JSON canonicalization and the
// Data Integrity proof format (FEP-8b32) that rides on top of it:
// a detached signature over the canonical form of a document plus a
// canonical form of the proof's own configuration, computed with one
// of several cryptosuites.
package jcs

import (
	"encoding/json"

	gowebpkijcs "github.com/gowebpki/jcs"
)

// Canonicalize marshals v to JSON and rewrites it into RFC 8785
// canonical form: object keys sorted, numbers in their shortest
// round-tripping form, no insignificant whitespace.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return gowebpkijcs.Transform(raw)
}

// CanonicalizeRaw canonicalizes an already-marshaled JSON document.
func CanonicalizeRaw(raw []byte) ([]byte, error) {
	return gowebpkijcs.Transform(raw)
}
