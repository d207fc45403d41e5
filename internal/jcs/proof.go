package jcs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apxfed/apx/internal/xcrypto"
	"github.com/mr-tron/base58"
)

// Proof is a FEP-8b32 Data Integrity proof: a detached signature over a
// document's canonical form, keyed by a verification method and a named
// cryptosuite.
type Proof struct {
	Type               string `json:"type"`
	Cryptosuite        string `json:"cryptosuite"`
	Created            string `json:"created"`
	ProofPurpose       string `json:"proofPurpose"`
	VerificationMethod string `json:"verificationMethod"`
	ProofValue         string `json:"proofValue"`
}

// ProofOptions configures Sign. Context is the document's own
// "@context" value, injected into the proof configuration per
// FEP-8b32 (and omitted again by Verify's fallback pass, since some
// implementations sign without it).
type ProofOptions struct {
	Cryptosuite         string
	VerificationMethod  string
	ProofPurpose        string
	Context             any
	Now                 time.Time
}

var errUnknownCryptosuite = errors.New("jcs: unknown cryptosuite")

func proofConfig(opts ProofOptions, created string) map[string]any {
	cfg := map[string]any{
		"type":               "DataIntegrityProof",
		"cryptosuite":        opts.Cryptosuite,
		"created":            created,
		"proofPurpose":       opts.ProofPurpose,
		"verificationMethod": opts.VerificationMethod,
	}
	if opts.Context != nil {
		cfg["@context"] = opts.Context
	}
	return cfg
}

// Sign produces a Data Integrity proof over doc (any JSON-marshalable
// value, typically a map with "proof" and "@context" already removed).
// The proof configuration is canonicalized with opts.Context injected,
// matching the FEP-8b32 default; callers that need to interoperate
// with implementations that sign without @context should clear
// opts.Context before calling.
func Sign(key xcrypto.SecretKey, doc any, opts ProofOptions) (*Proof, error) {
	suite, ok := SuiteByName(opts.Cryptosuite)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownCryptosuite, opts.Cryptosuite)
	}

	if opts.ProofPurpose == "" {
		opts.ProofPurpose = "assertionMethod"
	}
	created := opts.Now.UTC().Format(time.RFC3339)

	cfgJSON, err := Canonicalize(proofConfig(opts, created))
	if err != nil {
		return nil, fmt.Errorf("jcs: canonicalize proof config: %w", err)
	}
	docJSON, err := Canonicalize(doc)
	if err != nil {
		return nil, fmt.Errorf("jcs: canonicalize document: %w", err)
	}

	msg := suite.Message(cfgJSON, docJSON)
	sig, err := suite.Sign(key, msg)
	if err != nil {
		return nil, err
	}

	return &Proof{
		Type:               "DataIntegrityProof",
		Cryptosuite:        opts.Cryptosuite,
		Created:            created,
		ProofPurpose:       opts.ProofPurpose,
		VerificationMethod: opts.VerificationMethod,
		ProofValue:         "z" + base58.Encode(sig),
	}, nil
}

// Verify checks proof against doc under key. doc must already have its
// "proof" member removed (and, per FEP-8b32, any legacy "signature"
// member some senders leave behind). context is the document's
// "@context" value as received; Verify first tries the config with
// context injected, then — because some federated implementations
// (e.g. Hubzilla) omit @context from what they actually sign — retries
// with it stripped before giving up.
func Verify(key xcrypto.PublicKey, doc any, proof Proof, context any) error {
	if proof.Type != "DataIntegrityProof" {
		return fmt.Errorf("jcs: unsupported proof type %q", proof.Type)
	}
	if proof.ProofPurpose != "assertionMethod" {
		return fmt.Errorf("jcs: unsupported proof purpose %q", proof.ProofPurpose)
	}
	if len(proof.ProofValue) < 2 || proof.ProofValue[0] != 'z' {
		return fmt.Errorf("jcs: malformed proofValue %q", proof.ProofValue)
	}

	suite, ok := SuiteByName(proof.Cryptosuite)
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownCryptosuite, proof.Cryptosuite)
	}

	sig, err := base58.Decode(proof.ProofValue[1:])
	if err != nil {
		return fmt.Errorf("jcs: decode proofValue: %w", err)
	}

	docJSON, err := Canonicalize(doc)
	if err != nil {
		return fmt.Errorf("jcs: canonicalize document: %w", err)
	}

	opts := ProofOptions{
		Cryptosuite:        proof.Cryptosuite,
		VerificationMethod: proof.VerificationMethod,
		ProofPurpose:       proof.ProofPurpose,
		Context:            context,
	}

	if verifyWithConfig(suite, key, docJSON, opts, proof.Created, sig) {
		return nil
	}

	if context != nil {
		opts.Context = nil
		if verifyWithConfig(suite, key, docJSON, opts, proof.Created, sig) {
			return nil
		}
	}

	return errors.New("jcs: proof verification failed")
}

func verifyWithConfig(suite Suite, key xcrypto.PublicKey, docJSON []byte, opts ProofOptions, created string, sig []byte) bool {
	cfgJSON, err := Canonicalize(proofConfig(opts, created))
	if err != nil {
		return false
	}
	msg := suite.Message(cfgJSON, docJSON)
	return suite.Verify(key, msg, sig)
}

// StripProof returns a copy of a raw JSON document with its "proof"
// and legacy "signature" members removed, the form Sign and Verify
// expect as their doc input.
func StripProof(raw []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	delete(m, "proof")
	delete(m, "signature")
	return m, nil
}
