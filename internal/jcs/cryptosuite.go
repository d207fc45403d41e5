package jcs

import (
	"fmt"

	"github.com/apxfed/apx/internal/xcrypto"
	"golang.org/x/crypto/blake2b"
)

// Suite computes the message a cryptosuite actually signs/verifies from
// a proof's canonical config bytes and a document's canonical bytes,
// and performs the raw sign/verify operation over that message. Each
// FEP cryptosuite differs only in digest construction and key family,
// so the two-part "cfg || doc" shape lives in proof.go and each Suite
// just decides how to hash it and which xcrypto key type it expects.
type Suite interface {
	// Name is the cryptosuite identifier as it appears in the proof's
	// "cryptosuite" member.
	Name() string
	// Message derives the bytes actually signed from the canonical
	// proof configuration and canonical document.
	Message(cfg, doc []byte) []byte
	// Sign signs Message's output with key, which must be of the type
	// this suite expects.
	Sign(key xcrypto.SecretKey, msg []byte) ([]byte, error)
	// Verify checks sig against msg under key.
	Verify(key xcrypto.PublicKey, msg, sig []byte) bool
}

// EddsaJcsSuite implements both "eddsa-jcs-2022" (the W3C Data Integrity
// suite) and Mitra's "jcs-eddsa-2022" alias for it: Ed25519 over
// sha256(cfg) || sha256(doc).
type EddsaJcsSuite struct {
	name string
}

func (s *EddsaJcsSuite) Name() string { return s.name }

func (s *EddsaJcsSuite) Message(cfg, doc []byte) []byte {
	cfgHash := xcrypto.Sha256(cfg)
	docHash := xcrypto.Sha256(doc)
	return append(append([]byte{}, cfgHash[:]...), docHash[:]...)
}

func (s *EddsaJcsSuite) Sign(key xcrypto.SecretKey, msg []byte) ([]byte, error) {
	if key.Type() != xcrypto.KeyTypeEd25519 {
		return nil, fmt.Errorf("jcs: %s requires an ed25519 key, got %s", s.name, key.Type())
	}
	return key.Sign(msg)
}

func (s *EddsaJcsSuite) Verify(key xcrypto.PublicKey, msg, sig []byte) bool {
	if key.Type() != xcrypto.KeyTypeEd25519 {
		return false
	}
	return key.Verify(msg, sig)
}

// MitraJcsRsaSuite implements Mitra's "MitraJcsRsaSignature2022": RSA
// (PKCS#1 v1.5 / SHA-256, via xcrypto.RSASecretKey) over the same
// sha256(cfg) || sha256(doc) message shape as the eddsa suite.
type MitraJcsRsaSuite struct{}

func (s *MitraJcsRsaSuite) Name() string { return "MitraJcsRsaSignature2022" }

func (s *MitraJcsRsaSuite) Message(cfg, doc []byte) []byte {
	cfgHash := xcrypto.Sha256(cfg)
	docHash := xcrypto.Sha256(doc)
	return append(append([]byte{}, cfgHash[:]...), docHash[:]...)
}

func (s *MitraJcsRsaSuite) Sign(key xcrypto.SecretKey, msg []byte) ([]byte, error) {
	if key.Type() != xcrypto.KeyTypeRSA {
		return nil, fmt.Errorf("jcs: %s requires an rsa key, got %s", s.Name(), key.Type())
	}
	return key.Sign(msg)
}

func (s *MitraJcsRsaSuite) Verify(key xcrypto.PublicKey, msg, sig []byte) bool {
	if key.Type() != xcrypto.KeyTypeRSA {
		return false
	}
	return key.Verify(msg, sig)
}

// MitraJcsEd25519Suite implements Mitra's pre-FEP-8b32
// "MitraJcsEd25519Signature2022": Ed25519 over blake2b-512(cfg || doc),
// rather than sha256 of each part separately. Mitra instances that
// still emit this cryptosuite predate the eddsa-jcs-2022 migration.
type MitraJcsEd25519Suite struct{}

func (s *MitraJcsEd25519Suite) Name() string { return "MitraJcsEd25519Signature2022" }

func (s *MitraJcsEd25519Suite) Message(cfg, doc []byte) []byte {
	joined := append(append([]byte{}, cfg...), doc...)
	digest := blake2b.Sum512(joined)
	return digest[:]
}

func (s *MitraJcsEd25519Suite) Sign(key xcrypto.SecretKey, msg []byte) ([]byte, error) {
	if key.Type() != xcrypto.KeyTypeEd25519 {
		return nil, fmt.Errorf("jcs: %s requires an ed25519 key, got %s", s.Name(), key.Type())
	}
	return key.Sign(msg)
}

func (s *MitraJcsEd25519Suite) Verify(key xcrypto.PublicKey, msg, sig []byte) bool {
	if key.Type() != xcrypto.KeyTypeEd25519 {
		return false
	}
	return key.Verify(msg, sig)
}

// MitraJcsEip191Suite implements Mitra's "MitraJcsEip191Signature2022":
// a secp256k1/Keccak-256 signature over cfg || doc in the EIP-191
// personal-sign form, verifiable by any Ethereum wallet. Unlike the
// other suites it does not pre-hash the message itself — EIP-191
// hashing (the "\x19Ethereum Signed Message:\n" prefix plus
// Keccak-256) happens inside xcrypto.Secp256k1SecretKey.Sign /
// Secp256k1PublicKey.Verify, so Message just concatenates.
type MitraJcsEip191Suite struct{}

func (s *MitraJcsEip191Suite) Name() string { return "MitraJcsEip191Signature2022" }

func (s *MitraJcsEip191Suite) Message(cfg, doc []byte) []byte {
	return append(append([]byte{}, cfg...), doc...)
}

func (s *MitraJcsEip191Suite) Sign(key xcrypto.SecretKey, msg []byte) ([]byte, error) {
	if key.Type() != xcrypto.KeyTypeSecp256k1 {
		return nil, fmt.Errorf("jcs: %s requires a secp256k1 key, got %s", s.Name(), key.Type())
	}
	return key.Sign(msg)
}

func (s *MitraJcsEip191Suite) Verify(key xcrypto.PublicKey, msg, sig []byte) bool {
	if key.Type() != xcrypto.KeyTypeSecp256k1 {
		return false
	}
	return key.Verify(msg, sig)
}

// suites is the registry Sign/Verify dispatch on by cryptosuite name.
var suites = map[string]Suite{
	"eddsa-jcs-2022": &EddsaJcsSuite{name: "eddsa-jcs-2022"},
	"jcs-eddsa-2022": &EddsaJcsSuite{name: "jcs-eddsa-2022"},
	"MitraJcsRsaSignature2022":     &MitraJcsRsaSuite{},
	"MitraJcsEd25519Signature2022": &MitraJcsEd25519Suite{},
	"MitraJcsEip191Signature2022":  &MitraJcsEip191Suite{},
}

// SuiteByName looks up a registered cryptosuite by its wire name.
func SuiteByName(name string) (Suite, bool) {
	s, ok := suites[name]
	return s, ok
}
