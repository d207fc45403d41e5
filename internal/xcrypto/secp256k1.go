package xcrypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Secp256k1PublicKey is the xcrypto.PublicKey implementation backing
// MitraJcsEip191Signature2022, which signs the Keccak-256/EIP-191
// digest of a document with a secp256k1 key the way Ethereum wallets
// do. Verify/Sign always hash through EIP-191 — this key family has no
// other use in this module.
type Secp256k1PublicKey struct {
	Key *secp256k1.PublicKey
}

func (k *Secp256k1PublicKey) Type() KeyType { return KeyTypeSecp256k1 }

// Verify checks a DER-encoded ECDSA signature over the EIP-191 digest
// of msg.
func (k *Secp256k1PublicKey) Verify(msg, sig []byte) bool {
	signature, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false
	}
	return signature.Verify(eip191Digest(msg), k.Key)
}

func (k *Secp256k1PublicKey) sec1() []byte {
	return k.Key.SerializeCompressed()
}

func (k *Secp256k1PublicKey) Multikey() string {
	return encodeMultikey(multicodecSecp256k1Pub, k.sec1())
}

func (k *Secp256k1PublicKey) Fingerprint() string {
	return fingerprint(k.sec1())
}

// ParseSecp256k1PublicKey parses a compressed or uncompressed
// SEC1-encoded secp256k1 public key.
func ParseSecp256k1PublicKey(b []byte) (*Secp256k1PublicKey, error) {
	key, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, keyFormatErrorf("invalid secp256k1 public key: %v", err)
	}
	return &Secp256k1PublicKey{Key: key}, nil
}

func eip191Digest(msg []byte) []byte {
	digest := Eip191Hash(msg)
	return digest[:]
}

// Secp256k1SecretKey is the xcrypto.SecretKey mirror of
// Secp256k1PublicKey.
type Secp256k1SecretKey struct {
	Key *secp256k1.PrivateKey
}

func (k *Secp256k1SecretKey) Type() KeyType { return KeyTypeSecp256k1 }

// Sign signs the EIP-191 digest of msg, producing a DER-encoded ECDSA
// signature (RFC 6979 deterministic nonce).
func (k *Secp256k1SecretKey) Sign(msg []byte) ([]byte, error) {
	sig := ecdsa.Sign(k.Key, eip191Digest(msg))
	return sig.Serialize(), nil
}

func (k *Secp256k1SecretKey) Public() PublicKey {
	return &Secp256k1PublicKey{Key: k.Key.PubKey()}
}

// GenerateSecp256k1Keypair generates a fresh secp256k1 keypair.
func GenerateSecp256k1Keypair() (*Secp256k1SecretKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &Secp256k1SecretKey{Key: key}, nil
}
