package xcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
)

// Ed25519PublicKey is the xcrypto.PublicKey implementation backed by an
// Ed25519 key.
type Ed25519PublicKey struct {
	Key ed25519.PublicKey
}

func (k *Ed25519PublicKey) Type() KeyType { return KeyTypeEd25519 }

func (k *Ed25519PublicKey) Verify(msg, sig []byte) bool {
	return ed25519.Verify(k.Key, msg, sig)
}

func (k *Ed25519PublicKey) Multikey() string {
	return encodeMultikey(multicodecEd25519Pub, []byte(k.Key))
}

func (k *Ed25519PublicKey) Fingerprint() string {
	return fingerprint([]byte(k.Key))
}

// Ed25519SecretKey is the xcrypto.SecretKey implementation backed by an
// Ed25519 private key.
type Ed25519SecretKey struct {
	Key ed25519.PrivateKey
}

func (k *Ed25519SecretKey) Type() KeyType { return KeyTypeEd25519 }

func (k *Ed25519SecretKey) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(k.Key, msg), nil
}

func (k *Ed25519SecretKey) Public() PublicKey {
	return &Ed25519PublicKey{Key: k.Key.Public().(ed25519.PublicKey)}
}

// GenerateEd25519Keypair generates a fresh Ed25519 keypair.
func GenerateEd25519Keypair() (*Ed25519SecretKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Ed25519SecretKey{Key: priv}, nil
}
