package xcrypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
)

// RSAPublicKey is the xcrypto.PublicKey implementation backed by an RSA
// key. Signatures are PKCS#1 v1.5 over SHA-256, matching the
// "RSA-SHA256" draft-cavage algorithm and MitraJcsRsaSignature2022.
type RSAPublicKey struct {
	Key *rsa.PublicKey
}

func (k *RSAPublicKey) Type() KeyType { return KeyTypeRSA }

func (k *RSAPublicKey) Verify(msg, sig []byte) bool {
	digest := sha256.Sum256(msg)
	return rsa.VerifyPKCS1v15(k.Key, crypto.SHA256, digest[:], sig) == nil
}

func (k *RSAPublicKey) der() []byte {
	der, err := x509.MarshalPKIXPublicKey(k.Key)
	if err != nil {
		// an *rsa.PublicKey always marshals; a failure here means the
		// key was constructed by hand with invalid field values.
		panic("xcrypto: invalid rsa public key: " + err.Error())
	}
	return der
}

func (k *RSAPublicKey) Multikey() string {
	return encodeMultikey(multicodecRSAPub, k.der())
}

func (k *RSAPublicKey) Fingerprint() string {
	return fingerprint(k.der())
}

// PEM encodes the public key as a PKIX "PUBLIC KEY" PEM block.
func (k *RSAPublicKey) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: k.der()})
}

// RSASecretKey is the xcrypto.SecretKey implementation backed by an RSA
// private key.
type RSASecretKey struct {
	Key *rsa.PrivateKey
}

func (k *RSASecretKey) Type() KeyType { return KeyTypeRSA }

func (k *RSASecretKey) Sign(msg []byte) ([]byte, error) {
	digest := sha256.Sum256(msg)
	return rsa.SignPKCS1v15(rand.Reader, k.Key, crypto.SHA256, digest[:])
}

func (k *RSASecretKey) Public() PublicKey {
	return &RSAPublicKey{Key: &k.Key.PublicKey}
}

// PEM encodes the private key as a PKCS#1 "RSA PRIVATE KEY" PEM block,
// the form the teacher's account storage uses.
func (k *RSASecretKey) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.Key),
	})
}

// GenerateRSAKeypair generates a fresh 2048-bit RSA keypair.
func GenerateRSAKeypair() (*RSASecretKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &RSASecretKey{Key: key}, nil
}

// ParseRSAPrivateKeyPEM parses a PEM-encoded RSA private key, accepting
// both PKCS#1 ("RSA PRIVATE KEY") and PKCS#8 ("PRIVATE KEY") framing.
func ParseRSAPrivateKeyPEM(pemBytes []byte) (*RSASecretKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, keyFormatErrorf("not a PEM block")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		parsed, err2 := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err2 != nil {
			return nil, keyFormatErrorf("invalid rsa private key: %v", err)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, keyFormatErrorf("expected rsa private key, got %T", parsed)
		}
		key = rsaKey
	}
	return &RSASecretKey{Key: key}, nil
}

func parsePKIXRSA(der []byte) (*rsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, keyFormatErrorf("expected rsa public key, got %T", parsed)
	}
	return key, nil
}

// ParseRSAPublicKeyPEM parses a PEM-encoded PKIX "PUBLIC KEY" block.
func ParseRSAPublicKeyPEM(pemBytes []byte) (*RSAPublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, keyFormatErrorf("not a PEM block")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, keyFormatErrorf("invalid rsa public key: %v", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, keyFormatErrorf("expected rsa public key, got %T", parsed)
	}
	return &RSAPublicKey{Key: key}, nil
}
