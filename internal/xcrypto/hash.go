package xcrypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Sha256 returns the SHA-256 digest of data.
func Sha256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// Sha512 returns the SHA-512 digest of data.
func Sha512(data []byte) [64]byte {
	return sha512.Sum512(data)
}

// Keccak256 returns the Keccak-256 digest of data, the hash used by
// MitraJcsEip191Signature2022 and EIP-191 signing in general. This is
// the original Keccak padding, not NIST SHA3-256.
func Keccak256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Eip191Hash returns the digest EIP-191 personal-sign signs: Keccak-256 of
// the standard "\x19Ethereum Signed Message:\n<len>" prefix concatenated
// with the message.
func Eip191Hash(msg []byte) [32]byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))
	return Keccak256(append([]byte(prefix), msg...))
}
