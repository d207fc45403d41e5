package xcrypto

import (
	"github.com/mr-tron/base58"
)

// Multicodec prefixes from the multiformats table, encoded as unsigned
// varints. All three happen to fit in two bytes, which is all this package
// needs.
var (
	multicodecEd25519Pub   = []byte{0xed, 0x01}
	multicodecRSAPub       = []byte{0x85, 0x24}
	multicodecSecp256k1Pub = []byte{0xe7, 0x01}
)

const multibaseBase58btc = 'z'

func encodeMultikey(codec, key []byte) string {
	buf := make([]byte, 0, len(codec)+len(key))
	buf = append(buf, codec...)
	buf = append(buf, key...)
	return string(multibaseBase58btc) + base58.Encode(buf)
}

// DecodeMultikey decodes a "z..." multibase/multicodec-prefixed public
// key into the concrete PublicKey it names. It fails with KeyFormatError
// when the multibase prefix, multicodec prefix, or key length don't
// line up with a supported key family.
func DecodeMultikey(s string) (PublicKey, error) {
	if len(s) == 0 || s[0] != multibaseBase58btc {
		return nil, keyFormatErrorf("unsupported multibase prefix")
	}
	raw, err := base58.Decode(s[1:])
	if err != nil {
		return nil, keyFormatErrorf("invalid base58btc: %v", err)
	}
	switch {
	case hasPrefix(raw, multicodecEd25519Pub):
		key := raw[len(multicodecEd25519Pub):]
		if len(key) != 32 {
			return nil, keyFormatErrorf("ed25519 key must be 32 bytes, got %d", len(key))
		}
		return &Ed25519PublicKey{Key: append([]byte(nil), key...)}, nil
	case hasPrefix(raw, multicodecRSAPub):
		pub, err := parsePKIXFromBytes(raw[len(multicodecRSAPub):])
		if err != nil {
			return nil, keyFormatErrorf("invalid rsa multikey: %v", err)
		}
		return pub, nil
	case hasPrefix(raw, multicodecSecp256k1Pub):
		pub, err := ParseSecp256k1PublicKey(raw[len(multicodecSecp256k1Pub):])
		if err != nil {
			return nil, keyFormatErrorf("invalid secp256k1 multikey: %v", err)
		}
		return pub, nil
	default:
		return nil, keyFormatErrorf("unrecognised multicodec prefix")
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if b[i] != p {
			return false
		}
	}
	return true
}

func parsePKIXFromBytes(der []byte) (*RSAPublicKey, error) {
	key, err := parsePKIXRSA(der)
	if err != nil {
		return nil, err
	}
	return &RSAPublicKey{Key: key}, nil
}
