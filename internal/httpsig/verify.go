package httpsig

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apxfed/apx/internal/xcrypto"
)

// VerifiedBy reports which verification method authorized a request
// and which wire format it arrived in.
type VerifiedBy struct {
	KeyID  string
	Format string // "draft-cavage" or "rfc-9421"
}

// KeyResolver resolves a keyId/verificationMethod URI to the public
// key that should verify a signature naming it.
type KeyResolver func(ctx context.Context, keyID string) (xcrypto.PublicKey, error)

// VerifyRequest verifies req's HTTP message signature by dispatching
// on which wire format is present. A Signature-Input header always
// means RFC-9421, since draft-cavage has no such header — the two
// schemes disagree about what "Signature" itself contains, so the
// presence of Signature-Input is the only reliable discriminator.
func VerifyRequest(ctx context.Context, req *http.Request, body []byte, now time.Time, resolve KeyResolver) (*VerifiedBy, error) {
	switch {
	case req.Header.Get("Signature-Input") != "":
		parsed, err := ParseRFC9421SignatureInput(req)
		if err != nil {
			return nil, err
		}
		key, err := resolve(ctx, parsed.KeyID)
		if err != nil {
			return nil, err
		}
		if _, err := VerifyRFC9421(req, body, key, now); err != nil {
			return nil, err
		}
		return &VerifiedBy{KeyID: parsed.KeyID, Format: "rfc-9421"}, nil

	case req.Header.Get("Signature") != "":
		parsed, err := ParseCavageSignature(req)
		if err != nil {
			return nil, err
		}
		key, err := resolve(ctx, parsed.KeyID)
		if err != nil {
			return nil, err
		}
		if _, err := VerifyCavage(req, body, key, now); err != nil {
			return nil, err
		}
		return &VerifiedBy{KeyID: parsed.KeyID, Format: "draft-cavage"}, nil

	default:
		return nil, fmt.Errorf("httpsig: no Signature or Signature-Input header present")
	}
}
