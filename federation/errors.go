package federation

import "github.com/apxfed/apx/internal/ferr"

// ErrorKind re-exports internal/ferr's taxonomy under the federation
// package's own name, per spec.md §7, so callers never need to import
// an internal package to type-switch on a returned error's kind.
type ErrorKind = ferr.ErrorKind

const (
	ErrNetworkTransient     = ferr.NetworkTransient
	ErrNetworkFatal         = ferr.NetworkFatal
	ErrSSRFBlocked          = ferr.SSRFBlocked
	ErrSignatureInvalid     = ferr.SignatureInvalid
	ErrProofInvalid         = ferr.ProofInvalid
	ErrContentTypeMismatch  = ferr.ContentTypeMismatch
	ErrResponseTooLarge     = ferr.ResponseTooLarge
	ErrTypeConfusion        = ferr.TypeConfusion
	ErrActorUnresolvable    = ferr.ActorUnresolvable
	ErrStorage              = ferr.Storage
)

// Error is the typed error every Federation operation returns on
// failure.
type Error = ferr.Error
