package xcrypto

import "fmt"

// KeyFormatError is returned when key material cannot be decoded: a bad
// PEM block, an unrecognised multicodec prefix, or a length that doesn't
// match the claimed curve.
type KeyFormatError struct {
	Reason string
}

func (e *KeyFormatError) Error() string {
	return fmt.Sprintf("xcrypto: key format: %s", e.Reason)
}

func keyFormatErrorf(format string, args ...any) error {
	return &KeyFormatError{Reason: fmt.Sprintf(format, args...)}
}
