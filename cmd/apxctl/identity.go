package main

import (
	"fmt"
	"os"

	"github.com/apxfed/apx/federation"
	"github.com/apxfed/apx/internal/xcrypto"
)

// identityFromFlags builds a federation.Identity from a key ID and a
// PEM private key file, or returns the zero (anonymous) Identity when
// neither is set. Mixing one flag without the other is a usage error.
func identityFromFlags(keyID, privateKeyFile string) (federation.Identity, error) {
	if keyID == "" && privateKeyFile == "" {
		return federation.Identity{}, nil
	}
	if keyID == "" || privateKeyFile == "" {
		return federation.Identity{}, fmt.Errorf("--key-id and --private-key-file must be given together")
	}

	pemBytes, err := os.ReadFile(privateKeyFile)
	if err != nil {
		return federation.Identity{}, fmt.Errorf("read private key file: %w", err)
	}
	key, err := xcrypto.ParseRSAPrivateKeyPEM(pemBytes)
	if err != nil {
		return federation.Identity{}, fmt.Errorf("parse private key: %w", err)
	}
	return federation.Identity{KeyID: keyID, Key: key}, nil
}
