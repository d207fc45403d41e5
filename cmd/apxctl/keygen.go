package main

import (
	"fmt"
	"os"

	"github.com/apxfed/apx/internal/xcrypto"
)

// KeygenCmd generates a signing keypair, generalizing teacher's
// createaccount.go generateRSAKeypair helper into its own subcommand
// and extending it to Ed25519, the key family FEP-ef61 portable actors
// use. The private key is written to disk; the public key's multikey
// form (the shape a publicKey.publicKeyMultibase property expects) is
// printed to stdout.
type KeygenCmd struct {
	Type string `help:"Key family: rsa or ed25519." enum:"rsa,ed25519" default:"ed25519"`
	Out  string `required:"" help:"Path to write the private key to (PEM for rsa, hex-encoded for ed25519)."`
}

func (k *KeygenCmd) Run(ctx *Context) error {
	switch k.Type {
	case "rsa":
		key, err := xcrypto.GenerateRSAKeypair()
		if err != nil {
			return fmt.Errorf("generate rsa keypair: %w", err)
		}
		if err := os.WriteFile(k.Out, key.PEM(), 0o600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}
		fmt.Printf("multikey: %s\nfingerprint: %s\n", key.Public().Multikey(), key.Public().Fingerprint())
		return nil
	case "ed25519":
		key, err := xcrypto.GenerateEd25519Keypair()
		if err != nil {
			return fmt.Errorf("generate ed25519 keypair: %w", err)
		}
		if err := os.WriteFile(k.Out, []byte(fmt.Sprintf("%x\n", key.Key)), 0o600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}
		fmt.Printf("multikey: %s\nfingerprint: %s\n", key.Public().Multikey(), key.Public().Fingerprint())
		return nil
	default:
		return fmt.Errorf("unknown key type %q", k.Type)
	}
}
