package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/apxfed/apx/federation"
)

// FetchCmd fetches and verifies a single object or actor, mirroring
// teacher's FetchActorCmd but against the federation facade instead of
// a direct activitypub.Client + gorm.DB.
type FetchCmd struct {
	URI            string `arg:"" help:"The object or actor URI to fetch."`
	Actor          bool   `help:"Fetch and validate as an actor document."`
	KeyID          string `help:"Key ID to sign the fetch with (anonymous if omitted)." name:"key-id"`
	PrivateKeyFile string `help:"PEM-encoded RSA private key file matching --key-id." name:"private-key-file"`
}

func (f *FetchCmd) Run(ctx *Context) error {
	identity, err := identityFromFlags(f.KeyID, f.PrivateKeyFile)
	if err != nil {
		return err
	}

	fed, err := federation.New(ctx.Cfg, identity)
	if err != nil {
		return fmt.Errorf("build federation: %w", err)
	}

	var result any
	if f.Actor {
		result, err = fed.FetchActor(context.Background(), f.URI)
	} else {
		result, err = fed.FetchObject(context.Background(), f.URI)
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", f.URI, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
