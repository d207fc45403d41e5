package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/apxfed/apx/federation"
)

// WebfingerCmd resolves an acct: address (or instance base URL) to its
// JRD. WebFinger lookups never need to be signed, so it always builds
// an anonymous Federation.
type WebfingerCmd struct {
	Address string `arg:"" help:"The acct: address or instance URL to resolve."`
}

func (w *WebfingerCmd) Run(ctx *Context) error {
	fed, err := federation.New(ctx.Cfg, federation.Identity{})
	if err != nil {
		return fmt.Errorf("build federation: %w", err)
	}

	jrd, err := fed.Webfinger(context.Background(), w.Address)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.Address, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(jrd)
}
