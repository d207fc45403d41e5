package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/apxfed/apx/deliverer"
	"github.com/apxfed/apx/federation"
)

// DeliverCmd signs and delivers a single activity to one inbox,
// generalizing teacher's FetchActorCmd's "sign as an account" pattern
// to the delivery side, through the configured Deliverer (its retry
// ladder and reachability bookkeeping) instead of a direct POST; the
// DeliveryQueue is not used.
type DeliverCmd struct {
	Inbox          string `required:"" help:"The recipient inbox URL."`
	Origin         string `required:"" help:"The recipient's origin, for reachability tracking."`
	ActivityFile   string `required:"" help:"Path to the JSON-LD activity document to deliver." name:"activity-file"`
	KeyID          string `required:"" help:"Key ID to sign the delivery with." name:"key-id"`
	PrivateKeyFile string `required:"" help:"PEM-encoded RSA private key file matching --key-id." name:"private-key-file"`
}

func (d *DeliverCmd) Run(ctx *Context) error {
	identity, err := identityFromFlags(d.KeyID, d.PrivateKeyFile)
	if err != nil {
		return err
	}
	if identity.Key == nil {
		return fmt.Errorf("delivery requires --key-id and --private-key-file")
	}

	raw, err := os.ReadFile(d.ActivityFile)
	if err != nil {
		return fmt.Errorf("read activity file: %w", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return fmt.Errorf("parse activity file: %w", err)
	}

	fed, err := federation.New(ctx.Cfg, identity)
	if err != nil {
		return fmt.Errorf("build federation: %w", err)
	}

	target := deliverer.Target{Inbox: d.Inbox, Origin: d.Origin}
	if err := fed.SendObject(context.Background(), target, body); err != nil {
		return fmt.Errorf("deliver to %s: %w", d.Inbox, err)
	}
	fmt.Fprintf(os.Stderr, "delivered to %s\n", d.Inbox)
	return nil
}
