// Command apxctl exercises the federation SDK from the command line:
// fetching an object or actor, sending a signed activity to an inbox,
// resolving a WebFinger address, generating a keypair, and serving a
// minimal demo inbox/webfinger listener. It generalizes teacher's
// main.go cli struct (kong, cmd:"" subcommands sharing one global
// Context) to this module's own subcommands.
package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/apxfed/apx/federation"
)

// Context is the shared state every subcommand's Run method receives,
// mirroring teacher's main.go Context (there: Debug + gorm.Config).
type Context struct {
	Debug bool
	Cfg   federation.Config
}

var cli struct {
	Debug      bool   `help:"Enable debug logging."`
	ConfigFile string `help:"Path to a YAML config file." name:"config"`

	Domain            string        `help:"This instance's own hostname." default:""`
	DatabaseDSN       string        `help:"Store DSN; sqlite:// prefix selects sqlite, else mysql." name:"database-dsn"`
	ProxyURL          string        `help:"Clearnet proxy URL." name:"proxy-url"`
	OnionProxyURL     string        `help:"Tor proxy URL for .onion targets." name:"onion-proxy-url"`
	I2PProxyURL       string        `help:"I2P/Lokinet proxy URL." name:"i2p-proxy-url"`
	FetcherTimeout    time.Duration `help:"Per-fetch timeout." default:"30s" name:"fetcher-timeout"`
	DelivererTimeout  time.Duration `help:"Per-delivery timeout." default:"10s" name:"deliverer-timeout"`
	DelivererPoolSize int           `help:"Bounded delivery concurrency." default:"10" name:"deliverer-pool-size"`

	Fetch     FetchCmd     `cmd:"" help:"Fetch and verify an object or actor."`
	Deliver   DeliverCmd   `cmd:"" help:"Sign and deliver an activity to an inbox."`
	Webfinger WebfingerCmd `cmd:"" help:"Resolve an acct: address via WebFinger."`
	Keygen    KeygenCmd    `cmd:"" help:"Generate a signing keypair."`
	Serve     ServeCmd     `cmd:"" help:"Run a minimal demo inbox/webfinger listener."`
}

func main() {
	kctx := kong.Parse(&cli)

	cfg := federation.DefaultConfig()
	if cli.ConfigFile != "" {
		if err := loadConfigFile(cli.ConfigFile, &cfg); err != nil {
			kctx.FatalIfErrorf(err)
		}
	}
	applyFlags(&cfg)

	level := slog.LevelInfo
	if cli.Debug {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := kctx.Run(&Context{Debug: cli.Debug, Cfg: cfg})
	kctx.FatalIfErrorf(err)
}

func applyFlags(cfg *federation.Config) {
	if cli.Domain != "" {
		cfg.Domain = cli.Domain
	}
	if cli.DatabaseDSN != "" {
		cfg.DatabaseDSN = cli.DatabaseDSN
	}
	if cli.ProxyURL != "" {
		cfg.ProxyURL = cli.ProxyURL
	}
	if cli.OnionProxyURL != "" {
		cfg.OnionProxyURL = cli.OnionProxyURL
	}
	if cli.I2PProxyURL != "" {
		cfg.I2PProxyURL = cli.I2PProxyURL
	}
	cfg.FetcherTimeout = cli.FetcherTimeout
	cfg.DelivererTimeout = cli.DelivererTimeout
	cfg.DelivererPoolSize = cli.DelivererPoolSize
}

func loadConfigFile(path string, cfg *federation.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
