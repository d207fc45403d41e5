// Package federation is the SDK's external facade: it wires C1–C10
// (internal/xcrypto, internal/urlid, internal/jcs, internal/httpsig,
// internal/transport, fetcher, deliverer, webfinger, activity,
// portable) plus the store collaborator into one Config-driven
// Federation value, the way teacher's main.go/serve.go wire a
// gorm.DB, a chi router, and an m.Service together from one Context
// and per-command flags.
package federation

import (
	"log/slog"
	"net/url"
	"time"
)

// Config configures a Federation. YAML tag names are snake_case
// mirrors of the struct fields, loaded via gopkg.in/yaml.v3;
// cmd/apxctl exposes kong flag equivalents that override the same
// fields at the command line, merged the way teacher's ServeCmd merges
// its own flags into a shared *Context before calling gorm.Open.
type Config struct {
	Enabled               bool          `yaml:"enabled"`
	SSRFProtectionEnabled bool          `yaml:"ssrf_protection_enabled"`
	ProxyURL              string        `yaml:"proxy_url"`
	OnionProxyURL         string        `yaml:"onion_proxy_url"`
	I2PProxyURL           string        `yaml:"i2p_proxy_url"`
	FetcherTimeout        time.Duration `yaml:"fetcher_timeout"`
	DelivererTimeout      time.Duration `yaml:"deliverer_timeout"`
	DelivererPoolSize     int           `yaml:"deliverer_pool_size"`
	MaxResponseSize       int64         `yaml:"max_response_size"`
	MaxRedirects          int           `yaml:"max_redirects"`
	UserAgent             string        `yaml:"user_agent"`

	// Domain is this instance's own hostname, used for origin
	// validation of inbound activities (activity.ValidateOrigin) and
	// for building its own actor/inbox URLs.
	Domain string `yaml:"domain"`

	// DatabaseDSN selects the store package's gorm dialector: a
	// "sqlite://" prefix selects gorm.io/driver/sqlite, anything else
	// is handed to gorm.io/driver/mysql, mirroring teacher's
	// mysql.go/sqlite.go dialector selection.
	DatabaseDSN string `yaml:"database_dsn"`

	// ActorCacheCapacity and ActorCacheTTL configure store.ActorCache.
	ActorCacheCapacity int           `yaml:"actor_cache_capacity"`
	ActorCacheTTL      time.Duration `yaml:"actor_cache_ttl"`

	// FepEf61TrustedOrigins is the caller-supplied allowlist portable
	// object fetches consult in addition to the mandatory proof check.
	FepEf61TrustedOrigins []string `yaml:"fep_ef61_trusted_origins"`

	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig matches spec.md §6's stated defaults: 30s/10s
// timeouts, pool size 10, 2 MiB response cap, 3 redirects, SSRF
// protection on.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		SSRFProtectionEnabled: true,
		FetcherTimeout:        30 * time.Second,
		DelivererTimeout:      10 * time.Second,
		DelivererPoolSize:     10,
		MaxResponseSize:       2 * 1024 * 1024,
		MaxRedirects:          3,
		UserAgent:             "apx/1.0",
		ActorCacheCapacity:    4096,
		ActorCacheTTL:         6 * time.Hour,
		Logger:                slog.Default(),
	}
}

func parseProxyURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}
