package federation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apxfed/apx/activity"
	"github.com/apxfed/apx/deliverer"
	"github.com/apxfed/apx/fetcher"
	"github.com/apxfed/apx/internal/ferr"
	"github.com/apxfed/apx/internal/httpsig"
	"github.com/apxfed/apx/internal/transport"
	"github.com/apxfed/apx/internal/xcrypto"
	"github.com/apxfed/apx/store"
	"github.com/apxfed/apx/webfinger"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Identity is the actor this Federation signs outbound requests as —
// its own instance actor, or a specific local account.
type Identity struct {
	KeyID string
	Key   xcrypto.SecretKey
}

// Federation wires every SDK component behind one value: fetch, send,
// and webfinger-lookup all go through it, each call taking a
// context.Context for cancellation per spec.md §5. It generalizes
// teacher's per-command wiring in main.go/serve.go (parse flags, open
// gorm.DB, build an m.Service) into a single constructor any caller —
// CLI, HTTP handler, background worker — can share.
type Federation struct {
	cfg Config

	cavageAgent  *transport.Agent
	rfc9421Agent *transport.Agent
	anonAgent    *transport.Agent

	db         *gorm.DB
	actorCache *store.ActorCache
	reach      *store.ReachabilityStore
	queue      *store.DeliveryQueue

	deliverer *deliverer.Deliverer

	// keyFetch de-duplicates concurrent ResolveKey/RefreshKey calls for
	// the same key id down to one outbound actor fetch, per spec.md §5:
	// "Fetch requests made during signature verification are
	// de-duplicated by key id through an in-flight map so that N
	// concurrent verifications for the same unknown key result in ≤1
	// outbound fetch."
	keyFetch singleflight.Group
}

// New builds a Federation from cfg and identity. identity may be the
// zero value for an anonymous instance: its fetches, and its
// deliveries when DatabaseDSN is set, go out unsigned.
func New(cfg Config, identity Identity) (*Federation, error) {
	const op = "federation.New"

	proxyURL, err := parseProxyURL(cfg.ProxyURL)
	if err != nil {
		return nil, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("proxy_url: %w", err))
	}
	onionProxyURL, err := parseProxyURL(cfg.OnionProxyURL)
	if err != nil {
		return nil, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("onion_proxy_url: %w", err))
	}
	i2pProxyURL, err := parseProxyURL(cfg.I2PProxyURL)
	if err != nil {
		return nil, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("i2p_proxy_url: %w", err))
	}

	tcfg := transport.Config{
		UserAgent:             cfg.UserAgent,
		ProxyURL:              proxyURL,
		OnionProxyURL:         onionProxyURL,
		I2PProxyURL:           i2pProxyURL,
		FetcherTimeout:        cfg.FetcherTimeout,
		DelivererTimeout:      cfg.DelivererTimeout,
		SSRFProtectionEnabled: cfg.SSRFProtectionEnabled,
		MaxResponseSize:       cfg.MaxResponseSize,
		MaxRedirects:          cfg.MaxRedirects,
	}

	f := &Federation{cfg: cfg}
	f.anonAgent = transport.New(tcfg, nil)

	if identity.Key != nil {
		f.cavageAgent = transport.New(tcfg, cavageSigner(identity))
		f.rfc9421Agent = transport.New(tcfg, rfc9421Signer(identity))
	} else {
		f.cavageAgent = f.anonAgent
	}

	if cfg.DatabaseDSN != "" {
		db, err := openDB(cfg.DatabaseDSN)
		if err != nil {
			return nil, ferr.New(ferr.Storage, op, err)
		}
		if err := store.AutoMigrate(db); err != nil {
			return nil, ferr.New(ferr.Storage, op, err)
		}
		f.db = db
		f.actorCache = store.NewActorCache(db, cfg.ActorCacheCapacity, cfg.ActorCacheTTL)
		f.reach = store.NewReachabilityStore(db)
		f.queue = store.NewDeliveryQueue(db)

		delivererOpts := []deliverer.Option{}
		if f.rfc9421Agent != nil {
			delivererOpts = append(delivererOpts, deliverer.WithSignatureProfile(f.rfc9421Agent, f.defaultSignatureProfile))
		}
		f.deliverer = deliverer.New(f.cavageAgent, f.reach, cfg.DelivererPoolSize, delivererOpts...)
	}

	return f, nil
}

func openDB(dsn string) (*gorm.DB, error) {
	if rest, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		return gorm.Open(sqlite.Open(rest), &gorm.Config{TranslateError: true})
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
}

func cavageSigner(identity Identity) transport.Signer {
	return func(req *http.Request, body []byte) error {
		return httpsig.SignCavage(req, identity.KeyID, identity.Key, body)
	}
}

func rfc9421Signer(identity Identity) transport.Signer {
	return func(req *http.Request, body []byte) error {
		return httpsig.SignRFC9421(req, identity.KeyID, identity.Key, body, time.Now())
	}
}

// defaultSignatureProfile selects RFC-9421 for a delivery target when
// the recipient's cached actor document advertises the FEP-844e
// capability — the policy SPEC_FULL.md §9 describes as the default,
// itself overridable by a caller who builds its own deliverer.Deliverer
// with deliverer.WithSignatureProfile.
func (f *Federation) defaultSignatureProfile(target deliverer.Target) bool {
	if f.actorCache == nil {
		return false
	}
	raw, ok := f.actorCache.Get(target.Origin)
	if !ok {
		return false
	}
	return activity.SupportsRFC9421(raw)
}

// FetchObject retrieves and verifies uri, per spec.md §4.6.
func (f *Federation) FetchObject(ctx context.Context, uri string) (*fetcher.Result, error) {
	return fetcher.FetchObject(ctx, f.cavageAgent, uri, fetcher.Options{FepEf61TrustedOrigins: f.cfg.FepEf61TrustedOrigins})
}

// FetchActor retrieves and validates an actor document, caching it on
// success when a store is configured.
func (f *Federation) FetchActor(ctx context.Context, uri string) (*fetcher.Result, error) {
	result, err := fetcher.FetchActor(ctx, f.cavageAgent, uri, fetcher.Options{FepEf61TrustedOrigins: f.cfg.FepEf61TrustedOrigins})
	if err != nil {
		return nil, err
	}
	if f.actorCache != nil {
		_ = f.actorCache.Put(ctx, result.ID, result.Raw)
	}
	return result, nil
}

// ResolveKey resolves the public key named by keyID (a
// verificationMethod or publicKey.id URI, typically "<actor>#<frag>"),
// consulting the actor cache before ever fetching: a cache hit whose
// document actually contains keyID is returned with no network
// access. A cache miss, or a cached document that doesn't yet know
// about keyID — the signature-before-rotation case S8 describes —
// falls through to a fresh, de-duplicated fetch.
func (f *Federation) ResolveKey(ctx context.Context, keyID string) (xcrypto.PublicKey, error) {
	actorURL, _, _ := strings.Cut(keyID, "#")

	if f.actorCache != nil {
		if raw, ok := f.actorCache.Get(actorURL); ok {
			if key, err := activity.PublicKey(raw, keyID); err == nil {
				return key, nil
			}
		}
	}
	return f.fetchKey(ctx, actorURL, keyID)
}

// RefreshKey forces a fresh actor fetch for keyID, bypassing whatever
// is cached. Callers use this after a signature-verification miss
// against a ResolveKey-returned key, per spec.md §9: "cached entry is
// refreshed on any signature-verification miss."
func (f *Federation) RefreshKey(ctx context.Context, keyID string) (xcrypto.PublicKey, error) {
	actorURL, _, _ := strings.Cut(keyID, "#")
	if f.actorCache != nil {
		f.actorCache.Invalidate(actorURL)
	}
	return f.fetchKey(ctx, actorURL, keyID)
}

// fetchKey performs the actual actor fetch backing ResolveKey and
// RefreshKey, de-duplicated by keyID through keyFetch so that N
// concurrent callers resolving the same unknown or rotated key
// produce at most one outbound request.
func (f *Federation) fetchKey(ctx context.Context, actorURL, keyID string) (xcrypto.PublicKey, error) {
	v, err, _ := f.keyFetch.Do(keyID, func() (any, error) {
		result, err := f.FetchActor(ctx, actorURL)
		if err != nil {
			return nil, err
		}
		return activity.PublicKey(result.Raw, keyID)
	})
	if err != nil {
		return nil, err
	}
	return v.(xcrypto.PublicKey), nil
}

// SendObject serializes and delivers body to target, through the
// configured Deliverer. Returns an error if no database is configured
// (delivery needs reachability bookkeeping).
func (f *Federation) SendObject(ctx context.Context, target deliverer.Target, body any) error {
	const op = "federation.SendObject"
	if f.deliverer == nil {
		return ferr.New(ferr.Storage, op, fmt.Errorf("no database_dsn configured; delivery requires a reachability store"))
	}
	serialized, err := deliverer.SerializeActivity(body)
	if err != nil {
		return ferr.New(ferr.NetworkFatal, op, err)
	}
	return f.deliverer.SendObject(ctx, target, serialized)
}

// Webfinger resolves address to its JRD.
func (f *Federation) Webfinger(ctx context.Context, address string) (*webfinger.Jrd, error) {
	return webfinger.Lookup(ctx, f.anonAgent, address)
}

// ValidateOrigin checks an inbound activity's origin against this
// instance's own per-verb rules (activity.ValidateOrigin).
func (f *Federation) ValidateOrigin(a *activity.Activity, origin string) error {
	return activity.ValidateOrigin(f.cfg.Domain, a, origin)
}

// DB exposes the underlying *gorm.DB for callers that need direct
// access to store tables beyond this facade's own methods (e.g. to
// run their own migrations alongside store.AutoMigrate).
func (f *Federation) DB() *gorm.DB { return f.db }
