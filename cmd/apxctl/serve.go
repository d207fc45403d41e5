package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/apxfed/apx/federation"
	"github.com/apxfed/apx/internal/httpsig"
	"github.com/apxfed/apx/internal/to"
	"github.com/apxfed/apx/internal/xcrypto"
	"github.com/apxfed/apx/webfinger"
)

// ServeCmd runs a minimal demo HTTP listener exercising the inbox and
// webfinger surfaces an ActivityPub instance exposes, generalizing
// teacher's serve.go chi router (there: the full Mastodon-compatible
// API tree) down to the two endpoints this SDK itself implements end
// to end: an inbox that verifies the sender's signature before
// accepting the activity, and a webfinger responder for this
// instance's own accounts.
type ServeCmd struct {
	Addr    string `help:"Address to listen on." default:":8443"`
	Domain  string `required:"" help:"This instance's own hostname."`
	Account string `help:"Local account name this demo instance answers webfinger queries for." default:"relay"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	cfg := ctx.Cfg
	cfg.Domain = s.Domain

	fed, err := federation.New(cfg, federation.Identity{})
	if err != nil {
		return fmt.Errorf("build federation: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/inbox", inboxHandler(fed))
	r.Post("/users/{username}/inbox", inboxHandler(fed))
	r.Get("/.well-known/webfinger", webfingerHandler(s.Domain, s.Account))

	r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "User-agent: *\nDisallow: /")
	})

	srv := &http.Server{
		Addr:         s.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return srv.ListenAndServe()
}

// inboxHandler verifies the inbound request's HTTP message signature
// against the sending actor's published key before accepting the
// activity. Key resolution goes through Federation.ResolveKey, which
// consults the actor cache and de-duplicates concurrent fetches for
// the same key id (spec.md §5); a verification failure against the
// resolved key triggers exactly one forced re-fetch via
// Federation.RefreshKey before the request is rejected, covering the
// actor-key-rotation case (spec.md S8) and "cached entry is refreshed
// on any signature-verification miss" (spec.md §9).
func inboxHandler(fed *federation.Federation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		var lastKeyID string
		resolve := func(ctx context.Context, keyID string) (xcrypto.PublicKey, error) {
			lastKeyID = keyID
			return fed.ResolveKey(ctx, keyID)
		}

		if _, err := httpsig.VerifyRequest(r.Context(), r, body, time.Now(), resolve); err != nil {
			if lastKeyID == "" {
				http.Error(w, "signature verification failed", http.StatusUnauthorized)
				return
			}
			refreshed := func(ctx context.Context, keyID string) (xcrypto.PublicKey, error) {
				return fed.RefreshKey(ctx, keyID)
			}
			if _, err := httpsig.VerifyRequest(r.Context(), r, body, time.Now(), refreshed); err != nil {
				http.Error(w, "signature verification failed", http.StatusUnauthorized)
				return
			}
		}

		var activity map[string]any
		if err := json.Unmarshal(body, &activity); err != nil {
			http.Error(w, "invalid activity payload", http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

// webfingerHandler answers WebFinger lookups for this instance's one
// demo account, the minimum a remote server needs to discover it.
func webfingerHandler(domain, account string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resource := r.URL.Query().Get("resource")
		want := "acct:" + account + "@" + domain
		if !strings.EqualFold(resource, want) {
			http.Error(w, "no such resource", http.StatusNotFound)
			return
		}

		jrd := webfinger.Jrd{
			Subject: want,
			Links: []webfinger.Link{
				{
					Rel:  "self",
					Type: "application/activity+json",
					Href: "https://" + domain + "/users/" + account,
				},
			},
		}

		w.Header().Set("Content-Type", "application/jrd+json")
		to.JSON(w, jrd)
	}
}
