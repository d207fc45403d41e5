package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/apxfed/apx/internal/ferr"
)

// wrapClientErr classifies an error returned by http.Client.Do. The
// net/http stack wraps transport-level errors (including the *ferr.Error
// values our own dialer returns for SSRF blocks) in a *url.Error;
// unwrapping here preserves the original Kind instead of flattening
// every Do failure to NetworkTransient.
func wrapClientErr(op string, err error) error {
	var fe *ferr.Error
	if errors.As(err, &fe) {
		return ferr.New(fe.Kind, op, fe)
	}
	return ferr.New(ferr.NetworkTransient, op, err)
}

// Signer signs an outgoing request in place, binding it to req's
// current method, URL, and headers. Agent calls it once per request it
// sends — including once per redirect hop, since the signature binds
// the target URI.
type Signer func(req *http.Request, body []byte) error

// Agent is the transport-layer client every fetch and delivery goes
// through: it resolves and dials with SSRF protection, routes through
// the configured proxy for onion/i2p/loki targets, enforces redirect
// discipline, caps response size, and gates content-type — the role
// teacher's activitypub.Client played for RSA-signed clearnet requests
// alone.
type Agent struct {
	cfg    Config
	client *http.Client
	sign   Signer
}

// New builds an Agent. sign may be nil for anonymous fetches (e.g. the
// instance actor is not yet known); Get and Post simply send unsigned
// requests in that case.
func New(cfg Config, sign Signer) *Agent {
	transport := &http.Transport{
		DialContext:     cfg.newDialContext(),
		TLSClientConfig: cfg.TLSClientConfig,
	}
	return &Agent{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.FetcherTimeout,
			// Redirects are handled by Agent.Get itself, not by the
			// http.Client, because each hop needs a fresh signature
			// over the new target URI.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		sign: sign,
	}
}

// AcceptedObjectTypes are the media types Get accepts for ActivityPub
// object/actor fetches. A charset parameter is stripped before
// comparison.
var AcceptedObjectTypes = []string{
	"application/activity+json",
	"application/ld+json",
	"application/json",
}

// AcceptedWebfingerTypes are the media types a WebFinger response must
// carry.
var AcceptedWebfingerTypes = []string{
	"application/jrd+json",
}

// Get performs a signature-authenticated GET of uri, following up to
// cfg.MaxRedirects redirects — re-checking SSRF and re-signing against
// the new target URI on each hop — and gates the final response's
// content-type against accepted.
func (a *Agent) Get(ctx context.Context, uri string, accept string, acceptedTypes []string) ([]byte, *http.Response, error) {
	const op = "transport.Get"

	current := uri
	for hop := 0; ; hop++ {
		if hop > a.cfg.MaxRedirects {
			return nil, nil, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("exceeded %d redirects", a.cfg.MaxRedirects))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, nil, ferr.New(ferr.NetworkFatal, op, err)
		}
		req.Header.Set("Accept", accept)
		if a.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", a.cfg.UserAgent)
		}
		if a.sign != nil {
			if err := a.sign(req, nil); err != nil {
				return nil, nil, ferr.New(ferr.SignatureInvalid, op, err)
			}
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return nil, nil, wrapClientErr(op, err)
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return nil, nil, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("redirect with no Location header"))
			}
			next, err := req.URL.Parse(location)
			if err != nil {
				return nil, nil, ferr.New(ferr.NetworkFatal, op, err)
			}
			current = next.String()
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, resp, ferr.New(classifyStatus(resp.StatusCode), op, fmt.Errorf("unexpected status %d", resp.StatusCode))
		}

		body, err := a.readCapped(resp)
		if err != nil {
			return nil, resp, err
		}

		if err := checkContentType(resp.Header.Get("Content-Type"), acceptedTypes); err != nil {
			return nil, resp, ferr.New(ferr.ContentTypeMismatch, op, err)
		}

		return body, resp, nil
	}
}

// Post delivers body to uri with a single signed request. Unlike Get,
// Post never follows redirects — delivery must go to the recipient's
// declared inbox, per spec.
func (a *Agent) Post(ctx context.Context, uri string, contentType string, body []byte) (*http.Response, error) {
	const op = "transport.Post"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(body))
	if err != nil {
		return nil, ferr.New(ferr.NetworkFatal, op, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))
	if a.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", a.cfg.UserAgent)
	}
	if a.sign != nil {
		if err := a.sign(req, body); err != nil {
			return nil, ferr.New(ferr.SignatureInvalid, op, err)
		}
	}

	client := *a.client
	client.Timeout = a.cfg.DelivererTimeout
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapClientErr(op, err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return resp, ferr.New(ferr.NetworkTransient, op, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return resp, ferr.New(ferr.NetworkFatal, op, fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp, nil
}

func (a *Agent) readCapped(resp *http.Response) ([]byte, error) {
	if resp.ContentLength > a.cfg.MaxResponseSize {
		return nil, ferr.New(ferr.ResponseTooLarge, "transport.readCapped", fmt.Errorf("content-length %d exceeds cap %d", resp.ContentLength, a.cfg.MaxResponseSize))
	}

	limited := io.LimitReader(resp.Body, a.cfg.MaxResponseSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, ferr.New(ferr.NetworkTransient, "transport.readCapped", err)
	}
	if int64(len(data)) > a.cfg.MaxResponseSize {
		return nil, ferr.New(ferr.ResponseTooLarge, "transport.readCapped", fmt.Errorf("response exceeded %d bytes", a.cfg.MaxResponseSize))
	}
	return data, nil
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func classifyStatus(status int) ferr.ErrorKind {
	switch {
	case status == http.StatusGone:
		return ferr.NetworkFatal
	case status >= 500, status == http.StatusTooManyRequests:
		return ferr.NetworkTransient
	default:
		return ferr.NetworkFatal
	}
}

// checkContentType strips a charset parameter (and any other
// parameters) before comparing against accepted; a missing
// Content-Type header is itself a mismatch.
func checkContentType(header string, accepted []string) error {
	if header == "" {
		return fmt.Errorf("transport: missing Content-Type header")
	}
	base, _, err := mime.ParseMediaType(header)
	if err != nil {
		base = strings.TrimSpace(strings.SplitN(header, ";", 2)[0])
	}
	for _, a := range accepted {
		if strings.EqualFold(base, a) {
			return nil
		}
	}
	return fmt.Errorf("transport: unexpected content-type %q", header)
}
