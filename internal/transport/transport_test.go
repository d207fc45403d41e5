package transport_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apxfed/apx/internal/ferr"
	"github.com/apxfed/apx/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseIP(t *testing.T, s string) net.IP {
	t.Helper()
	ip := net.ParseIP(s)
	require.NotNil(t, ip)
	return ip
}

func TestGetHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write([]byte(`{"type":"Note"}`))
	}))
	defer srv.Close()

	cfg := transport.DefaultConfig()
	cfg.SSRFProtectionEnabled = false // httptest listens on loopback
	agent := transport.New(cfg, nil)

	body, resp, err := agent.Get(context.Background(), srv.URL, "application/activity+json", transport.AcceptedObjectTypes)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Note")
}

func TestGetRejectsContentTypeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	cfg := transport.DefaultConfig()
	cfg.SSRFProtectionEnabled = false // httptest listens on loopback
	agent := transport.New(cfg, nil)

	_, _, err := agent.Get(context.Background(), srv.URL, "application/activity+json", transport.AcceptedObjectTypes)
	assert.Error(t, err)
}

func TestGetStripsCharsetBeforeComparing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", `application/ld+json; charset=utf-8`)
		w.Write([]byte(`{"type":"Note"}`))
	}))
	defer srv.Close()

	cfg := transport.DefaultConfig()
	cfg.SSRFProtectionEnabled = false // httptest listens on loopback
	agent := transport.New(cfg, nil)

	_, _, err := agent.Get(context.Background(), srv.URL, "application/ld+json", transport.AcceptedObjectTypes)
	assert.NoError(t, err)
}

func TestGetRejectsOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	cfg := transport.DefaultConfig()
	cfg.MaxResponseSize = 16
	cfg.SSRFProtectionEnabled = false // httptest listens on loopback
	agent := transport.New(cfg, nil)

	_, _, err := agent.Get(context.Background(), srv.URL, "application/activity+json", transport.AcceptedObjectTypes)
	assert.Error(t, err)
}

func TestGetFollowsRedirectAndResigns(t *testing.T) {
	var finalHits, signCalls int

	var final *httptest.Server
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/landed", http.StatusFound)
	}))
	defer first.Close()

	final = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		finalHits++
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write([]byte(`{"type":"Note"}`))
	}))
	defer final.Close()

	cfg := transport.DefaultConfig()
	cfg.SSRFProtectionEnabled = false // httptest listens on loopback
	agent := transport.New(cfg, func(req *http.Request, body []byte) error {
		signCalls++
		req.Header.Set("Signature", `keyId="test"`)
		return nil
	})

	_, resp, err := agent.Get(context.Background(), first.URL, "application/activity+json", transport.AcceptedObjectTypes)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, finalHits)
	assert.Equal(t, 2, signCalls)
}

func TestSSRFBlocksLoopback(t *testing.T) {
	cfg := transport.DefaultConfig()
	agent := transport.New(cfg, nil)

	_, _, err := agent.Get(context.Background(), "http://127.0.0.1:1/unreachable", "application/activity+json", transport.AcceptedObjectTypes)
	require.Error(t, err)

	var fe *ferr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ferr.SSRFBlocked, fe.Kind)
}

func TestIsBlockedAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1": true,
		"10.1.2.3":  true,
		"192.168.1.1": true,
		"169.254.1.1": true,
		"8.8.8.8":   false,
		"1.1.1.1":   false,
	}
	for addr, want := range cases {
		ip := mustParseIP(t, addr)
		assert.Equal(t, want, transport.IsBlockedAddr(ip), addr)
	}
}
