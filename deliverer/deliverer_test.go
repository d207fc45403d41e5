package deliverer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apxfed/apx/deliverer"
	"github.com/apxfed/apx/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReachability struct {
	suppressed map[string]bool
	successes  int32
	failures   int32
	unreach    int32
}

func newFakeReachability() *fakeReachability {
	return &fakeReachability{suppressed: map[string]bool{}}
}

func (f *fakeReachability) IsSuppressed(ctx context.Context, origin string) (bool, error) {
	return f.suppressed[origin], nil
}
func (f *fakeReachability) MarkSuccess(ctx context.Context, origin string) error {
	atomic.AddInt32(&f.successes, 1)
	return nil
}
func (f *fakeReachability) MarkFailure(ctx context.Context, origin string, unreachable bool) error {
	atomic.AddInt32(&f.failures, 1)
	if unreachable {
		atomic.AddInt32(&f.unreach, 1)
	}
	return nil
}

func noopSleep(ctx context.Context, d time.Duration) error { return nil }

// loopbackConfig is DefaultConfig with SSRF protection off, since the
// httptest servers these tests deliver to listen on loopback.
func loopbackConfig() transport.Config {
	cfg := transport.DefaultConfig()
	cfg.SSRFProtectionEnabled = false
	return cfg
}

func TestSendObjectSucceedsOnFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	agent := transport.New(loopbackConfig(), nil)
	reach := newFakeReachability()
	d := deliverer.New(agent, reach, 10, deliverer.WithClock(time.Now, noopSleep))

	err := d.SendObject(context.Background(), deliverer.Target{Inbox: srv.URL, Origin: "https://recipient.example"}, []byte(`{}`))
	require.NoError(t, err)
	assert.EqualValues(t, 1, reach.successes)
}

func TestSendObjectRetriesTransientThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	agent := transport.New(loopbackConfig(), nil)
	reach := newFakeReachability()
	d := deliverer.New(agent, reach, 10, deliverer.WithClock(time.Now, noopSleep))

	err := d.SendObject(context.Background(), deliverer.Target{Inbox: srv.URL, Origin: "https://recipient.example"}, []byte(`{}`))
	require.NoError(t, err)
	assert.EqualValues(t, 3, hits)
	assert.EqualValues(t, 1, reach.successes)
}

func TestSendObjectDoesNotRetryFatalStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	agent := transport.New(loopbackConfig(), nil)
	reach := newFakeReachability()
	d := deliverer.New(agent, reach, 10, deliverer.WithClock(time.Now, noopSleep))

	err := d.SendObject(context.Background(), deliverer.Target{Inbox: srv.URL, Origin: "https://recipient.example"}, []byte(`{}`))
	require.Error(t, err)
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, reach.failures)
	assert.EqualValues(t, 0, reach.unreach)
}

func TestSendObjectMarksUnreachableAfterMaxElapsed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	start := time.Now()
	calls := 0
	fakeNow := func() time.Time {
		calls++
		// Jump straight past MaxElapsed on the second read (the first
		// is the start-time read) so the retry loop marks unreachable
		// without real sleeping or hundreds of simulated attempts.
		if calls > 1 {
			return start.Add(73 * time.Hour)
		}
		return start
	}

	agent := transport.New(loopbackConfig(), nil)
	reach := newFakeReachability()
	d := deliverer.New(agent, reach, 10, deliverer.WithClock(fakeNow, noopSleep))

	err := d.SendObject(context.Background(), deliverer.Target{Inbox: srv.URL, Origin: "https://recipient.example"}, []byte(`{}`))
	require.Error(t, err)
	assert.EqualValues(t, 1, reach.unreach)
}

func TestSendObjectSkipsSuppressedTarget(t *testing.T) {
	agent := transport.New(transport.DefaultConfig(), nil)
	reach := newFakeReachability()
	reach.suppressed["https://recipient.example"] = true
	d := deliverer.New(agent, reach, 10, deliverer.WithClock(time.Now, noopSleep))

	err := d.SendObject(context.Background(), deliverer.Target{Inbox: "http://unused.invalid", Origin: "https://recipient.example"}, []byte(`{}`))
	require.Error(t, err)
}

func TestDeliverAllRunsOnionTargetsSerially(t *testing.T) {
	var concurrent int32
	var maxConcurrent int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			old := atomic.LoadInt32(&maxConcurrent)
			if n <= old || atomic.CompareAndSwapInt32(&maxConcurrent, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	agent := transport.New(loopbackConfig(), nil)
	reach := newFakeReachability()
	d := deliverer.New(agent, reach, 10, deliverer.WithClock(time.Now, noopSleep))

	targets := []deliverer.Target{
		{Inbox: srv.URL, Origin: "https://a.example", Onion: true},
		{Inbox: srv.URL, Origin: "https://b.example", Onion: true},
		{Inbox: srv.URL, Origin: "https://c.example", Onion: true},
	}
	outcomes := d.DeliverAll(context.Background(), targets, []byte(`{}`))
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
	}
	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxConcurrent)), 1)
}

func TestSendObjectUsesRFC9421AgentWhenProfileSelectsIt(t *testing.T) {
	var sawSignatureInput int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Signature-Input") != "" {
			atomic.AddInt32(&sawSignatureInput, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cavageAgent := transport.New(loopbackConfig(), nil)
	rfc9421Agent := transport.New(loopbackConfig(), func(req *http.Request, body []byte) error {
		req.Header.Set("Signature-Input", "sig1=()")
		req.Header.Set("Signature", "sig1=::")
		return nil
	})
	reach := newFakeReachability()
	alwaysRFC9421 := func(target deliverer.Target) bool { return true }

	d := deliverer.New(cavageAgent, reach, 10,
		deliverer.WithClock(time.Now, noopSleep),
		deliverer.WithSignatureProfile(rfc9421Agent, alwaysRFC9421))

	err := d.SendObject(context.Background(), deliverer.Target{Inbox: srv.URL, Origin: "https://recipient.example"}, []byte(`{}`))
	require.NoError(t, err)
	assert.EqualValues(t, 1, sawSignatureInput)
}

func TestSerializeActivitySortsKeys(t *testing.T) {
	body, err := deliverer.SerializeActivity(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, string(body))
}
