// Package deliverer implements signed outbound delivery of activities:
// SendObject generalizes teacher's activitypub.Client.Post (digest +
// sign + send) with the retry ladder and reachability bookkeeping
// teacher's workers.process[T] applies to arbitrary gorm-backed retry
// queues, adapted here to this module's own delivery targets.
package deliverer

import (
	"context"
	"errors"
	"time"

	"github.com/apxfed/apx/internal/ferr"
	"github.com/apxfed/apx/internal/jcs"
	"github.com/apxfed/apx/internal/transport"
	"golang.org/x/sync/errgroup"
)

const contentType = `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`

// Target is one delivery destination.
type Target struct {
	Inbox  string
	Origin string // actor origin; used for reachability bookkeeping
	Onion  bool
}

// Reachability tracks per-actor delivery success/failure, per spec's
// ReachabilityRecord: suppressed actors are skipped outright,
// successful deliveries reset consecutive_failures.
type Reachability interface {
	IsSuppressed(ctx context.Context, origin string) (bool, error)
	MarkSuccess(ctx context.Context, origin string) error
	MarkFailure(ctx context.Context, origin string, unreachable bool) error
}

// Outcome is the per-target result of a DeliverAll call.
type Outcome struct {
	Target Target
	Err    error
}

// SignatureProfile decides, per delivery target, whether the RFC-9421
// agent should be used instead of the default draft-cavage one. Per
// spec.md §9's discussion of FEP-844e signaling, this is deliberately
// pluggable rather than hard-coded: the default federation-package
// wiring bases it on a recipient actor's advertised "implements"
// capability URIs, but any caller can substitute its own policy (or
// none, to always sign draft-cavage).
type SignatureProfile func(target Target) bool

// Deliverer sends serialized activities to recipient inboxes through
// agent, retrying transient failures per backoff and bounding
// concurrency to poolSize — except onion targets, which always
// serialize to a single worker to avoid Tor circuit contention.
type Deliverer struct {
	agent        *transport.Agent
	rfc9421Agent *transport.Agent
	profile      SignatureProfile
	backoff      Backoff
	poolSize     int
	reachability Reachability
	sleep        func(context.Context, time.Duration) error
	now          func() time.Time
}

// Option configures a Deliverer at construction.
type Option func(*Deliverer)

// WithClock overrides the time source and sleep function — tests use
// this to drive the retry ladder without real wall-clock delays.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(d *Deliverer) {
		d.now = now
		d.sleep = sleep
	}
}

// WithBackoff overrides the retry ladder.
func WithBackoff(b Backoff) Option {
	return func(d *Deliverer) { d.backoff = b }
}

// WithSignatureProfile equips the Deliverer with a second agent signed
// for RFC-9421 and a selector deciding, per target, which agent to
// use. Without this option every delivery signs draft-cavage.
func WithSignatureProfile(rfc9421Agent *transport.Agent, profile SignatureProfile) Option {
	return func(d *Deliverer) {
		d.rfc9421Agent = rfc9421Agent
		d.profile = profile
	}
}

// New builds a Deliverer. poolSize bounds general-target concurrency;
// onion targets always run one at a time regardless of poolSize.
func New(agent *transport.Agent, reachability Reachability, poolSize int, opts ...Option) *Deliverer {
	if poolSize <= 0 {
		poolSize = 10
	}
	d := &Deliverer{
		agent:        agent,
		backoff:      DefaultBackoff,
		poolSize:     poolSize,
		reachability: reachability,
		sleep:        ctxSleep,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// agentFor picks the RFC-9421 agent when the Deliverer has one and its
// profile selects it for target, otherwise the default draft-cavage agent.
func (d *Deliverer) agentFor(target Target) *transport.Agent {
	if d.rfc9421Agent != nil && d.profile != nil && d.profile(target) {
		return d.rfc9421Agent
	}
	return d.agent
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SerializeActivity renders an activity document with compact,
// deterministically ordered keys for on-the-wire stability — reusing
// JCS's key ordering rather than inventing a second canonicalization
// rule, even though delivery doesn't require cryptographic canonical
// form the way proof signing does.
func SerializeActivity(doc any) ([]byte, error) {
	return jcs.Canonicalize(doc)
}

// sendOnce performs a single signed POST attempt, with no retry logic.
func (d *Deliverer) sendOnce(ctx context.Context, target Target, body []byte) error {
	resp, err := d.agentFor(target).Post(ctx, target.Inbox, contentType, body)
	if resp != nil {
		resp.Body.Close()
	}
	return err
}

// SendObject delivers body to target, retrying transient failures per
// the backoff ladder until success, a fatal failure, or MaxElapsed is
// reached — at which point the target is marked unreachable. Before
// the first attempt it checks Reachability.IsSuppressed and returns a
// NetworkFatal error without sending while the origin is suppressed.
func (d *Deliverer) SendObject(ctx context.Context, target Target, body []byte) error {
	const op = "deliverer.SendObject"

	if d.reachability != nil {
		suppressed, err := d.reachability.IsSuppressed(ctx, target.Origin)
		if err != nil {
			return ferr.New(ferr.Storage, op, err)
		}
		if suppressed {
			return ferr.New(ferr.NetworkFatal, op, errSuppressed{origin: target.Origin})
		}
	}

	start := d.now()
	for attempt := 0; ; attempt++ {
		err := d.sendOnce(ctx, target, body)
		if err == nil {
			if d.reachability != nil {
				_ = d.reachability.MarkSuccess(ctx, target.Origin)
			}
			return nil
		}

		var fe *ferr.Error
		if !errors.As(err, &fe) || !fe.Kind.Retryable() {
			if d.reachability != nil {
				_ = d.reachability.MarkFailure(ctx, target.Origin, false)
			}
			return err
		}

		elapsed := d.now().Sub(start)
		if d.backoff.Exhausted(elapsed) {
			if d.reachability != nil {
				_ = d.reachability.MarkFailure(ctx, target.Origin, true)
			}
			return err
		}

		if sleepErr := d.sleep(ctx, d.backoff.Interval(attempt)); sleepErr != nil {
			return sleepErr
		}
	}
}

// DeliverAll fans SendObject out across targets, bounding general
// concurrency to poolSize via errgroup and serializing onion targets
// onto a single worker.
func (d *Deliverer) DeliverAll(ctx context.Context, targets []Target, body []byte) []Outcome {
	outcomes := make([]Outcome, len(targets))

	general, gctx := errgroup.WithContext(ctx)
	general.SetLimit(d.poolSize)

	onion, octx := errgroup.WithContext(ctx)
	onion.SetLimit(1)

	for i, target := range targets {
		i, target := i, target
		if target.Onion {
			onion.Go(func() error {
				outcomes[i] = Outcome{Target: target, Err: d.SendObject(octx, target, body)}
				return nil
			})
			continue
		}
		general.Go(func() error {
			outcomes[i] = Outcome{Target: target, Err: d.SendObject(gctx, target, body)}
			return nil
		})
	}

	_ = general.Wait()
	_ = onion.Wait()

	return outcomes
}

type errSuppressed struct{ origin string }

func (e errSuppressed) Error() string {
	return "deliverer: delivery to " + e.origin + " is suppressed"
}
