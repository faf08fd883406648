// Package poller keeps a list snapshot in step with a remote resource by
// fetching it on a fixed interval.
//
// A Poller runs at most one fetch at a time. Timer ticks that arrive while
// a fetch is running are skipped. Manual refreshes are never lost: one that
// arrives mid-fetch is coalesced into a single follow-up fetch. Every
// successful fetch replaces the snapshot wholesale.
package poller

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default poller settings.
const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 20 * time.Second
)

// ErrStarted is returned by Start on a poller that was already started.
var ErrStarted = errors.New("poller: already started")

// FetchFunc retrieves the full list. It must honor ctx cancellation.
type FetchFunc[T any] func(ctx context.Context) ([]T, error)

// Options configures a Poller.
type Options[T any] struct {
	Interval time.Duration // defaults to DefaultInterval
	Timeout  time.Duration // per-fetch bound; defaults to DefaultTimeout

	// OnUpdate receives a copy of each new snapshot. It is skipped when
	// Equal reports the list unchanged.
	OnUpdate func(snapshot []T)
	// OnError receives fetch failures. The previous snapshot is kept.
	OnError func(err error)
	// Equal compares the old and new list. Nil means every successful
	// fetch is reported.
	Equal func(old, new []T) bool

	Logger *zap.Logger
}

// Stats counts poller activity since Start.
type Stats struct {
	Fetches      int // fetches started
	SkippedTicks int // ticks dropped because a fetch was running
	Coalesced    int // refreshes folded into a pending follow-up
	Errors       int // failed fetches
}

// Poller periodically fetches a list and reconciles it into a snapshot.
type Poller[T any] struct {
	fetch FetchFunc[T]
	opts  Options[T]
	log   *zap.Logger

	mu       sync.Mutex
	started  bool
	stopped  bool
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	inFlight bool
	pending  bool
	snapshot []T
	seeded   bool
	stats    Stats
}

// New creates a Poller. Call Start to begin polling.
func New[T any](fetch FetchFunc[T], opts Options[T]) (*Poller[T], error) {
	if fetch == nil {
		return nil, fmt.Errorf("poller: fetch func is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller[T]{fetch: fetch, opts: opts, log: log}, nil
}

// Start fetches once immediately and then once per interval until ctx is
// cancelled or Stop is called. A stopped poller cannot be restarted.
func (p *Poller[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrStarted
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	go p.loop()
	return nil
}

func (p *Poller[T]) loop() {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	defer p.Stop()

	p.trigger(false)
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.trigger(false)
		}
	}
}

// Refresh requests an immediate fetch outside the timer cadence. The ticker
// keeps its phase. If a fetch is running, one follow-up fetch is queued.
// Refresh is a no-op before Start and after Stop.
func (p *Poller[T]) Refresh() {
	p.trigger(true)
}

// trigger starts a fetch unless one is running. manual marks a Refresh,
// which is queued rather than dropped.
func (p *Poller[T]) trigger(manual bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started || p.stopped {
		return
	}
	if p.inFlight {
		if manual {
			if p.pending {
				p.stats.Coalesced++
			}
			p.pending = true
		} else {
			p.stats.SkippedTicks++
			p.log.Debug("poll tick skipped, fetch in flight")
		}
		return
	}
	p.inFlight = true
	go p.run(p.ctx, p.gen)
}

// run performs a fetch and any follow-up fetches queued while it ran.
func (p *Poller[T]) run(ctx context.Context, gen uint64) {
	for {
		p.mu.Lock()
		p.stats.Fetches++
		p.mu.Unlock()

		fctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
		items, err := p.fetch(fctx)
		cancel()

		if !p.reconcile(gen, items, err) {
			return
		}
	}
}

// reconcile applies one fetch result and reports whether a follow-up fetch
// should run.
func (p *Poller[T]) reconcile(gen uint64, items []T, err error) bool {
	p.mu.Lock()
	if gen != p.gen || p.stopped {
		// Stale response from before Stop.
		p.mu.Unlock()
		return false
	}

	var (
		update  []T
		changed bool
	)
	if err != nil {
		p.stats.Errors++
	} else {
		old := p.snapshot
		p.snapshot = clone(items)
		changed = !p.seeded || p.opts.Equal == nil || !p.opts.Equal(old, p.snapshot)
		p.seeded = true
		if changed {
			update = clone(p.snapshot)
		}
	}
	again := p.pending
	p.pending = false
	p.inFlight = again
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("poll failed", zap.Error(err))
		if p.opts.OnError != nil {
			p.opts.OnError(err)
		}
	} else if changed && p.opts.OnUpdate != nil {
		p.opts.OnUpdate(update)
	}
	return again
}

// Stop cancels the timer and any in-flight fetch. Results that arrive
// afterwards are discarded, so no callback starts once Stop has returned.
// A callback already running may still finish after Stop; Stop does not wait
// for it. Stop is idempotent and safe to call from a callback.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.gen++
	p.inFlight = false
	p.pending = false
	if p.cancel != nil {
		p.cancel()
	}
}

// Snapshot returns a copy of the last successfully fetched list.
func (p *Poller[T]) Snapshot() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clone(p.snapshot)
}

// InFlight reports whether a fetch is running.
func (p *Poller[T]) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Stats returns activity counters.
func (p *Poller[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// DeepEqual is an Equal func based on reflect.DeepEqual.
func DeepEqual[T any](old, new []T) bool {
	return reflect.DeepEqual(old, new)
}

func clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
