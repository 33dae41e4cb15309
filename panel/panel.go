// Package panel implements a periodic data panel: it owns one external data source, fetches it on a timer, caches
// the transformed result for a freshness window and exposes it in one of three render states, loading, error or
// ready.
//
// Every fetch cycle carries a sequence number. A cycle's result, both the state transition and the cache write, is
// applied only if no newer cycle has started since, otherwise it is discarded on arrival. After Stop returns no
// transition happens, whatever the state of the cycles in flight.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/store"
)

// Errors returned.
var (
	ErrConfig  = errors.New("invalid panel configuration")
	ErrStarted = errors.New("panel already started")
	ErrStopped = errors.New("panel is stopped")
)

// Config is the configuration of a panel, immutable for its lifetime.
type Config[T any] struct {
	SourceID        string
	Endpoint        fetch.Endpoint
	RefreshInterval time.Duration
	FreshnessWindow time.Duration
	// Timeout bounds a fetch cycle, 0 leaves it to the endpoint's client.
	Timeout   time.Duration
	Transform func(raw []byte) (T, error)
}

func (c Config[T]) validate() error {
	switch {
	case c.SourceID == "":
		return fmt.Errorf("%w: empty source id", ErrConfig)
	case c.Endpoint == nil:
		return fmt.Errorf("%w: %s has no endpoint", ErrConfig, c.SourceID)
	case c.Transform == nil:
		return fmt.Errorf("%w: %s has no transform", ErrConfig, c.SourceID)
	case c.RefreshInterval <= 0:
		return fmt.Errorf("%w: %s refresh interval must be positive", ErrConfig, c.SourceID)
	case c.FreshnessWindow <= 0:
		return fmt.Errorf("%w: %s freshness window must be positive", ErrConfig, c.SourceID)
	case c.Timeout < 0:
		return fmt.Errorf("%w: %s timeout is negative", ErrConfig, c.SourceID)
	}

	return nil
}

// Runner is the type independent side of a panel, what a dashboard needs to drive it.
type Runner interface {
	ID() string
	Start(ctx context.Context) error
	Stop()
}

// Panel implements a periodic data panel for data of type T.
type Panel[T any] struct {
	cfg     Config[T]
	cache   store.Cache
	clk     clock.Clock
	render  []func(State[T])
	metrics Metrics
	tracer  trace.Tracer

	mu      sync.Mutex
	state   State[T]
	seq     uint64             // last started cycle
	cancel  context.CancelFunc // cancels the last started cycle
	ctx     context.Context    // parent of every cycle, done on Stop
	stop    context.CancelFunc
	started bool
	stopped bool

	wg       sync.WaitGroup // ticker routine
	stopOnce sync.Once
}

var _ Runner = (*Panel[int])(nil)

// New returns a panel for cfg writing to cache. The panel is in the loading state until started.
func New[T any](cfg Config[T], cache store.Cache, opts ...Option[T]) (*Panel[T], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cache == nil {
		return nil, fmt.Errorf("%w: %s has no cache", ErrConfig, cfg.SourceID)
	}

	p := &Panel[T]{
		cfg:     cfg,
		cache:   cache,
		clk:     clock.Real,
		metrics: NoopMetrics{},
		tracer:  otel.Tracer("github.com/tarancss/soldash/panel"),
		state:   State[T]{Status: Loading},
	}

	for _, o := range opts {
		o(p)
	}

	return p, nil
}

// ID returns the source id.
func (p *Panel[T]) ID() string { return p.cfg.SourceID }

// State returns the latest state.
func (p *Panel[T]) State() State[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Start serves the panel from the cache if its entry is fresh, otherwise it starts a fetch cycle. Then it starts the
// refresh ticker. Cancelling ctx has the effect of Stop on the cycles: the ticker ends and no later result is applied,
// but the panel stays started.
func (p *Panel[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()

		return ErrStopped
	}

	if p.started {
		p.mu.Unlock()

		return ErrStarted
	}

	p.started = true
	p.ctx, p.stop = context.WithCancel(ctx)
	p.mu.Unlock()

	if !p.fromCache(p.ctx) {
		p.cycle()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	t := p.clk.NewTicker(p.cfg.RefreshInterval)

	p.wg.Add(1)

	go p.loop(p.ctx, t)

	return nil
}

// Stop stops the ticker and discards the result of any cycle in flight. No state transition nor render happens after
// it returns. Stop may be called more than once, or before Start.
func (p *Panel[T]) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		stop := p.stop
		p.mu.Unlock()

		// cancel first, a cycle holding the lock for its cache write returns sooner
		if stop != nil {
			stop()
		}

		p.mu.Lock()
		p.stopped = true
		stop = p.stop
		p.mu.Unlock()

		// Start may have run in between
		if stop != nil {
			stop()
		}

		p.wg.Wait()

		log.Printf("[%s] Panel stopped", p.cfg.SourceID)
	})
}

// fromCache applies a fresh cache entry, it returns false when there is none.
func (p *Panel[T]) fromCache(ctx context.Context) bool {
	e, err := p.cache.Get(ctx, p.cfg.SourceID, p.cfg.FreshnessWindow)
	if err != nil {
		if !errors.Is(err, store.ErrDataNotFound) {
			log.Printf("[%s] Cannot read cache, err:%s", p.cfg.SourceID, err)
		}

		p.metrics.CacheLookup(p.cfg.SourceID, false)

		return false
	}

	var data T
	if err = json.Unmarshal(e.Payload, &data); err != nil {
		log.Printf("[%s] Ignoring unreadable cache entry, err:%s", p.cfg.SourceID, err)
		p.metrics.CacheLookup(p.cfg.SourceID, false)

		return false
	}

	p.metrics.CacheLookup(p.cfg.SourceID, true)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stopped {
		p.apply(State[T]{Status: Ready, Data: data, FetchedAt: e.FetchedAt, FromCache: true})
	}

	return true
}

func (p *Panel[T]) loop(ctx context.Context, t clock.Ticker) {
	defer p.wg.Done()
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			p.cycle()
		}
	}
}

// cycle starts a fetch cycle superseding the one in flight, if any.
func (p *Panel[T]) cycle() {
	p.mu.Lock()
	if p.stopped || p.ctx.Err() != nil {
		p.mu.Unlock()

		return
	}

	if p.cancel != nil {
		p.cancel()
	}

	p.seq++
	seq := p.seq

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	if p.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(p.ctx, p.cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(p.ctx)
	}

	p.cancel = cancel
	p.mu.Unlock()

	p.metrics.CycleStarted(p.cfg.SourceID)

	go p.run(ctx, cancel, seq, uuid.NewString())
}

// run performs the cycle seq and applies it if still current.
func (p *Panel[T]) run(ctx context.Context, cancel context.CancelFunc, seq uint64, cid string) {
	defer cancel()

	src := p.cfg.SourceID
	begin := p.clk.Now()

	ctx, span := p.tracer.Start(ctx, "panel.cycle", trace.WithAttributes(
		attribute.String("source", src),
		attribute.Int64("cycle", int64(seq)),
		attribute.String("cid", cid),
	))
	defer span.End()

	data, payload, err := p.fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || seq != p.seq || p.ctx.Err() != nil {
		log.Printf("[%s] Discarding superseded cycle %d (%s)", src, seq, cid)
		span.SetAttributes(attribute.Bool("superseded", true))
		p.metrics.CycleSuperseded(src)

		return
	}

	if err != nil {
		log.Printf("[%s] Cycle %d (%s) failed, err:%s", src, seq, cid, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.CycleCompleted(src, string(Error), p.clk.Now().Sub(begin))
		p.apply(State[T]{Status: Error, Err: errorInfo(err), Cycle: seq, CID: cid})

		return
	}

	fetchedAt := p.clk.Now()

	e, err := p.cache.Put(ctx, src, payload)
	if err != nil {
		log.Printf("[%s] Cannot write cache in cycle %d (%s), err:%s", src, seq, cid, err)
	} else {
		fetchedAt = e.FetchedAt
	}

	p.metrics.CycleCompleted(src, string(Ready), p.clk.Now().Sub(begin))
	p.apply(State[T]{Status: Ready, Data: data, FetchedAt: fetchedAt, Cycle: seq, CID: cid})
}

// fetch calls the endpoint and transforms the response, payload is the JSON encoding of the result.
func (p *Panel[T]) fetch(ctx context.Context) (data T, payload []byte, err error) {
	raw, err := p.cfg.Endpoint.Fetch(ctx)
	if err != nil {
		return data, nil, err
	}

	if data, err = p.cfg.Transform(raw); err != nil {
		var te *fetch.TransformError
		if fetch.Classify(err) == fetch.KindTransform && !errors.As(err, &te) {
			err = &fetch.TransformError{Source: p.cfg.SourceID, Err: err}
		}

		return data, nil, err
	}

	if payload, err = json.Marshal(data); err != nil {
		return data, nil, &fetch.TransformError{Source: p.cfg.SourceID, Err: err}
	}

	return data, payload, nil
}

// apply sets the state and renders it, p.mu must be held.
func (p *Panel[T]) apply(s State[T]) {
	p.state = s

	for _, f := range p.render {
		f(s)
	}
}
