// Package dashboard implements the dashboard service.
//
// The service composes one panel per enabled source, keeps the latest view of each panel, publishes every view
// transition to the message broker and serves the views with a RESTful API. Panels are independent: a failing source
// only errors its own panel.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/tarancss/soldash/lib/block"
	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/config"
	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/msg"
	"github.com/tarancss/soldash/lib/store"
	"github.com/tarancss/soldash/panel"
	"github.com/tarancss/soldash/sources"
)

// queue is the capacity of the events queue feeding the broker.
const queue = 64

// Errors returned.
var (
	ErrNoCache   = errors.New("dashboard has no cache")
	ErrDuplicate = errors.New("duplicated source")
	ErrNoPanels  = errors.New("no source enabled")
)

// Dashboard contains the data necessary to deliver the service
type Dashboard struct {
	env   *sources.Env
	cache store.Cache
	mb    msg.MsgBroker // optional
	clk   clock.Clock
	srcs  []sources.Source
	runs  []panel.Runner

	l     sync.RWMutex
	views map[string]sources.View

	events  chan msg.Event
	pub     sync.WaitGroup // events publisher
	started bool

	sl sync.Mutex
	s  *http.Server  // http server
	ss *http.Server  // https server
	sc chan struct{} // http server channel used for graceful shutdowns

	stopOnce sync.Once
}

// NewEnv returns the upstream clients and urls given in the configuration.
func NewEnv(conf config.ServiceConfig) *sources.Env {
	c := fetch.NewClient(conf.RequestTimeout(), rate.Limit(conf.Rate), conf.Burst)

	return &sources.Env{
		HTTP:     c,
		RPC:      block.New(c, conf.Upstream.RPC),
		DeFi:     conf.Upstream.DeFi,
		Price:    conf.Upstream.Price,
		NFT:      conf.Upstream.NFT,
		NFTSite:  conf.Upstream.NFTSite,
		Yields:   conf.Upstream.Yields,
		Explorer: conf.Upstream.Explorer,
	}
}

// New returns a dashboard with a panel for each of srcs enabled in conf, all of them when srcs is empty. The broker mb
// is optional.
func New(conf config.ServiceConfig, env *sources.Env, cache store.Cache, mb msg.MsgBroker, h sources.Hooks,
	srcs ...sources.Source) (*Dashboard, error) {
	if cache == nil {
		return nil, ErrNoCache
	}

	if env == nil {
		env = NewEnv(conf)
	}

	if len(srcs) == 0 {
		srcs = sources.All()
	}

	if h.Clock == nil {
		h.Clock = clock.Real
	}

	d := &Dashboard{
		env:    env,
		cache:  cache,
		mb:     mb,
		clk:    h.Clock,
		views:  make(map[string]sources.View, len(srcs)),
		events: make(chan msg.Event, queue),
		sc:     make(chan struct{}),
	}

	for _, s := range srcs {
		if !conf.Enabled(s.ID()) {
			log.Printf("[%s] Source disabled", s.ID())

			continue
		}

		if _, ok := d.views[s.ID()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, s.ID())
		}

		o := conf.Source(s.ID())
		set := sources.Settings{Refresh: o.RefreshInterval(), Fresh: o.FreshnessWindow(), Timeout: o.RequestTimeout()}

		r, err := s.Panel(env, cache, set, h, d.update)
		if err != nil {
			return nil, err
		}

		d.srcs = append(d.srcs, s)
		d.runs = append(d.runs, r)
		d.views[s.ID()] = s.Loading()
	}

	if len(d.runs) == 0 {
		return nil, ErrNoPanels
	}

	return d, nil
}

// Start starts every panel. If a panel fails to start the ones already started are stopped.
func (d *Dashboard) Start(ctx context.Context) error {
	d.l.Lock()
	if d.started {
		d.l.Unlock()

		return panel.ErrStarted
	}

	d.started = true
	d.l.Unlock()

	if d.mb != nil {
		d.pub.Add(1)

		go d.publish()
	}

	for i, r := range d.runs {
		if err := r.Start(ctx); err != nil {
			for _, s := range d.runs[:i] {
				s.Stop()
			}

			return fmt.Errorf("starting panel %s: %w", r.ID(), err)
		}

		log.Printf("[%s] Panel started", r.ID())
	}

	return nil
}

// Stop shuts down the http servers, stops every panel, flushes the pending events to the broker and purges and
// closes the cache. The message broker is left open for the caller to close.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		d.shutdown()

		for _, r := range d.runs {
			r.Stop()
		}
		// no renders happen after the panels stop
		close(d.events)
		d.pub.Wait()

		if err := d.cache.Purge(context.Background()); err != nil {
			log.Printf("Error purging cache:%s", err)
		}

		if err := d.cache.Close(); err != nil {
			log.Printf("Error closing cache:%s", err)
		}

		log.Printf("Dashboard stopped")
	})
}

// Views returns the latest view of the panels in dashboard order.
func (d *Dashboard) Views() []sources.View {
	d.l.RLock()
	defer d.l.RUnlock()

	vs := make([]sources.View, 0, len(d.srcs))
	for _, s := range d.srcs {
		vs = append(vs, d.views[s.ID()])
	}

	return vs
}

// View returns the latest view of the panel of the given source.
func (d *Dashboard) View(source string) (sources.View, bool) {
	d.l.RLock()
	defer d.l.RUnlock()

	v, ok := d.views[source]

	return v, ok
}

// update is the sink of every panel. It runs with the panel locked so it must not call into it.
func (d *Dashboard) update(v sources.View) {
	d.l.Lock()
	d.views[v.Source] = v
	d.l.Unlock()

	if d.mb == nil {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[%s] Error encoding view:%s", v.Source, err)

		return
	}

	e := msg.Event{Source: v.Source, Status: string(v.Status), Cycle: v.Cycle, CID: v.CID, At: d.clk.Now(), View: raw}

	select {
	case d.events <- e:
	default:
		log.Printf("[%s] Events queue full, dropping event %s", v.Source, e.Key())
	}
}

// publish sends the queued events to the broker until the queue is closed.
func (d *Dashboard) publish() {
	defer d.pub.Done()

	for e := range d.events {
		if err := d.mb.SendEvent(e.Source, e); err != nil {
			log.Printf("[%s] Error publishing event %s:%s", e.Source, e.Key(), err)
		}
	}
}
