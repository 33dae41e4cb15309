// Package sources defines the data sources of the dashboard. A source is the only source specific part of a panel: an
// endpoint, a transform from the raw upstream response to the panel data and a view of that data with display
// formatted fields.
package sources

import (
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/tarancss/soldash/lib/block"
	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/fetch"
	"github.com/tarancss/soldash/lib/store"
	"github.com/tarancss/soldash/panel"
)

// Source ids.
const (
	DeFi     = "defi"
	Tokens   = "tokens"
	Market   = "market"
	Network  = "network"
	NFT      = "nft"
	Yields   = "yields"
	Activity = "activity"
)

// Solana is the chain name used by the aggregators.
const Solana = "Solana"

// Env holds the upstream clients and base urls shared by the sources.
type Env struct {
	HTTP     *fetch.Client
	RPC      *block.Client
	DeFi     string // DeFi aggregator
	Price    string // price index
	NFT      string // rarity service
	NFTSite  string // rarity site, prefixed to collection logos
	Yields   string // yield aggregator
	Explorer string // block explorer, for links only
}

// Settings override the intervals of a source, zero values keep the defaults.
type Settings struct {
	Refresh time.Duration
	Fresh   time.Duration
	Timeout time.Duration
}

// Hooks are the ambient dependencies of the panels, all optional.
type Hooks struct {
	Clock   clock.Clock
	Metrics panel.Metrics
	Tracer  trace.Tracer
}

// View is the rendered state of a panel as served to the front-end. Data is nil while loading.
type View struct {
	Source    string           `json:"source"`
	Title     string           `json:"title"`
	Status    panel.Status     `json:"status"`
	Error     *panel.ErrorInfo `json:"error,omitempty"`
	FetchedAt *time.Time       `json:"fetchedAt,omitempty"`
	Cycle     uint64           `json:"cycle"`
	CID       string           `json:"cid,omitempty"`
	FromCache bool             `json:"fromCache,omitempty"`
	Data      interface{}      `json:"data,omitempty"`
}

// Source is the type independent side of a source definition.
type Source interface {
	ID() string
	Title() string
	// Defaults returns the refresh interval and freshness window of the source.
	Defaults() Settings
	// Loading is the view shown before the first cycle completes.
	Loading() View
	// Panel builds the panel of the source, every state transition is rendered and passed to sink.
	Panel(env *Env, cache store.Cache, s Settings, h Hooks, sink func(View)) (panel.Runner, error)
}

// Def defines a source of data T.
type Def[T any] struct {
	id, title string
	defaults  Settings
	endpoint  func(env *Env) fetch.Endpoint
	transform func(raw []byte) (T, error)
	view      func(env *Env, data T) interface{}
}

var _ Source = (*Def[int])(nil)

func (d *Def[T]) ID() string         { return d.id }
func (d *Def[T]) Title() string      { return d.title }
func (d *Def[T]) Defaults() Settings { return d.defaults }

func (d *Def[T]) Loading() View {
	return View{Source: d.id, Title: d.title, Status: panel.Loading}
}

// Transform applies the source transform to a raw upstream response.
func (d *Def[T]) Transform(raw []byte) (T, error) { return d.transform(raw) }

// Render returns the view of a panel state.
func (d *Def[T]) Render(env *Env, s panel.State[T]) View {
	v := View{
		Source: d.id, Title: d.title, Status: s.Status, Error: s.Err, Cycle: s.Cycle, CID: s.CID, FromCache: s.FromCache,
	}

	if s.Status == panel.Ready {
		at := s.FetchedAt
		v.FetchedAt = &at
		v.Data = d.view(env, s.Data)
	}

	return v
}

// Config returns the panel configuration of the source.
func (d *Def[T]) Config(env *Env, s Settings) panel.Config[T] {
	c := panel.Config[T]{
		SourceID:        d.id,
		Endpoint:        d.endpoint(env),
		RefreshInterval: d.defaults.Refresh,
		FreshnessWindow: d.defaults.Fresh,
		Timeout:         s.Timeout,
		Transform:       d.transform,
	}

	if s.Refresh > 0 {
		c.RefreshInterval = s.Refresh
	}

	if s.Fresh > 0 {
		c.FreshnessWindow = s.Fresh
	}

	return c
}

func (d *Def[T]) Panel(env *Env, cache store.Cache, s Settings, h Hooks, sink func(View)) (panel.Runner, error) {
	opts := []panel.Option[T]{
		panel.WithRender(func(st panel.State[T]) { sink(d.Render(env, st)) }),
	}

	if h.Clock != nil {
		opts = append(opts, panel.WithClock[T](h.Clock))
	}

	if h.Metrics != nil {
		opts = append(opts, panel.WithMetrics[T](h.Metrics))
	}

	if h.Tracer != nil {
		opts = append(opts, panel.WithTracer[T](h.Tracer))
	}

	return panel.New(d.Config(env, s), cache, opts...)
}

// All returns every source in dashboard order.
func All() []Source {
	return []Source{MarketSource, NetworkSource, TokensSource, DeFiSource, YieldsSource, NFTSource, ActivitySource}
}

// Lookup returns the source with the given id.
func Lookup(id string) (Source, bool) {
	for _, s := range All() {
		if s.ID() == id {
			return s, true
		}
	}

	return nil, false
}

// TopBy returns the first n items sorted by key descending. The sort is stable and items is not modified.
func TopBy[E any](items []E, n int, key func(E) float64) []E {
	s := append([]E(nil), items...)
	sort.SliceStable(s, func(i, j int) bool { return key(s[i]) > key(s[j]) })

	if n >= 0 && len(s) > n {
		s = s[:n]
	}

	return s
}

// FilterChain keeps the items whose chain is chain.
func FilterChain[E any](items []E, chain string, of func(E) string) []E {
	s := make([]E, 0, len(items))

	for _, e := range items {
		if of(e) == chain {
			s = append(s, e)
		}
	}

	return s
}

// orZero reads a nullable number as zero.
func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}

	return *v
}
