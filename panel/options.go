package panel

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/tarancss/soldash/lib/clock"
)

// Option configures a Panel.
type Option[T any] func(*Panel[T])

// WithRender registers a callback receiving every state transition. Callbacks run while the transition is applied, in
// order, and must not call back into the panel.
func WithRender[T any](f func(State[T])) Option[T] {
	return func(p *Panel[T]) { p.render = append(p.render, f) }
}

// WithClock replaces the wall clock, used for ticks and cycle latency.
func WithClock[T any](c clock.Clock) Option[T] {
	return func(p *Panel[T]) { p.clk = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics[T any](m Metrics) Option[T] {
	return func(p *Panel[T]) { p.metrics = m }
}

// WithTracer sets the tracer used for cycle spans.
func WithTracer[T any](t trace.Tracer) Option[T] {
	return func(p *Panel[T]) { p.tracer = t }
}
