package panel

import "time"

// Metrics receives the lifecycle events of every panel. Implementations must be safe for concurrent use.
type Metrics interface {
	CycleStarted(source string)
	// CycleCompleted is called for applied cycles only, status is "ready" or "error".
	CycleCompleted(source, status string, d time.Duration)
	// CycleSuperseded is called for results discarded on arrival, because a newer cycle started or the panel stopped.
	CycleSuperseded(source string)
	CacheLookup(source string, hit bool)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) CycleStarted(string)                          {}
func (NoopMetrics) CycleCompleted(string, string, time.Duration) {}
func (NoopMetrics) CycleSuperseded(string)                       {}
func (NoopMetrics) CacheLookup(string, bool)                     {}
