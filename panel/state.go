package panel

import (
	"time"

	"github.com/tarancss/soldash/lib/fetch"
)

// Status is the render state of a panel.
type Status string

// Render states.
const (
	Loading Status = "loading"
	Error   Status = "error"
	Ready   Status = "ready"
)

// ErrorInfo is what the error view shows.
type ErrorInfo struct {
	Kind    fetch.Kind `json:"kind"`
	Message string     `json:"message"`
}

// State is the result of the latest applied fetch cycle. Data and FetchedAt are set when Status is Ready, Err when
// Status is Error.
type State[T any] struct {
	Status    Status
	Data      T
	FetchedAt time.Time
	Err       *ErrorInfo
	// Cycle is the sequence number of the cycle that produced the state, 0 for the initial state and for data served
	// from the cache at start.
	Cycle     uint64
	// CID is the correlation id of the cycle, as logged and traced.
	CID       string
	FromCache bool
}

func errorInfo(err error) *ErrorInfo {
	return &ErrorInfo{Kind: fetch.Classify(err), Message: err.Error()}
}
