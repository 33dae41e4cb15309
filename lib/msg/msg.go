// Package msg defines the interface for different message brokers.
//
// The dashboard publishes an Event for every panel state transition. Consumers, ie. the watcher, subscribe to the
// events of the sources they are interested in.
package msg

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// Event is a panel state transition. CID correlates the event with the logs and trace of the fetch cycle that caused
// it. View is the panel view as served by the dashboard API.
type Event struct {
	Source string          `json:"source"`
	Status string          `json:"status"`
	Cycle  uint64          `json:"cycle"`
	CID    string          `json:"cid,omitempty"`
	At     time.Time       `json:"at"`
	View   json.RawMessage `json:"view"`
}

// Key returns the routing key of the event, <source>.<status>.<cycle>.
func (e Event) Key() string {
	return e.Source + "." + e.Status + "." + strconv.FormatUint(e.Cycle, 10)
}

type MsgBroker interface {
	Setup(interface{}) error
	Close() error

	// methods for the dashboard
	SendEvent(source string, e Event) error

	// methods for consumers. The message is acknowledged when mut is unlocked by the consumer.
	GetEvents(source string, mut *sync.Mutex) (<-chan Event, <-chan error, error)
}
