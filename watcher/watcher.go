// Package watcher consumes the panel events published by the dashboard.
package watcher

import (
	"log"
	"sync"

	humanize "github.com/dustin/go-humanize"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/msg"
)

// Handler deals with a consumed event. The event is acknowledged to the broker when the handler returns.
type Handler func(e msg.Event)

// Watch starts go routines to consume the message broker queues for the events of each of srcs. For each source, two
// channels are read, one for panel events, and one for errors. The routines end when the broker is closed.
func Watch(mb msg.MsgBroker, srcs []string, h Handler) (*sync.WaitGroup, error) {
	wg := &sync.WaitGroup{}

	for _, src := range srcs {
		mut := new(sync.Mutex)
		mut.Lock()

		eveCh, errCh, err := mb.GetEvents(src, mut)
		if err != nil {
			return wg, err
		}

		wg.Add(2)

		// launch event channel reader
		go func(source string) {
			defer wg.Done()

			log.Printf("[%s] Start listening to panel event channel", source)

			for eve := range eveCh {
				h(eve)
				mut.Unlock()
			}

			log.Printf("[%s] Stop listening to panel event channel", source)
		}(src)

		// launch error channel reader
		go func(source string) {
			defer wg.Done()

			log.Printf("[%s] Start listening to err channel", source)

			for e := range errCh {
				log.Printf("[%s] Received error %+v", source, e)
			}

			log.Printf("[%s] Stop listening to err channel", source)
		}(src)
	}

	return wg, nil
}

// Logger returns a handler logging the events, with their age relative to clk.
func Logger(clk clock.Clock) Handler {
	if clk == nil {
		clk = clock.Real
	}

	return func(e msg.Event) {
		log.Printf("[%s] Panel %s at cycle %d (%s), %s", e.Source, e.Status, e.Cycle, e.CID,
			humanize.RelTime(e.At, clk.Now(), "ago", "from now"))
	}
}
