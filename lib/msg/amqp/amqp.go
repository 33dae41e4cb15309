// Package amqp implements the message broker interface for AMQP compliant brokers (ie RabbitMQ)
package amqp

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/streadway/amqp"

	"github.com/tarancss/soldash/lib/msg"
)

// Exchange is the topic exchange of panel events ("pe").
const Exchange = "pe"

// Amqp implements a connection to a broker and a channel for reuse.
type Amqp struct {
	conn *amqp.Connection

	l  sync.Mutex // guards ch
	ch *amqp.Channel
}

// New instantiates a new amqp broker.
func New(uri string) (*Amqp, error) {
	r := Amqp{}

	var err error

	if r.conn, err = amqp.Dial(uri); err != nil {
		return nil, err
	}

	log.Printf("Connected to amqp broker")

	return &r, nil
}

var _ msg.MsgBroker = (*Amqp)(nil)

// Setup obtains an amqp channel and declares the message broker exchange:
//
// - pe ("panel events"): the dashboard publishes the panel state transitions to this exchange
func (r *Amqp) Setup(interface{}) error {
	// obtain a one-use channel
	channel, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	return channel.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil)
}

// Close terminates gracefully the connection to the AMQP message broker
func (r *Amqp) Close() error {
	r.l.Lock()
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			log.Printf("Error closing amqp.Channel:%s", err)
		}

		r.ch = nil

		log.Printf("amqp.Channel closed!")
	}
	r.l.Unlock()

	return r.conn.Close()
}

// channel returns the reusable channel, obtaining it if not present.
func (r *Amqp) channel() (*amqp.Channel, error) {
	r.l.Lock()
	defer r.l.Unlock()

	if r.ch == nil {
		ch, err := r.conn.Channel()
		if err != nil {
			return nil, err
		}

		r.ch = ch
	}

	return r.ch, nil
}

// SendEvent publishes a panel event to the "pe" exchange with routing key <source>.<status>.<cycle>.
func (r *Amqp) SendEvent(source string, e msg.Event) error {
	// marshal to JSON
	jsonDoc, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ch, err := r.channel()
	if err != nil {
		return err
	}
	// build body
	m := amqp.Publishing{
		Headers:     amqp.Table{"x-panel-event": e.Key()},
		Body:        jsonDoc,
		ContentType: "application/json",
		Timestamp:   e.At,
	}
	// publish
	if err = ch.Publish(Exchange, e.Key(), false, false, m); err != nil {
		log.Printf("[%s] Error sending panel event to message broker %s", source, err)
	}

	return err
}

// GetEvents consumes events from the "pe" exchange for the specified source pushing them to the returned channel.
// The Mutex pointer is provided to ensure the consumed message has been fully dealt with by the management function,
// so the message consumed is only acknowledged when the mutex is unlocked.
func (r *Amqp) GetEvents(source string, mut *sync.Mutex) (<-chan msg.Event, <-chan error, error) {
	ch, err := r.channel()
	if err != nil {
		return nil, nil, err
	}

	queue := Exchange + source
	// declare queue
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, nil, err
	}
	// bind queue to exchange
	if err = ch.QueueBind(queue, source+".*.*", Exchange, false, nil); err != nil {
		return nil, nil, err
	}
	// create channel for receiving events
	msgs, err := ch.Consume(queue, "watcher-"+source, false, false, false, false, nil)
	if err != nil {
		return nil, nil, err
	}
	// define channels to return
	eves := make(chan msg.Event)
	errs := make(chan error)
	// start routine to consume messages from broker
	go func() {
		defer close(errs)
		defer close(eves)

		for m := range msgs {
			var e msg.Event
			if err := json.Unmarshal(m.Body, &e); err != nil {
				errs <- err

				_ = m.Nack(false, false)

				continue
			}

			eves <- e

			mut.Lock() // wait for the consumer to finish processing the event

			_ = m.Ack(false)
		}
	}()

	return eves, errs, nil
}
