package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher is the sink for listing events.
type Publisher interface {
	PublishListingEvent(ctx context.Context, ev ListingEvent) error
}

// Nop drops every event.  Used when no broker is configured.
type Nop struct{}

func (Nop) PublishListingEvent(context.Context, ListingEvent) error { return nil }

var (
	// ErrBufferFull is returned when the outbound buffer has no room.  The
	// event is dropped.
	ErrBufferFull = errors.New("queue: publish buffer full")
	// ErrPublisherClosed is returned after Close.
	ErrPublisherClosed = errors.New("queue: publisher closed")
)

const (
	defaultBuffer      = 256
	defaultDialTimeout = 2 * time.Second
	publishTimeout     = 5 * time.Second
	redialBackoff      = 5 * time.Second
)

// AMQPPublisher queues events in memory and sends them from a single
// goroutine, so a slow or unreachable broker never blocks the caller.
// The connection is dialed lazily and re-dialed after the broker drops it.
type AMQPPublisher struct {
	url         string
	dialTimeout time.Duration
	log         *zap.SugaredLogger

	events    chan ListingEvent
	done      chan struct{}
	finished  chan struct{}
	closeOnce sync.Once

	// owned by run
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// NewAMQPPublisher starts a publisher for url.  No connection is made
// until the first event.
func NewAMQPPublisher(url string, log *zap.SugaredLogger) *AMQPPublisher {
	return newAMQPPublisher(url, defaultBuffer, defaultDialTimeout, log)
}

func newAMQPPublisher(url string, buffer int, dialTimeout time.Duration, log *zap.SugaredLogger) *AMQPPublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	p := &AMQPPublisher{
		url:         url,
		dialTimeout: dialTimeout,
		log:         log,
		events:      make(chan ListingEvent, buffer),
		done:        make(chan struct{}),
		finished:    make(chan struct{}),
	}
	go p.run()
	return p
}

// PublishListingEvent enqueues ev without waiting for the broker.  A full
// buffer drops the event and returns ErrBufferFull.
func (p *AMQPPublisher) PublishListingEvent(_ context.Context, ev ListingEvent) error {
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.events <- ev:
		return nil
	default:
		p.log.Warnw("listing event dropped, buffer full", "kind", ev.Kind, "listing_id", ev.ListingID)
		return ErrBufferFull
	}
}

func (p *AMQPPublisher) run() {
	defer close(p.finished)
	defer p.disconnect()
	for {
		select {
		case <-p.done:
			return
		case ev := <-p.events:
			p.send(ev)
		}
	}
}

func (p *AMQPPublisher) send(ev ListingEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Warnw("listing event marshal failed", "kind", ev.Kind, "listing_id", ev.ListingID, "error", err)
		return
	}
	ch, err := p.channel()
	if err != nil {
		p.log.Warnw("listing event publish skipped", "kind", ev.Kind, "listing_id", ev.ListingID, "error", err)
		return
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := ch.PublishWithContext(ctx, "", ListingEventsQueue, false, false, pub); err != nil {
		p.log.Warnw("listing event publish failed", "kind", ev.Kind, "listing_id", ev.ListingID, "error", err)
		_ = ch.Close()
		p.ch = nil
	}
}

// channel returns an open channel, dialing and declaring the queue when
// needed.  After a failed dial it refuses to redial until the backoff
// passes.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		if now := time.Now(); now.Before(p.retryAt) {
			return nil, fmt.Errorf("dial broker: backing off until %s", p.retryAt.Format(time.RFC3339))
		}
		conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
		if err != nil {
			p.retryAt = time.Now().Add(redialBackoff)
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(ListingEventsQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

func (p *AMQPPublisher) disconnect() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close stops the sender and releases the connection.  Events still
// buffered are dropped.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.finished
	return nil
}
