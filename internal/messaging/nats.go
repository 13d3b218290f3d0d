// Package messaging provides a NATS client wrapper for publishing and
// consuming groupguard audit events. It handles connection lifecycle and
// subject-based subscriptions.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/whisper/groupguard/internal/events"
)

// NATS subject patterns used across groupguard services.
const (
	SubjectEvents    = "guard.events"   // + .<kind>
	SubjectEventsAll = "guard.events.>" // every kind
)

// EventSubject returns the subject an event of the given kind is published on.
func EventSubject(kind events.Kind) string {
	return SubjectEvents + "." + string(kind)
}

// NATSClient is a NATS connection that remembers its subscriptions so Close
// can drain them.
type NATSClient struct {
	conn *nats.Conn
	log  *zap.Logger
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string
	Name          string // shown in the server's connection list
	ReconnectWait time.Duration
	MaxReconnects int // -1 retries forever
}

// DefaultNATSConfig targets a local server and reconnects forever.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "groupguard",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// NewNATSClient connects to NATS with the given config and returns a ready
// client. It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig, log *zap.Logger) (*NATSClient, error) {
	log = log.Named("nats")
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("messaging: connect %s: %w", config.URL, err)
	}

	log.Info("connected", zap.String("url", nc.ConnectedUrl()))

	return &NATSClient{
		conn: nc,
		log:  log,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends raw data on subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Subscribe attaches handler to subject. A second subscription on the same
// subject replaces the tracked one.
func (c *NATSClient) Subscribe(subject string, handler func(msg *nats.Msg)) error {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return fmt.Errorf("messaging: subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()

	return nil
}

// PublishEvent marshals e and publishes it on its kind's subject.
func (c *NATSClient) PublishEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("nats: marshal event: %w", err)
	}
	return c.Publish(EventSubject(e.Kind), data)
}

// SubscribeEvents delivers every decoded audit event to handler. Messages
// that fail to decode are logged and dropped.
func (c *NATSClient) SubscribeEvents(handler func(events.Event)) error {
	return c.Subscribe(SubjectEventsAll, func(msg *nats.Msg) {
		var e events.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			c.log.Warn("dropping undecodable event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		handler(e)
	})
}

// Close drains every subscription, then the connection itself.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.log.Warn("drain subscription", zap.String("subject", subject), zap.Error(err))
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		c.log.Warn("connection drain", zap.Error(err))
	}

	c.log.Info("client closed")
}

// EventPublisher is an events.Sink that forwards events to NATS. Publish
// failures are logged; enforcement never waits on the bus.
type EventPublisher struct {
	client *NATSClient
	log    *zap.Logger
}

// NewEventPublisher wraps client as an events.Sink.
func NewEventPublisher(client *NATSClient, log *zap.Logger) *EventPublisher {
	return &EventPublisher{client: client, log: log.Named("events")}
}

func (p *EventPublisher) Emit(_ context.Context, e events.Event) {
	if err := p.client.PublishEvent(e); err != nil {
		p.log.Warn("publish event failed",
			zap.String("kind", string(e.Kind)),
			zap.Int64("chat_id", e.ChatID),
			zap.Error(err))
	}
}
