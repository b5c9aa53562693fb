package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/BoaTracking/internal/broker/messages"
	"github.com/BearBump/BoaTracking/internal/clock"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// DefaultPublishTimeout bounds a single send so a broker outage cannot stall
// the request that raised the event.
const DefaultPublishTimeout = 2 * time.Second

// Publisher wraps domain events into envelopes and hands them to Kafka.
// Delivery is best effort: one attempt per event, failures are logged and
// never reach the caller.
type Publisher struct {
	producer Producer
	topic    string
	clock    clock.Clock
	timeout  time.Duration
}

// New returns a publisher. A nil producer yields a publisher that drops everything.
func New(producer Producer, topic string, clk clock.Clock) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		clock:    clk,
		timeout:  DefaultPublishTimeout,
	}
}

func (p *Publisher) WithTimeout(d time.Duration) *Publisher {
	if d > 0 {
		p.timeout = d
	}
	return p
}

func (p *Publisher) Publish(ctx context.Context, eventType, key string, payload any) {
	if p == nil || p.producer == nil {
		return
	}
	env, err := messages.NewEnvelope(eventType, p.clock.Now(), payload)
	if err != nil {
		slog.Error("build event", "type", eventType, "error", err.Error())
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		slog.Error("marshal event", "type", eventType, "error", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.producer.Publish(ctx, p.topic, []byte(key), b); err != nil {
		slog.Warn("event dropped", "type", eventType, "key", key, "error", err.Error())
		return
	}
	slog.Debug("event published", "type", eventType, "key", key, "id", env.ID)
}
