package eventcore

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher is a collaborator at the edge of the core: once a
// repository Save succeeds, a caller may hand the saved PersistedEvents
// to a publisher so that projections and other read-side consumers —
// explicitly out of scope for the write path itself — can react. The
// core never calls this on its own; wiring Save to Publish is the
// application's job.
type EventPublisher interface {
	Publish(ctx context.Context, events []PersistedEvent) error
}

// busMessage is the wire envelope published onto the bus. It carries
// enough of PersistedEvent for a subscriber to deserialize the payload
// itself via its own Deserializer, without the bus needing to know about
// any aggregate's concrete event types.
type busMessage struct {
	EventID       string         `json:"event_id"`
	StreamID      string         `json:"stream_id"`
	Version       int            `json:"version"`
	EventType     string         `json:"event_type"`
	CorrelationID string         `json:"correlation_id"`
	Extra         map[string]any `json:"extra,omitempty"`
	Payload       []byte         `json:"payload"`
}

// WatermillEventBus publishes persisted events onto an in-process
// watermill pub/sub, one topic per event type. It is a reference
// collaborator for single-process deployments and tests; a service
// wanting durable, cross-process delivery swaps the underlying
// watermill Publisher/Subscriber for a broker-backed one (Kafka, NATS,
// Redis Streams) without touching this type's surface.
type WatermillEventBus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewWatermillEventBus wires a GoChannel pub/sub. A nil logger is
// replaced with watermill.NopLogger, the same default the pack's
// watermill-based dispatchers use.
func NewWatermillEventBus(logger watermill.LoggerAdapter) *WatermillEventBus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &WatermillEventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
			Persistent:          false,
		}, logger),
		logger: logger,
	}
}

// Publish publishes each event to the topic named after its EventType,
// in the order given. A publish failure for one event aborts the
// remaining ones — callers that need best-effort fan-out should publish
// events individually instead.
func (b *WatermillEventBus) Publish(ctx context.Context, events []PersistedEvent) error {
	for _, event := range events {
		payload, err := json.Marshal(busMessage{
			EventID:       event.ID.String(),
			StreamID:      event.StreamID.String(),
			Version:       event.Version,
			EventType:     event.EventType,
			CorrelationID: string(event.Metadata.CorrelationID),
			Extra:         event.Metadata.Extra,
			Payload:       event.Payload,
		})
		if err != nil {
			return newError(KindSerialization, "publish_event", err)
		}
		msg := message.NewMessage(event.ID.String(), payload)
		msg.Metadata.Set("event_type", event.EventType)
		msg.Metadata.Set("stream_id", event.StreamID.String())
		if err := b.pubsub.Publish(event.EventType, msg); err != nil {
			return newError(KindStoreError, "publish_event", err)
		}
	}
	return nil
}

// Subscribe returns the channel of messages published to eventType. The
// returned channel is closed when ctx is cancelled. Subscribers must Ack
// or Nack every message they receive, the usual watermill contract.
func (b *WatermillEventBus) Subscribe(ctx context.Context, eventType string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, eventType)
}

// Close releases the underlying pub/sub's resources.
func (b *WatermillEventBus) Close() error {
	return b.pubsub.Close()
}
