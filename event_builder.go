package eventcore

import "encoding/json"

// NewPendingEvent starts the type-state builder that is the only path to
// a PendingEvent. Each stage below returns a distinct type exposing only
// the next legal method, so `stream_id -> event_type -> version ->
// metadata -> (payload | domain_event) -> build` is enforced by the
// compiler rather than by a runtime state enum: a fluent chain that can
// only be walked in one order.
func NewPendingEvent(streamID Id) *pendingEventStreamStage {
	return &pendingEventStreamStage{streamID: streamID}
}

type pendingEventStreamStage struct {
	streamID Id
}

func (s *pendingEventStreamStage) EventType(eventType string) *pendingEventTypeStage {
	return &pendingEventTypeStage{streamID: s.streamID, eventType: eventType}
}

type pendingEventTypeStage struct {
	streamID  Id
	eventType string
}

func (s *pendingEventTypeStage) Version(version int) *pendingEventVersionStage {
	return &pendingEventVersionStage{
		streamID:  s.streamID,
		eventType: s.eventType,
		version:   version,
	}
}

type pendingEventVersionStage struct {
	streamID  Id
	eventType string
	version   int
}

func (s *pendingEventVersionStage) Metadata(metadata EventMetadata) *pendingEventMetadataStage {
	return &pendingEventMetadataStage{
		streamID:  s.streamID,
		eventType: s.eventType,
		version:   s.version,
		metadata:  metadata,
	}
}

type pendingEventMetadataStage struct {
	streamID  Id
	eventType string
	version   int
	metadata  EventMetadata
}

// Payload supplies an already-serialized event payload, for callers that
// own their own codec.
func (s *pendingEventMetadataStage) Payload(payload []byte) (*PendingEvent, error) {
	return s.build(payload)
}

// DomainEvent serializes event using the given Serializer and uses the
// result as the payload. This is the common path: callers hand over the
// in-memory domain event and never touch bytes directly.
func (s *pendingEventMetadataStage) DomainEvent(event DomainEvent, serializer Serializer) (*PendingEvent, error) {
	if !event.AggregateID().Equal(s.streamID) {
		return nil, newError(KindInvalidArgument, "build_pending_event",
			nil).WithContext("reason", "event.AggregateID() != stream_id")
	}
	payload, err := serializer.Serialize(event)
	if err != nil {
		return nil, newError(KindSerialization, "build_pending_event", err)
	}
	return s.build(payload)
}

func (s *pendingEventMetadataStage) build(payload []byte) (*PendingEvent, error) {
	if s.version < 1 {
		return nil, newError(KindInvalidArgument, "build_pending_event", nil).
			WithContext("reason", "version must be >= 1")
	}
	if s.eventType == "" {
		return nil, newError(KindInvalidArgument, "build_pending_event", nil).
			WithContext("reason", "event_type must be non-empty")
	}
	id, err := NewEventID()
	if err != nil {
		return nil, err
	}
	return &PendingEvent{
		ID:        id,
		StreamID:  s.streamID,
		Version:   s.version,
		EventType: s.eventType,
		Metadata:  s.metadata,
		Payload:   payload,
	}, nil
}

// jsonDomainEventEnvelope pairs an event_type with raw JSON event data.
// serializer.go's default codec does not use it: JSONSerializer marshals
// the event itself, and the event_type travels beside the payload.
type jsonDomainEventEnvelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}
