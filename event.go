package eventcore

import "time"

// PendingEvent is an event prepared for a write but not yet durable. The
// only way to construct one is PendingEventBuilder (event_builder.go),
// which is what guarantees every pending event here carries a strictly
// positive version and a non-empty event type. When built through the
// builder's DomainEvent step, the payload is the serialized domain event;
// the Payload step takes caller-supplied bytes as they are.
type PendingEvent struct {
	ID        EventID
	StreamID  Id
	Version   int
	EventType string
	Metadata  EventMetadata
	Payload   []byte
}

// PersistedEvent is what a store returns after a successful append. Only
// store adapters construct these; PersistedAt is assigned by the store,
// not the caller.
type PersistedEvent struct {
	ID          EventID
	StreamID    Id
	Version     int
	EventType   string
	Metadata    EventMetadata
	Payload     []byte
	PersistedAt time.Time
}

// VersionedEvent pairs a 1-based, contiguous version with the domain
// event deserialized from a PersistedEvent's payload. It is the unit a
// repository replays while rehydrating an aggregate.
type VersionedEvent struct {
	Version int
	Event   DomainEvent
}

// StreamItem is one element of an EventStore.ReadStream result: each
// item carries its own error so a transient read failure mid-stream
// doesn't have to abort items already yielded.
type StreamItem struct {
	Event PersistedEvent
	Err   error
}
