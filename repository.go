package eventcore

import "context"

// StateFactory produces the zero state a fresh aggregate starts from.
// For most aggregates this is simply `func() S { return S{} }`. No
// constructor in this package takes one: AggregateRoot and
// EventSourceRepository start every aggregate from the zero value of S.
type StateFactory[S any] func() S

// EventSourceRepository ties the aggregate engine (L3/L4) to a pluggable
// EventStore (L5). It is generic over one aggregate's state/event/state-
// pointer triple, the same triple AggregateRoot is generic over.
type EventSourceRepository[S any, E DomainEvent, PS StatePtr[S, E]] struct {
	store        EventStore
	deserializer Deserializer
	serializer   Serializer
}

// NewEventSourceRepository wires a store and a (de)serializer pair into
// a repository for one aggregate type.
func NewEventSourceRepository[S any, E DomainEvent, PS StatePtr[S, E]](
	store EventStore,
	serializer Serializer,
	deserializer Deserializer,
) *EventSourceRepository[S, E, PS] {
	return &EventSourceRepository[S, E, PS]{
		store:        store,
		serializer:   serializer,
		deserializer: deserializer,
	}
}

// Load reads a stream in full, deserializes every payload, and rehydrates
// an aggregate via LoadFromHistory. It returns *Error with
// KindAggregateNotFound when the stream is empty.
func (repo *EventSourceRepository[S, E, PS]) Load(ctx context.Context, id Id) (*AggregateRoot[S, E, PS], error) {
	items, err := repo.store.ReadStream(ctx, id)
	if err != nil {
		return nil, newError(KindStoreError, "load", err)
	}

	var history []VersionedEvent
	for item := range items {
		if item.Err != nil {
			return nil, newError(KindStoreError, "load", item.Err)
		}
		domainEvent, derr := repo.deserializer.Deserialize(item.Event.EventType, item.Event.Payload)
		if derr != nil {
			return nil, derr
		}
		history = append(history, VersionedEvent{Version: item.Event.Version, Event: domainEvent})
	}

	if len(history) == 0 {
		return nil, NewAggregateNotFoundError(id)
	}

	root, err := LoadFromHistory[S, E, PS](id, history)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// Save drains the aggregate's uncommitted events, serializes each, and
// appends them in one call with expected_version equal to the
// aggregate's loaded Version — never its CurrentVersion. This is the
// spec's resolved reading of the ambiguity between the two: using
// CurrentVersion here would double-count events already folded into the
// uncommitted buffer and make every save after the first look like a
// conflict against itself.
//
// On success, the aggregate's buffer is drained (TakeUncommittedEvents)
// and its effective persisted version has advanced by len(events); the
// caller is expected to discard and reload the root rather than keep
// mutating it further, per the save state machine.
func (repo *EventSourceRepository[S, E, PS]) Save(ctx context.Context, root *AggregateRoot[S, E, PS]) error {
	uncommitted := root.TakeUncommittedEvents()
	if len(uncommitted) == 0 {
		return nil
	}

	loadedVersion := root.Version()
	pending := make([]PendingEvent, 0, len(uncommitted))
	for i, event := range uncommitted {
		built, err := NewPendingEvent(root.ID()).
			EventType(event.Name()).
			Version(loadedVersion + i + 1).
			Metadata(NewEventMetadata(NewCorrelationID())).
			DomainEvent(event, repo.serializer)
		if err != nil {
			return err
		}
		pending = append(pending, *built)
	}

	if err := repo.store.AppendToStream(ctx, root.ID(), loadedVersion, pending); err != nil {
		return err
	}
	root.version = loadedVersion + len(pending)
	return nil
}
