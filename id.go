package eventcore

import (
	"github.com/google/uuid"
)

// Id is the opaque aggregate identifier. It is clonable, hashable and
// totally ordered by equality only — callers must not assume any other
// ordering. Internally it wraps a UUID, the realization the framework
// standardizes on for every aggregate across the module.
type Id struct {
	value uuid.UUID
}

// NewId generates a fresh, random Id.
func NewId() Id {
	return Id{value: uuid.New()}
}

// IdFromString parses a textual UUID into an Id.
func IdFromString(s string) (Id, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return Id{}, newError(KindInvalidArgument, "parse aggregate id", err)
	}
	return Id{value: v}, nil
}

// MustIdFromString is IdFromString, panicking on a malformed string.
// Intended for tests and static IDs, never for user input.
func MustIdFromString(s string) Id {
	id, err := IdFromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id Id) String() string {
	return id.value.String()
}

// Bytes returns the raw 16-byte representation.
func (id Id) Bytes() []byte {
	b := make([]byte, len(id.value))
	copy(b, id.value[:])
	return b
}

// IsZero reports whether the Id is the zero value (never assigned).
func (id Id) IsZero() bool {
	return id.value == uuid.Nil
}

func (id Id) Equal(other Id) bool {
	return id.value == other.value
}

func (id Id) MarshalText() ([]byte, error) {
	return []byte(id.value.String()), nil
}

func (id *Id) UnmarshalText(text []byte) error {
	v, err := uuid.ParseBytes(text)
	if err != nil {
		return newError(KindInvalidArgument, "unmarshal aggregate id", err)
	}
	id.value = v
	return nil
}

// EventID is a time-sortable identifier assigned once, at PendingEvent
// construction, and never changed afterward.
type EventID struct {
	value uuid.UUID
}

// NewEventID mints a UUIDv7 event identifier. UUIDv7 embeds a millisecond
// timestamp in its high bits, so lexical order and temporal order agree —
// the property the event log relies on when events from different
// producers interleave in storage.
func NewEventID() (EventID, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return EventID{}, newError(KindInvalidArgument, "generate event id", err)
	}
	return EventID{value: v}, nil
}

func (e EventID) String() string {
	return e.value.String()
}

// EventIDFromString parses a textual UUID into an EventID. Store
// adapters use this to restore the identifier a PendingEvent was
// assigned when reconstructing a PersistedEvent from a row/document.
func EventIDFromString(s string) (EventID, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, newError(KindInvalidArgument, "parse event id", err)
	}
	return EventID{value: v}, nil
}

func (e EventID) IsZero() bool {
	return e.value == uuid.Nil
}

func (e EventID) MarshalText() ([]byte, error) {
	return []byte(e.value.String()), nil
}

func (e *EventID) UnmarshalText(text []byte) error {
	v, err := uuid.ParseBytes(text)
	if err != nil {
		return newError(KindInvalidArgument, "unmarshal event id", err)
	}
	e.value = v
	return nil
}

// CorrelationID ties together every event produced by one causally
// related chain of commands. It is a plain string: assigning it by value
// already gives the "propagate end-to-end, never mutate" behavior a
// reference-counted string would in other languages.
type CorrelationID string

// NewCorrelationID mints a fresh correlation id for the start of a new
// causal chain.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.NewString())
}
