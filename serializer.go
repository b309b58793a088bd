package eventcore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// Serializer turns a domain event into an opaque payload. Payloads are
// opaque to the core; any codec that round-trips equality is acceptable.
type Serializer interface {
	Serialize(event DomainEvent) ([]byte, error)
}

// Deserializer turns a stored payload back into a domain event, given
// the event_type string it was stored under.
type Deserializer interface {
	Deserialize(eventType string, payload []byte) (DomainEvent, error)
}

// EventTypeRegistry maps stable event_type strings to the concrete Go
// type a deserializer should allocate. Registration is done once at
// startup (one call per event variant) and read concurrently afterward,
// a standard registration/lookup pair, nothing fancier.
type EventTypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventTypeRegistry creates an empty registry.
func NewEventTypeRegistry() *EventTypeRegistry {
	return &EventTypeRegistry{types: make(map[string]reflect.Type)}
}

// Register associates eventType with the concrete type of zeroValue
// (typically `MyEvent{}`). The registry always stores the pointer type,
// so Deserialize can allocate directly into it regardless of whether
// zeroValue was passed by value or by pointer.
func (r *EventTypeRegistry) Register(eventType string, zeroValue any) error {
	if eventType == "" {
		return newError(KindInvalidArgument, "register_event_type", nil)
	}
	if zeroValue == nil {
		return newError(KindInvalidArgument, "register_event_type", nil).
			WithContext("reason", "zero value cannot be nil")
	}
	t := reflect.TypeOf(zeroValue)
	if t.Kind() != reflect.Ptr {
		t = reflect.PointerTo(t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[eventType] = t
	return nil
}

// Lookup returns the registered reflect.Type for eventType.
func (r *EventTypeRegistry) Lookup(eventType string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[eventType]
	return t, ok
}

// JSONSerializer is the default codec: structured, self-describing JSON.
// Any codec that round-trips equality is acceptable per the
// external-interfaces contract; this one is provided so examples and
// tests don't need to author their own.
type JSONSerializer struct {
	registry *EventTypeRegistry
}

// NewJSONSerializer builds a JSONSerializer backed by registry. A nil
// registry is replaced with a fresh empty one.
func NewJSONSerializer(registry *EventTypeRegistry) *JSONSerializer {
	if registry == nil {
		registry = NewEventTypeRegistry()
	}
	return &JSONSerializer{registry: registry}
}

func (s *JSONSerializer) Serialize(event DomainEvent) ([]byte, error) {
	if event == nil {
		return nil, newError(KindSerialization, "serialize", nil).
			WithContext("reason", "event cannot be nil")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, newError(KindSerialization, "serialize",
			errors.Wrapf(err, "marshal event type %s", eventTypeNameOf(event)))
	}
	return data, nil
}

func (s *JSONSerializer) Deserialize(eventType string, payload []byte) (DomainEvent, error) {
	t, ok := s.registry.Lookup(eventType)
	if !ok {
		return nil, newError(KindDeserialization, "deserialize", nil).
			WithContext("reason", fmt.Sprintf("event type %q is not registered", eventType))
	}
	target := reflect.New(t.Elem()).Interface()
	if err := json.Unmarshal(payload, target); err != nil {
		return nil, newError(KindDeserialization, "deserialize",
			errors.Wrapf(err, "unmarshal event type %s", eventType))
	}
	event, ok := target.(DomainEvent)
	if !ok {
		return nil, newError(KindDeserialization, "deserialize", nil).
			WithContext("reason", fmt.Sprintf("registered type for %q does not implement DomainEvent", eventType))
	}
	return event, nil
}

func eventTypeNameOf(event DomainEvent) string {
	if event == nil {
		return "<nil>"
	}
	return event.Name()
}
