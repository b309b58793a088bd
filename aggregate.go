package eventcore

// AggregateState carries an aggregate's derived state. Apply is a pure
// state mutation: no validation, no I/O, no clock reads — those belong
// in the command handler that produces the event, not in the fold over
// it. E is the aggregate's own closed event sum type (a DomainEvent
// sub-interface implemented only by that aggregate's event variants),
// which is what gives AggregateState.Apply its "accepts exactly this
// aggregate's events" guarantee instead of the universal DomainEvent.
type AggregateState[E DomainEvent] interface {
	Apply(event E)
}

// StatePtr binds a value state type S to the pointer-receiver methods
// its *S must implement to satisfy AggregateState[E]. Go has no
// "default-constructible" trait bound; pairing a value type parameter
// with a pointer-constrained one is the idiomatic stand-in — it lets
// AggregateRoot hold S by value (so `new(AggregateRoot[S,E,PS])` already
// gives a usable zero state) while still calling through *S's Apply.
type StatePtr[S any, E DomainEvent] interface {
	*S
	AggregateState[E]
}

// AggregateRoot is the mutable handle through which commands execute.
// It owns its state and its uncommitted buffer exclusively: callers must
// not share one across goroutines between load and save.
type AggregateRoot[S any, E DomainEvent, PS StatePtr[S, E]] struct {
	id          Id
	state       S
	version     int
	uncommitted eventBuffer[E]
}

// NewAggregateRoot creates a fresh aggregate: version 0, default state,
// no uncommitted events.
func NewAggregateRoot[S any, E DomainEvent, PS StatePtr[S, E]](id Id) *AggregateRoot[S, E, PS] {
	return &AggregateRoot[S, E, PS]{id: id}
}

// LoadFromHistory reconstructs an aggregate by replaying a full history
// from version 1. The history is validated in full before anything is
// applied, so a malformed history never leaves a partially-built root
// behind — on error the returned root is nil and must be discarded.
func LoadFromHistory[S any, E DomainEvent, PS StatePtr[S, E]](id Id, history []VersionedEvent) (*AggregateRoot[S, E, PS], error) {
	root := &AggregateRoot[S, E, PS]{id: id}
	if err := root.applyHistory(history, 1); err != nil {
		return nil, err
	}
	return root, nil
}

func (r *AggregateRoot[S, E, PS]) ID() Id {
	return r.id
}

// State returns a read-only view of the current derived state. Command
// handlers receive this pointer and must not mutate through it; state
// changes are expressed solely via emitted events (enforced by
// convention, same as the rest of the aggregate engine).
func (r *AggregateRoot[S, E, PS]) State() *S {
	return &r.state
}

// Version is the count of events applied from persisted history. It is
// distinct from CurrentVersion, which also counts uncommitted events.
func (r *AggregateRoot[S, E, PS]) Version() int {
	return r.version
}

// CurrentVersion is Version plus the number of buffered, not-yet-saved
// events.
func (r *AggregateRoot[S, E, PS]) CurrentVersion() int {
	return r.version + r.uncommitted.length()
}

// UncommittedEvents returns the buffered events without draining them.
func (r *AggregateRoot[S, E, PS]) UncommittedEvents() []E {
	return r.uncommitted.snapshot()
}

// TakeUncommittedEvents drains the uncommitted buffer. The aggregate's
// persisted Version is not advanced here — only a repository advances it,
// and only after a store append actually succeeds.
func (r *AggregateRoot[S, E, PS]) TakeUncommittedEvents() []E {
	return r.uncommitted.drain()
}

// ApplyEvents extends an already-loaded aggregate with more history,
// starting at Version()+1. Used by a repository that streams history in
// batches rather than loading it all into memory at once.
func (r *AggregateRoot[S, E, PS]) ApplyEvents(history []VersionedEvent) error {
	return r.applyHistory(history, r.version+1)
}

func (r *AggregateRoot[S, E, PS]) applyHistory(history []VersionedEvent, startVersion int) error {
	expected := startVersion
	for _, ve := range history {
		event, ok := ve.Event.(E)
		if !ok {
			return newError(KindDataIntegrity, "load_from_history", nil).
				WithContext("reason", "event does not belong to this aggregate's event type")
		}
		if !event.AggregateID().Equal(r.id) {
			return NewMismatchedAggregateIdError(r.id, event.AggregateID())
		}
		if ve.Version != expected {
			return newError(KindSequenceMismatch, "load_from_history", nil).
				WithContext("expected_version", expected).
				WithContext("got_version", ve.Version)
		}
		expected++
	}
	// Validation passed for the whole batch; now apply it.
	for _, ve := range history {
		event := ve.Event.(E)
		PS(&r.state).Apply(event)
		r.version++
	}
	return nil
}

// applyNewBatch folds a handler's freshly-produced events into state and
// buffers them as uncommitted. Only Execute calls this — it is not part
// of the public surface because skipping the aggregate-id check it
// relies on would violate invariant 3 (every uncommitted event's
// aggregate_id == id).
//
// Every event's aggregate id is validated up front, before any event is
// applied — the same validate-all-then-apply-all two-pass pattern
// applyHistory uses. A single-pass validate-then-apply-as-we-go loop
// would leave state and the uncommitted buffer partially mutated if a
// later event in the batch failed the check, breaking Execute's
// all-or-nothing error contract for handlers that return more than one
// event.
func (r *AggregateRoot[S, E, PS]) applyNewBatch(events []E) error {
	for _, event := range events {
		if !event.AggregateID().Equal(r.id) {
			return newError(KindDataIntegrity, "execute", nil).
				WithContext("reason", "handler emitted an event for a different aggregate id").
				WithContext("expected", r.id.String()).
				WithContext("got", event.AggregateID().String())
		}
	}
	for _, event := range events {
		PS(&r.state).Apply(event)
		r.uncommitted.push(event)
	}
	return nil
}
