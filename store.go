package eventcore

import "context"

// EventStore is the single pluggable boundary between the aggregate
// engine and durable storage. Every adapter — in-memory, Redis, MongoDB —
// implements this and nothing else; the repository and aggregate layers
// never see adapter-specific types.
type EventStore interface {
	// AppendToStream writes events atomically, iff the store's current
	// version for streamID equals expectedVersion (0 for an absent
	// stream). events must carry versions expectedVersion+1 ..
	// expectedVersion+len(events), contiguous and strictly increasing —
	// anything else is an *Error with KindInvalidArgument. A version
	// mismatch against the store's actual current version is an *Error
	// with KindConflict and writes nothing.
	AppendToStream(ctx context.Context, streamID Id, expectedVersion int, events []PendingEvent) error

	// ReadStream yields a stream's events in ascending version order
	// starting at 1, with no gaps. The returned channel is closed once
	// every event as of read start has been yielded; an item that could
	// not be read carries its error in Err and later items still follow.
	// It is safe to range over as a finite sequence.
	ReadStream(ctx context.Context, streamID Id) (<-chan StreamItem, error)

	// CurrentVersion returns a stream's current max version, 0 if the
	// stream does not exist. Repositories use this only indirectly,
	// through AppendToStream's own check; it is exposed for callers that
	// need to probe a stream without reading it.
	CurrentVersion(ctx context.Context, streamID Id) (int, error)
}
