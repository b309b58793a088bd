// Package mem provides a reference in-memory eventcore.EventStore, used
// by the repository's own tests and as the store for small examples that
// don't need durability across process restarts.
package mem

import (
	"context"
	"sync"
	"time"

	"github.com/defense-allies/eventcore"
)

type stream struct {
	events []eventcore.PersistedEvent
}

// Store is a goroutine-safe, process-local EventStore. Every stream is
// held as a plain slice protected by one mutex — simple enough to audit
// against the append/read contract directly.
type Store struct {
	mu      sync.Mutex
	streams map[string]*stream
}

// New creates an empty Store.
func New() *Store {
	return &Store{streams: make(map[string]*stream)}
}

func (s *Store) AppendToStream(ctx context.Context, streamID eventcore.Id, expectedVersion int, events []eventcore.PendingEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := streamID.String()
	st, exists := s.streams[key]
	currentVersion := 0
	if exists {
		currentVersion = len(st.events)
	}

	if currentVersion != expectedVersion {
		return eventcore.NewConflictError(streamID, expectedVersion)
	}

	next := expectedVersion + 1
	for _, e := range events {
		if e.Version != next {
			return &eventcore.Error{Kind: eventcore.KindInvalidArgument, Op: "append_to_stream"}
		}
		next++
	}

	if !exists {
		st = &stream{}
		s.streams[key] = st
	}

	now := time.Now()
	for _, e := range events {
		st.events = append(st.events, eventcore.PersistedEvent{
			ID:          e.ID,
			StreamID:    e.StreamID,
			Version:     e.Version,
			EventType:   e.EventType,
			Metadata:    e.Metadata,
			Payload:     e.Payload,
			PersistedAt: now,
		})
	}
	return nil
}

func (s *Store) ReadStream(ctx context.Context, streamID eventcore.Id) (<-chan eventcore.StreamItem, error) {
	s.mu.Lock()
	st, exists := s.streams[streamID.String()]
	var snapshot []eventcore.PersistedEvent
	if exists {
		snapshot = make([]eventcore.PersistedEvent, len(st.events))
		copy(snapshot, st.events)
	}
	s.mu.Unlock()

	out := make(chan eventcore.StreamItem, len(snapshot))
	for _, e := range snapshot {
		out <- eventcore.StreamItem{Event: e}
	}
	close(out)
	return out, nil
}

func (s *Store) CurrentVersion(ctx context.Context, streamID eventcore.Id) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, exists := s.streams[streamID.String()]
	if !exists {
		return 0, nil
	}
	return len(st.events), nil
}
