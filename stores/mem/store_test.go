package mem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defense-allies/eventcore"
)

func pendingEvent(t *testing.T, streamID eventcore.Id, version int, eventType string) eventcore.PendingEvent {
	t.Helper()
	built, err := eventcore.NewPendingEvent(streamID).
		EventType(eventType).
		Version(version).
		Metadata(eventcore.NewEventMetadata(eventcore.NewCorrelationID())).
		Payload([]byte(`{}`))
	require.NoError(t, err)
	return *built
}

func TestStore_AppendThenRead(t *testing.T) {
	// Arrange
	store := New()
	streamID := eventcore.NewId()
	events := []eventcore.PendingEvent{
		pendingEvent(t, streamID, 1, "Created"),
		pendingEvent(t, streamID, 2, "Activated"),
	}

	// Act
	err := store.AppendToStream(context.Background(), streamID, 0, events)
	require.NoError(t, err)

	items, err := store.ReadStream(context.Background(), streamID)
	require.NoError(t, err)

	var read []eventcore.PersistedEvent
	for item := range items {
		require.NoError(t, item.Err)
		read = append(read, item.Event)
	}

	// Assert
	assert.Len(t, read, 2)
	assert.Equal(t, 1, read[0].Version)
	assert.Equal(t, 2, read[1].Version)
	assert.Equal(t, "Created", read[0].EventType)
	assert.NotZero(t, read[0].PersistedAt)
}

func TestStore_AppendConflict(t *testing.T) {
	// Arrange
	store := New()
	streamID := eventcore.NewId()
	first := []eventcore.PendingEvent{pendingEvent(t, streamID, 1, "Created")}
	require.NoError(t, store.AppendToStream(context.Background(), streamID, 0, first))

	// Act: a second writer still believes the stream is at version 0
	stale := []eventcore.PendingEvent{pendingEvent(t, streamID, 1, "Created")}
	err := store.AppendToStream(context.Background(), streamID, 0, stale)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, eventcore.ErrConflict)

	version, verr := store.CurrentVersion(context.Background(), streamID)
	require.NoError(t, verr)
	assert.Equal(t, 1, version)
}

func TestStore_ReadUnknownStreamIsEmpty(t *testing.T) {
	// Arrange
	store := New()

	// Act
	items, err := store.ReadStream(context.Background(), eventcore.NewId())
	require.NoError(t, err)

	// Assert
	count := 0
	for range items {
		count++
	}
	assert.Equal(t, 0, count)
}
