package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/defense-allies/eventcore"
)

type testContainer struct {
	container testcontainers.Container
	client    *mongodriver.Client
}

func startMongo(ctx context.Context, t *testing.T) *testContainer {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections"),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI("mongodb://"+host+":"+port.Port()))
	require.NoError(t, err)

	return &testContainer{container: container, client: client}
}

func (tc *testContainer) Close(ctx context.Context) {
	_ = tc.client.Disconnect(ctx)
	_ = tc.container.Terminate(ctx)
}

func pendingEvent(t *testing.T, streamID eventcore.Id, version int, eventType string) eventcore.PendingEvent {
	t.Helper()
	built, err := eventcore.NewPendingEvent(streamID).
		EventType(eventType).
		Version(version).
		Metadata(eventcore.NewEventMetadata(eventcore.NewCorrelationID())).
		Payload([]byte(`{"k":"v"}`))
	require.NoError(t, err)
	return *built
}

func TestStore_AppendThenRead(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker; skipped in -short mode")
	}

	// Arrange
	ctx := context.Background()
	tc := startMongo(ctx, t)
	defer tc.Close(ctx)
	collection := tc.client.Database("eventcore_test").Collection("events")
	store := New(tc.client, collection)
	require.NoError(t, store.EnsureIndexes(ctx))
	streamID := eventcore.NewId()
	events := []eventcore.PendingEvent{
		pendingEvent(t, streamID, 1, "Created"),
		pendingEvent(t, streamID, 2, "Activated"),
	}

	// Act
	require.NoError(t, store.AppendToStream(ctx, streamID, 0, events))
	items, err := store.ReadStream(ctx, streamID)
	require.NoError(t, err)

	var read []eventcore.PersistedEvent
	for item := range items {
		require.NoError(t, item.Err)
		read = append(read, item.Event)
	}

	// Assert
	require.Len(t, read, 2)
	assert.Equal(t, 1, read[0].Version)
	assert.Equal(t, 2, read[1].Version)
	assert.Equal(t, events[0].ID.String(), read[0].ID.String())
}

func TestStore_AppendConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker; skipped in -short mode")
	}

	// Arrange: a stale writer still believes the stream is at version 0;
	// the in-transaction version check rejects it before any insert.
	ctx := context.Background()
	tc := startMongo(ctx, t)
	defer tc.Close(ctx)
	collection := tc.client.Database("eventcore_test").Collection("events")
	store := New(tc.client, collection)
	require.NoError(t, store.EnsureIndexes(ctx))
	streamID := eventcore.NewId()
	require.NoError(t, store.AppendToStream(ctx, streamID, 0,
		[]eventcore.PendingEvent{pendingEvent(t, streamID, 1, "Created")}))

	// Act
	err := store.AppendToStream(ctx, streamID, 0,
		[]eventcore.PendingEvent{pendingEvent(t, streamID, 1, "Created")})

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, eventcore.ErrConflict)
}
