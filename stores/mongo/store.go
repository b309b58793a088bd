// Package mongo is an eventcore.EventStore backed by MongoDB: one
// document per event in a single collection, with a unique compound
// index on (stream_id, version) enforcing the append contract, and an
// append written inside a session transaction so the version check and
// the insert are atomic.
package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/defense-allies/eventcore"
)

// eventDocument is the standard Event Sourcing document schema: one row
// per event, following the logical schema in the external interfaces
// section, except that the metadata column is split into two fields:
// correlation_id as a top-level string and the extra keys as a nested
// metadata_extra document.
type eventDocument struct {
	ID            string         `bson:"event_id"`
	StreamID      string         `bson:"stream_id"`
	Version       int            `bson:"version"`
	EventType     string         `bson:"event_type"`
	CorrelationID string         `bson:"correlation_id"`
	MetadataExtra map[string]any `bson:"metadata_extra,omitempty"`
	Payload       []byte         `bson:"payload"`
	PersistedAt   time.Time      `bson:"persisted_at"`
}

// Store is an EventStore adapter over a *mongo.Collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// New wires a Store on top of an already-connected collection. Callers
// are expected to have created the collection's unique compound index
// themselves (EnsureIndexes does this for convenience).
func New(client *mongo.Client, collection *mongo.Collection) *Store {
	return &Store{client: client, collection: collection}
}

// EnsureIndexes creates the (stream_id, version) uniqueness constraint
// the append contract relies on to reject a concurrent double append.
// Call this once at startup; it is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "stream_id", Value: 1}, {Key: "version", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return newStoreError("ensure indexes", err)
	}
	return nil
}

func (s *Store) AppendToStream(ctx context.Context, streamID eventcore.Id, expectedVersion int, events []eventcore.PendingEvent) error {
	if len(events) == 0 {
		return nil
	}

	session, err := s.client.StartSession()
	if err != nil {
		return newStoreError("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		currentVersion, verr := s.currentVersion(sessCtx, streamID)
		if verr != nil {
			return nil, verr
		}
		if currentVersion != expectedVersion {
			return nil, eventcore.NewConflictError(streamID, expectedVersion)
		}

		docs := make([]any, 0, len(events))
		next := expectedVersion + 1
		for _, e := range events {
			if e.Version != next {
				return nil, &eventcore.Error{Kind: eventcore.KindInvalidArgument, Op: "append_to_stream"}
			}
			docs = append(docs, eventDocument{
				ID:            e.ID.String(),
				StreamID:      e.StreamID.String(),
				Version:       e.Version,
				EventType:     e.EventType,
				CorrelationID: string(e.Metadata.CorrelationID),
				MetadataExtra: e.Metadata.Extra,
				Payload:       e.Payload,
				PersistedAt:   time.Now(),
			})
			next++
		}

		if _, ierr := s.collection.InsertMany(sessCtx, docs); ierr != nil {
			if mongo.IsDuplicateKeyError(ierr) {
				return nil, eventcore.NewConflictError(streamID, expectedVersion)
			}
			return nil, newStoreError("insert events", ierr)
		}
		return nil, nil
	})
	if err != nil {
		return unwrapTransactionError(err)
	}
	return nil
}

// unwrapTransactionError passes eventcore.*Error values (our own
// conflict/invalid-argument errors raised inside the transaction)
// through unchanged, since WithTransaction does not otherwise alter
// error identity, but wrapping is defensive against future driver
// versions that do.
func unwrapTransactionError(err error) error {
	var coreErr *eventcore.Error
	if errors.As(err, &coreErr) {
		return coreErr
	}
	return newStoreError("append_to_stream transaction", err)
}

func (s *Store) ReadStream(ctx context.Context, streamID eventcore.Id) (<-chan eventcore.StreamItem, error) {
	filter := bson.M{"stream_id": streamID.String()}
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, newStoreError("read stream", err)
	}

	out := make(chan eventcore.StreamItem)
	go func() {
		defer close(out)
		defer cursor.Close(ctx)
		for cursor.Next(ctx) {
			var doc eventDocument
			if derr := cursor.Decode(&doc); derr != nil {
				out <- eventcore.StreamItem{Err: newStoreError("decode event document", derr)}
				continue
			}
			id, ierr := eventcore.IdFromString(doc.StreamID)
			if ierr != nil {
				out <- eventcore.StreamItem{Err: ierr}
				continue
			}
			eventID, eerr := eventcore.EventIDFromString(doc.ID)
			if eerr != nil {
				out <- eventcore.StreamItem{Err: eerr}
				continue
			}
			out <- eventcore.StreamItem{Event: eventcore.PersistedEvent{
				ID:        eventID,
				StreamID:  id,
				Version:   doc.Version,
				EventType: doc.EventType,
				Metadata: eventcore.EventMetadata{
					CorrelationID: eventcore.CorrelationID(doc.CorrelationID),
					Extra:         doc.MetadataExtra,
				},
				Payload:     doc.Payload,
				PersistedAt: doc.PersistedAt,
			}}
		}
		if cerr := cursor.Err(); cerr != nil {
			out <- eventcore.StreamItem{Err: newStoreError("cursor error", cerr)}
		}
	}()
	return out, nil
}

func (s *Store) CurrentVersion(ctx context.Context, streamID eventcore.Id) (int, error) {
	return s.currentVersion(ctx, streamID)
}

func (s *Store) currentVersion(ctx context.Context, streamID eventcore.Id) (int, error) {
	filter := bson.M{"stream_id": streamID.String()}
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})

	var doc eventDocument
	err := s.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, newStoreError("read current version", err)
	}
	return doc.Version, nil
}

func newStoreError(op string, cause error) *eventcore.Error {
	if cause != nil {
		cause = errors.Wrap(cause, op)
	}
	return &eventcore.Error{Kind: eventcore.KindStoreError, Op: op, Cause: cause}
}
