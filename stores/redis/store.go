// Package redis is an eventcore.EventStore backed by Redis: one list per
// stream holding serialized, optionally LZ4-compressed event payloads,
// plus a metadata hash tracking the stream's current version. Optimistic
// concurrency is enforced with WATCH/MULTI around the version check.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/defense-allies/eventcore"
)

// KeyBuilder produces the Redis keys for one stream's event list and
// metadata hash, the same fluent-builder shape the rest of the module
// uses for constructing compound identifiers.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a KeyBuilder namespacing every key under prefix.
func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{prefix: prefix}
}

func (kb *KeyBuilder) EventsKey(streamID string) string {
	return fmt.Sprintf("%s:events:%s", kb.prefix, streamID)
}

func (kb *KeyBuilder) MetadataKey(streamID string) string {
	return fmt.Sprintf("%s:meta:%s", kb.prefix, streamID)
}

// Store is an EventStore adapter over a *redis.Client.
type Store struct {
	client       *goredis.Client
	keys         *KeyBuilder
	breaker      *circuitBreaker
	compress     bool
	compressType CompressionType
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithCompression turns on payload compression with codec t for payloads
// of at least compressionMinSize bytes; smaller payloads are stored
// uncompressed. LZ4 trades ratio for speed, gzip the reverse.
func WithCompression(t CompressionType) Option {
	return func(s *Store) {
		s.compress = true
		s.compressType = t
	}
}

// WithCircuitBreaker overrides the default failure threshold/recovery
// timeout for the append/read circuit breaker.
func WithCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) Option {
	return func(s *Store) {
		s.breaker = newCircuitBreaker(failureThreshold, recoveryTimeout)
	}
}

// New wires a Store on top of an already-constructed *redis.Client.
func New(client *goredis.Client, keyPrefix string, opts ...Option) *Store {
	s := &Store{
		client:       client,
		keys:         NewKeyBuilder(keyPrefix),
		breaker:      newCircuitBreaker(5, 30*time.Second),
		compressType: CompressionLZ4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type redisEventRecord struct {
	ID          string            `json:"id"`
	StreamID    string            `json:"stream_id"`
	Version     int               `json:"version"`
	EventType   string            `json:"event_type"`
	Metadata    eventMetadataJSON `json:"metadata"`
	Payload     []byte            `json:"payload"`
	Compression CompressionType   `json:"compression,omitempty"`
	PersistedAt time.Time         `json:"persisted_at"`
}

type eventMetadataJSON struct {
	CorrelationID string         `json:"correlation_id"`
	Extra         map[string]any `json:"extra,omitempty"`
}

func (s *Store) AppendToStream(ctx context.Context, streamID eventcore.Id, expectedVersion int, events []eventcore.PendingEvent) error {
	if len(events) == 0 {
		return nil
	}

	eventsKey := s.keys.EventsKey(streamID.String())
	metaKey := s.keys.MetadataKey(streamID.String())

	return s.breaker.call(func() error {
		return s.client.Watch(ctx, func(tx *goredis.Tx) error {
			currentVersion, err := readVersion(ctx, tx, metaKey)
			if err != nil {
				return err
			}
			if currentVersion != expectedVersion {
				return eventcore.NewConflictError(streamID, expectedVersion)
			}

			records := make([]any, 0, len(events))
			next := expectedVersion + 1
			for _, e := range events {
				if e.Version != next {
					return &eventcore.Error{Kind: eventcore.KindInvalidArgument, Op: "append_to_stream"}
				}
				payload := e.Payload
				compression := CompressionNone
				if s.compress && shouldCompress(payload) {
					compressed, cerr := compress(payload, s.compressType)
					if cerr != nil {
						return newStoreError("compress event payload", cerr)
					}
					payload = compressed
					compression = s.compressType
				}
				record := redisEventRecord{
					ID:        e.ID.String(),
					StreamID:  e.StreamID.String(),
					Version:   e.Version,
					EventType: e.EventType,
					Metadata: eventMetadataJSON{
						CorrelationID: string(e.Metadata.CorrelationID),
						Extra:         e.Metadata.Extra,
					},
					Payload:     payload,
					Compression: compression,
					PersistedAt: time.Now(),
				}
				data, merr := json.Marshal(record)
				if merr != nil {
					return newStoreError("marshal event record", merr)
				}
				records = append(records, data)
				next++
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.RPush(ctx, eventsKey, records...)
				pipe.HSet(ctx, metaKey, "version", expectedVersion+len(events))
				return nil
			})
			if err != nil {
				return newStoreError("append events", err)
			}
			return nil
		}, metaKey)
	})
}

func readVersion(ctx context.Context, tx *goredis.Tx, metaKey string) (int, error) {
	versionStr, err := tx.HGet(ctx, metaKey, "version").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, newStoreError("read stream version", err)
	}
	version, err := strconv.Atoi(versionStr)
	if err != nil {
		return 0, newStoreError("parse stream version", err)
	}
	return version, nil
}

func (s *Store) ReadStream(ctx context.Context, streamID eventcore.Id) (<-chan eventcore.StreamItem, error) {
	eventsKey := s.keys.EventsKey(streamID.String())

	var raw []string
	err := s.breaker.call(func() error {
		var cerr error
		raw, cerr = s.client.LRange(ctx, eventsKey, 0, -1).Result()
		if cerr != nil && !errors.Is(cerr, goredis.Nil) {
			return newStoreError("read stream", cerr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(chan eventcore.StreamItem, len(raw))
	for _, data := range raw {
		var record redisEventRecord
		if jerr := json.Unmarshal([]byte(data), &record); jerr != nil {
			out <- eventcore.StreamItem{Err: newStoreError("unmarshal event record", jerr)}
			continue
		}
		payload := record.Payload
		if record.Compression != "" && record.Compression != CompressionNone {
			decompressed, derr := decompress(payload, record.Compression)
			if derr != nil {
				out <- eventcore.StreamItem{Err: newStoreError("decompress event payload", derr)}
				continue
			}
			payload = decompressed
		}
		id, ierr := eventcore.IdFromString(record.StreamID)
		if ierr != nil {
			out <- eventcore.StreamItem{Err: ierr}
			continue
		}
		eventID, eerr := eventcore.EventIDFromString(record.ID)
		if eerr != nil {
			out <- eventcore.StreamItem{Err: eerr}
			continue
		}
		out <- eventcore.StreamItem{Event: eventcore.PersistedEvent{
			ID:        eventID,
			StreamID:  id,
			Version:   record.Version,
			EventType: record.EventType,
			Metadata: eventcore.EventMetadata{
				CorrelationID: eventcore.CorrelationID(record.Metadata.CorrelationID),
				Extra:         record.Metadata.Extra,
			},
			Payload:     payload,
			PersistedAt: record.PersistedAt,
		}}
	}
	close(out)
	return out, nil
}

func (s *Store) CurrentVersion(ctx context.Context, streamID eventcore.Id) (int, error) {
	metaKey := s.keys.MetadataKey(streamID.String())
	var version int
	err := s.breaker.call(func() error {
		versionStr, err := s.client.HGet(ctx, metaKey, "version").Result()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				version = 0
				return nil
			}
			return newStoreError("read current version", err)
		}
		v, err := strconv.Atoi(versionStr)
		if err != nil {
			return newStoreError("parse current version", err)
		}
		version = v
		return nil
	})
	return version, err
}

func newStoreError(op string, cause error) *eventcore.Error {
	if cause != nil {
		cause = errors.Wrap(cause, op)
	}
	return &eventcore.Error{Kind: eventcore.KindStoreError, Op: op, Cause: cause}
}
