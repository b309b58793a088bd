package eventcore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is a distinct, matchable error category. It is compared directly
// with errors.Is against the sentinel values below — string comparison
// plays no part in matching.
type Kind int

const (
	KindInvalidArgument Kind = iota
	KindSequenceMismatch
	KindMismatchedAggregateId
	KindConflict
	KindAggregateNotFound
	KindStoreError
	KindSerialization
	KindDeserialization
	KindDataIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindSequenceMismatch:
		return "sequence_mismatch"
	case KindMismatchedAggregateId:
		return "mismatched_aggregate_id"
	case KindConflict:
		return "conflict"
	case KindAggregateNotFound:
		return "aggregate_not_found"
	case KindStoreError:
		return "store_error"
	case KindSerialization:
		return "serialization"
	case KindDeserialization:
		return "deserialization"
	case KindDataIntegrity:
		return "data_integrity"
	default:
		return "unknown"
	}
}

// Error is the single error type every infrastructure-facing operation in
// the module returns. It carries a Kind so callers can dispatch on
// errors.Is against the package-level sentinels instead of parsing a
// message or comparing a string code.
type Error struct {
	Kind    Kind
	Op      string
	Cause   error
	Context map[string]any
}

func newError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if ctx := e.contextString(); ctx != "" {
		msg += ": " + ctx
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// contextString renders Context as "key=value" pairs sorted by key, so
// the rendered message is deterministic and, per the error handling
// design, carries diagnostics like a conflict's stream_id and
// expected_version in the user-visible string rather than only in the
// map a caller would have to know to inspect.
func (e *Error) contextString() string {
	if len(e.Context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.Context[k]))
	}
	return strings.Join(pairs, " ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, eventcore.ErrConflict) (and its siblings below)
// match any *Error carrying the same Kind, regardless of Op/Cause/Context.
func (e *Error) Is(target error) bool {
	var k *kindSentinel
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// WithContext attaches a diagnostic key/value, returning the receiver for
// chaining. Conflict errors use this to carry stream_id and
// expected_version per the error-message requirement that user-visible
// text include both.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// kindSentinel lets errors.Is match purely on Kind without requiring
// callers to build a full *Error value.
type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return s.kind.String() }

// Sentinels for errors.Is matching, one per taxonomy entry in the error
// handling design. Domain errors (a CommandHandler's business rejection)
// are deliberately absent here: they are plain errors returned through
// Command.Error's channel and never wrapped in *Error, keeping domain and
// infrastructure failures from crossing into each other.
var (
	ErrInvalidArgument      = &kindSentinel{KindInvalidArgument}
	ErrSequenceMismatch     = &kindSentinel{KindSequenceMismatch}
	ErrMismatchedAggregateId = &kindSentinel{KindMismatchedAggregateId}
	ErrConflict             = &kindSentinel{KindConflict}
	ErrAggregateNotFound    = &kindSentinel{KindAggregateNotFound}
	ErrStore                = &kindSentinel{KindStoreError}
	ErrSerialization        = &kindSentinel{KindSerialization}
	ErrDeserialization      = &kindSentinel{KindDeserialization}
	ErrDataIntegrity        = &kindSentinel{KindDataIntegrity}
)

// NewConflictError builds the append-time optimistic-concurrency error.
// Per the error handling design, user-visible conflict messages must
// include the aggregate id and the expected version.
func NewConflictError(streamID Id, expectedVersion int) *Error {
	return newError(KindConflict, "append_to_stream", nil).
		WithContext("stream_id", streamID.String()).
		WithContext("expected_version", expectedVersion)
}

// NewAggregateNotFoundError builds the load-time not-found error.
func NewAggregateNotFoundError(id Id) *Error {
	return newError(KindAggregateNotFound, "load", nil).
		WithContext("aggregate_id", id.String())
}

// NewMismatchedAggregateIdError builds the rehydration-time identity
// mismatch error.
func NewMismatchedAggregateIdError(expected, got Id) *Error {
	return newError(KindMismatchedAggregateId, "load_from_history", nil).
		WithContext("expected", expected.String()).
		WithContext("got", got.String())
}
