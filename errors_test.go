package eventcore_test

import (
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/defense-allies/eventcore"
)

func TestConflictError_MatchesSentinelAndCarriesContext(t *testing.T) {
	// Arrange
	streamID := eventcore.NewId()

	// Act
	err := eventcore.NewConflictError(streamID, 3)

	// Assert
	assert.ErrorIs(t, err, eventcore.ErrConflict)
	assert.NotErrorIs(t, err, eventcore.ErrAggregateNotFound)
	assert.Contains(t, err.Error(), "conflict")
	assert.Contains(t, err.Error(), streamID.String())
	assert.Contains(t, err.Error(), "expected_version=3")
	assert.Equal(t, streamID.String(), err.Context["stream_id"])
	assert.Equal(t, 3, err.Context["expected_version"])
}

func TestAggregateNotFoundError_MatchesSentinel(t *testing.T) {
	// Act
	err := eventcore.NewAggregateNotFoundError(eventcore.NewId())

	// Assert
	assert.ErrorIs(t, err, eventcore.ErrAggregateNotFound)
}

func TestMismatchedAggregateIdError_CarriesBothIds(t *testing.T) {
	// Arrange
	expected := eventcore.NewId()
	got := eventcore.NewId()

	// Act
	err := eventcore.NewMismatchedAggregateIdError(expected, got)

	// Assert
	assert.ErrorIs(t, err, eventcore.ErrMismatchedAggregateId)
	assert.Equal(t, expected.String(), err.Context["expected"])
	assert.Equal(t, got.String(), err.Context["got"])
	assert.Contains(t, err.Error(), expected.String())
	assert.Contains(t, err.Error(), got.String())
}

func TestError_IsMatchesByKindAcrossDistinctInstances(t *testing.T) {
	// Arrange: two independently constructed errors of the same kind.
	a := eventcore.NewConflictError(eventcore.NewId(), 1)
	b := eventcore.NewConflictError(eventcore.NewId(), 99)

	// Act / Assert
	assert.True(t, goerrors.Is(a, b))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	// Arrange
	id, err := eventcore.IdFromString("not-a-uuid")

	// Assert
	assert.True(t, id.IsZero())
	var coreErr *eventcore.Error
	a := assert.New(t)
	a.ErrorAs(err, &coreErr)
	a.NotNil(coreErr.Unwrap())
	a.Equal(eventcore.KindInvalidArgument, coreErr.Kind)
}
