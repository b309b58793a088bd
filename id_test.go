package eventcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defense-allies/eventcore"
)

func TestId_FromStringRoundTripsThroughString(t *testing.T) {
	// Arrange
	original := eventcore.NewId()

	// Act
	parsed, err := eventcore.IdFromString(original.String())

	// Assert
	require.NoError(t, err)
	assert.True(t, original.Equal(parsed))
}

func TestId_FromStringRejectsMalformedInput(t *testing.T) {
	// Act
	id, err := eventcore.IdFromString("not-a-uuid")

	// Assert
	require.Error(t, err)
	assert.True(t, id.IsZero())
}

func TestId_ZeroValueIsZero(t *testing.T) {
	// Arrange
	var id eventcore.Id

	// Assert
	assert.True(t, id.IsZero())
	assert.False(t, eventcore.NewId().IsZero())
}

func TestId_MarshalUnmarshalTextRoundTrips(t *testing.T) {
	// Arrange
	original := eventcore.NewId()

	// Act
	text, err := original.MarshalText()
	require.NoError(t, err)

	var restored eventcore.Id
	require.NoError(t, restored.UnmarshalText(text))

	// Assert
	assert.True(t, original.Equal(restored))
}

func TestId_MustIdFromString_PanicsOnInvalidInput(t *testing.T) {
	// Act / Assert
	assert.Panics(t, func() {
		eventcore.MustIdFromString("garbage")
	})
}

func TestEventID_NewV7IsTimeSortableAcrossSuccessiveCalls(t *testing.T) {
	// Arrange / Act
	first, err := eventcore.NewEventID()
	require.NoError(t, err)
	second, err := eventcore.NewEventID()
	require.NoError(t, err)

	// Assert: UUIDv7's embedded timestamp keeps lexical string order
	// consistent with generation order for IDs minted in sequence.
	assert.False(t, first.IsZero())
	assert.Less(t, first.String(), second.String())
}

func TestEventIDFromString_RoundTrips(t *testing.T) {
	// Arrange
	original, err := eventcore.NewEventID()
	require.NoError(t, err)

	// Act
	parsed, err := eventcore.EventIDFromString(original.String())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, original.String(), parsed.String())
}

func TestEventIDFromString_RejectsMalformedInput(t *testing.T) {
	// Act
	_, err := eventcore.EventIDFromString("garbage")

	// Assert
	assert.Error(t, err)
}

func TestNewCorrelationID_ProducesDistinctValues(t *testing.T) {
	// Act
	a := eventcore.NewCorrelationID()
	b := eventcore.NewCorrelationID()

	// Assert
	assert.NotEqual(t, a, b)
}
