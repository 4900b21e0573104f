package trip

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrip_Core(t *testing.T) {
	context := Context{
		"pointer": 3,
		"phase":   "move",
	}

	trip := NewTrip(KindAssertion, "Expected value 51", context)

	assert.Equal(t, KindAssertion, trip.Kind)
	assert.Equal(t, "Expected value 51", trip.Message)
	assert.Equal(t, context, trip.Context)
	assert.Equal(t, Error, trip.Severity)
	assert.WithinDuration(t, time.Now(), trip.Timestamp, time.Second)

	assert.Contains(t, trip.Error(), "Expected value 51")
	assert.Contains(t, trip.Error(), "assertion")
	assert.Contains(t, trip.Error(), "error")
}

func TestTrip_Severities(t *testing.T) {
	stumble := NewStumble(KindPointer, "pointer move without coordinate", nil)
	error_ := NewTrip(KindAssertion, "value mismatch", nil)
	fall := NewFall(KindConfig, "min must be below max", nil)

	assert.Equal(t, Stumble, stumble.Severity)
	assert.Equal(t, Error, error_.Severity)
	assert.Equal(t, Fall, fall.Severity)

	assert.True(t, stumble.CanRecover())
	assert.False(t, error_.CanRecover())
	assert.False(t, fall.CanRecover())

	assert.False(t, stumble.IsFall())
	assert.False(t, error_.IsFall())
	assert.True(t, fall.IsFall())
}

func TestTrip_DetailedString(t *testing.T) {
	trip := NewStumble(KindGeometry, "degenerate track geometry", Context{"start": 10, "end": 10})

	val, exists := trip.GetContext("start")
	assert.True(t, exists)
	assert.Equal(t, 10, val)

	_, exists = trip.GetContext("missing")
	assert.False(t, exists)

	detailed := trip.DetailedString()
	assert.Contains(t, detailed, "degenerate track geometry")
	assert.Contains(t, detailed, "end: 10")
	assert.Less(t, strings.Index(detailed, "end:"), strings.Index(detailed, "start:"), "context keys are sorted")
}

func TestHandler_Basic(t *testing.T) {
	handler := NewHandler("engine", DefaultPolicy())

	assert.True(t, handler.ShouldContinue())
	assert.Nil(t, handler.Last())

	handler.Record(NewStumble(KindPointer, "release from uncaptured pointer", nil))
	assert.True(t, handler.ShouldContinue())
	assert.True(t, handler.HasStumbles())
	assert.False(t, handler.HasTrips())

	fall := NewFall(KindConfig, "step must be positive", nil)
	handler.Record(fall)
	assert.False(t, handler.ShouldContinue())
	assert.Same(t, fall, handler.Last())

	handler.Record(nil)
	assert.Len(t, handler.GetTrips(), 1)
	assert.Len(t, handler.GetStumbles(), 1)
	assert.Equal(t, "[engine] 1 trips, 1 stumbles", handler.Summary())
}

func TestHandler_MaxStumbles(t *testing.T) {
	handler := NewHandler("engine", &Policy{MaxStumbles: 2})

	for i := 0; i < 2; i++ {
		handler.Record(NewStumble(KindPointer, "dropped", nil))
	}
	assert.True(t, handler.ShouldContinue())

	handler.Record(NewStumble(KindPointer, "dropped", nil))
	assert.False(t, handler.ShouldContinue())
}

func TestHandler_DetailedReport(t *testing.T) {
	handler := NewHandler("stage", nil)
	assert.Equal(t, "[stage] No issues", handler.Summary())

	handler.Record(NewTrip(KindTimeout, "Timeout waiting for value '60'", nil))
	handler.Record(NewStumble(KindVisual, "frame not written", nil))

	report := handler.DetailedReport()
	require.Contains(t, report, "=== stage Component Report ===")
	assert.Contains(t, report, "Trips:\n1. [timeout:error]")
	assert.Contains(t, report, "Stumbles:\n1. [visual:stumble]")
}

func TestPolicy_Default(t *testing.T) {
	policy := DefaultPolicy()
	handler := NewHandler("engine", policy)

	assert.True(t, policy.StopOnFall)
	assert.Equal(t, 100, policy.MaxStumbles)
	assert.True(t, handler.CanRecover(KindPointer))
	assert.True(t, handler.CanRecover(KindGeometry))
	assert.False(t, handler.CanRecover(KindConfig))
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "stumble", Stumble.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "fall", Fall.String())
	assert.Equal(t, "unknown", Severity(9).String())
}
