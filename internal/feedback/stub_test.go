package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastMode(sim Simulation) TestMode {
	return TestMode{Simulate: sim, Delay: time.Millisecond}
}

func TestStubResponderSimulate(t *testing.T) {
	ctx := context.Background()
	stub := NewStubResponder(fastMode(SimulateSuccess), nil)

	t.Run("valid input with success simulation creates a ticket", func(t *testing.T) {
		payload := FormatPayload(SubmitData{Comment: "Love the new dashboard", Email: "jane@example.com"})

		result := stub.Simulate(ctx, payload, fastMode(SimulateSuccess))

		require.True(t, result.OK)
		assert.Equal(t, Ticket{ID: StubTicketID, Status: "new", Description: "Love the new dashboard"}, result.Ticket)
		assert.JSONEq(t,
			`{"request":{"id":33,"status":"new","description":"Love the new dashboard"}}`,
			string(result.Raw))
	})

	t.Run("missing email is not validated", func(t *testing.T) {
		result := stub.Simulate(ctx, FormatPayload(SubmitData{Comment: "hello"}), fastMode(SimulateSuccess))
		assert.True(t, result.OK)
		assert.Equal(t, "hello", result.Ticket.Description)
	})

	t.Run("valid input with failure simulation returns an empty error", func(t *testing.T) {
		result := stub.Simulate(ctx, FormatPayload(SubmitData{Comment: "hello"}), fastMode(SimulateFailure))

		assert.False(t, result.OK)
		assert.True(t, result.Failure.IsZero())
		assert.Equal(t, "{}", string(result.Raw))
		assert.NoError(t, result.Cause)
	})

	for _, sim := range []Simulation{SimulateSuccess, SimulateFailure} {
		t.Run("malformed email is rejected when simulating "+string(sim), func(t *testing.T) {
			payload := FormatPayload(SubmitData{Comment: "hello", Email: "not-an-email"})

			result := stub.Simulate(ctx, payload, fastMode(sim))

			require.False(t, result.OK)
			assert.Equal(t, CodeRecordInvalid, result.Failure.Error)
			assert.Equal(t, "Record validation errors", result.Failure.Description)
			require.Contains(t, result.Failure.Details, "requester")
			assert.Equal(t, "Requester: Email:  not-an-email is not properly formatted",
				result.Failure.Details["requester"][0].Description)
			assert.NotContains(t, result.Failure.Details, "base")
		})

		t.Run("blank comment is rejected when simulating "+string(sim), func(t *testing.T) {
			result := stub.Simulate(ctx, FormatPayload(SubmitData{}), fastMode(sim))

			require.False(t, result.OK)
			assert.Equal(t, CodeRecordInvalid, result.Failure.Error)
			require.Contains(t, result.Failure.Details, "base")
			assert.Equal(t, FieldError{
				Description: "Description: cannot be blank",
				Error:       CodeBlankValue,
				FieldKey:    "description",
			}, result.Failure.Details["base"][0])
		})
	}

	t.Run("both validation errors are reported together", func(t *testing.T) {
		result := stub.Simulate(ctx, FormatPayload(SubmitData{Email: "bad@"}), fastMode(SimulateSuccess))

		require.False(t, result.OK)
		assert.Len(t, result.Failure.Details, 2)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(result.Raw, &body))
		assert.Equal(t, "RecordInvalid", body["error"])
		assert.Contains(t, body["details"], "requester")
		assert.Contains(t, body["details"], "base")
	})
}

func TestStubResponderDelay(t *testing.T) {
	t.Run("settles after the configured delay", func(t *testing.T) {
		stub := NewStubResponder(TestMode{Simulate: SimulateSuccess, Delay: 30 * time.Millisecond}, nil)

		start := time.Now()
		result := stub.Send(context.Background(), FormatPayload(SubmitData{Comment: "hello"}))

		assert.True(t, result.OK)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("zero delay means the default", func(t *testing.T) {
		assert.Equal(t, DefaultStubDelay, TestMode{}.delay())
		assert.Equal(t, time.Second, DefaultStubDelay)
	})

	t.Run("cancelled context abandons the simulation", func(t *testing.T) {
		stub := NewStubResponder(TestMode{Simulate: SimulateSuccess, Delay: time.Hour}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := stub.Send(ctx, FormatPayload(SubmitData{Comment: "hello"}))

		assert.False(t, result.OK)
		assert.True(t, errors.Is(result.Cause, context.Canceled))
	})
}

func TestValidationErrors(t *testing.T) {
	_, invalid := ValidationErrors(FormatPayload(SubmitData{Comment: "ok", Email: "jane@example.com"}))
	assert.False(t, invalid)

	info, invalid := ValidationErrors(FormatPayload(SubmitData{Comment: "ok", Email: "jane@"}))
	assert.True(t, invalid)
	assert.Equal(t, CodeRecordInvalid, info.Error)
}
