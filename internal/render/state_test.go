package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
)

func TestStateRenderer(t *testing.T) {
	renderer := NewStateRenderer(DefaultTheme, 0)

	t.Run("idle", func(t *testing.T) {
		assert.Contains(t, renderer.Render(feedback.State{}, nil), "Waiting for feedback")
	})

	t.Run("loading", func(t *testing.T) {
		assert.Contains(t, renderer.Render(feedback.State{IsLoading: true}, nil), "Submitting feedback")
	})

	t.Run("submitted with ticket", func(t *testing.T) {
		out := renderer.Render(feedback.State{IsSubmitted: true}, &feedback.Ticket{ID: 33, Status: "new"})
		assert.Contains(t, out, "Thank you for your feedback.")
		assert.Contains(t, out, "Ticket #33 (new)")
	})

	t.Run("fallback error", func(t *testing.T) {
		out := renderer.Render(feedback.State{HasError: true}, nil)
		assert.Contains(t, out, feedback.FallbackErrorDescription)
	})

	t.Run("field errors are listed in field order", func(t *testing.T) {
		state := feedback.State{HasError: true, Error: feedback.ErrorInfo{
			Description: "Record validation errors",
			Error:       feedback.CodeRecordInvalid,
			Details: map[string][]feedback.FieldError{
				"requester": {{Description: "Requester: Email:  x is not properly formatted"}},
				"base":      {{Description: "Description: cannot be blank"}},
			},
		}}

		out := renderer.Render(state, nil)

		assert.Contains(t, out, "Record validation errors")
		base := strings.Index(out, "cannot be blank")
		requester := strings.Index(out, "not properly formatted")
		assert.True(t, base >= 0 && requester > base, out)
	})
}
