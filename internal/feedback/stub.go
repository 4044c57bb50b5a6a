package feedback

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/gotrs-io/gotrs-feedback/internal/logger"
)

// Codes and messages the ticketing API uses for record validation failures.
const (
	CodeRecordInvalid = "RecordInvalid"
	CodeBlankValue    = "BlankValue"

	recordInvalidDescription = "Record validation errors"
	blankBodyDescription     = "Description: cannot be blank"

	// StubTicketID is the id given to every ticket the stub "creates".
	StubTicketID = 33
	stubStatus   = "new"
)

// StubResponder imitates the create-request endpoint so a form can be
// exercised without an account on the ticketing service.
type StubResponder struct {
	mode   TestMode
	logger *zap.Logger
}

// NewStubResponder returns a stub that settles every request according to mode.
func NewStubResponder(mode TestMode, log *zap.Logger) *StubResponder {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubResponder{
		mode:   mode,
		logger: log.Named("stub"),
	}
}

// Send simulates payload with the stub's configured mode.
func (s *StubResponder) Send(ctx context.Context, payload RequestPayload) Result {
	return s.Simulate(ctx, payload, s.mode)
}

// Simulate runs the API's server-side validation against payload and settles
// after mode's delay. Validation failures win over the simulated outcome.
func (s *StubResponder) Simulate(ctx context.Context, payload RequestPayload, mode TestMode) Result {
	s.logger.Warn("sending payload",
		zap.String("subject", payload.Request.Subject),
		zap.String("requester", payload.Request.Requester.Name),
		zap.String("email", logger.MaskEmail(payload.Request.Requester.Email)),
		zap.Int("body_length", len(payload.Request.Comment.Body)),
	)

	var result Result
	if info, invalid := ValidationErrors(payload); invalid {
		result = Failed(info, encodeRaw(info))
		result.StatusCode = http.StatusUnprocessableEntity
	} else if mode.Simulate == SimulateSuccess {
		ticket := Ticket{
			ID:          StubTicketID,
			Status:      stubStatus,
			Description: payload.Request.Comment.Body,
		}
		result = Succeeded(ticket, encodeRaw(ticketEnvelope{Request: &ticket}))
		result.StatusCode = http.StatusCreated
	} else {
		result = Failed(ErrorInfo{}, []byte("{}"))
		result.StatusCode = http.StatusInternalServerError
	}

	if err := sleep(ctx, mode.delay()); err != nil {
		s.logger.Info("simulated request abandoned", zap.Error(err))
		return Result{Raw: []byte("{}"), Cause: err}
	}

	switch {
	case result.OK:
		s.logger.Info("simulated ticket created", zap.Int64("ticket_id", result.Ticket.ID))
	case result.Failure.Error == CodeRecordInvalid:
		s.logger.Error("validation error, the submitted data was not valid",
			zap.Any("details", result.Failure.Details))
	default:
		s.logger.Error("simulated a failure to post the request")
	}
	return result
}

// ValidationErrors performs the record validation the ticketing API applies to
// a new request. The boolean is true when at least one field is invalid.
func ValidationErrors(payload RequestPayload) (ErrorInfo, bool) {
	details := map[string][]FieldError{}

	if email := payload.Request.Requester.Email; email != "" && !ValidEmail(email) {
		details["requester"] = []FieldError{{
			Description: fmt.Sprintf("Requester: Email:  %s is not properly formatted", email),
		}}
	}

	if len(payload.Request.Comment.Body) == 0 {
		details["base"] = []FieldError{{
			Description: blankBodyDescription,
			Error:       CodeBlankValue,
			FieldKey:    "description",
		}}
	}

	if len(details) == 0 {
		return ErrorInfo{}, false
	}
	return ErrorInfo{
		Description: recordInvalidDescription,
		Error:       CodeRecordInvalid,
		Details:     details,
	}, true
}

type ticketEnvelope struct {
	Request *Ticket `json:"request,omitempty"`
}

func encodeRaw(v interface{}) []byte {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return raw
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
