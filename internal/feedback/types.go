// Package feedback submits user feedback to a helpdesk ticketing API.
//
// A Controller owns the state of a single feedback form: it formats the
// submitted fields into a ticket request, hands the request to a Transport
// (the remote API client or the local stub) and publishes the resulting
// idle/loading/submitted/errored state to whatever renders the form.
//
// Basic usage:
//
//	ctrl := feedback.NewController(feedback.Options{Subdomain: "acme"})
//	state := ctrl.Submit(ctx, feedback.SubmitData{Comment: "My printer is on fire"})
//	if state.HasError {
//		fmt.Println(state.Error.Description)
//	}
package feedback

import (
	"context"
	"time"
)

// Default values used when the submitter leaves optional fields empty.
const (
	DefaultName    = "Anonymous user"
	DefaultSubject = "Website Feedback"

	// FallbackErrorDescription is published when a failure carries no error code.
	FallbackErrorDescription = "Failed to submit request"

	// DefaultStubDelay is how long the stub waits before settling.
	DefaultStubDelay = 1000 * time.Millisecond
)

// SubmitData holds the raw field values collected by the form.
type SubmitData struct {
	// Comment is the ticket body and the only field expected to be set.
	Comment string `json:"comment" form:"comment" yaml:"comment"`
	Subject string `json:"subject,omitempty" form:"subject" yaml:"subject,omitempty"`
	Email   string `json:"email,omitempty" form:"email" yaml:"email,omitempty"`
	Name    string `json:"name,omitempty" form:"name" yaml:"name,omitempty"`
}

// RequestPayload is the body of a create-request call.
type RequestPayload struct {
	Request TicketRequest `json:"request"`
}

// TicketRequest describes the ticket to open.
type TicketRequest struct {
	Requester Requester `json:"requester"`
	Subject   string    `json:"subject"`
	Comment   Comment   `json:"comment"`
}

// Requester identifies who is submitting the ticket.
type Requester struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Comment is the ticket body.
type Comment struct {
	Body string `json:"body"`
}

// Ticket is the request record returned by the API on success.
type Ticket struct {
	ID          int64  `json:"id" yaml:"id"`
	Status      string `json:"status" yaml:"status"`
	Description string `json:"description" yaml:"description"`
}

// FieldError is a single validation message attached to a field.
type FieldError struct {
	Description string `json:"description" yaml:"description"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
	FieldKey    string `json:"field_key,omitempty" yaml:"field_key,omitempty"`
}

// ErrorInfo is the error shape returned by the API.
type ErrorInfo struct {
	Description string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Error       string                  `json:"error,omitempty" yaml:"error,omitempty"`
	Details     map[string][]FieldError `json:"details,omitempty" yaml:"details,omitempty"`
}

// IsZero reports whether no error information is present.
func (e ErrorInfo) IsZero() bool {
	return e.Description == "" && e.Error == "" && len(e.Details) == 0
}

// Result is the tagged outcome of sending a RequestPayload.
// OK is the only discriminant; Ticket is meaningful when OK is true and
// Failure when it is false.
type Result struct {
	OK         bool
	Ticket     Ticket
	Failure    ErrorInfo
	StatusCode int
	// Raw is the response body as received, or as the stub would have sent it.
	Raw []byte
	// Cause is set when the failure did not come from an API response.
	Cause error
}

// Succeeded builds a successful Result.
func Succeeded(ticket Ticket, raw []byte) Result {
	return Result{OK: true, Ticket: ticket, Raw: raw}
}

// Failed builds a failed Result.
func Failed(info ErrorInfo, raw []byte) Result {
	return Result{Failure: info, Raw: raw}
}

// Simulation selects the outcome the stub produces for valid input.
type Simulation string

const (
	SimulateSuccess Simulation = "success"
	SimulateFailure Simulation = "failure"
)

// Valid reports whether s is a known simulation.
func (s Simulation) Valid() bool {
	return s == SimulateSuccess || s == SimulateFailure
}

// TestMode replaces the remote API with the stub responder.
type TestMode struct {
	Simulate Simulation
	// Delay before the stub settles; zero means DefaultStubDelay.
	Delay time.Duration
}

func (m TestMode) delay() time.Duration {
	if m.Delay <= 0 {
		return DefaultStubDelay
	}
	return m.Delay
}

// Transport sends a formatted payload and reports the outcome.
// Implementations never return Go errors; failures are carried on the Result.
type Transport interface {
	Send(ctx context.Context, payload RequestPayload) Result
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, payload RequestPayload) Result

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, payload RequestPayload) Result {
	return f(ctx, payload)
}
