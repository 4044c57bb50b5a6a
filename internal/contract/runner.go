package contract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gotrs-io/gotrs-feedback/internal/api"
	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
)

const endpoint = "/api/v1/feedback"

// Scenario is one request sent to the feedback API with the stub transport.
type Scenario struct {
	Name        string
	Description string
	Simulate    feedback.Simulation
	Body        interface{}
	ExpectCode  int
	ExpectPhase feedback.Phase
}

// ScenarioResult is the outcome of one Scenario.
type ScenarioResult struct {
	Name        string            `json:"name"`
	Method      string            `json:"method"`
	Endpoint    string            `json:"endpoint"`
	Description string            `json:"description"`
	Passed      bool              `json:"passed"`
	Error       string            `json:"error,omitempty"`
	Violations  []ValidationError `json:"violations,omitempty"`
}

// Report summarises a run.
type Report struct {
	Timestamp   time.Time        `json:"timestamp"`
	TotalTests  int              `json:"total_tests"`
	Passed      int              `json:"passed"`
	Failed      int              `json:"failed"`
	Results     []ScenarioResult `json:"results"`
	SuccessRate float64          `json:"success_rate"`
}

// DefaultScenarios covers both simulations and the stub's validation rules.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:        "create-ticket",
			Description: "Valid feedback creates a ticket",
			Simulate:    feedback.SimulateSuccess,
			Body:        map[string]string{"comment": "The search page times out", "email": "jane@example.com", "name": "Jane"},
			ExpectCode:  http.StatusCreated,
			ExpectPhase: feedback.PhaseSubmitted,
		},
		{
			Name:        "anonymous",
			Description: "Feedback without requester details uses the defaults",
			Simulate:    feedback.SimulateSuccess,
			Body:        map[string]string{"comment": "Love the new layout"},
			ExpectCode:  http.StatusCreated,
			ExpectPhase: feedback.PhaseSubmitted,
		},
		{
			Name:        "blank-comment",
			Description: "A blank comment is a record validation error",
			Simulate:    feedback.SimulateSuccess,
			Body:        map[string]string{"comment": ""},
			ExpectCode:  http.StatusUnprocessableEntity,
			ExpectPhase: feedback.PhaseErrored,
		},
		{
			Name:        "malformed-email",
			Description: "A malformed email is a record validation error",
			Simulate:    feedback.SimulateSuccess,
			Body:        map[string]string{"comment": "Typo on pricing page", "email": "jane@"},
			ExpectCode:  http.StatusUnprocessableEntity,
			ExpectPhase: feedback.PhaseErrored,
		},
		{
			Name:        "simulated-failure",
			Description: "A failed request reports the generic error",
			Simulate:    feedback.SimulateFailure,
			Body:        map[string]string{"comment": "Checkout button does nothing"},
			ExpectCode:  http.StatusBadGateway,
			ExpectPhase: feedback.PhaseErrored,
		},
		{
			Name:        "validation-before-failure",
			Description: "Validation errors win over a simulated failure",
			Simulate:    feedback.SimulateFailure,
			Body:        map[string]string{"comment": ""},
			ExpectCode:  http.StatusUnprocessableEntity,
			ExpectPhase: feedback.PhaseErrored,
		},
	}
}

// Runner drives scenarios through the real router.
type Runner struct {
	registry *SchemaRegistry
	delay    time.Duration
	logger   *zap.Logger
}

// NewRunner returns a runner whose stub settles after delay.
func NewRunner(delay time.Duration, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		registry: NewSchemaRegistry(),
		delay:    delay,
		logger:   log.Named("contract"),
	}
}

// Run executes every scenario in order.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) Report {
	results := make([]ScenarioResult, 0, len(scenarios))
	for _, s := range scenarios {
		res := r.runScenario(ctx, s)
		r.logger.Debug("scenario finished",
			zap.String("name", s.Name),
			zap.Bool("passed", res.Passed))
		results = append(results, res)
	}
	return NewReport(results)
}

// exchange is one call seen by the stub.
type exchange struct {
	payload feedback.RequestPayload
	result  feedback.Result
}

type recordingTransport struct {
	mu        sync.Mutex
	next      feedback.Transport
	exchanges []exchange
}

func (t *recordingTransport) Send(ctx context.Context, payload feedback.RequestPayload) feedback.Result {
	result := t.next.Send(ctx, payload)
	t.mu.Lock()
	t.exchanges = append(t.exchanges, exchange{payload: payload, result: result})
	t.mu.Unlock()
	return result
}

func (r *Runner) runScenario(ctx context.Context, s Scenario) ScenarioResult {
	result := ScenarioResult{
		Name:        s.Name,
		Method:      http.MethodPost,
		Endpoint:    endpoint,
		Description: s.Description,
	}

	mode := feedback.TestMode{Simulate: s.Simulate, Delay: r.delay}
	transport := &recordingTransport{next: feedback.NewStubResponder(mode, r.logger)}

	handler, err := api.NewFeedbackHandler(feedback.Options{TestMode: &mode, Transport: transport}, api.FormSettings{}, nil, r.logger)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to create handler: %v", err)
		return result
	}
	gin.SetMode(gin.TestMode)
	router := api.NewRouter(api.RouterConfig{Feedback: handler, Logger: r.logger})

	body, err := sonic.Marshal(s.Body)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to marshal body: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("Failed to create request: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != s.ExpectCode {
		result.Error = fmt.Sprintf("Expected status %d, got %d", s.ExpectCode, w.Code)
		return result
	}

	violations, err := r.check(KindAPIResponse, w.Body.Bytes())
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Violations = append(result.Violations, violations...)

	var resp struct {
		State feedback.State `json:"state"`
	}
	if err := sonic.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		result.Error = fmt.Sprintf("Failed to decode response: %v", err)
		return result
	}
	if phase := resp.State.Phase(); phase != s.ExpectPhase {
		result.Error = fmt.Sprintf("Expected phase %s, got %s", s.ExpectPhase, phase)
		return result
	}

	transport.mu.Lock()
	exchanges := transport.exchanges
	transport.mu.Unlock()
	if len(exchanges) != 1 {
		result.Error = fmt.Sprintf("Expected 1 request to the ticketing API, got %d", len(exchanges))
		return result
	}

	for _, ex := range exchanges {
		v, err := r.validateExchange(ex)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Violations = append(result.Violations, v...)
	}

	if len(result.Violations) > 0 {
		result.Error = fmt.Sprintf("%d schema violation(s)", len(result.Violations))
		return result
	}
	result.Passed = true
	return result
}

func (r *Runner) validateExchange(ex exchange) ([]ValidationError, error) {
	payload, err := sonic.Marshal(ex.payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	violations, err := r.check(KindPayload, payload)
	if err != nil {
		return nil, err
	}

	var kind Kind
	switch {
	case ex.result.OK:
		kind = KindTicketResponse
	case ex.result.Failure.Error == feedback.CodeRecordInvalid:
		kind = KindErrorResponse
	default:
		// simulated failures carry an empty body
		return violations, nil
	}

	more, err := r.check(kind, ex.result.Raw)
	if err != nil {
		return nil, err
	}
	return append(violations, more...), nil
}

func (r *Runner) check(kind Kind, doc []byte) ([]ValidationError, error) {
	res, err := r.registry.Validate(kind, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	for i := range res.Errors {
		res.Errors[i].Path = string(kind) + ":" + res.Errors[i].Path
	}
	return res.Errors, nil
}

// NewReport tallies results.
func NewReport(results []ScenarioResult) Report {
	report := Report{
		Timestamp:  time.Now(),
		TotalTests: len(results),
		Results:    results,
	}

	for _, result := range results {
		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	if report.TotalTests > 0 {
		report.SuccessRate = float64(report.Passed) / float64(report.TotalTests) * 100
	}
	return report
}
