package api

import (
	"net/http"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
	"github.com/gotrs-io/gotrs-feedback/internal/logger"
	"github.com/gotrs-io/gotrs-feedback/internal/metrics"
	"github.com/gotrs-io/gotrs-feedback/internal/middleware"
	"github.com/gotrs-io/gotrs-feedback/internal/utils"
)

const feedbackPath = "/feedback"

// FormSettings controls how submitted fields are prepared.
type FormSettings struct {
	AppendPageURL bool
	SanitizeHTML  bool
	// FilterUnicode drops characters a utf8mb3 ticket store cannot hold.
	FilterUnicode bool
	Title         string
}

// FeedbackHandler serves the feedback form and its JSON API. Every request
// gets its own Controller; the transport is shared.
type FeedbackHandler struct {
	options   feedback.Options
	mode      string
	mu        sync.RWMutex
	settings  FormSettings
	sanitizer *utils.HTMLSanitizer
	renderer  *TemplateRenderer
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// feedbackRequest is what the form and the JSON API accept.
type feedbackRequest struct {
	Comment string `form:"comment" json:"comment"`
	Subject string `form:"subject" json:"subject"`
	Email   string `form:"email" json:"email"`
	Name    string `form:"name" json:"name"`
	PageURL string `form:"page_url" json:"page_url"`
}

type feedbackResponse struct {
	State     feedback.State   `json:"state"`
	Ticket    *feedback.Ticket `json:"ticket,omitempty"`
	RequestID string           `json:"request_id,omitempty"`
}

// NewFeedbackHandler builds a handler. opts.Transport is created from opts
// when unset so that all requests share one client.
func NewFeedbackHandler(opts feedback.Options, settings FormSettings, m *metrics.Metrics, log *zap.Logger) (*FeedbackHandler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts.Logger = log

	mode := "remote"
	if opts.TestMode != nil {
		mode = "stub"
	}
	if opts.Transport == nil {
		opts.Transport = feedback.NewTransport(opts)
	}
	settings = settings.withDefaults()

	renderer, err := NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	return &FeedbackHandler{
		options:   opts,
		mode:      mode,
		settings:  settings,
		sanitizer: utils.NewHTMLSanitizer(),
		renderer:  renderer,
		metrics:   m,
		logger:    log.Named("api"),
	}, nil
}

// Settings returns the form settings currently in effect.
func (h *FeedbackHandler) Settings() FormSettings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.settings
}

// UpdateSettings replaces the form settings for subsequent requests.
func (h *FeedbackHandler) UpdateSettings(settings FormSettings) {
	h.mu.Lock()
	h.settings = settings.withDefaults()
	h.mu.Unlock()
}

func (s FormSettings) withDefaults() FormSettings {
	if s.Title == "" {
		s.Title = "Feedback"
	}
	return s
}

// HandleFeedbackForm handles GET /feedback
func (h *FeedbackHandler) HandleFeedbackForm(c *gin.Context) {
	h.renderer.HTML(c, http.StatusOK, h.pageContext(feedback.State{}, feedback.SubmitData{}, c.Request.Referer(), nil))
}

// HandleFeedbackSubmit handles POST /feedback
func (h *FeedbackHandler) HandleFeedbackSubmit(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBind(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid form submission")
		return
	}

	state, ticket := h.submit(c, req)

	var ticketID interface{}
	if ticket != nil {
		ticketID = ticket.ID
	}
	ctx := h.pageContext(state, h.formValues(req), req.PageURL, ticketID)
	if state.IsSubmitted {
		ctx["preview"] = h.sanitizer.Preview(req.Comment)
	}
	h.renderer.HTML(c, statusFor(state), ctx)
}

// HandleFeedbackAPI handles POST /api/v1/feedback
func (h *FeedbackHandler) HandleFeedbackAPI(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "InvalidJSON",
			"description": "Request body must be a JSON object",
		})
		return
	}

	state, ticket := h.submit(c, req)

	c.JSON(statusFor(state), feedbackResponse{
		State:     state,
		Ticket:    ticket,
		RequestID: middleware.GetRequestID(c),
	})
}

// submit runs one submission through a fresh controller.
func (h *FeedbackHandler) submit(c *gin.Context, req feedbackRequest) (feedback.State, *feedback.Ticket) {
	requestID := middleware.GetRequestID(c)
	data := h.prepare(c, req)

	var ticket *feedback.Ticket
	opts := h.options
	opts.PreSubmit = func() {
		h.logger.Info("feedback received",
			zap.String("request_id", requestID),
			zap.String("email", logger.MaskEmail(data.Email)),
			zap.Int("comment_length", len(data.Comment)))
	}
	opts.PostSubmit = func(result feedback.Result) {
		t := result.Ticket
		ticket = &t
		h.logger.Info("ticket created",
			zap.String("request_id", requestID),
			zap.Int64("ticket_id", t.ID),
			zap.String("status", t.Status))
	}

	done := h.metrics.Started(h.mode)
	state := feedback.NewController(opts).Submit(c.Request.Context(), data)
	done(state)

	return state, ticket
}

// prepare turns the raw request into SubmitData: markup is stripped when
// configured and the page URL is appended to the comment.
func (h *FeedbackHandler) prepare(c *gin.Context, req feedbackRequest) feedback.SubmitData {
	settings := h.Settings()
	data := h.formValues(req)
	if settings.SanitizeHTML {
		if utils.IsHTML(data.Comment) {
			h.logger.Debug("stripping markup from comment",
				zap.String("request_id", middleware.GetRequestID(c)))
		}
		data.Comment = h.sanitizer.StripHTML(data.Comment)
		data.Subject = h.sanitizer.StripHTML(data.Subject)
		data.Name = h.sanitizer.StripHTML(data.Name)
	}
	if settings.FilterUnicode {
		data.Comment = utils.FilterUnicode(data.Comment)
		data.Subject = utils.FilterUnicode(data.Subject)
		data.Name = utils.FilterUnicode(data.Name)
	}

	if settings.AppendPageURL && data.Comment != "" {
		pageURL := req.PageURL
		if pageURL == "" {
			pageURL = c.Request.Referer()
		}
		data.Comment = feedback.AppendPageURL(data.Comment, pageURL)
	}
	return data
}

func (h *FeedbackHandler) formValues(req feedbackRequest) feedback.SubmitData {
	return feedback.SubmitData{
		Comment: req.Comment,
		Subject: req.Subject,
		Email:   req.Email,
		Name:    req.Name,
	}
}

func (h *FeedbackHandler) pageContext(state feedback.State, form feedback.SubmitData, pageURL string, ticketID interface{}) pongo2.Context {
	return pongo2.Context{
		"title":            h.Settings().Title,
		"action":           feedbackPath,
		"state":            state,
		"form":             form,
		"page_url":         pageURL,
		"ticket_id":        ticketID,
		"base_errors":      state.Error.Details["base"],
		"requester_errors": state.Error.Details["requester"],
	}
}

// statusFor maps a settled state to an HTTP status.
func statusFor(state feedback.State) int {
	switch {
	case state.IsSubmitted:
		return http.StatusCreated
	case state.Error.Error == feedback.CodeRecordInvalid:
		return http.StatusUnprocessableEntity
	case state.HasError:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}
