package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/gotrs-io/gotrs-feedback/internal/version"
)

const (
	// baseURLTemplate is the account URL for a ticketing subdomain.
	baseURLTemplate = "https://%s.example-ticketing.test"
	requestsPath    = "/api/v2/requests.json"
)

// BaseURLFor returns the API base URL of the account at subdomain.
func BaseURLFor(subdomain string) string {
	return fmt.Sprintf(baseURLTemplate, subdomain)
}

// RemoteConfig configures the ticketing API client.
type RemoteConfig struct {
	Subdomain string
	// BaseURL replaces the subdomain URL, e.g. for a self-hosted endpoint.
	BaseURL string
	// Email and APIToken enable token authentication when both are set.
	Email     string
	APIToken  string
	UserAgent string
	// Timeout bounds a single request. Zero waits for as long as ctx allows.
	Timeout time.Duration
	Debug   bool
}

// RemoteClient posts requests to the ticketing API.
type RemoteClient struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewRemoteClient creates a client for the account described by cfg.
func NewRemoteClient(cfg RemoteConfig, log *zap.Logger) (*RemoteClient, error) {
	if log == nil {
		log = zap.NewNop()
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		if cfg.Subdomain == "" {
			return nil, ErrMissingSubdomain
		}
		baseURL = BaseURLFor(cfg.Subdomain)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = "feedbackdesk/" + version.Short()
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}
	if cfg.Email != "" && cfg.APIToken != "" {
		httpClient.SetBasicAuth(cfg.Email+"/token", cfg.APIToken)
	}
	if cfg.Debug {
		httpClient.SetDebug(true)
	}

	return &RemoteClient{
		httpClient: httpClient,
		url:        baseURL + requestsPath,
		logger:     log.Named("remote"),
	}, nil
}

// URL returns the endpoint requests are posted to.
func (c *RemoteClient) URL() string {
	return c.url
}

// Send posts payload. It satisfies Transport.
func (c *RemoteClient) Send(ctx context.Context, payload RequestPayload) Result {
	return c.Post(ctx, payload)
}

// Post creates a request from payload. Transport failures and undecodable
// responses come back as failed Results with Cause set.
func (c *RemoteClient) Post(ctx context.Context, payload RequestPayload) Result {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(requestsPath)
	if err != nil {
		c.logger.Warn("ticketing request failed", zap.String("url", c.url), zap.Error(err))
		return Result{Cause: &TransportError{Operation: "POST", URL: c.url, Err: err}}
	}

	result := decodeResponse(resp.StatusCode(), resp.Body())
	if result.Cause != nil {
		c.logger.Warn("could not decode ticketing response",
			zap.Int("status", resp.StatusCode()), zap.Error(result.Cause))
	}
	return result
}

// wireResponse is the union of the success and error bodies.
type wireResponse struct {
	Request     *Ticket         `json:"request"`
	Description string          `json:"description"`
	Error       json.RawMessage `json:"error"`
	Details     json.RawMessage `json:"details"`
}

// objectError is the error form used for authentication and routing failures.
type objectError struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func decodeResponse(status int, body []byte) Result {
	var wire wireResponse
	if err := sonic.Unmarshal(body, &wire); err != nil {
		return Result{
			StatusCode: status,
			Raw:        body,
			Cause:      fmt.Errorf("%w (status %d): %v", ErrUnexpectedResponse, status, err),
		}
	}

	if wire.Request != nil && status >= 200 && status < 300 {
		result := Succeeded(*wire.Request, body)
		result.StatusCode = status
		return result
	}

	info := ErrorInfo{Description: wire.Description}
	decodeErrorField(wire.Error, &info)
	if len(wire.Details) > 0 {
		var details map[string][]FieldError
		if err := sonic.Unmarshal(wire.Details, &details); err == nil && len(details) > 0 {
			info.Details = details
		}
	}

	result := Failed(info, body)
	result.StatusCode = status
	return result
}

func decodeErrorField(raw json.RawMessage, info *ErrorInfo) {
	if len(raw) == 0 {
		return
	}

	var code string
	if err := sonic.Unmarshal(raw, &code); err == nil {
		info.Error = code
		return
	}

	var obj objectError
	if err := sonic.Unmarshal(raw, &obj); err == nil {
		info.Error = obj.Title
		if info.Description == "" {
			info.Description = obj.Message
		}
	}
}
