package feedback

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Options configures a Controller.
type Options struct {
	// Subdomain of the ticketing account requests are posted to.
	Subdomain string
	// Remote holds the remaining client settings. Remote.Subdomain defaults to Subdomain.
	Remote RemoteConfig
	// TestMode, when set, routes every submission to the stub responder.
	TestMode *TestMode
	// Transport overrides the routing above. Useful for sharing one client
	// between many controllers.
	Transport Transport
	Formatter Formatter

	// PreSubmit runs before the loading state is published, e.g. form validation.
	PreSubmit func()
	// PostSubmit receives the result of a successful submission once the
	// submitted state has been published.
	PostSubmit func(Result)
	// OnChange receives every state the controller publishes.
	OnChange func(State)

	Logger *zap.Logger
}

// Controller drives one feedback form through idle, loading, submitted and
// errored. It does not serialize submissions: if Submit is called while
// another is in flight, whichever settles last determines the state.
type Controller struct {
	mu    sync.Mutex
	state State

	transport  Transport
	formatter  Formatter
	preSubmit  func()
	postSubmit func(Result)
	onChange   func(State)
	logger     *zap.Logger
}

// NewController creates a controller in the idle state.
func NewController(opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opts.Logger = log

	transport := opts.Transport
	if transport == nil {
		transport = NewTransport(opts)
	}

	return &Controller{
		transport:  transport,
		formatter:  opts.Formatter,
		preSubmit:  opts.PreSubmit,
		postSubmit: opts.PostSubmit,
		onChange:   opts.OnChange,
		logger:     log.Named("feedback"),
	}
}

// NewTransport picks the transport for opts: the stub responder when a test
// mode is configured, the remote client otherwise. A remote client that
// cannot be built yields a transport whose every send fails with the reason.
func NewTransport(opts Options) Transport {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if opts.TestMode != nil {
		log.Info("test mode enabled, ticketing API requests are stubbed",
			zap.String("simulate", string(opts.TestMode.Simulate)),
			zap.Duration("delay", opts.TestMode.delay()))
		log.Info("disable test mode to send requests to the ticketing API")
		return NewStubResponder(*opts.TestMode, log)
	}

	remote := opts.Remote
	if remote.Subdomain == "" {
		remote.Subdomain = opts.Subdomain
	}
	client, err := NewRemoteClient(remote, log)
	if err != nil {
		log.Error("ticketing client unavailable", zap.Error(err))
		return TransportFunc(func(context.Context, RequestPayload) Result {
			return Result{Cause: err}
		})
	}
	return client
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit sends data and returns the settled state. Failures are reported
// through the state, never as errors.
func (c *Controller) Submit(ctx context.Context, data SubmitData) State {
	if c.preSubmit != nil {
		c.preSubmit()
	}

	c.publish(State.begin)

	payload := c.formatter.Format(data)
	result := c.transport.Send(ctx, payload)

	if !result.OK {
		if result.Cause != nil {
			c.logger.Warn("feedback submission failed", zap.Error(result.Cause))
		} else {
			c.logger.Info("feedback rejected",
				zap.Int("status", result.StatusCode),
				zap.String("error", result.Failure.Error))
		}
		info := errorFor(result)
		return c.publish(func(s State) State { return s.fail(info) })
	}

	state := c.publish(State.succeed)
	c.logger.Info("feedback submitted", zap.Int64("ticket_id", result.Ticket.ID))

	if c.postSubmit != nil {
		c.postSubmit(result)
	}
	return state
}

func (c *Controller) publish(next func(State) State) State {
	c.mu.Lock()
	c.state = next(c.state)
	state := c.state
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(state)
	}
	return state
}
