package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
	"github.com/gotrs-io/gotrs-feedback/internal/logger"
	"github.com/gotrs-io/gotrs-feedback/internal/render"
	"github.com/gotrs-io/gotrs-feedback/internal/version"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one piece of feedback",
	Long: `Submit formats the feedback as a create-request payload and sends it to
the ticketing API, printing each state the form moves through.

With --test-mode (or test_mode.enabled in config.yaml) the request is
answered by the built-in stub, which applies the API's validation rules
and then succeeds or fails as --simulate says.`,
	RunE: runSubmit,
}

var (
	submitComment   string
	submitEmail     string
	submitName      string
	submitSubject   string
	submitPageURL   string
	submitSubdomain string
	submitTestMode  bool
	submitSimulate  string
	submitDelay     time.Duration
	submitOutput    string
)

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitComment, "comment", "", "Feedback text")
	f.StringVar(&submitEmail, "email", "", "Requester email (optional)")
	f.StringVar(&submitName, "name", "", "Requester name (optional)")
	f.StringVar(&submitSubject, "subject", "", "Ticket subject (optional)")
	f.StringVar(&submitPageURL, "page-url", "", "Page the feedback is about; appended to the comment")
	f.StringVar(&submitSubdomain, "subdomain", "", "Ticketing account subdomain")
	f.BoolVar(&submitTestMode, "test-mode", false, "Answer with the built-in stub instead of the ticketing API")
	f.StringVar(&submitSimulate, "simulate", string(feedback.SimulateSuccess), "Stub outcome: success or failure")
	f.DurationVar(&submitDelay, "delay", feedback.DefaultStubDelay, "Stub response delay")
	f.StringVarP(&submitOutput, "output", "o", "text", "Output format: text, json or yaml")
}

// submitReport is the json/yaml output of submit.
type submitReport struct {
	State  feedback.State   `json:"state" yaml:"state"`
	Phase  feedback.Phase   `json:"phase" yaml:"phase"`
	Ticket *feedback.Ticket `json:"ticket,omitempty" yaml:"ticket,omitempty"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	switch submitOutput {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", submitOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Init(logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log := logger.Get()

	opts, err := cfg.FeedbackOptions()
	if err != nil {
		return err
	}
	if err := applySubmitFlags(cmd, &opts); err != nil {
		return err
	}
	opts.Logger = log
	opts.Remote.UserAgent = "feedbackdesk/" + version.Short()

	out := cmd.OutOrStdout()
	renderer := render.NewStateRenderer(render.DefaultTheme, 0)

	var ticket *feedback.Ticket
	opts.PostSubmit = func(result feedback.Result) {
		t := result.Ticket
		ticket = &t
	}
	if submitOutput == "text" {
		opts.OnChange = func(state feedback.State) {
			// the settled state is printed with its ticket below
			if state.IsLoading {
				fmt.Fprintln(out, renderer.Render(state, nil))
			}
		}
	}

	data := feedback.SubmitData{
		Comment: submitComment,
		Subject: submitSubject,
		Email:   submitEmail,
		Name:    submitName,
	}
	if data.Comment != "" {
		data.Comment = feedback.AppendPageURL(data.Comment, submitPageURL)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	state := feedback.NewController(opts).Submit(ctx, data)
	log.Debug("submission settled", zap.String("phase", string(state.Phase())))

	if err := printSubmitResult(out, renderer, state, ticket); err != nil {
		return err
	}
	if !state.IsSubmitted {
		return fmt.Errorf("feedback was not submitted")
	}
	return nil
}

// applySubmitFlags lets explicitly set flags override the configuration.
func applySubmitFlags(cmd *cobra.Command, opts *feedback.Options) error {
	f := cmd.Flags()
	if f.Changed("subdomain") {
		opts.Subdomain = submitSubdomain
		opts.Remote.Subdomain = submitSubdomain
	}

	if !submitTestMode && opts.TestMode == nil {
		return nil
	}
	mode := feedback.TestMode{Simulate: feedback.SimulateSuccess, Delay: feedback.DefaultStubDelay}
	if opts.TestMode != nil {
		mode = *opts.TestMode
	}
	if f.Changed("simulate") || opts.TestMode == nil {
		sim, err := feedback.ParseSimulation(submitSimulate)
		if err != nil {
			return err
		}
		mode.Simulate = sim
	}
	if f.Changed("delay") {
		mode.Delay = submitDelay
	}
	opts.TestMode = &mode
	return nil
}

func printSubmitResult(w io.Writer, renderer render.StateRenderer, state feedback.State, ticket *feedback.Ticket) error {
	if submitOutput == "text" {
		_, err := fmt.Fprintln(w, renderer.Render(state, ticket))
		return err
	}
	return writeStructured(w, submitOutput, submitReport{
		State:  state,
		Phase:  state.Phase(),
		Ticket: ticket,
	})
}
