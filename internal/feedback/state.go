package feedback

// State is what a render layer needs to draw the form.
// The zero value is the idle state.
type State struct {
	IsLoading   bool      `json:"isLoading" yaml:"is_loading"`
	IsSubmitted bool      `json:"isSubmitted" yaml:"is_submitted"`
	HasError    bool      `json:"hasError" yaml:"has_error"`
	Error       ErrorInfo `json:"error" yaml:"error"`
}

// Phase names the state machine position of a State.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseSubmitted Phase = "submitted"
	PhaseErrored   Phase = "errored"
)

// Phase derives the machine position from the flags.
func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseLoading
	case s.HasError:
		return PhaseErrored
	case s.IsSubmitted:
		return PhaseSubmitted
	default:
		return PhaseIdle
	}
}

// Transitions always return a complete State; nothing carries over from the
// previous one.

func (s State) begin() State {
	return State{IsLoading: true}
}

func (s State) succeed() State {
	return State{IsSubmitted: true}
}

func (s State) fail(info ErrorInfo) State {
	return State{HasError: true, Error: info}
}

// errorFor picks the error to publish for a failed result: the API's own
// error when it carries a code, otherwise the generic description.
func errorFor(result Result) ErrorInfo {
	if result.Failure.Error != "" {
		return result.Failure
	}
	return ErrorInfo{Description: FallbackErrorDescription}
}
