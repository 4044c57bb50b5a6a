package feedback

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSubdomain is returned when a remote client has nowhere to post.
	ErrMissingSubdomain = errors.New("ticketing subdomain is required")

	// ErrInvalidSimulation is returned for an unknown stub simulation.
	ErrInvalidSimulation = errors.New(`simulate must be "success" or "failure"`)

	// ErrUnexpectedResponse marks a response body that could not be decoded.
	ErrUnexpectedResponse = errors.New("unexpected response from ticketing API")
)

// TransportError describes a request that failed before a response was read.
type TransportError struct {
	Operation string
	URL       string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseSimulation converts a configured value into a Simulation.
func ParseSimulation(v string) (Simulation, error) {
	s := Simulation(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: got %q", ErrInvalidSimulation, v)
	}
	return s, nil
}
