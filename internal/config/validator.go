package config

import (
	"fmt"
	"strings"

	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
)

// Validator checks a Config before it is used to build a server or client.
// Problems that would break submissions are errors; the rest are warnings.
type Validator struct {
	config   *Config
	errors   []string
	warnings []string
}

func NewValidator(cfg *Config) *Validator {
	return &Validator{
		config:   cfg,
		errors:   []string{},
		warnings: []string{},
	}
}

// Validate returns an error listing every problem found.
func (v *Validator) Validate() error {
	if v.config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	v.validateTestMode()
	v.validateTicketing()
	v.validateServer()
	v.validateRateLimiting()

	if len(v.errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

// Warnings returns the non-fatal findings of the last Validate call.
func (v *Validator) Warnings() []string {
	return v.warnings
}

func (v *Validator) validateTestMode() {
	tm := v.config.TestMode
	if !tm.Enabled {
		return
	}

	if _, err := feedback.ParseSimulation(tm.Simulate); err != nil {
		v.addError(fmt.Sprintf("test_mode.simulate: %v", err))
	}
	if tm.Delay < 0 {
		v.addError("test_mode.delay must not be negative")
	}
	if v.config.App.IsProduction() {
		v.addWarning("test mode is enabled in production, no tickets will be created")
	}
}

func (v *Validator) validateTicketing() {
	t := v.config.Ticketing
	if v.config.TestMode.Enabled {
		return
	}

	if t.Subdomain == "" && t.BaseURL == "" {
		v.addError("ticketing.subdomain is not set")
	}
	if strings.Contains(t.Subdomain, ".") || strings.Contains(t.Subdomain, "/") {
		v.addError(fmt.Sprintf("ticketing.subdomain %q must be a bare subdomain", t.Subdomain))
	}
	if (t.Email == "") != (t.APIToken == "") {
		v.addWarning("ticketing.email and ticketing.api_token must both be set to authenticate; requests will be anonymous")
	}
	if t.APIToken != "" && len(t.APIToken) < 16 {
		v.addWarning("ticketing.api_token looks too short")
	}
}

func (v *Validator) validateServer() {
	if p := v.config.Server.Port; p <= 0 || p > 65535 {
		v.addError(fmt.Sprintf("server.port %d is out of range", p))
	}
}

func (v *Validator) validateRateLimiting() {
	rl := v.config.RateLimiting
	if !rl.Enabled {
		return
	}
	if !v.config.Redis.Enabled {
		v.addWarning("rate_limiting is enabled but redis is not; submissions will not be limited")
	}
	if rl.RequestsPerWindow <= 0 {
		v.addError("rate_limiting.requests_per_window must be positive")
	}
	if rl.Window <= 0 {
		v.addError("rate_limiting.window must be positive")
	}
}

func (v *Validator) addError(message string) {
	v.errors = append(v.errors, "   ❌ "+message)
}

func (v *Validator) addWarning(message string) {
	v.warnings = append(v.warnings, "   ⚠️  "+message)
}

// Validate checks cfg and returns an error describing every problem.
func Validate(cfg *Config) error {
	return NewValidator(cfg).Validate()
}
