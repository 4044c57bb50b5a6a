package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gotrs-io/gotrs-feedback/internal/feedback"
	"github.com/gotrs-io/gotrs-feedback/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. FEEDBACKDESK_TICKETING_SUBDOMAIN.
const EnvPrefix = "FEEDBACKDESK"

var (
	cfg       *Config
	mu        sync.RWMutex
	listeners []func(*Config)
)

// Config represents the application configuration
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Ticketing    TicketingConfig    `mapstructure:"ticketing"`
	TestMode     TestModeConfig     `mapstructure:"test_mode"`
	Form         FormConfig         `mapstructure:"form"`
	Redis        RedisConfig        `mapstructure:"redis"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TicketingConfig locates the helpdesk account feedback is sent to.
type TicketingConfig struct {
	Subdomain string        `mapstructure:"subdomain"`
	BaseURL   string        `mapstructure:"base_url"`
	Email     string        `mapstructure:"email"`
	APIToken  string        `mapstructure:"api_token"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Debug     bool          `mapstructure:"debug"`
}

// TestModeConfig replaces the ticketing API with the local stub when enabled.
type TestModeConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Simulate string        `mapstructure:"simulate"`
	Delay    time.Duration `mapstructure:"delay"`
}

type FormConfig struct {
	DefaultSubject string `mapstructure:"default_subject"`
	DefaultName    string `mapstructure:"default_name"`
	AppendPageURL  bool   `mapstructure:"append_page_url"`
	SanitizeHTML   bool   `mapstructure:"sanitize_html"`
	FilterUnicode  bool   `mapstructure:"filter_unicode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitingConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerWindow int           `mapstructure:"requests_per_window"`
	Window            time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// setDefaults registers a value for every key so that env overrides work
// without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "feedbackdesk")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("ticketing.subdomain", "")
	v.SetDefault("ticketing.base_url", "")
	v.SetDefault("ticketing.email", "")
	v.SetDefault("ticketing.api_token", "")
	v.SetDefault("ticketing.timeout", time.Duration(0))
	v.SetDefault("ticketing.debug", false)

	v.SetDefault("test_mode.enabled", false)
	v.SetDefault("test_mode.simulate", string(feedback.SimulateSuccess))
	v.SetDefault("test_mode.delay", feedback.DefaultStubDelay)

	v.SetDefault("form.default_subject", feedback.DefaultSubject)
	v.SetDefault("form.default_name", feedback.DefaultName)
	v.SetDefault("form.append_page_url", true)
	v.SetDefault("form.sanitize_html", true)
	v.SetDefault("form.filter_unicode", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limiting.enabled", false)
	v.SetDefault("rate_limiting.requests_per_window", 5)
	v.SetDefault("rate_limiting.window", time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads config.yaml from configPath when present, applies environment
// overrides and watches the file for changes.
func Load(configPath string) error {
	v := newViper()
	v.SetConfigName("config")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults and environment only.
		watch = false
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	cfg = loaded
	mu.Unlock()

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			log := logger.Get().Named("config")
			reloaded := &Config{}
			if err := v.Unmarshal(reloaded); err != nil {
				log.Error("failed to reload config", zap.String("file", e.Name), zap.Error(err))
				return
			}

			apply(reloaded)
			log.Info("configuration reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return nil
}

// OnReload registers fn to receive every configuration reloaded after the
// config file changes. Callbacks run on the watcher goroutine.
func OnReload(fn func(*Config)) {
	mu.Lock()
	defer mu.Unlock()
	listeners = append(listeners, fn)
}

func apply(reloaded *Config) {
	mu.Lock()
	cfg = reloaded
	fns := append([]func(*Config){}, listeners...)
	mu.Unlock()

	for _, fn := range fns {
		fn(reloaded)
	}
}

// LoadFromFile loads configuration from a specific file (useful for testing)
func LoadFromFile(configFile string) error {
	v := newViper()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	cfg = loaded

	return nil
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// GetServerAddr returns the server listen address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetRedisAddr returns the Redis server address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction returns true if running in production mode
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// FeedbackTestMode returns the stub settings, or nil when test mode is off.
func (c *Config) FeedbackTestMode() (*feedback.TestMode, error) {
	if !c.TestMode.Enabled {
		return nil, nil
	}
	sim, err := feedback.ParseSimulation(c.TestMode.Simulate)
	if err != nil {
		return nil, err
	}
	return &feedback.TestMode{Simulate: sim, Delay: c.TestMode.Delay}, nil
}

// FeedbackOptions maps the configuration onto controller options.
func (c *Config) FeedbackOptions() (feedback.Options, error) {
	mode, err := c.FeedbackTestMode()
	if err != nil {
		return feedback.Options{}, err
	}

	return feedback.Options{
		Subdomain: c.Ticketing.Subdomain,
		Remote: feedback.RemoteConfig{
			BaseURL:  c.Ticketing.BaseURL,
			Email:    c.Ticketing.Email,
			APIToken: c.Ticketing.APIToken,
			Timeout:  c.Ticketing.Timeout,
			Debug:    c.Ticketing.Debug,
		},
		TestMode: mode,
		Formatter: feedback.Formatter{
			DefaultName:    c.Form.DefaultName,
			DefaultSubject: c.Form.DefaultSubject,
		},
	}, nil
}
