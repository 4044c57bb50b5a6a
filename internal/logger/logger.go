// Package logger provides the process-wide zap logger.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// Options selects the level and encoding of the process logger.
type Options struct {
	// Level is a zap level name; unknown values fall back to info.
	Level string
	// Format is "json" for production encoding, anything else for console.
	Format string
}

// Init builds the process logger. Only the first call has any effect.
func Init(opts Options) {
	once.Do(func() {
		logger = build(opts)
	})
}

// Get returns the process logger, building a default one if Init was never called.
func Get() *zap.Logger {
	once.Do(func() {
		logger = build(Options{Level: os.Getenv("LOG_LEVEL")})
	})
	return logger
}

// New builds a logger without touching the process logger.
func New(opts Options) *zap.Logger {
	return build(opts)
}

func build(opts Options) *zap.Logger {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	if opts.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	return l
}

// Sync flushes buffered entries of the process logger.
func Sync() error {
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil {
		// stderr cannot be synced on some platforms; that is not worth reporting.
		if strings.Contains(err.Error(), "invalid argument") || strings.Contains(err.Error(), "inappropriate ioctl") {
			return nil
		}
		return err
	}
	return nil
}

// MaskEmail hides the local part of an address, keeping the domain visible.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return maskString(email, 2, 2)
	}

	local, domain := email[:at], email[at+1:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + "@" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + "@" + domain
}

func maskString(s string, prefixLen, suffixLen int) string {
	if len(s) < prefixLen+suffixLen+3 {
		return strings.Repeat("*", len(s))
	}
	return s[:prefixLen] + "..." + s[len(s)-suffixLen:]
}
