// Package log wraps log/slog with a component-tagged logger, shared field
// names and helpers for the records every binary emits.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger bound to one component. The component attribute is
// attached once; WithComponent replaces it rather than stacking a second one.
type Logger struct {
	*slog.Logger
	root      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	// Handler overrides the default text handler on Output.
	Handler slog.Handler
	Output  io.Writer
}

func DefaultConfig() Config {
	return Config{Level: slog.LevelInfo, Component: ComponentApp}
}

// ParseLevel maps LOG_LEVEL values (debug, info, warn, error) to slog levels.
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func New(cfg Config) *Logger {
	handler := cfg.Handler
	if handler == nil {
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level})
	}
	return bind(slog.New(handler), cfg.Component)
}

func bind(root *slog.Logger, component string) *Logger {
	l := &Logger{Logger: root, root: root, component: component}
	if component != "" {
		l.Logger = root.With(FieldComponent, component)
	}
	return l
}

// With returns a logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return bind(l.root.With(args...), l.component)
}

func (l *Logger) WithComponent(component string) *Logger {
	return bind(l.root, component)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the slog default, so package-level slog
// calls carry its handler and component.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
