// internal/logger/styled.go
package logger

import (
	"fmt"
	"log/slog"

	"github.com/thushan/hub/internal/core/domain"
	"github.com/thushan/hub/theme"
)

// Ring is the narrow slice of adapter/logring.Ring the logger writes
// through. Declared here, rather than imported, so this package has no
// dependency on a concrete ring implementation.
type Ring interface {
	Append(level domain.Level, message string)
}

// StyledLogger wraps slog.Logger with theme-aware formatting methods and
// fans every call out to the Log Ring, so the dashboard sees exactly the
// events already logged to console/file - no second code path.
type StyledLogger struct {
	logger *slog.Logger
	theme  *theme.Theme
	ring   Ring
}

// NewStyledLogger creates a new styled logger with the given theme. ring may
// be nil, in which case entries are emitted to slog only.
func NewStyledLogger(logger *slog.Logger, appTheme *theme.Theme, ring Ring) *StyledLogger {
	return &StyledLogger{
		logger: logger,
		theme:  appTheme,
		ring:   ring,
	}
}

func (sl *StyledLogger) append(level domain.Level, msg string) {
	if sl.ring != nil {
		sl.ring.Append(level, msg)
	}
}

func (sl *StyledLogger) Debug(msg string, args ...any) {
	sl.append(domain.LevelDebug, msg)
	sl.logger.Debug(msg, args...)
}

func (sl *StyledLogger) Info(msg string, args ...any) {
	sl.append(domain.LevelInfo, msg)
	sl.logger.Info(msg, args...)
}

func (sl *StyledLogger) Warn(msg string, args ...any) {
	sl.append(domain.LevelWarning, msg)
	sl.logger.Warn(msg, args...)
}

func (sl *StyledLogger) Error(msg string, args ...any) {
	sl.append(domain.LevelError, msg)
	sl.logger.Error(msg, args...)
}

// InfoWithService styles the service name distinctly, e.g. "registered
// service <accent>orders-api</accent>".
func (sl *StyledLogger) InfoWithService(msg, service string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.theme.Accent.Sprint(service))
	sl.append(domain.LevelInfo, styledMsg)
	sl.logger.Info(styledMsg, args...)
}

func (sl *StyledLogger) WarnWithService(msg, service string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.theme.Accent.Sprint(service))
	sl.append(domain.LevelWarning, styledMsg)
	sl.logger.Warn(styledMsg, args...)
}

func (sl *StyledLogger) ErrorWithService(msg, service string, args ...any) {
	styledMsg := fmt.Sprintf("%s %s", msg, sl.theme.Accent.Sprint(service))
	sl.append(domain.LevelError, styledMsg)
	sl.logger.Error(styledMsg, args...)
}

// InfoHealthStatus logs a health probe outcome. status is a plain string
// ("healthy"/"unhealthy") rather than an endpoint-specific enum, since the
// hub only ever reports one of those two outcomes for an upstream.
func (sl *StyledLogger) InfoHealthStatus(msg, name, status string, args ...any) {
	statusStyle := sl.theme.Success
	if status != "healthy" {
		statusStyle = sl.theme.Error
	}
	styledMsg := fmt.Sprintf("%s %s is %s", msg, sl.theme.Accent.Sprint(name), statusStyle.Sprint(status))
	sl.append(domain.LevelInfo, styledMsg)
	sl.logger.Info(styledMsg, args...)
}

// InfoWithCount styles a trailing count, e.g. "active services (3)".
func (sl *StyledLogger) InfoWithCount(msg string, count int, args ...any) {
	styledMsg := fmt.Sprintf("%s (%s)", msg, sl.theme.Highlight.Sprint(count))
	sl.append(domain.LevelInfo, styledMsg)
	sl.logger.Info(styledMsg, args...)
}

// GetUnderlying returns the underlying slog.Logger for call sites that want
// structured fields without the styled helpers.
func (sl *StyledLogger) GetUnderlying() *slog.Logger {
	return sl.logger
}

// WithAttrs creates a new StyledLogger with additional structured attributes.
func (sl *StyledLogger) WithAttrs(attrs ...slog.Attr) *StyledLogger {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}

	return &StyledLogger{
		logger: sl.logger.With(args...),
		theme:  sl.theme,
		ring:   sl.ring,
	}
}

// With creates a new StyledLogger with additional key-value pairs.
func (sl *StyledLogger) With(args ...any) *StyledLogger {
	return &StyledLogger{
		logger: sl.logger.With(args...),
		theme:  sl.theme,
		ring:   sl.ring,
	}
}

// NewWithTheme creates both a regular logger and a styled logger sharing it,
// plus the handler cleanup func (closes rotated file sinks).
func NewWithTheme(cfg *Config, ring Ring) (*slog.Logger, *StyledLogger, func(), error) {
	baseLogger, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	appTheme := theme.GetTheme(cfg.Theme)
	styledLogger := NewStyledLogger(baseLogger, appTheme, ring)

	return baseLogger, styledLogger, cleanup, nil
}
