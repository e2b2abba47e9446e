package logging

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Attr is re-exported so callers do not import log/slog just for field
// helpers.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Any(key string, value any) Attr { return slog.Any(key, value) }

// Error tags err under "error". A nil error is still rendered so a missing
// cause is visible in the line.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Cell tags a 1-based cell position.
func Cell(index int) Attr { return slog.Int(FieldCell, index) }

// Document tags a cell document file name inside a project.
func Document(name string) Attr { return slog.String(FieldDocument, name) }

// Project tags a project directory or archive path.
func Project(target string) Attr { return slog.String(FieldProject, target) }

// Backend tags the storage backend serving an action.
func Backend(b fmt.Stringer) Attr { return slog.String(FieldBackend, b.String()) }

// RequestID tags a bridge correlation token. Console output promotes it next
// to the component.
func RequestID(token string) Attr { return slog.String(FieldRequestID, token) }

// NewNop returns a logger that drops every record.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger yields
// a no-op base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const (
	defaultErrorHint = `rerun with logging.level = "debug" for details`
	defaultImpact    = "the action finished with warnings"
)

// WarnWithContext logs a warning that always carries event_type, error_hint,
// and impact. Missing fields get defaults so every WARN line says what broke
// and what to try next.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs, eventType, true)
	logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

// ErrorWithContext logs an error that always carries event_type and
// error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefaults(attrs, eventType, false)
	logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

func withDefaults(attrs []Attr, eventType string, impact bool) []Attr {
	var hasEvent, hasHint, hasImpact bool
	for _, a := range attrs {
		switch a.Key {
		case FieldEventType:
			hasEvent = true
		case FieldErrorHint:
			hasHint = true
		case FieldImpact:
			hasImpact = true
		}
	}
	if !hasEvent {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasHint {
		attrs = append(attrs, String(FieldErrorHint, defaultErrorHint))
	}
	if impact && !hasImpact {
		attrs = append(attrs, String(FieldImpact, defaultImpact))
	}
	return attrs
}
