package domain

import (
	"errors"
	"fmt"
	"time"
)

// FaultKind classifies a failure so transports can map it to a response
// without inspecting internals.
type FaultKind string

const (
	FaultValidation     FaultKind = "validation_error"
	FaultAuthentication FaultKind = "authentication_error"
	FaultRateLimit      FaultKind = "rate_limit_error"
	FaultBackend        FaultKind = "backend_error"
	FaultStorage        FaultKind = "storage_error"
	FaultPersistence    FaultKind = "persistence_error"
	FaultWebhook        FaultKind = "webhook_delivery_error"
)

// Fault is a classified error. Message is already safe to show a caller;
// wrap the raw cause in Err for logs only.
type Fault struct {
	Kind       FaultKind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (f *Fault) Error() string {
	if f.Message == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// Validationf builds a client-fault validation error.
func Validationf(format string, args ...any) *Fault {
	return &Fault{Kind: FaultValidation, Message: fmt.Sprintf(format, args...)}
}

// Authenticationf stays deliberately vague to avoid aiding enumeration.
func Authenticationf(format string, args ...any) *Fault {
	return &Fault{Kind: FaultAuthentication, Message: fmt.Sprintf(format, args...)}
}

// RateLimited carries a fixed retry hint callers must honor.
func RateLimited(current, limit int, retryAfter time.Duration) *Fault {
	return &Fault{
		Kind:       FaultRateLimit,
		Message:    fmt.Sprintf("rate limit exceeded: %d requests in window, limit %d", current, limit),
		RetryAfter: retryAfter,
	}
}

// Backendf wraps an inference failure; message must already be sanitized.
func Backendf(err error, format string, args ...any) *Fault {
	return &Fault{Kind: FaultBackend, Message: fmt.Sprintf(format, args...), Err: err}
}

func Storagef(err error, format string, args ...any) *Fault {
	return &Fault{Kind: FaultStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

func Persistencef(err error, format string, args ...any) *Fault {
	return &Fault{Kind: FaultPersistence, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the fault kind, or "" for unclassified errors.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind FaultKind) bool { return KindOf(err) == kind }

// RetryAfterOf returns the retry hint attached to err, if any.
func RetryAfterOf(err error) time.Duration {
	var f *Fault
	if errors.As(err, &f) {
		return f.RetryAfter
	}
	return 0
}
