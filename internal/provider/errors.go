package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrTransient   = errors.New("transient failure")
	ErrRateLimited = errors.New("rate limited")
	ErrNotFound    = errors.New("not found")
	ErrMalformed   = errors.New("malformed response")
	ErrContract    = errors.New("contract violation")
	ErrAuth        = errors.New("authentication failed")
)

// Error tags a provider failure with one of the sentinel kinds above so the
// gateway and orchestrator can classify it uniformly.
type Error struct {
	Kind       error
	Provider   string
	Operation  string
	Message    string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{e.Provider, e.Operation, e.Message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status %d", e.StatusCode))
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "provider failure"
	}
	kind := e.Kind
	if kind == nil {
		kind = ErrTransient
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", kind, detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", kind, detail)
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap builds a tagged error. A nil kind is classified from err.
func Wrap(kind error, provider, operation, message string, err error) error {
	if kind == nil {
		kind = Classify(err)
	}
	return &Error{Kind: kind, Provider: provider, Operation: operation, Message: message, Err: err}
}

// StatusError classifies a non-2xx HTTP response.
func StatusError(provider, operation string, status int, retryAfter time.Duration, body string) error {
	var kind error
	switch {
	case status == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// GitHub reports exhausted quota as 403 with a reset hint
		if retryAfter > 0 {
			kind = ErrRateLimited
		} else {
			kind = ErrAuth
		}
	case status == http.StatusRequestTimeout || status >= 500:
		kind = ErrTransient
	default:
		kind = ErrMalformed
	}
	return &Error{
		Kind:       kind,
		Provider:   provider,
		Operation:  operation,
		Message:    strings.TrimSpace(body),
		StatusCode: status,
		RetryAfter: retryAfter,
	}
}

// Classify maps an arbitrary error onto a sentinel kind. Errors already
// tagged keep their kind, messages mentioning a rate limit are rate-limited,
// and everything else is transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrContract, ErrAuth, ErrMalformed, ErrNotFound, ErrRateLimited, ErrTransient} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		return ErrRateLimited
	}
	return ErrTransient
}

// Retryable reports whether err warrants another attempt.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	kind := Classify(err)
	return kind == ErrTransient || kind == ErrRateLimited
}

// RetryAfterHint returns the server-provided wait for rate-limited errors.
func RetryAfterHint(err error) (time.Duration, bool) {
	var pe *Error
	if errors.As(err, &pe) && pe.RetryAfter > 0 {
		return pe.RetryAfter, true
	}
	return 0, false
}
