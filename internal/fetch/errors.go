package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized marks a 401/403: the credential itself was rejected.
	ErrUnauthorized = errors.New("credentials rejected")

	// ErrRetriesExhausted marks a transient failure that outlived the attempt cap.
	ErrRetriesExhausted = errors.New("retry attempts exhausted")

	// ErrNoAlternate is returned for alternate-protocol strategies when no
	// alternate transport is configured.
	ErrNoAlternate = errors.New("alternate transport not configured")
)

// FetchError is a terminal failure of one strategy.
type FetchError struct {
	Strategy  string
	Status    int // 0 when no HTTP status was received
	Message   string
	Attempts  int
	Exhausted bool
	Err       error
}

func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Exhausted:
		return fmt.Sprintf("%s: %s after %d attempts: %s", e.Strategy, ErrRetriesExhausted, e.Attempts, msg)
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Strategy, e.Status, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Strategy, msg)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinels without wrapping chains.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrRetriesExhausted:
		return e.Exhausted
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	}
	return false
}

// Retryable reports whether the underlying status is one the fetcher retries.
func (e *FetchError) Retryable() bool {
	return retryableStatus(e.Status)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
