// Package transport executes single calls against the listing API. It knows
// nothing about retries or deduplication; it surfaces status codes and
// rate-limit hints losslessly so the fetcher can decide what to do.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Protocol names a transport family.
type Protocol string

const (
	// ProtocolPrimary is the REST endpoint family.
	ProtocolPrimary Protocol = "primary"
	// ProtocolAlternate is the structured query (GraphQL) endpoint.
	ProtocolAlternate Protocol = "alternate"
)

// Param is one query parameter. Order is preserved on the wire.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request describes one call.
type Request struct {
	Label     string
	Path      string
	Params    []Param
	Query     string         // GraphQL document (alternate only)
	Variables map[string]any // GraphQL variables (alternate only)
}

// Response is a decoded response body plus the metadata the fetcher needs.
type Response struct {
	Status     int
	Body       any
	RetryAfter time.Duration
	Header     http.Header
}

// Transport executes primary-protocol calls.
type Transport interface {
	Query(ctx context.Context, req Request) (*Response, error)
}

// AlternateTransport executes alternate-protocol calls.
type AlternateTransport interface {
	QueryAlternate(ctx context.Context, req Request) (*Response, error)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Status     int
	RetryAfter time.Duration
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, body)
}

// ParseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. Also accepts the X-RateLimit-Reset style epoch seconds some
// listing APIs send instead.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := t.Sub(now); d > 0 {
				return d
			}
			return 0
		}
	}
	if v := strings.TrimSpace(h.Get("X-RateLimit-Reset")); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil && epoch > 1_000_000_000 {
			if d := time.Unix(epoch, 0).Sub(now); d > 0 {
				return d
			}
		}
	}
	return 0
}
