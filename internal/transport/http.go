package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"propsweep/internal/config"
	"propsweep/internal/logging"
	"propsweep/internal/normalize"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 64 << 20

// ClientOptions configures an HTTPClient.
type ClientOptions struct {
	BaseURL     string
	Token       string
	UserAgent   string
	GraphQLPath string // empty disables QueryAlternate
	Timeout     time.Duration
	HTTP2       bool
}

// OptionsFromConfig maps the api section onto ClientOptions.
func OptionsFromConfig(cfg *config.Config) ClientOptions {
	return ClientOptions{
		BaseURL:     cfg.API.BaseURL,
		Token:       cfg.API.Token,
		UserAgent:   cfg.API.UserAgent,
		GraphQLPath: cfg.API.GraphQLPath,
		Timeout:     cfg.GetAPITimeout(),
		HTTP2:       cfg.API.HTTP2,
	}
}

// HTTPClient speaks both the REST and the GraphQL protocol of the listing API.
type HTTPClient struct {
	base        *url.URL
	token       string
	userAgent   string
	graphqlPath string
	client      *http.Client
	now         func() time.Time
}

// NewHTTPClient creates a client. If hc is nil a client is built from opts.
func NewHTTPClient(opts ClientOptions, hc *http.Client) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", opts.BaseURL)
	}

	if hc == nil {
		hc, err = buildHTTPClient(opts)
		if err != nil {
			return nil, err
		}
	}

	return &HTTPClient{
		base:        base,
		token:       opts.Token,
		userAgent:   opts.UserAgent,
		graphqlPath: opts.GraphQLPath,
		client:      hc,
		now:         time.Now,
	}, nil
}

func buildHTTPClient(opts ClientOptions) (*http.Client, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if opts.HTTP2 {
		if err := http2.ConfigureTransport(t); err != nil {
			return nil, fmt.Errorf("failed to enable http2: %w", err)
		}
	}
	return &http.Client{Transport: t, Timeout: opts.Timeout}, nil
}

// SupportsAlternate reports whether a GraphQL path is configured.
func (c *HTTPClient) SupportsAlternate() bool { return c.graphqlPath != "" }

// Query performs a GET against the REST protocol.
func (c *HTTPClient) Query(ctx context.Context, req Request) (*Response, error) {
	u := c.endpoint(req.Path)
	u.RawQuery = encodeParams(req.Params)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.decorate(httpReq)
	httpReq.Header.Set("Accept", "application/json")

	logging.TransportDebug("GET %s (%s)", u.String(), req.Label)
	return c.do(httpReq)
}

func (c *HTTPClient) endpoint(path string) *url.URL {
	u := *c.base
	if path != "" {
		u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	}
	return &u
}

func (c *HTTPClient) decorate(r *http.Request) {
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		r.Header.Set("User-Agent", c.userAgent)
	}
}

func (c *HTTPClient) do(r *http.Request) (*Response, error) {
	resp, err := c.client.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Status:     resp.StatusCode,
			RetryAfter: ParseRetryAfter(resp.Header, c.now()),
			Body:       string(data),
		}
	}

	body, err := normalize.Decode(data)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status:     resp.StatusCode,
		Body:       body,
		RetryAfter: ParseRetryAfter(resp.Header, c.now()),
		Header:     resp.Header,
	}, nil
}

// encodeParams keeps parameter order, which url.Values would not.
func encodeParams(params []Param) string {
	var buf bytes.Buffer
	for i, p := range params {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(url.QueryEscape(p.Name))
		buf.WriteByte('=')
		buf.WriteString(url.QueryEscape(p.Value))
	}
	return buf.String()
}
