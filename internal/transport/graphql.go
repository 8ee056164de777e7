package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"propsweep/internal/logging"
)

// ErrAlternateDisabled is returned by QueryAlternate when no GraphQL path is configured.
var ErrAlternateDisabled = errors.New("alternate protocol not configured")

// GraphQLError is returned when a GraphQL response carries errors and no data.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// QueryAlternate POSTs req.Query with req.Variables to the GraphQL endpoint.
// The whole envelope is returned as the body so the normalizer can find both
// the entity list and the page info under "data".
func (c *HTTPClient) QueryAlternate(ctx context.Context, req Request) (*Response, error) {
	if c.graphqlPath == "" {
		return nil, ErrAlternateDisabled
	}

	payload, err := json.Marshal(graphqlRequest{Query: req.Query, Variables: req.Variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode graphql request: %w", err)
	}

	u := c.endpoint(c.graphqlPath)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.decorate(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	logging.TransportDebug("POST %s (%s)", u.String(), req.Label)
	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	envelope, _ := resp.Body.(map[string]any)
	msgs := graphqlErrors(envelope["errors"])
	if len(msgs) == 0 {
		return resp, nil
	}
	if data, ok := envelope["data"].(map[string]any); ok && len(data) > 0 {
		logging.Transport("%s: partial graphql data with errors: %s", req.Label, strings.Join(msgs, "; "))
		return resp, nil
	}
	return nil, &GraphQLError{Messages: msgs}
}

func graphqlErrors(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch e := item.(type) {
		case map[string]any:
			if msg, ok := e["message"].(string); ok && msg != "" {
				out = append(out, msg)
				continue
			}
			out = append(out, fmt.Sprint(e))
		case string:
			out = append(out, e)
		}
	}
	return out
}
