// Package catalog builds the ordered, intentionally redundant set of query
// strategies used to sweep the listing API. Every strategy is a read-only
// value; building the catalog again yields an identical sequence.
package catalog

import (
	"fmt"
	"strings"

	"propsweep/internal/transport"
)

// Pagination selects how a strategy walks pages.
type Pagination string

const (
	PaginationNone   Pagination = "none"
	PaginationOffset Pagination = "offset"
	PaginationCursor Pagination = "cursor"
	PaginationPage   Pagination = "page"
)

// Category groups strategies for reporting.
type Category string

const (
	CategoryBaseline   Category = "baseline"
	CategoryLimit      Category = "limit"
	CategoryStatus     Category = "status"
	CategoryEndpoint   Category = "endpoint"
	CategoryPagination Category = "pagination"
	CategorySort       Category = "sort"
	CategoryAlternate  Category = "alternate"
	CategorySearch     Category = "search"
	CategoryProbe      Category = "probe"
)

// Well-known parameter names.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamPage   = "page"
	ParamCursor = "cursor"
	ParamStatus = "status"
	ParamSort   = "sort"
	ParamSearch = "search"
	ParamCity   = "city"
)

// Strategy describes one query attempt.
type Strategy struct {
	Label      string
	Transport  transport.Protocol
	Category   Category
	Path       string
	Params     []transport.Param
	Pagination Pagination

	// Alternate protocol only.
	Query     string
	Variables map[string]any
}

// Param returns the value of the named parameter.
func (s Strategy) Param(name string) (string, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// WithParam returns a copy of s with name set to value, replacing an existing
// parameter in place or appending it. s is not modified.
func (s Strategy) WithParam(name, value string) Strategy {
	params := make([]transport.Param, 0, len(s.Params)+1)
	replaced := false
	for _, p := range s.Params {
		if p.Name == name {
			params = append(params, transport.Param{Name: name, Value: value})
			replaced = true
			continue
		}
		params = append(params, p)
	}
	if !replaced {
		params = append(params, transport.Param{Name: name, Value: value})
	}
	out := s
	out.Params = params
	if s.Variables != nil {
		out.Variables = make(map[string]any, len(s.Variables))
		for k, v := range s.Variables {
			out.Variables[k] = v
		}
	}
	return out
}

// WithVariable returns a copy of s with a GraphQL variable set.
func (s Strategy) WithVariable(name string, value any) Strategy {
	out := s
	out.Variables = make(map[string]any, len(s.Variables)+1)
	for k, v := range s.Variables {
		out.Variables[k] = v
	}
	out.Variables[name] = value
	return out
}

// Request converts the strategy into a transport request.
func (s Strategy) Request() transport.Request {
	return transport.Request{
		Label:     s.Label,
		Path:      s.Path,
		Params:    s.Params,
		Query:     s.Query,
		Variables: s.Variables,
	}
}

// String renders label, transport and parameters for CLI listings.
func (s Strategy) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s/%s] %s", s.Label, s.Transport, s.Category, s.Path)
	if len(s.Params) > 0 {
		parts := make([]string, 0, len(s.Params))
		for _, p := range s.Params {
			parts = append(parts, p.Name+"="+p.Value)
		}
		sb.WriteString(" ?" + strings.Join(parts, "&"))
	}
	if s.Pagination != "" && s.Pagination != PaginationNone {
		sb.WriteString(" (" + string(s.Pagination) + ")")
	}
	return sb.String()
}
