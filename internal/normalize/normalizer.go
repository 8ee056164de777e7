// Package normalize turns heterogeneous listing API response bodies into an
// ordered sequence of raw entity-shaped maps.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"propsweep/internal/logging"
	"propsweep/internal/property"
)

// ErrMalformed indicates a body that could not be decoded at all.
var ErrMalformed = errors.New("malformed response body")

// DefaultWrapperKeys are the conventional envelope keys, in priority order.
var DefaultWrapperKeys = []string{"data", "properties", "results", "items"}

// Normalizer extracts entity sequences from decoded bodies.
type Normalizer struct {
	wrapperKeys []string
}

// New creates a Normalizer. Empty keys fall back to DefaultWrapperKeys.
func New(wrapperKeys []string) *Normalizer {
	if len(wrapperKeys) == 0 {
		wrapperKeys = DefaultWrapperKeys
	}
	keys := make([]string, len(wrapperKeys))
	copy(keys, wrapperKeys)
	return &Normalizer{wrapperKeys: keys}
}

// Normalize returns the entity maps held by body. A body with no recognized
// shape yields an empty slice, never an error: empty pages are a normal
// terminal condition.
func (n *Normalizer) Normalize(body any) []map[string]any {
	seq, ok := n.sequence(body, 0)
	if ok {
		return objects(seq)
	}
	obj, isObj := body.(map[string]any)
	if !isObj || len(obj) == 0 {
		return []map[string]any{}
	}
	if single, ok := n.single(obj); ok {
		return []map[string]any{single}
	}
	logging.NormalizeWarn("unrecognized response shape, keys=%v", sortedKeys(obj))
	return []map[string]any{}
}

// single recognizes a single-resource body ({"id":11,...} or
// {"data":{"id":11,...}}) as a one-element sequence.
func (n *Normalizer) single(obj map[string]any) (map[string]any, bool) {
	if property.RawID(obj) != "" {
		return obj, true
	}
	for _, key := range n.wrapperKeys {
		if inner, ok := obj[key].(map[string]any); ok && property.RawID(inner) != "" {
			return inner, true
		}
	}
	return nil, false
}

// maxUnwrap bounds how deep wrappers are followed: REST envelopes nest at
// most once ({"data":{"properties":[...]}}), GraphQL connections twice
// ({"data":{"properties":{"edges":[...]}}}).
const maxUnwrap = 2

// sequence finds the entity list. A wrapper key holding a sequence directly
// wins over any nested one; within each pass the first key in priority order
// wins.
func (n *Normalizer) sequence(body any, depth int) ([]any, bool) {
	switch t := body.(type) {
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	case map[string]any:
		for _, key := range n.wrapperKeys {
			if seq, ok := t[key].([]any); ok {
				return seq, true
			}
		}
		if depth < maxUnwrap {
			for _, key := range n.wrapperKeys {
				v, present := t[key]
				if !present {
					continue
				}
				if seq, ok := n.sequence(v, depth+1); ok {
					return seq, true
				}
			}
		}
		if depth > 0 {
			return connection(t)
		}
	}
	return nil, false
}

// connection unwraps GraphQL relay-style {edges:[{node:{}}]} or {nodes:[]}.
func connection(obj map[string]any) ([]any, bool) {
	if nodes, ok := obj["nodes"].([]any); ok {
		return nodes, true
	}
	edges, ok := obj["edges"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(edges))
	for _, e := range edges {
		if m, ok := e.(map[string]any); ok {
			if node, ok := m["node"]; ok {
				out = append(out, node)
				continue
			}
		}
		out = append(out, e)
	}
	return out, true
}

func objects(seq []any) []map[string]any {
	out := make([]map[string]any, 0, len(seq))
	skipped := 0
	for _, item := range seq {
		m, ok := item.(map[string]any)
		if !ok {
			skipped++
			continue
		}
		out = append(out, m)
	}
	if skipped > 0 {
		logging.NormalizeDebug("skipped %d non-object elements", skipped)
	}
	return out
}

// Decode parses a JSON body preserving numbers as json.Number so large
// numeric ids survive intact.
func Decode(data []byte) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return body, nil
}

// NormalizeJSON decodes data and normalizes it.
func (n *Normalizer) NormalizeJSON(data []byte) ([]map[string]any, error) {
	body, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return n.Normalize(body), nil
}

// cursorPaths are tried in order when looking for a next-page cursor.
var cursorPaths = [][]string{
	{"next_cursor"},
	{"nextCursor"},
	{"cursor"},
	{"next"},
	{"meta", "next_cursor"},
	{"meta", "nextCursor"},
	{"pagination", "next_cursor"},
	{"pagination", "nextCursor"},
	{"links", "next"},
	{"pageInfo", "endCursor"},
	{"data", "properties", "pageInfo", "endCursor"},
	{"data", "listings", "pageInfo", "endCursor"},
}

// NextCursor returns the next-page cursor in body, if any.
func NextCursor(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	for _, path := range cursorPaths {
		if s := lookupString(obj, path); s != "" {
			return s
		}
	}
	return ""
}

func lookupString(obj map[string]any, path []string) string {
	var cur any = obj
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
