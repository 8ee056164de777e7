package catalog

import (
	"strings"
	"unicode"

	"propsweep/internal/property"
	"propsweep/internal/transport"
)

// minTokenLen drops short name tokens ("a", "of", "st") that match everything.
const minTokenLen = 4

// SearchExpansion derives search strategies from entities that were already
// discovered: one city filter per distinct city, one free-text search per
// distinct region and per distinct name token. Terms are compared case
// insensitively, kept in first-seen order and capped at limit (0 = no cap).
func SearchExpansion(entities []property.Entity, limit int) Catalog {
	var out Catalog
	seen := make(map[string]struct{})

	add := func(kind, term string) bool {
		term = strings.TrimSpace(term)
		if term == "" {
			return true
		}
		key := kind + ":" + strings.ToLower(term)
		if _, dup := seen[key]; dup {
			return true
		}
		if limit > 0 && len(out) >= limit {
			return false
		}
		seen[key] = struct{}{}
		out = append(out, searchStrategy(kind, term))
		return true
	}

	for _, e := range entities {
		if e.Location != nil {
			if !add(ParamCity, e.Location.City) || !add(ParamSearch, e.Location.Region) {
				break
			}
		}
	}
	for _, e := range entities {
		full := true
		for _, tok := range nameTokens(e.DisplayName) {
			if !add(ParamSearch, tok) {
				full = false
				break
			}
		}
		if !full {
			break
		}
	}
	return out
}

func searchStrategy(param, term string) Strategy {
	label := "search " + strings.ToLower(term)
	if param == ParamCity {
		label = "city " + strings.ToLower(term)
	}
	return Strategy{
		Label:      label,
		Transport:  transport.ProtocolPrimary,
		Category:   CategorySearch,
		Path:       "/properties",
		Params:     []transport.Param{{Name: param, Value: term}},
		Pagination: PaginationOffset,
	}
}

func nameTokens(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLen && !isDigits(f) {
			out = append(out, f)
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
