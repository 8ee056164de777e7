// Package property defines the canonical entity record discovered from the
// listing API and the mapping from loosely shaped raw payloads into it.
package property

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingID is returned by FromRaw when a payload carries no usable id.
var ErrMissingID = errors.New("entity has no id")

// Entity is one discovered property.
type Entity struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name,omitempty"`
	Active      *bool          `json:"active,omitempty"` // nil = unknown, distinct from false
	Location    *Location      `json:"location,omitempty"`
	Capacity    *float64       `json:"capacity,omitempty"`
	Tags        []string       `json:"tags"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// Location is a structured address.
type Location struct {
	Line       string `json:"line,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// IsZero reports whether every field is empty.
func (l *Location) IsZero() bool {
	return l == nil || (l.Line == "" && l.City == "" && l.Region == "" && l.PostalCode == "")
}

// Key lookup order per canonical field. Different endpoints spell these
// differently; the first non-empty match wins.
var (
	idKeys       = []string{"id", "uuid", "_id", "propertyId", "property_id", "listingId", "listing_id"}
	nameKeys     = []string{"name", "displayName", "display_name", "title", "nickname", "public_name"}
	activeKeys   = []string{"active", "isActive", "is_active", "listed", "isListed"}
	capacityKeys = []string{"capacity", "maxGuests", "max_guests", "personCapacity", "person_capacity", "accommodates"}
	lineKeys     = []string{"line", "full", "display", "street", "line1", "address1", "address"}
	cityKeys     = []string{"city", "town", "locality"}
	regionKeys   = []string{"region", "state", "province", "county"}
	postalKeys   = []string{"postal_code", "postalCode", "zip", "zipcode", "zip_code", "postcode"}
)

// FromRaw maps a raw entity-shaped payload into an Entity. The payload is kept
// as Raw without copying; callers must not mutate it afterwards.
func FromRaw(raw map[string]any) (Entity, error) {
	id := firstString(raw, idKeys)
	if id == "" {
		return Entity{}, ErrMissingID
	}

	e := Entity{
		ID:          id,
		DisplayName: firstString(raw, nameKeys),
		Active:      activeFlag(raw),
		Location:    location(raw),
		Capacity:    firstNumber(raw, capacityKeys),
		Tags:        tags(raw["tags"]),
		Raw:         raw,
	}
	return e, nil
}

// RawID returns the id FromRaw would assign to raw, or "" if it has none.
func RawID(raw map[string]any) string {
	return firstString(raw, idKeys)
}

// FillMissing copies fields from other into e where e has no value. Fields that
// are already set on e are never overwritten.
func (e *Entity) FillMissing(other Entity) {
	if e.DisplayName == "" {
		e.DisplayName = other.DisplayName
	}
	if e.Active == nil && other.Active != nil {
		v := *other.Active
		e.Active = &v
	}
	if e.Location.IsZero() && !other.Location.IsZero() {
		loc := *other.Location
		e.Location = &loc
	} else if e.Location != nil && other.Location != nil {
		fillString(&e.Location.Line, other.Location.Line)
		fillString(&e.Location.City, other.Location.City)
		fillString(&e.Location.Region, other.Location.Region)
		fillString(&e.Location.PostalCode, other.Location.PostalCode)
	}
	if e.Capacity == nil && other.Capacity != nil {
		v := *other.Capacity
		e.Capacity = &v
	}
	if len(e.Tags) == 0 && len(other.Tags) > 0 {
		e.Tags = append([]string(nil), other.Tags...)
	}
	if len(other.Raw) > 0 {
		merged := make(map[string]any, len(e.Raw)+len(other.Raw))
		for k, v := range other.Raw {
			merged[k] = v
		}
		for k, v := range e.Raw {
			if !isEmpty(v) {
				merged[k] = v
			}
		}
		e.Raw = merged
	}
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func firstString(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if s := stringValue(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

// stringValue renders scalars as strings. Numeric ids are rendered in
// integer form when they are integral so 42 and 42.0 dedupe together.
func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return integralNumber(t.String())
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	}
	return ""
}

// integralNumber trims a zero fraction ("42.0" -> "42") without going through
// float64, so ids beyond int64 stay distinct. Anything else is returned as is.
func integralNumber(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "eE") {
		return s
	}
	whole, frac, found := strings.Cut(s, ".")
	if !found || strings.Trim(frac, "0") != "" {
		return s
	}
	if whole == "" || whole == "-" {
		return s
	}
	if whole == "-0" {
		return "0"
	}
	return whole
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func firstNumber(raw map[string]any, keys []string) *float64 {
	for _, k := range keys {
		if f, ok := numberValue(raw[k]); ok {
			return &f
		}
	}
	return nil
}

func activeFlag(raw map[string]any) *bool {
	for _, k := range activeKeys {
		if b, ok := boolValue(raw[k]); ok {
			return &b
		}
	}
	if s, ok := raw["status"].(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "active", "listed", "published", "enabled":
			b := true
			return &b
		case "inactive", "unlisted", "archived", "disabled", "deleted":
			b := false
			return &b
		}
	}
	return nil
}

func boolValue(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	case json.Number:
		i, err := t.Int64()
		if err != nil || (i != 0 && i != 1) {
			return false, false
		}
		return i == 1, true
	case float64:
		if t != 0 && t != 1 {
			return false, false
		}
		return t == 1, true
	}
	return false, false
}

func location(raw map[string]any) *Location {
	loc := &Location{}
	switch addr := raw["address"].(type) {
	case map[string]any:
		loc.Line = firstString(addr, lineKeys)
		loc.City = firstString(addr, cityKeys)
		loc.Region = firstString(addr, regionKeys)
		loc.PostalCode = firstString(addr, postalKeys)
	case string:
		loc.Line = strings.TrimSpace(addr)
	}
	if nested, ok := raw["location"].(map[string]any); ok {
		fillString(&loc.Line, firstString(nested, lineKeys))
		fillString(&loc.City, firstString(nested, cityKeys))
		fillString(&loc.Region, firstString(nested, regionKeys))
		fillString(&loc.PostalCode, firstString(nested, postalKeys))
	}
	fillString(&loc.City, firstString(raw, cityKeys))
	fillString(&loc.Region, firstString(raw, regionKeys))
	fillString(&loc.PostalCode, firstString(raw, postalKeys))

	if loc.IsZero() {
		return nil
	}
	return loc
}

func tags(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			var s string
			switch it := item.(type) {
			case map[string]any:
				s = firstString(it, []string{"name", "label", "value", "tag"})
			default:
				s = stringValue(it)
			}
			if s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
