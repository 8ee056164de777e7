package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(items []map[string]any) []any {
	out := make([]any, 0, len(items))
	for _, m := range items {
		out = append(out, m["id"])
	}
	return out
}

func TestNormalize_Shapes(t *testing.T) {
	list := []any{
		map[string]any{"id": "1"},
		map[string]any{"id": "2"},
	}

	tests := []struct {
		name string
		body any
		want []any
	}{
		{"bare array", list, []any{"1", "2"}},
		{"data wrapper", map[string]any{"data": list}, []any{"1", "2"}},
		{"properties wrapper", map[string]any{"properties": list}, []any{"1", "2"}},
		{"results wrapper", map[string]any{"results": list}, []any{"1", "2"}},
		{"items wrapper", map[string]any{"items": list}, []any{"1", "2"}},
		{"unrecognized object", map[string]any{"message": "ok", "count": 2}, []any{}},
		{"empty object", map[string]any{}, []any{}},
		{"nil body", nil, []any{}},
		{"scalar body", "hello", []any{}},
		{"nested data.properties", map[string]any{"data": map[string]any{"properties": list}}, []any{"1", "2"}},
		{"single resource", map[string]any{"id": "11", "name": "Loft"}, []any{"11"}},
		{"single resource in data", map[string]any{"data": map[string]any{"id": "12"}}, []any{"12"}},
	}

	n := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Normalize(tt.body)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestNormalize_PriorityOrder(t *testing.T) {
	body := map[string]any{
		"items": []any{map[string]any{"id": "from-items"}},
		"data":  []any{map[string]any{"id": "from-data"}},
	}
	got := New(nil).Normalize(body)
	assert.Equal(t, []any{"from-data"}, ids(got))

	// configured order is honoured
	got = New([]string{"items", "data"}).Normalize(body)
	assert.Equal(t, []any{"from-items"}, ids(got))
}

func TestNormalize_WrapperNotSequenceFallsThrough(t *testing.T) {
	body := map[string]any{
		"data":       "not a list",
		"properties": []any{map[string]any{"id": "p"}},
	}
	assert.Equal(t, []any{"p"}, ids(New(nil).Normalize(body)))
}

func TestNormalize_TopLevelSequenceWinsOverNested(t *testing.T) {
	body := map[string]any{
		"data":       map[string]any{"items": []any{map[string]any{"id": "a"}}},
		"properties": []any{map[string]any{"id": "b"}, map[string]any{"id": "c"}},
	}
	assert.Equal(t, []any{"b", "c"}, ids(New(nil).Normalize(body)))
}

func TestNormalizeJSON_SingleResource(t *testing.T) {
	got, err := New(nil).NormalizeJSON([]byte(`{"id":11,"name":"Harbour Loft"}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Harbour Loft", got[0]["name"])
}

func TestNormalize_SkipsNonObjects(t *testing.T) {
	body := []any{map[string]any{"id": "1"}, "junk", 3, nil, map[string]any{"id": "2"}}
	assert.Equal(t, []any{"1", "2"}, ids(New(nil).Normalize(body)))
}

func TestNormalize_GraphQLConnection(t *testing.T) {
	body := map[string]any{
		"data": map[string]any{
			"properties": map[string]any{
				"edges": []any{
					map[string]any{"node": map[string]any{"id": "g1"}},
					map[string]any{"node": map[string]any{"id": "g2"}},
				},
				"pageInfo": map[string]any{"endCursor": "c2"},
			},
		},
	}
	assert.Equal(t, []any{"g1", "g2"}, ids(New(nil).Normalize(body)))
	assert.Equal(t, "c2", NextCursor(body))
}

func TestNormalizeJSON(t *testing.T) {
	n := New(nil)

	got, err := n.NormalizeJSON([]byte(`{"results":[{"id":9007199254740993}]}`))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "9007199254740993", got[0]["id"].(interface{ String() string }).String())

	got, err = n.NormalizeJSON([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = n.NormalizeJSON([]byte(`{"data": [`))
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestNextCursor(t *testing.T) {
	assert.Equal(t, "abc", NextCursor(map[string]any{"next_cursor": "abc"}))
	assert.Equal(t, "m1", NextCursor(map[string]any{"meta": map[string]any{"next_cursor": "m1"}}))
	assert.Equal(t, "", NextCursor(map[string]any{"meta": map[string]any{}}))
	assert.Equal(t, "", NextCursor([]any{}))
}
