package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propsweep/internal/property"
	"propsweep/internal/report"
)

func sampleEntities() []property.Entity {
	active := true
	capacity := 6.0
	return []property.Entity{
		{
			ID:          "1",
			DisplayName: "Harbour Loft",
			Active:      &active,
			Location:    &property.Location{Line: "1 Quay St", City: "Lisbon", Region: "Lisboa", PostalCode: "1100"},
			Capacity:    &capacity,
			Tags:        []string{"sea view", "wifi"},
		},
		{ID: "2", Tags: []string{}},
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "entities.json")
	require.NoError(t, WriteJSON(path, sampleEntities()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []property.Entity
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(sampleEntities(), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	require.NoError(t, WriteJSON(path, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.csv")
	require.NoError(t, WriteCSV(path, sampleEntities()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	want := [][]string{
		CSVHeader,
		{"1", "Harbour Loft", "true", "1 Quay St", "Lisbon", "Lisboa", "1100", "6", "sea view|wifi"},
		{"2", "", "", "", "", "", "", "", ""},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteAll(dir, []string{"json", "csv"}, sampleEntities())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "entities.json"), filepath.Join(dir, "entities.csv")}, paths)

	_, err = WriteAll(dir, []string{"xml"}, nil)
	assert.ErrorContains(t, err, "unsupported export format")
}

func TestHistory_RecordAndList(t *testing.T) {
	h, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	expected := 10

	older := RunRecord{
		StartedAt:  base,
		FinishedAt: base.Add(time.Minute),
		Total:      4,
		Yields:     []report.StrategyYield{{Label: "baseline", Yield: 4, Fetched: 4}},
	}
	newer := RunRecord{
		StartedAt:   base.Add(time.Hour),
		FinishedAt:  base.Add(time.Hour + time.Minute),
		Total:       7,
		Expected:    &expected,
		Interrupted: true,
		Failures:    []report.StrategyFailure{{Label: "archived filter", Status: 400, Message: "HTTP 400", Attempts: 1}},
	}

	olderID, err := h.Record(ctx, older)
	require.NoError(t, err)
	assert.Len(t, olderID, 36)
	_, err = h.Record(ctx, newer)
	require.NoError(t, err)

	runs, err := h.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, 7, runs[0].Total)
	require.NotNil(t, runs[0].Expected)
	assert.Equal(t, 10, *runs[0].Expected)
	assert.True(t, runs[0].Interrupted)
	require.Len(t, runs[0].Failures, 1)
	assert.Equal(t, 400, runs[0].Failures[0].Status)

	assert.Equal(t, olderID, runs[1].ID)
	assert.Nil(t, runs[1].Expected)
	assert.True(t, runs[1].StartedAt.Equal(base))
	require.Len(t, runs[1].Yields, 1)
	assert.Equal(t, "baseline", runs[1].Yields[0].Label)

	limited, err := h.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordFromReport(t *testing.T) {
	expected := 3
	r := report.Report{Total: 2, Expected: &expected, Ranked: []report.StrategyYield{{Label: "a", Yield: 2}}}
	start := time.Now()
	rec := RecordFromReport(r, start, start.Add(time.Second), false)
	assert.Equal(t, 2, rec.Total)
	assert.Equal(t, &expected, rec.Expected)
	assert.Equal(t, r.Ranked, rec.Yields)
}
