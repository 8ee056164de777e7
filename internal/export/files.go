// Package export writes discovered entities to disk and keeps a history of
// discovery runs.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"propsweep/internal/logging"
	"propsweep/internal/property"
)

// CSVHeader is the column order written by WriteCSV.
var CSVHeader = []string{"id", "name", "active", "address", "city", "region", "postal_code", "capacity", "tags"}

// WriteJSON writes entities as an indented JSON array.
func WriteJSON(path string, entities []property.Entity) error {
	if entities == nil {
		entities = []property.Entity{}
	}
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	logging.Export("wrote %d entities to %s", len(entities), path)
	return nil
}

// WriteCSV writes one row per entity. Unknown values are left empty; tags
// are joined with "|".
func WriteCSV(path string, entities []property.Entity) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entities {
		if err := w.Write(csvRow(e)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	logging.Export("wrote %d rows to %s", len(entities), path)
	return f.Close()
}

func csvRow(e property.Entity) []string {
	row := make([]string, len(CSVHeader))
	row[0] = e.ID
	row[1] = e.DisplayName
	if e.Active != nil {
		row[2] = strconv.FormatBool(*e.Active)
	}
	if e.Location != nil {
		row[3] = e.Location.Line
		row[4] = e.Location.City
		row[5] = e.Location.Region
		row[6] = e.Location.PostalCode
	}
	if e.Capacity != nil {
		row[7] = strconv.FormatFloat(*e.Capacity, 'f', -1, 64)
	}
	row[8] = strings.Join(e.Tags, "|")
	return row
}

// WriteAll writes entities in each format to dir as entities.<format>.
// It returns the paths written.
func WriteAll(dir string, formats []string, entities []property.Entity) ([]string, error) {
	var paths []string
	for _, format := range formats {
		path := filepath.Join(dir, "entities."+format)
		var err error
		switch format {
		case "json":
			err = WriteJSON(path, entities)
		case "csv":
			err = WriteCSV(path, entities)
		default:
			err = fmt.Errorf("unsupported export format: %s", format)
		}
		if err != nil {
			logging.ExportError("export %s failed: %v", format, err)
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
