package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Key columns that precede the schema in every results file.
const (
	ColumnCollection = "Collection"
	ColumnDataset    = "Dataset"
)

// Write encodes the table as CSV. Empty cells are written as "" and floats
// use the shortest representation that round-trips exactly.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append([]string{ColumnCollection, ColumnDataset}, t.columns...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, key := range t.order {
		record := []string{key.Collection, key.Name}
		for _, v := range t.rows[key] {
			record = append(record, formatFloat(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read decodes a table written by Write.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("results file is empty")
	}
	header := records[0]
	if len(header) < 2 || header[0] != ColumnCollection || header[1] != ColumnDataset {
		return nil, fmt.Errorf("results header must start with %s,%s", ColumnCollection, ColumnDataset)
	}

	t := New(header[2:], nil)
	for line, record := range records[1:] {
		key := core.DatasetKey{Collection: record[0], Name: record[1]}
		if _, dup := t.rows[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate row for %s", line+2, key)
		}
		values := make([]float64, len(t.columns))
		for i, cell := range record[2:] {
			v, err := parseFloat(cell)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %q: %w", line+2, t.columns[i], err)
			}
			values[i] = v
		}
		t.Set(key, values)
	}
	return t, nil
}

// Save writes the table to path through a temporary file, so a crash never
// leaves a truncated results file behind.
func (t *Table) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if err := t.Write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads a table from path. A missing file returns (nil, nil).
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" || s == "NaN" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Equal reports whether two tables have the same schema, keys and cells.
// NaN cells compare equal.
func Equal(a, b *Table) bool {
	if !slices.Equal(a.columns, b.columns) || !slices.Equal(a.order, b.order) {
		return false
	}
	for _, key := range a.order {
		ra, rb := a.rows[key], b.rows[key]
		for i := range ra {
			if formatFloat(ra[i]) != formatFloat(rb[i]) {
				return false
			}
		}
	}
	return true
}
