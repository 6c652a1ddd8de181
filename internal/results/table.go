// Package results owns the results table of a pipeline: its fixed schema,
// the resume merge with persisted rows, and CSV persistence.
package results

import (
	"math"
	"slices"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Table holds one row per dataset key. Cells are NaN until computed.
// Declared keys come first in declaration order; rows for keys only found in
// persisted results follow.
type Table struct {
	columns []string
	order   []core.DatasetKey
	rows    map[core.DatasetKey][]float64
}

// New creates a table with the given schema and one empty row per key.
func New(columns []string, keys []core.DatasetKey) *Table {
	t := &Table{
		columns: slices.Clone(columns),
		rows:    make(map[core.DatasetKey][]float64, len(keys)),
	}
	for _, k := range keys {
		t.ensure(k)
	}
	return t
}

// Columns returns the schema.
func (t *Table) Columns() []string { return slices.Clone(t.columns) }

// Keys returns the row keys in table order.
func (t *Table) Keys() []core.DatasetKey { return slices.Clone(t.order) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.order) }

// Row returns a copy of the row for key.
func (t *Table) Row(key core.DatasetKey) ([]float64, bool) {
	row, ok := t.rows[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(row), true
}

// Value returns one cell; NaN when absent.
func (t *Table) Value(key core.DatasetKey, column string) float64 {
	row, ok := t.rows[key]
	i := slices.Index(t.columns, column)
	if !ok || i < 0 {
		return math.NaN()
	}
	return row[i]
}

// Open reports whether the row for key still has a cell to compute. The seed
// column does not count: it stays empty for unseeded runs.
func (t *Table) Open(key core.DatasetKey) bool {
	row, ok := t.rows[key]
	if !ok {
		return true
	}
	for i, v := range row {
		if t.columns[i] != core.ColumnSeed && math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Set fills the open cells of a row from values aligned with the schema.
// Cells that already hold a value are kept.
func (t *Table) Set(key core.DatasetKey, values []float64) {
	row := t.ensure(key)
	for i, v := range values {
		if i < len(row) && math.IsNaN(row[i]) {
			row[i] = v
		}
	}
}

// Apply folds an outcome into the table by its dataset key.
func (t *Table) Apply(o core.Outcome) {
	t.Set(o.Dataset, Values(t.columns, o))
}

// Merge folds persisted into t. For every cell the persisted value wins when
// present. Rows for keys unknown to t are appended. A persisted table with a
// different schema is a configuration error.
func (t *Table) Merge(persisted *Table) error {
	if !slices.Equal(t.columns, persisted.columns) {
		return core.Configf("persisted results have columns %q, the current run expects %q", persisted.columns, t.columns)
	}
	for _, key := range persisted.order {
		row := t.ensure(key)
		for i, v := range persisted.rows[key] {
			if !math.IsNaN(v) {
				row[i] = v
			}
		}
	}
	return nil
}

func (t *Table) ensure(key core.DatasetKey) []float64 {
	if row, ok := t.rows[key]; ok {
		return row
	}
	row := make([]float64, len(t.columns))
	for i := range row {
		row[i] = math.NaN()
	}
	t.rows[key] = row
	t.order = append(t.order, key)
	return row
}

// Values projects an outcome onto a schema. Durations are reported in seconds
// and peak memory in KiB, both rounded to five decimals.
func Values(columns []string, o core.Outcome) []float64 {
	values := make([]float64, len(columns))
	for i, c := range columns {
		v := math.NaN()
		switch c {
		case core.ColumnSeed:
			if o.Seed != nil {
				v = float64(*o.Seed)
			}
		case core.ColumnTimeFit:
			if o.Timed {
				v = round5(o.FitTime.Seconds())
			}
		case core.ColumnTimePredict:
			if o.Timed {
				v = round5(o.PredictTime.Seconds())
			}
		case core.ColumnPeakMemoryFit:
			if o.MemoryTraced {
				v = round5(float64(o.FitPeakMemory) / 1024)
			}
		case core.ColumnPeakMemoryPredict:
			if o.MemoryTraced {
				v = round5(float64(o.PredictPeakMemory) / 1024)
			}
		default:
			if s, ok := o.Scores[c]; ok {
				v = s
			}
		}
		values[i] = v
	}
	return values
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
