package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

// DirectoryType is the registry name of the directory source.
const DirectoryType = "directory"

// File names inside a dataset directory.
const (
	MetadataFile = "metadata.yaml"
	TrainFile    = "train.csv"
	TestFile     = "test.csv"
)

const defaultLabelColumn = "is_anomaly"

// Directory reads datasets laid out as <root>/<collection>/<name>/ with a
// metadata.yaml, a test.csv and, for datasets with a train partition, a
// train.csv. CSV files are read through DuckDB's read_csv_auto.
type Directory struct {
	Root     string   `param:"root"`
	Datasets []string `param:"datasets"`

	once sync.Once
	db   *sql.DB
	err  error
}

// DatasetMetadata is the content of metadata.yaml.
type DatasetMetadata struct {
	TrainType     string   `yaml:"train_type"`
	LabelColumn   string   `yaml:"label_column"`
	IgnoreColumns []string `yaml:"ignore_columns"`
}

// NewDirectory creates a directory source. datasets optionally restricts the
// keys to the listed "collection/name" entries.
func NewDirectory(params map[string]any) (*Directory, error) {
	d := &Directory{}
	if err := spec.Decode(params, d); err != nil {
		return nil, err
	}
	if d.Root == "" {
		return nil, errors.New("root directory not specified")
	}
	for _, s := range d.Datasets {
		if _, err := core.ParseDatasetKey(s); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Keys implements core.DataSource. Keys are sorted.
func (d *Directory) Keys(_ context.Context) ([]core.DatasetKey, error) {
	matches, err := filepath.Glob(filepath.Join(d.Root, "*", "*", MetadataFile))
	if err != nil {
		return nil, err
	}

	var keys []core.DatasetKey
	for _, m := range matches {
		dir := filepath.Dir(m)
		key := core.DatasetKey{Collection: filepath.Base(filepath.Dir(dir)), Name: filepath.Base(dir)}
		keys = append(keys, key)
	}

	if len(d.Datasets) > 0 {
		var selected []core.DatasetKey
		for _, s := range d.Datasets {
			key, _ := core.ParseDatasetKey(s)
			if !contains(keys, key) {
				return nil, fmt.Errorf("dataset %s not found under %s", key, d.Root)
			}
			selected = append(selected, key)
		}
		keys = selected
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// Metadata implements core.DataSource.
func (d *Directory) Metadata(_ context.Context, key core.DatasetKey) (core.Metadata, error) {
	meta, err := d.readMetadata(key)
	if err != nil {
		return core.Metadata{}, err
	}
	tt, err := core.ParseTrainType(meta.TrainType)
	if err != nil {
		return core.Metadata{}, fmt.Errorf("%s: %w", key, err)
	}
	return core.Metadata{TrainType: tt}, nil
}

// Load implements core.DataSource.
func (d *Directory) Load(ctx context.Context, key core.DatasetKey, train bool) (core.Series, []int, error) {
	meta, err := d.readMetadata(key)
	if err != nil {
		return core.Series{}, nil, err
	}

	file := TestFile
	if train {
		file = TrainFile
	}
	path := filepath.Join(d.dir(key), file)
	if _, err := os.Stat(path); err != nil {
		return core.Series{}, nil, fmt.Errorf("dataset %s has no %s partition: %w", key, strings.TrimSuffix(file, ".csv"), err)
	}

	db, err := d.conn()
	if err != nil {
		return core.Series{}, nil, err
	}
	return readCSV(ctx, db, path, meta)
}

// Close implements io.Closer.
func (d *Directory) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func (d *Directory) dir(key core.DatasetKey) string {
	return filepath.Join(d.Root, key.Collection, key.Name)
}

func (d *Directory) readMetadata(key core.DatasetKey) (DatasetMetadata, error) {
	var meta DatasetMetadata
	data, err := os.ReadFile(filepath.Join(d.dir(key), MetadataFile))
	if err != nil {
		return meta, fmt.Errorf("failed to read metadata of %s: %w", key, err)
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to parse metadata of %s: %w", key, err)
	}
	if meta.LabelColumn == "" {
		meta.LabelColumn = defaultLabelColumn
	}
	return meta, nil
}

func (d *Directory) conn() (*sql.DB, error) {
	d.once.Do(func() {
		db, err := sql.Open("duckdb", "")
		if err != nil {
			d.err = fmt.Errorf("failed to open duckdb connection: %w", err)
			return
		}
		d.db = db
	})
	return d.db, d.err
}

// readCSV loads a CSV file into a series. The label column becomes y; every
// other column not listed in IgnoreColumns becomes a channel, in file order.
func readCSV(ctx context.Context, db *sql.DB, path string, meta DatasetMetadata) (core.Series, []int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return core.Series{}, nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	query := fmt.Sprintf("SELECT * FROM read_csv_auto('%s', header=true)", strings.ReplaceAll(absPath, "'", "''")) //nolint:gosec // path is quoted

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return core.Series{}, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return core.Series{}, nil, err
	}

	labelIdx := -1
	var featureIdx []int
	for i, c := range columns {
		switch {
		case c == meta.LabelColumn:
			labelIdx = i
		case !ignored(c, meta.IgnoreColumns):
			featureIdx = append(featureIdx, i)
		}
	}
	if labelIdx < 0 {
		return core.Series{}, nil, fmt.Errorf("%s: label column %q not found", path, meta.LabelColumn)
	}
	if len(featureIdx) == 0 {
		return core.Series{}, nil, fmt.Errorf("%s: no feature columns", path)
	}

	// Ignored columns may hold non-numeric types such as timestamps.
	required := append(append([]int(nil), featureIdx...), labelIdx)
	values := make([]sql.NullFloat64, len(columns))
	dest := make([]any, len(columns))
	for i := range dest {
		dest[i] = new(any)
	}
	for _, i := range required {
		dest[i] = &values[i]
	}

	x := core.Series{Channels: len(featureIdx)}
	var y []int
	for line := 1; rows.Next(); line++ {
		if err := rows.Scan(dest...); err != nil {
			return core.Series{}, nil, fmt.Errorf("%s: row %d: %w", path, line, err)
		}
		for _, i := range required {
			if !values[i].Valid {
				return core.Series{}, nil, fmt.Errorf("%s: row %d: missing value in column %q", path, line, columns[i])
			}
		}
		for _, i := range featureIdx {
			x.Data = append(x.Data, values[i].Float64)
		}
		label := 0
		if values[labelIdx].Float64 != 0 {
			label = 1
		}
		y = append(y, label)
	}
	if err := rows.Err(); err != nil {
		return core.Series{}, nil, fmt.Errorf("error iterating %s: %w", path, err)
	}
	return x, y, nil
}

func ignored(column string, ignore []string) bool {
	for _, c := range ignore {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}
