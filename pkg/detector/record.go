package detector

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Record format identifiers.
const (
	RecordFormat        = "gridbench.detector"
	RecordFormatVersion = 1
)

// Record is the on-disk form of a detector configuration. Loading a record
// only ever goes through the registry, never through code loading.
type Record struct {
	Format        string    `json:"format"`
	FormatVersion int       `json:"format_version"`
	Spec          core.Spec `json:"spec"`
}

// NewRecord wraps a spec, stamping the registered parameter version when the
// spec does not carry one.
func NewRecord(s core.Spec) (Record, error) {
	version, ok := Registry.Version(s.Type)
	if !ok {
		return Record{}, fmt.Errorf("unknown detector type %q", s.Type)
	}
	if s.Version == 0 {
		s.Version = version
	}
	return Record{Format: RecordFormat, FormatVersion: RecordFormatVersion, Spec: s}, nil
}

// Save writes the record for s as indented JSON.
func Save(w io.Writer, s core.Spec) error {
	rec, err := NewRecord(s)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// SaveFile writes the record to path, creating parent directories.
func SaveFile(path string, s core.Spec) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(f, s); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load reads a record and rebuilds the (unfitted) detector it describes.
func Load(r io.Reader) (core.Detector, core.Spec, error) {
	var rec Record
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return nil, core.Spec{}, fmt.Errorf("failed to decode detector record: %w", err)
	}
	if rec.Format != RecordFormat {
		return nil, core.Spec{}, fmt.Errorf("unexpected record format %q", rec.Format)
	}
	if rec.FormatVersion > RecordFormatVersion {
		return nil, core.Spec{}, fmt.Errorf("record format version %d is newer than supported version %d", rec.FormatVersion, RecordFormatVersion)
	}
	d, err := Build(rec.Spec)
	if err != nil {
		return nil, core.Spec{}, err
	}
	return d, rec.Spec, nil
}

// LoadFile reads a record from path.
func LoadFile(path string) (core.Detector, core.Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.Spec{}, err
	}
	defer f.Close()
	return Load(f)
}
