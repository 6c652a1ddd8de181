package results

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Store is the single writer of a pipeline's results table.
type Store struct {
	layout     Layout
	save       bool
	constantly bool
	logger     *slog.Logger

	mu      sync.Mutex
	table   *Table
	resumed int
}

// StoreOptions configures persistence.
type StoreOptions struct {
	SaveResults           bool
	ConstantlySaveResults bool
	Logger                *slog.Logger
}

// OpenStore creates the table for a run and folds in whatever a previous run
// persisted under layout: the results file first, then intermediate rows.
func OpenStore(layout Layout, columns []string, keys []core.DatasetKey, opts StoreOptions) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{
		layout:     layout,
		save:       opts.SaveResults,
		constantly: opts.ConstantlySaveResults,
		logger:     logger,
		table:      New(columns, keys),
	}

	persisted, err := Load(layout.Results())
	if err != nil {
		return nil, err
	}
	if persisted != nil {
		if err := s.table.Merge(persisted); err != nil {
			return nil, fmt.Errorf("%s: %w", layout.Results(), err)
		}
		logger.Debug("merged persisted results", "path", layout.Results(), "rows", persisted.Len())
	}

	rows, err := loadIntermediate(layout)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := s.table.Merge(row.table); err != nil {
			return nil, fmt.Errorf("%s: %w", row.path, err)
		}
	}
	if len(rows) > 0 {
		logger.Debug("merged intermediate rows", "dir", filepath.Join(layout.Dir, IntermediateDir), "rows", len(rows))
	}

	for _, key := range keys {
		if !s.table.Open(key) {
			s.resumed++
		}
	}
	return s, nil
}

// Pending reports whether the job for key still has cells to compute.
func (s *Store) Pending(key core.DatasetKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Open(key)
}

// Resumed returns the number of declared keys that were complete on open.
func (s *Store) Resumed() int {
	return s.resumed
}

// Apply folds an outcome into the table.
func (s *Store) Apply(o core.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Apply(o)
}

// Table returns the in-memory table. Callers must not use it concurrently
// with Apply.
func (s *Store) Table() *Table {
	return s.table
}

// Finish persists the table when saving is enabled. Intermediate rows are
// removed once the full table is safely on disk.
func (s *Store) Finish() error {
	if !s.save {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.table.Save(s.layout.Results()); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	s.logger.Debug("saved results", "path", s.layout.Results(), "rows", s.table.Len())

	if s.constantly {
		dir := filepath.Join(s.layout.Dir, IntermediateDir)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove intermediate results: %w", err)
		}
	}
	return nil
}

// WriteIntermediate persists a single outcome as a one-row table, so a
// crashed run can resume from it.
func WriteIntermediate(layout Layout, columns []string, o core.Outcome) error {
	t := New(columns, nil)
	t.Apply(o)
	return t.Save(layout.Intermediate(o.Dataset))
}

type intermediateRow struct {
	path  string
	table *Table
}

func loadIntermediate(layout Layout) ([]intermediateRow, error) {
	paths, err := filepath.Glob(filepath.Join(layout.Dir, IntermediateDir, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var rows []intermediateRow
	for _, p := range paths {
		t, err := Load(p)
		if err != nil {
			return nil, err
		}
		if t != nil {
			rows = append(rows, intermediateRow{path: p, table: t})
		}
	}
	return rows, nil
}
