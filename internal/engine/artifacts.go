package engine

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/gridbench/internal/results"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// writeScores exports the raw decision scores next to the predicted
// probabilities and ground truth.
func writeScores(path string, decision, proba []float64, labels []int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"index", "decision_function", "predict_proba", "label"}); err != nil {
		return err
	}
	for i := range decision {
		record := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(decision[i], 'g', -1, 64),
			strconv.FormatFloat(proba[i], 'g', -1, 64),
			strconv.Itoa(labels[i]),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// writeErrorLog records a failed job in a plain-text file.
func writeErrorLog(layout results.Layout, key core.DatasetKey, jobErr error) error {
	path := layout.ErrorLog(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	message := fmt.Sprintf("An error occurred while detecting anomalies.\n"+
		"Dataset: %s\n"+
		"Error log: %s\n"+
		"\n"+
		"Error message: %v\n", key, path, jobErr)
	return os.WriteFile(path, []byte(message), 0o600)
}
