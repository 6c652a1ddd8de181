package state

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// RecordJob stores the outcome summary of one job.
func (s *SQLiteStore) RecordJob(rec *core.JobRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if rec.ID == "" {
		rec.ID = generateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO job_outcomes (id, run_id, job_id, pipeline, collection, dataset, status, error_kind, error, fit_ms, predict_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, string(rec.JobID), rec.Pipeline, rec.Dataset.Collection, rec.Dataset.Name,
		string(rec.Status), string(rec.ErrorKind), rec.Error, rec.FitMS, rec.PredictMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record job %s: %w", rec.JobID, err)
	}
	return nil
}

// GetJobsForRun returns the job records of a run in recording order.
func (s *SQLiteStore) GetJobsForRun(runID string) ([]*core.JobRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, job_id, pipeline, collection, dataset, status, error_kind, error, fit_ms, predict_ms, created_at
		 FROM job_outcomes WHERE run_id = ? ORDER BY created_at, rowid`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs for run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*core.JobRecord
	for rows.Next() {
		rec := &core.JobRecord{}
		var jobID, status, kind string
		if err := rows.Scan(&rec.ID, &rec.RunID, &jobID, &rec.Pipeline, &rec.Dataset.Collection, &rec.Dataset.Name,
			&status, &kind, &rec.Error, &rec.FitMS, &rec.PredictMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job record: %w", err)
		}
		rec.JobID = core.JobID(jobID)
		rec.Status = core.Status(status)
		rec.ErrorKind = core.ErrorKind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// NewJobRecord summarizes an outcome for the run history.
func NewJobRecord(runID string, o core.Outcome) *core.JobRecord {
	return &core.JobRecord{
		RunID:     runID,
		JobID:     o.JobID,
		Pipeline:  o.Pipeline,
		Dataset:   o.Dataset,
		Status:    o.Status,
		ErrorKind: o.ErrorKind,
		Error:     o.Error,
		FitMS:     o.FitTime.Milliseconds(),
		PredictMS: o.PredictTime.Milliseconds(),
	}
}
