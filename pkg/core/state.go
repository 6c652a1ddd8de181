package core

import "time"

// Store defines the interface for run-history operations.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(label string, plannedJobs, resumedJobs int) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, errMsg string) error
	GetLatestRun() (*Run, error)
	ListRuns(limit int) ([]*Run, error)
	DeleteOldRuns(keepRuns int) error

	// Job operations
	RecordJob(rec *JobRecord) error
	GetJobsForRun(runID string) ([]*JobRecord, error)
}

// RunStatus represents the status of a grid run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents one execution of the grid.
type Run struct {
	ID          string
	Label       string
	Status      RunStatus
	PlannedJobs int
	ResumedJobs int
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// JobRecord is the persisted summary of one job outcome.
type JobRecord struct {
	ID        string
	RunID     string
	JobID     JobID
	Pipeline  string
	Dataset   DatasetKey
	Status    Status
	ErrorKind ErrorKind
	Error     string
	FitMS     int64
	PredictMS int64
	CreatedAt time.Time
}
