// Package state records run history in SQLite: every grid run and the
// outcome of every job it dispatched.
//
// Core types are defined in pkg/core; this package re-exports them via type
// aliases so callers of the store need a single import.
package state

import (
	"github.com/leapstack-labs/gridbench/pkg/core"
)

type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run

	// JobRecord is an alias for core.JobRecord.
	JobRecord = core.JobRecord
)

// Re-export status constants from core.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed
)
