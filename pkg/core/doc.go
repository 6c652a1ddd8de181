// Package core defines the shared language of gridbench.
//
// This package contains:
//   - Domain entities (DatasetKey, Series, Job, Outcome, Run)
//   - Collaborator interfaces (Detector, Preprocessor, Metric, Thresholding, DataSource)
//   - Versioned component records (Spec)
//   - The error taxonomy shared by the engine and the CLI
//
// The Golden Rule: pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
