// Package pool dispatches jobs either sequentially in-process or across a
// fixed pool of worker processes. Outcomes are always collected by job id,
// never by position or completion order.
package pool

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Executor runs one job. Implementations convert every job failure into the
// returned Outcome.
type Executor interface {
	Execute(ctx context.Context, job core.Job) core.Outcome
}

// Results maps job ids to their outcomes.
type Results map[core.JobID]core.Outcome

// Pool runs a job list. onOutcome, when non-nil, is called from a single
// goroutine as outcomes arrive.
type Pool interface {
	Run(ctx context.Context, jobs []core.Job, onOutcome func(core.Outcome)) (Results, error)
}

// FatalError aborts a run because a job outcome was marked fatal.
type FatalError struct {
	Outcome core.Outcome
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("job %s aborted the run: %s", e.Outcome.JobID, e.Outcome.Error)
}

func (e *FatalError) Unwrap() error { return e.Outcome.Err() }

// Sequential runs jobs one after another in the calling process, in
// submission order.
type Sequential struct {
	Executor Executor
}

// Run implements Pool.
func (p *Sequential) Run(ctx context.Context, jobs []core.Job, onOutcome func(core.Outcome)) (Results, error) {
	res := make(Results, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		o := p.Executor.Execute(ctx, job)
		res[job.ID] = o
		if onOutcome != nil {
			onOutcome(o)
		}
		if o.Fatal {
			return res, &FatalError{Outcome: o}
		}
	}
	return res, nil
}

// New returns a Sequential pool for workers <= 1 and a Process pool otherwise.
func New(workers int, executor Executor, process *Process) Pool {
	if workers <= 1 || process == nil {
		return &Sequential{Executor: executor}
	}
	process.Workers = workers
	return process
}
