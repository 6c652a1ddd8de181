package pool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Process runs jobs across a fixed pool of worker processes. Each worker
// executes one complete job at a time; workers share no state.
//
// A worker that exits or breaks the protocol aborts the whole run. So does a
// fatal outcome. In both cases the remaining workers are killed.
type Process struct {
	Workers int
	// Command returns the command that starts one worker. The command must
	// speak the Serve protocol on stdin/stdout.
	Command func(ctx context.Context) *exec.Cmd
	// Stderr receives the workers' log output. Defaults to os.Stderr.
	Stderr io.Writer
	Logger *slog.Logger
}

// WorkerCommand returns a Command that re-executes the running binary with
// the given arguments.
func WorkerCommand(args ...string) (func(ctx context.Context) *exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	return func(ctx context.Context) *exec.Cmd {
		return exec.CommandContext(ctx, exe, args...)
	}, nil
}

// WorkerCrashError reports a worker process that died or broke the protocol.
type WorkerCrashError struct {
	Worker int
	Job    core.JobID
	Err    error
}

func (e *WorkerCrashError) Error() string {
	if e.Job != "" {
		return fmt.Sprintf("worker %d crashed while running job %s: %v", e.Worker, e.Job, e.Err)
	}
	return fmt.Sprintf("worker %d crashed: %v", e.Worker, e.Err)
}

func (e *WorkerCrashError) Unwrap() error { return e.Err }

// Run implements Pool.
func (p *Process) Run(ctx context.Context, jobs []core.Job, onOutcome func(core.Outcome)) (Results, error) {
	if p.Workers < 1 {
		return nil, core.Configf("n_jobs must be at least 1, got %d", p.Workers)
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	workers := min(p.Workers, len(jobs))
	res := make(Results, len(jobs))
	if workers == 0 {
		return res, nil
	}

	eg, egctx := errgroup.WithContext(ctx)
	queue := make(chan core.Job)
	outcomes := make(chan core.Outcome)

	eg.Go(func() error {
		defer close(queue)
		for _, job := range jobs {
			select {
			case queue <- job:
			case <-egctx.Done():
				return nil
			}
		}
		return nil
	})

	for i := range workers {
		eg.Go(func() error {
			return p.work(egctx, i, queue, outcomes, logger)
		})
	}

	// Outcomes are collected on this goroutine, so the map and onOutcome
	// need no locking.
	collected := make(chan error, 1)
	go func() {
		var fatal error
		for o := range outcomes {
			res[o.JobID] = o
			if onOutcome != nil {
				onOutcome(o)
			}
			if o.Fatal && fatal == nil {
				fatal = &FatalError{Outcome: o}
			}
		}
		collected <- fatal
	}()

	err := eg.Wait()
	close(outcomes)
	fatal := <-collected

	if fatal != nil {
		return res, fatal
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

// work starts one worker process and feeds it jobs until the queue is drained.
func (p *Process) work(ctx context.Context, id int, queue <-chan core.Job, outcomes chan<- core.Outcome, logger *slog.Logger) error {
	cmd := p.Command(ctx)
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return &WorkerCrashError{Worker: id, Err: err}
	}
	logger.Debug("started worker", "worker", id, "pid", cmd.Process.Pid)

	// Wait must run even on error paths so the process is reaped.
	waited := false
	defer func() {
		if !waited {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
	}()

	reader := bufio.NewReader(stdout)
	for {
		var job core.Job
		var ok bool
		select {
		case job, ok = <-queue:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			break
		}

		if err := EncodeJob(stdin, job); err != nil {
			return &WorkerCrashError{Worker: id, Job: job.ID, Err: err}
		}
		line, err := readLine(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("worker exited unexpectedly")
			}
			return &WorkerCrashError{Worker: id, Job: job.ID, Err: err}
		}
		o, err := DecodeOutcome(line)
		if err != nil {
			return &WorkerCrashError{Worker: id, Job: job.ID, Err: err}
		}
		if o.JobID != job.ID {
			return &WorkerCrashError{Worker: id, Job: job.ID, Err: fmt.Errorf("answered for job %s", o.JobID)}
		}

		select {
		case outcomes <- o:
		case <-ctx.Done():
			return ctx.Err()
		}
		if o.Fatal {
			return &FatalError{Outcome: o}
		}
	}

	_ = stdin.Close()
	waited = true
	if err := cmd.Wait(); err != nil {
		return &WorkerCrashError{Worker: id, Err: err}
	}
	logger.Debug("worker finished", "worker", id)
	return nil
}
