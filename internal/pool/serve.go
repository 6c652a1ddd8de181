package pool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Serve is the worker side of the protocol: it executes every job read from
// r and writes its outcome to w, until r is exhausted or ctx is done.
func Serve(ctx context.Context, r io.Reader, w io.Writer, executor Executor) error {
	in := bufio.NewReader(r)
	out := bufio.NewWriter(w)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := readLine(in)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read job: %w", err)
		}
		if len(line) == 0 {
			continue
		}

		var job core.Job
		if err := json.Unmarshal(line, &job); err != nil {
			return fmt.Errorf("malformed job: %w", err)
		}
		o := executor.Execute(ctx, job)
		if err := EncodeOutcome(out, o); err != nil {
			return fmt.Errorf("failed to write outcome: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("failed to write outcome: %w", err)
		}
	}
}
