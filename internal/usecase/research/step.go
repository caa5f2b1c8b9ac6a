package research

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Step is one unit of orchestration: a named execute function plus an
// optional skip predicate. Skip decisions are pure functions of the run
// context and run before execute; a skipped step never executes.
type Step[I, O any] struct {
	Name       string
	Execute    func(ctx context.Context, rc *Context, in I) (O, error)
	Skip       func(rc *Context) bool
	SkipReason func(rc *Context) string
}

// Run executes the step with timing and structured logging. Errors from
// execute propagate unwrapped in meaning (only annotated with the step name)
// so the caller decides whether to fail the run or fall back. The second
// return reports whether the step was skipped.
func (s Step[I, O]) Run(ctx context.Context, log *zap.Logger, rc *Context, in I) (O, bool, error) {
	var zero O

	if s.Skip != nil && s.Skip(rc) {
		reason := ""
		if s.SkipReason != nil {
			reason = s.SkipReason(rc)
		}
		log.Info("pipeline step skipped",
			zap.String("step", s.Name),
			zap.String("job_id", rc.JobID()),
			zap.String("reason", reason))
		return zero, true, nil
	}

	start := time.Now()
	out, err := s.Execute(ctx, rc, in)
	elapsed := time.Since(start)

	if err != nil {
		log.Error("pipeline step failed",
			zap.String("step", s.Name),
			zap.String("job_id", rc.JobID()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return zero, false, fmt.Errorf("%s: %w", s.Name, err)
	}

	log.Info("pipeline step complete",
		zap.String("step", s.Name),
		zap.String("job_id", rc.JobID()),
		zap.Duration("elapsed", elapsed))
	return out, false, nil
}
