package build

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/hmjahid/build-studio/internal/security"
)

// Step is one named build from a project manifest.
type Step struct {
	Name     string
	Platform string
	Command  string
}

// StepResult pairs a step with its outcome. Outcome is nil for a step
// that was never started because the context ended first.
type StepResult struct {
	Step    Step
	Outcome *Outcome
	Err     error
}

// Started reports whether the step was handed to the engine.
func (r StepResult) Started() bool {
	return r.Outcome != nil
}

// StepOptions controls RunSteps.
type StepOptions struct {
	// FailFast stops at the first step that does not succeed. Otherwise
	// every step runs and the failures are joined.
	FailFast bool

	// NewObserver is called once per step and may return nil.
	NewObserver func(Step) Observer
}

// RunSteps runs steps in order in dir.
func (e *Engine) RunSteps(ctx context.Context, dir string, policy security.Policy, steps []Step, opts StepOptions) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	var failures []error
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			for _, pending := range steps[i:] {
				results = append(results, StepResult{Step: pending, Err: err})
			}
			failures = append(failures, fmt.Errorf("%d of %d steps not started: %w", len(steps)-i, len(steps), err))
			break
		}

		var obs Observer
		if opts.NewObserver != nil {
			obs = opts.NewObserver(step)
		}
		outcome, err := e.Run(ctx, Request{
			Command:  step.Command,
			Dir:      dir,
			Platform: step.Platform,
			Policy:   policy,
		}, obs)
		if err == nil && !outcome.Succeeded() {
			err = outcome.Err
		}
		results = append(results, StepResult{Step: step, Outcome: outcome, Err: err})
		if err == nil {
			continue
		}

		failures = append(failures, fmt.Errorf("step %s: %w", step.Name, err))
		if opts.FailFast {
			break
		}
	}
	return results, stderrors.Join(failures...)
}
