/*
saga.go - Two-step compensating-action pairs

PURPOSE:
  Linked-record writes in this system (a rekonsiliasi row plus its
  mirror ledger entry, a money income row plus its paired IN entry) are
  logically transactional, not database
  transactional: the pairing must degrade safely even when the
  underlying store has no cross-table transaction primitive. Saga makes
  the perform/compensate pair an explicit object so every linked-record
  flow reuses the same guarantee instead of ad hoc try/delete.

SEMANTICS:
  Run executes the steps in order. When step i fails, the compensations
  of steps 0..i-1 run in reverse order, and the step error is returned.
  Compensation failures are reported alongside the primary error; the
  primary error always wins the %w chain.
*/
package ledger

import (
	"context"
	"fmt"
)

// SagaStep is one perform/compensate pair. Compensate may be nil for
// steps with nothing to undo (typically the last step).
type SagaStep struct {
	Name       string
	Perform    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs steps with compensation on failure.
type Saga struct {
	steps []SagaStep
}

func NewSaga(steps ...SagaStep) *Saga {
	return &Saga{steps: steps}
}

// Run executes all steps. On failure it unwinds completed steps and
// returns the failing step's error, wrapped with the step name.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if err := step.Perform(ctx); err != nil {
			if compErr := s.unwind(ctx, i-1); compErr != nil {
				return fmt.Errorf("step %s: %w (compensation also failed: %v)", step.Name, err, compErr)
			}
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
	}
	return nil
}

func (s *Saga) unwind(ctx context.Context, from int) error {
	var firstErr error
	for i := from; i >= 0; i-- {
		if s.steps[i].Compensate == nil {
			continue
		}
		if err := s.steps[i].Compensate(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("compensate %s: %w", s.steps[i].Name, err)
		}
	}
	return firstErr
}
