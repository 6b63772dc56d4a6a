package provision

import (
	"context"
	"errors"
	"fmt"
)

// sagaStep is one forward action plus its compensation. Steps with a nil
// undo have nothing to compensate.
type sagaStep struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// saga runs steps in order; on failure it runs the undo of every completed
// step in reverse. Undo failures are joined to the primary error rather than
// swallowed, so callers see both the cause and the incomplete cleanup.
type saga struct {
	completed []sagaStep
}

func (s *saga) run(ctx context.Context, steps ...sagaStep) error {
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			primary := fmt.Errorf("%s: %w", step.name, err)
			if undoErr := s.compensate(ctx); undoErr != nil {
				return errors.Join(primary, undoErr)
			}
			return primary
		}
		if step.undo != nil {
			s.completed = append(s.completed, step)
		}
	}
	return nil
}

func (s *saga) compensate(ctx context.Context) error {
	var joined error
	for i := len(s.completed) - 1; i >= 0; i-- {
		step := s.completed[i]
		if err := step.undo(ctx); err != nil {
			joined = errors.Join(joined, fmt.Errorf("undo %s: %w", step.name, err))
		}
	}
	return joined
}
