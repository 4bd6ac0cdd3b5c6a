package authflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// compensation collects undo steps for writes made outside a transaction
// and replays them newest first.
type compensation struct {
	log   *zap.Logger
	steps []compensationStep
}

type compensationStep struct {
	name string
	undo func(context.Context) error
}

func newCompensation(log *zap.Logger) *compensation {
	return &compensation{log: log}
}

func (c *compensation) add(name string, undo func(context.Context) error) {
	c.steps = append(c.steps, compensationStep{name: name, undo: undo})
}

// run executes every step even when earlier ones fail. Failures are logged
// and joined; the caller still reports its original error.
func (c *compensation) run(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.undo(ctx); err != nil {
			c.log.Warn("compensation step failed", zap.String("step", step.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	c.steps = nil
	return errors.Join(errs...)
}
