package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

type compensation struct {
	name string
	undo func(context.Context) error
}

// saga records how to undo each completed side effect.
type saga struct {
	steps []compensation
}

func (s *saga) add(name string, undo func(context.Context) error) {
	s.steps = append(s.steps, compensation{name: name, undo: undo})
}

// rollback runs every compensation in reverse order. It detaches from the
// caller's cancellation so a cancelled request still cleans up, bounded by
// timeout. Every compensation runs even when an earlier one fails.
func (s *saga) rollback(ctx context.Context, timeout time.Duration, logger *log.Logger) error {
	if len(s.steps) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		c := s.steps[i]
		if err := c.undo(ctx); err != nil {
			logger.Error("compensation failed", "compensation", c.name, "err", err)
			errs = append(errs, fmt.Errorf("compensate %s: %w", c.name, err))
			continue
		}
		logger.Info("compensated", "compensation", c.name)
	}
	s.steps = nil
	return errors.Join(errs...)
}
