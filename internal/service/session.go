package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"cadtoh5m/internal/domain"
	"cadtoh5m/internal/kernel"
)

// session adds command sequencing and error wrapping to a kernel session
type session struct {
	kernel.Session
}

// run issues commands in order and stops at the first failure
func (s session) run(ctx context.Context, commands ...string) error {
	for _, c := range commands {
		if err := s.Cmd(ctx, c); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, domain.ErrKernelCommand) {
				return err
			}
			return fmt.Errorf("%w: %q: %v", domain.ErrKernelCommand, c, err)
		}
	}
	return nil
}

// snapshot captures the ids of every live volume
func (s session) snapshot(ctx context.Context) (domain.Snapshot, error) {
	ids, err := s.ParseList(ctx, kernel.EntityVolume, "all")
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list volumes: %w", err)
	}
	return domain.NewSnapshot(ids), nil
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
