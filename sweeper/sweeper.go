// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package sweeper expires open proposals whose deadline has passed.
//
// The governance core only knows how to expire a single proposal; the
// sweeper finds overdue proposals on a cron schedule and expires them:
//
//	s := sweeper.New(svc.Lifecycle)
//	err := s.Run(ctx, "@every 1m")
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/vve-governance/governance"
	"github.com/robfig/cron"
)

type Sweeper struct {
	lifecycle *governance.Lifecycle
	now       func() time.Time
}

func New(lc *governance.Lifecycle) *Sweeper {
	return &Sweeper{
		lifecycle: lc,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep expires every overdue proposal and returns how many it expired.
// Proposals finalized concurrently are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.lifecycle.Overdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue proposals: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, p := range overdue {
		_, err := s.lifecycle.Expire(ctx, p.ID, now)
		switch {
		case err == nil:
			expired++
			slog.Info("proposal expired", "proposal_id", p.ID, "closes_at", p.ClosesAt)
		case errors.Is(err, governance.ErrProposalNotOpen),
			errors.Is(err, governance.ErrStatusConflict),
			errors.Is(err, governance.ErrProposalNotFound):
			slog.Debug("proposal closed before expiry", "proposal_id", p.ID, "error", err)
		default:
			errs = append(errs, fmt.Errorf("expire %s: %w", p.ID, err))
		}
	}

	return expired, errors.Join(errs...)
}

// Run sweeps on schedule until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, schedule string) error {
	c := cron.New()
	err := c.AddFunc(schedule, func() {
		n, err := s.Sweep(ctx)
		if err != nil {
			slog.Error("expiry sweep failed", "expired", n, "error", err)
			return
		}
		if n > 0 {
			slog.Info("expiry sweep done", "expired", n)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	slog.Info("expiry sweeper started", "schedule", schedule)
	c.Start()
	<-ctx.Done()
	c.Stop()
	slog.Info("expiry sweeper stopped")

	return nil
}
