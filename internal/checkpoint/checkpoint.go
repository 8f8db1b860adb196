// Package checkpoint periodically saves a live crawl's snapshot to the
// snapshot store, so a crash or kill loses at most one interval of work.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Chocolatl/nekopara/internal/crawl"
	"github.com/Chocolatl/nekopara/internal/storage"
	"github.com/Chocolatl/nekopara/pkg/logx"
)

type Config struct {
	// Schedule is a standard cron expression or "@every <duration>".
	Schedule string
	// Name is the snapshot name saved under in the store.
	Name string
}

type Service struct {
	log   logx.Logger
	sched *crawl.Scheduler
	store storage.Store
	name  string
	plan  cron.Schedule
}

func New(cfg Config, sched *crawl.Scheduler, store storage.Store, log logx.Logger) (*Service, error) {
	if sched == nil || store == nil {
		return nil, errors.New("checkpoint needs a scheduler and a store")
	}
	if cfg.Name == "" {
		return nil, errors.New("checkpoint snapshot name is required")
	}
	plan, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("checkpoint schedule %q: %w", cfg.Schedule, err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, sched: sched, store: store, name: cfg.Name, plan: plan}, nil
}

// Run blocks until ctx ends, saving a snapshot at every scheduled tick.
func (s *Service) Run(ctx context.Context) error {
	s.log.Debug("checkpointing started", logx.String("name", s.name))
	for {
		next := s.plan.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			s.SaveNow(ctx)
		}
	}
}

// SaveNow captures and stores a snapshot immediately. A run that has not
// started yet has no tree and is skipped.
func (s *Service) SaveNow(ctx context.Context) {
	root := s.sched.Snapshot()
	if root == nil {
		return
	}
	start := time.Now()
	if err := s.store.SaveSnapshot(ctx, s.name, root); err != nil {
		s.log.Warn("checkpoint save failed", logx.String("name", s.name), logx.Err(err))
		return
	}
	s.log.Debug("checkpoint saved", logx.String("name", s.name), logx.Duration("took", time.Since(start)))
}
