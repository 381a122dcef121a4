// Package subscriptions downgrades expired premium accounts on a schedule.
package subscriptions

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/server/storage"
	"github.com/pawsync/pawsync/pkg/logger"
)

// DefaultSchedule runs the sweep once an hour.
const DefaultSchedule = "@hourly"

// Sweeper periodically moves accounts whose subscription has lapsed back
// to the free plan.
type Sweeper struct {
	store    storage.UserStore
	schedule string
	log      *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewSweeper(store storage.UserStore, schedule string, log *logger.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if log == nil {
		log = logger.NewDefault("subscriptions")
	}
	return &Sweeper{store: store, schedule: schedule, log: log}
}

func (s *Sweeper) Name() string { return "subscription-sweeper" }

// Start schedules the sweep and runs one pass immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.sweep(context.Background()) }); err != nil {
		return err
	}
	s.cron = c
	s.running = true
	c.Start()

	go s.sweep(ctx)
	s.log.WithField("schedule", s.schedule).Info("subscription sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.log.WithError(err).Warn("list users failed")
		return
	}

	now := time.Now()
	for _, u := range users {
		if u.Plan != user.PlanPremium || u.SubExpiresAt == nil || u.SubExpiresAt.After(now) {
			continue
		}
		u.Plan = user.PlanFree
		u.SubExpiresAt = nil
		if _, err := s.store.UpdateUser(ctx, u); err != nil {
			s.log.WithError(err).Warnf("downgrade user %s failed", u.ID)
			continue
		}
		s.log.WithField("user_id", u.ID).Info("subscription expired; downgraded to free")
	}
}
