package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	DefaultCleanupSchedule = "@daily"
	DefaultCleanupAge      = 30 * 24 * time.Hour
)

// Cleanup deletes sessions whose file has not been modified for maxAge. It
// runs on a cron schedule between Start and Stop.
type Cleanup struct {
	manager  *Manager
	schedule string
	maxAge   time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewCleanup creates a cleanup handler. An empty schedule means @daily and a
// zero maxAge means DefaultCleanupAge.
func NewCleanup(manager *Manager, schedule string, maxAge time.Duration, logger zerolog.Logger) *Cleanup {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	if maxAge <= 0 {
		maxAge = DefaultCleanupAge
	}

	return &Cleanup{
		manager:  manager,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger.With().Str("component", "session_cleanup").Logger(),
		now:      time.Now,
	}
}

// Start schedules the cleanup job.
func (c *Cleanup) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("cleanup is already running")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	scheduler := cron.New(cron.WithParser(parser))
	if _, err := scheduler.AddFunc(c.schedule, func() {
		if _, err := c.CleanupNow(context.Background()); err != nil {
			c.logger.Error().Err(err).Msg("Failed to cleanup old sessions")
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", c.schedule, err)
	}

	scheduler.Start()
	c.cron = scheduler
	c.running = true

	c.logger.Info().
		Str("schedule", c.schedule).
		Dur("max_age", c.maxAge).
		Msg("Session cleanup started")

	return nil
}

// Stop cancels the schedule and waits for a running job to finish.
func (c *Cleanup) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return fmt.Errorf("cleanup is not running")
	}

	<-c.cron.Stop().Done()
	c.cron = nil
	c.running = false

	c.logger.Info().Msg("Session cleanup stopped")

	return nil
}

// IsRunning reports whether the schedule is active.
func (c *Cleanup) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// CleanupNow deletes expired sessions and returns how many were removed.
func (c *Cleanup) CleanupNow(ctx context.Context) (int, error) {
	keys, err := c.manager.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cutoff := c.now().Add(-c.maxAge)
	deleted := 0

	for _, key := range keys {
		stat, err := os.Stat(c.manager.Path(key))
		if err != nil {
			c.logger.Warn().Str("session_key", key).Err(err).Msg("Failed to stat session")
			continue
		}
		if !stat.ModTime().Before(cutoff) {
			continue
		}

		if err := c.manager.Delete(ctx, key); err != nil {
			c.logger.Error().Str("session_key", key).Err(err).Msg("Failed to delete session")
			continue
		}
		deleted++

		c.logger.Debug().
			Str("session_key", key).
			Dur("age", c.now().Sub(stat.ModTime())).
			Msg("Session deleted")
	}

	if deleted > 0 {
		c.logger.Info().Int("deleted", deleted).Msg("Cleaned up old sessions")
	}

	return deleted, nil
}
