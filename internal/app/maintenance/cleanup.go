package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/mgiordano/clasificados/internal/auth"
	"github.com/mgiordano/clasificados/internal/services"
	"github.com/mgiordano/clasificados/pkg/logger"
)

const (
	defaultSchedule         = "@every 1h"
	defaultPendingRetention = 24 * time.Hour
)

// Cleaner runs the recurring maintenance pass: expired sessions, stale
// pending registrations together with their never-activated accounts, and
// expired phone verification codes.
type Cleaner struct {
	sessions      *iauth.SessionService
	registrations *services.RegistrationService
	verifications *services.PhoneVerificationService

	cron      *cron.Cron
	schedule  string
	retention time.Duration
	log       *zap.Logger
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithSchedule overrides the cron specification.
func WithSchedule(spec string) Option {
	return func(c *Cleaner) {
		if spec != "" {
			c.schedule = spec
		}
	}
}

// WithPendingRetention adjusts how long expired pending registrations are
// kept before their inactive accounts are purged.
func WithPendingRetention(d time.Duration) Option {
	return func(c *Cleaner) {
		if d > 0 {
			c.retention = d
		}
	}
}

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(cr *cron.Cron) Option {
	return func(c *Cleaner) {
		if cr != nil {
			c.cron = cr
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding
// cleanup step.
func NewCleaner(sessions *iauth.SessionService, registrations *services.RegistrationService, verifications *services.PhoneVerificationService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:      sessions,
		registrations: registrations,
		verifications: verifications,
		schedule:      defaultSchedule,
		retention:     defaultPendingRetention,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New()
	}
	return cleaner
}

// Start registers the cleanup job and launches the scheduler.
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance pass finished with errors", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (c *Cleaner) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// RunOnce executes a single maintenance pass. Individual step failures are
// aggregated so one failing step never blocks the others.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error

	if c.sessions != nil {
		if purged, err := c.sessions.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		} else if purged > 0 {
			c.log.Info("purged sessions", zap.Int64("count", purged))
		}
	}

	if c.registrations != nil {
		if purged, err := c.registrations.PurgeExpired(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		} else if purged > 0 {
			c.log.Info("purged stale registrations", zap.Int64("count", purged))
		}
	}

	if c.verifications != nil {
		if purged, err := c.verifications.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		} else if purged > 0 {
			c.log.Info("purged expired phone codes", zap.Int64("count", purged))
		}
	}

	return errs
}
