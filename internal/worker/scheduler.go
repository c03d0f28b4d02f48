// Package worker runs the reminder scheduler: on every tick it pages through
// stored preferences and generates the reminders, summaries and cleanups
// that became due since the previous tick.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/metrics"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

// PreferencesLister pages through every user's preferences.
type PreferencesLister interface {
	ListPreferences(ctx context.Context, limit, offset int) ([]*notification.Preferences, error)
}

// Service is the part of notification.Service the scheduler drives.
type Service interface {
	CreateWaterReminder(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateMealReminder(ctx context.Context, userID uuid.UUID, localTime notification.TimeOfDay) (*notification.Notification, error)
	CreateDailySummaryNotification(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateWeeklyProgressNotification(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CleanupOldReadNotifications(ctx context.Context, userID uuid.UUID) (int, error)
}

// SlotClaimer de-duplicates slots across replicas.
type SlotClaimer interface {
	Claim(ctx context.Context, slot string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, slot string) error
}

// Config tunes the scheduler.
type Config struct {
	Interval    time.Duration // tick period, and the due range of the first tick
	BatchSize   int           // preferences per page
	Concurrency int           // users processed in parallel
	Rate        float64       // users per second, <= 0 means unlimited
	ClaimTTL    time.Duration
	MaxCatchUp  time.Duration // oldest slot a late tick or a retry still fires
	Schedule    Schedule
}

// Scheduler evaluates due jobs on a ticker.
type Scheduler struct {
	prefs   PreferencesLister
	service Service
	claimer SlotClaimer // optional
	clock   notification.Clock
	config  Config
	limiter *rate.Limiter
	logger  *zap.Logger

	mu       sync.Mutex
	lastTick time.Time
	retry    []Job
}

// Option configures optional Scheduler collaborators.
type Option func(*Scheduler)

// WithSlotClaimer makes each slot fire once across replicas.
func WithSlotClaimer(c SlotClaimer) Option {
	return func(s *Scheduler) { s.claimer = c }
}

func New(prefs PreferencesLister, service Service, clock notification.Clock, cfg Config, logger *zap.Logger, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 26 * time.Hour
	}
	if cfg.MaxCatchUp <= 0 {
		cfg.MaxCatchUp = time.Hour
	}
	if cfg.MaxCatchUp < cfg.Interval {
		cfg.MaxCatchUp = cfg.Interval
	}

	limit := rate.Inf
	burst := 1
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
		burst = max(1, int(cfg.Rate))
	}

	s := &Scheduler{
		prefs:   prefs,
		service: service,
		clock:   clock,
		config:  cfg,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start ticks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("concurrency", s.config.Concurrency),
		zap.Bool("slot_claims", s.claimer != nil),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

// Tick runs every job whose slot passed since the previous successful tick,
// then retries the jobs that failed last time.
func (s *Scheduler) Tick(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.RecordSchedulerTick(time.Since(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	from := s.dueFrom(now)
	retries := s.takeRetries(now)
	users := 0

	var (
		failedMu sync.Mutex
		failed   []Job
	)
	runAll := func(ctx context.Context, jobs []Job) {
		for _, job := range jobs {
			if !s.run(ctx, job) {
				failedMu.Lock()
				failed = append(failed, job)
				failedMu.Unlock()
			}
		}
	}

	for offset := 0; ; offset += s.config.BatchSize {
		page, err := s.prefs.ListPreferences(ctx, s.config.BatchSize, offset)
		if err != nil {
			// the range is evaluated again next tick, so only the old retries are kept
			s.retry = retries
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Concurrency)
		for _, p := range page {
			jobs := DueReminders(p, from, now, s.config.Schedule)
			if len(jobs) == 0 {
				continue
			}
			g.Go(func() error {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
				runAll(gctx, jobs)
				return nil
			})
			users++
		}
		if err := g.Wait(); err != nil {
			s.retry = retries
			return err
		}

		if len(page) < s.config.BatchSize {
			break
		}
	}

	runAll(ctx, retries)
	s.retry = failed
	s.lastTick = now

	s.logger.Debug("scheduler tick complete",
		zap.Time("from", from),
		zap.Time("now", now),
		zap.Int("users_with_jobs", users),
		zap.Int("retries", len(retries)),
		zap.Int("failed", len(failed)),
	)
	return nil
}

// dueFrom is the exclusive start of this tick's range: the previous
// successful reading, bounded by MaxCatchUp. The first tick looks back one
// interval.
func (s *Scheduler) dueFrom(now time.Time) time.Time {
	if s.lastTick.IsZero() {
		return now.Add(-s.config.Interval)
	}
	if oldest := now.Add(-s.config.MaxCatchUp); s.lastTick.Before(oldest) {
		s.logger.Warn("scheduler fell behind, skipping older slots",
			zap.Time("last_tick", s.lastTick),
			zap.Duration("max_catch_up", s.config.MaxCatchUp),
		)
		return oldest
	}
	return s.lastTick
}

// takeRetries drains the failed jobs that are still within MaxCatchUp.
func (s *Scheduler) takeRetries(now time.Time) []Job {
	oldest := now.Add(-s.config.MaxCatchUp)
	var keep []Job
	for _, job := range s.retry {
		if job.Slot.Before(oldest) {
			s.logger.Warn("dropping stale retry", zap.String("slot", job.Key()))
			metrics.RecordSchedulerJob(string(job.Kind), "dropped")
			continue
		}
		keep = append(keep, job)
	}
	s.retry = nil
	return keep
}

// run executes one job and reports false when it should be retried.
func (s *Scheduler) run(ctx context.Context, job Job) bool {
	key := job.Key()

	if s.claimer != nil {
		ok, err := s.claimer.Claim(ctx, key, s.config.ClaimTTL)
		if err != nil {
			// without a claim another replica may fire the same slot
			s.logger.Warn("slot claim failed, skipping job", zap.Error(err), zap.String("slot", key))
			metrics.RecordSchedulerJob(string(job.Kind), "failed")
			return false
		}
		if !ok {
			metrics.RecordSchedulerJob(string(job.Kind), "skipped")
			return true
		}
	}

	outcome, err := s.execute(ctx, job)
	if err != nil {
		s.logger.Error("scheduled job failed",
			zap.Error(err),
			zap.String("kind", string(job.Kind)),
			zap.String("user_id", job.UserID.String()),
		)
		if s.claimer != nil {
			if rerr := s.claimer.Release(ctx, key); rerr != nil {
				s.logger.Warn("failed to release slot", zap.Error(rerr), zap.String("slot", key))
			}
		}
	}
	metrics.RecordSchedulerJob(string(job.Kind), outcome)
	return err == nil
}

func (s *Scheduler) execute(ctx context.Context, job Job) (string, error) {
	var (
		n   *notification.Notification
		err error
	)

	switch job.Kind {
	case KindWater:
		n, err = s.service.CreateWaterReminder(ctx, job.UserID)
	case KindMeal:
		n, err = s.service.CreateMealReminder(ctx, job.UserID, job.MealTime)
	case KindDailySummary:
		n, err = s.service.CreateDailySummaryNotification(ctx, job.UserID)
	case KindWeeklyProgress:
		n, err = s.service.CreateWeeklyProgressNotification(ctx, job.UserID)
	case KindCleanup:
		if _, err := s.service.CleanupOldReadNotifications(ctx, job.UserID); err != nil {
			return "failed", err
		}
		return "completed", nil
	default:
		return "skipped", nil
	}

	switch {
	case err != nil:
		return "failed", err
	case n == nil:
		return "suppressed", nil
	default:
		return "created", nil
	}
}
