package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/metrics"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// RetentionWindow is how long a read notification is kept after ReadAt.
	RetentionWindow = 3 * 24 * time.Hour
)

// Service is the entry point for creating, reading and cleaning up
// notifications. Every operation is scoped by user id.
type Service struct {
	notifications NotificationStore
	preferences   PreferencesStore
	generator     *Generator
	clock         Clock
	publisher     Publisher // optional
	logger        *zap.Logger
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithPublisher forwards every created notification to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// NewService wires the lifecycle service.
func NewService(notifications NotificationStore, preferences PreferencesStore, clock Clock, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		notifications: notifications,
		preferences:   preferences,
		generator:     NewGenerator(clock),
		clock:         clock,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNotification persists an ad-hoc notification without consulting
// preferences.
func (s *Service) CreateNotification(ctx context.Context, p Params) (*Notification, error) {
	if !p.Type.Known() {
		s.logger.Warn("creating notification with unrecognized type",
			zap.String("user_id", p.UserID.String()),
			zap.String("type", string(p.Type)),
		)
	}
	n := s.generator.Custom(p)
	if err := s.persist(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateWaterReminder returns (nil, nil) when preferences suppress it.
func (s *Service) CreateWaterReminder(ctx context.Context, userID uuid.UUID) (*Notification, error) {
	return s.createGated(ctx, userID, TypeWaterReminder, func() *Notification {
		return s.generator.WaterReminder(userID)
	})
}

func (s *Service) CreateMealReminder(ctx context.Context, userID uuid.UUID, localTime TimeOfDay) (*Notification, error) {
	return s.createGated(ctx, userID, TypeMealReminder, func() *Notification {
		return s.generator.MealReminder(userID, localTime)
	})
}

func (s *Service) CreateCalorieLimitWarning(ctx context.Context, userID uuid.UUID) (*Notification, error) {
	return s.createGated(ctx, userID, TypeCalorieLimitWarning, func() *Notification {
		return s.generator.CalorieLimitWarning(userID)
	})
}

func (s *Service) CreateGoalAchievementNotification(ctx context.Context, userID uuid.UUID) (*Notification, error) {
	return s.createGated(ctx, userID, TypeGoalAchievement, func() *Notification {
		return s.generator.GoalAchievement(userID)
	})
}

func (s *Service) CreateWeeklyProgressNotification(ctx context.Context, userID uuid.UUID) (*Notification, error) {
	return s.createGated(ctx, userID, TypeWeeklyProgress, func() *Notification {
		return s.generator.WeeklyProgress(userID)
	})
}

func (s *Service) CreateDailySummaryNotification(ctx context.Context, userID uuid.UUID) (*Notification, error) {
	return s.createGated(ctx, userID, TypeDailySummary, func() *Notification {
		return s.generator.DailySummary(userID)
	})
}

func (s *Service) createGated(ctx context.Context, userID uuid.UUID, t Type, build func() *Notification) (*Notification, error) {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !IsAllowed(prefs, t, s.clock.Now()) {
		s.logger.Debug("notification suppressed by preferences",
			zap.String("user_id", userID.String()),
			zap.String("type", string(t)),
		)
		metrics.RecordNotificationSuppressed(string(t))
		return nil, nil
	}

	n := build()
	if err := s.persist(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) persist(ctx context.Context, n *Notification) error {
	if err := s.notifications.Insert(ctx, n); err != nil {
		s.logger.Error("failed to insert notification",
			zap.Error(err),
			zap.String("notification_id", n.ID.String()),
			zap.String("user_id", n.UserID.String()),
		)
		return storageErr("insert notification", err)
	}

	metrics.RecordNotificationGenerated(string(n.Type))
	s.logger.Info("notification created",
		zap.String("notification_id", n.ID.String()),
		zap.String("user_id", n.UserID.String()),
		zap.String("type", string(n.Type)),
		zap.String("priority", string(n.Priority)),
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			metrics.RecordPublishFailure()
			s.logger.Warn("failed to publish notification event",
				zap.Error(err),
				zap.String("notification_id", n.ID.String()),
			)
		}
	}
	return nil
}

// GetUserNotifications returns one page of the user's notifications, newest
// first. Out of range paging values are clamped.
func (s *Service) GetUserNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int, includeRead bool) ([]*Notification, error) {
	page, pageSize = ClampPage(page, pageSize)

	list, err := s.notifications.List(ctx, ListQuery{
		UserID:      userID,
		IncludeRead: includeRead,
		Limit:       pageSize,
		Offset:      (page - 1) * pageSize,
	})
	if err != nil {
		return nil, storageErr("list notifications", err)
	}
	return list, nil
}

// ClampPage forces page >= 1 and 1 <= pageSize <= MaxPageSize.
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// GetNotification returns ErrNotFound unless id exists and belongs to userID.
func (s *Service) GetNotification(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	n, err := s.notifications.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get notification", err)
	}
	if !n.OwnedBy(userID) {
		return nil, ErrNotFound
	}
	return n, nil
}

// MarkNotificationAsRead returns false when the notification is missing or
// owned by someone else. Marking an already read notification is a no-op
// that still reports true.
func (s *Service) MarkNotificationAsRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	n, err := s.GetNotification(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !n.MarkAsRead(s.clock.Now()) {
		return true, nil
	}
	if err := s.notifications.MarkRead(ctx, n.ID, *n.ReadAt); err != nil {
		return false, storageErr("mark notification read", err)
	}

	metrics.RecordNotificationsRead(1)
	return true, nil
}

// MarkAllNotificationsAsRead succeeds even when nothing was unread.
func (s *Service) MarkAllNotificationsAsRead(ctx context.Context, userID uuid.UUID) (bool, error) {
	count, err := s.notifications.MarkAllRead(ctx, userID, s.clock.Now())
	if err != nil {
		return false, storageErr("mark all notifications read", err)
	}

	metrics.RecordNotificationsRead(int(count))
	s.logger.Debug("notifications marked read",
		zap.String("user_id", userID.String()),
		zap.Int64("count", count),
	)
	return true, nil
}

func (s *Service) GetUnreadNotificationCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, storageErr("count unread notifications", err)
	}
	return count, nil
}

// DeleteNotification returns false when the notification is missing or owned
// by someone else.
func (s *Service) DeleteNotification(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	deleted, err := s.notifications.Delete(ctx, id, userID)
	if err != nil {
		return false, storageErr("delete notification", err)
	}
	return deleted, nil
}

// CleanupOldReadNotifications deletes the user's read notifications whose
// ReadAt is older than RetentionWindow and returns how many were removed.
func (s *Service) CleanupOldReadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	cutoff := s.clock.Now().Add(-RetentionWindow)

	deleted, err := s.notifications.DeleteReadBefore(ctx, userID, cutoff)
	if err != nil {
		return 0, storageErr("delete old read notifications", err)
	}

	if deleted > 0 {
		metrics.RecordCleanupDeleted(int(deleted))
		s.logger.Info("old read notifications cleaned up",
			zap.String("user_id", userID.String()),
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return int(deleted), nil
}

// GetPreferences loads the user's preferences, provisioning defaults on
// first access.
func (s *Service) GetPreferences(ctx context.Context, userID uuid.UUID) (*Preferences, error) {
	prefs, err := s.preferences.FindByUserID(ctx, userID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, storageErr("find preferences", err)
	}

	prefs = DefaultPreferences(userID, s.clock.Now())
	err = s.preferences.Insert(ctx, prefs)
	if errors.Is(err, ErrConflict) {
		// lost a provisioning race; the other writer's record wins
		prefs, err = s.preferences.FindByUserID(ctx, userID)
		if err != nil {
			return nil, storageErr("find preferences", err)
		}
		return prefs, nil
	}
	if err != nil {
		return nil, storageErr("insert preferences", err)
	}

	s.logger.Info("default notification preferences provisioned",
		zap.String("user_id", userID.String()),
	)
	return prefs, nil
}

// UpdatePreferences applies the present fields of u. UpdatedAt is refreshed
// even when u is empty.
func (s *Service) UpdatePreferences(ctx context.Context, userID uuid.UUID, u PreferencesUpdate) (*Preferences, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs.Apply(u, s.clock.Now())
	if err := s.preferences.Update(ctx, prefs); err != nil {
		return nil, storageErr("update preferences", err)
	}
	return prefs, nil
}
