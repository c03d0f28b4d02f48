package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

const uniqueViolation = "23505"

// NotificationRepository stores notifications in postgres.
type NotificationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

const notificationColumns = `
	id, user_id, title, message, type, priority, status,
	context_data, image_url, created_at, read_at`

// Insert writes a new notification row.
func (r *NotificationRepository) Insert(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		string(n.Type),
		string(n.Priority),
		string(n.Status),
		n.ContextData,
		n.ImageURL,
		n.CreatedAt,
		n.ReadAt,
	)
	if err != nil {
		r.logger.Error("failed to insert notification",
			zap.Error(err),
			zap.String("notification_id", n.ID.String()),
		)
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Get returns notification.ErrNotFound when no row has the id.
func (r *NotificationRepository) Get(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notification.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query notification: %w", err)
	}
	return n, nil
}

// List returns one page of a user's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, q notification.ListQuery) ([]*notification.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND ($2 OR status = 'unread')
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Pool().Query(ctx, query, q.UserID, q.IncludeRead, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var list []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return list, nil
}

// MarkRead only touches the row while it is still unread, so a concurrent
// reader cannot move read_at forward.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) error {
	query := `
		UPDATE notifications
		SET status = 'read', read_at = $2
		WHERE id = $1 AND status = 'unread'
	`
	if _, err := r.db.Pool().Exec(ctx, query, id, readAt); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET status = 'read', read_at = $2
		WHERE user_id = $1 AND status = 'unread'
	`
	tag, err := r.db.Pool().Exec(ctx, query, userID, readAt)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete reports whether a row owned by userID was removed.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.db.Pool().Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE user_id = $1 AND status = 'read' AND read_at < $2
	`
	tag, err := r.db.Pool().Exec(ctx, query, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND status = 'unread'`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n                     notification.Notification
		typ, priority, status string
	)
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&typ,
		&priority,
		&status,
		&n.ContextData,
		&n.ImageURL,
		&n.CreatedAt,
		&n.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	n.Type = notification.Type(typ)
	n.Priority = notification.Priority(priority)
	n.Status = notification.Status(status)
	return &n, nil
}

// PreferencesRepository stores one notification_preferences row per user.
type PreferencesRepository struct {
	db     *DB
	logger *zap.Logger
}

func NewPreferencesRepository(db *DB, logger *zap.Logger) *PreferencesRepository {
	return &PreferencesRepository{
		db:     db,
		logger: logger,
	}
}

const preferencesColumns = `
	id, user_id,
	water_reminders_enabled, meal_reminders_enabled, calorie_limit_warnings_enabled,
	goal_achievements_enabled, weekly_progress_enabled, daily_summary_enabled,
	water_reminder_time, breakfast_reminder_time, lunch_reminder_time, dinner_reminder_time,
	water_reminder_frequency_hours, send_notifications_on_weekends,
	created_at, updated_at`

// FindByUserID returns notification.ErrNotFound when the user has no row.
func (r *PreferencesRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error) {
	query := `SELECT ` + preferencesColumns + ` FROM notification_preferences WHERE user_id = $1`

	p, err := scanPreferences(r.db.Pool().QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notification.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	return p, nil
}

// Insert maps the user_id unique violation to notification.ErrConflict.
func (r *PreferencesRepository) Insert(ctx context.Context, p *notification.Preferences) error {
	query := `
		INSERT INTO notification_preferences (` + preferencesColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		p.ID,
		p.UserID,
		p.WaterRemindersEnabled,
		p.MealRemindersEnabled,
		p.CalorieLimitWarningsEnabled,
		p.GoalAchievementsEnabled,
		p.WeeklyProgressEnabled,
		p.DailySummaryEnabled,
		timeToPG(p.WaterReminderTime),
		timeToPG(p.BreakfastReminderTime),
		timeToPG(p.LunchReminderTime),
		timeToPG(p.DinnerReminderTime),
		p.WaterReminderFrequencyHours,
		p.SendNotificationsOnWeekends,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return notification.ErrConflict
	}
	if err != nil {
		r.logger.Error("failed to insert preferences",
			zap.Error(err),
			zap.String("user_id", p.UserID.String()),
		)
		return fmt.Errorf("insert preferences: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the user's row.
func (r *PreferencesRepository) Update(ctx context.Context, p *notification.Preferences) error {
	query := `
		UPDATE notification_preferences SET
			water_reminders_enabled = $2,
			meal_reminders_enabled = $3,
			calorie_limit_warnings_enabled = $4,
			goal_achievements_enabled = $5,
			weekly_progress_enabled = $6,
			daily_summary_enabled = $7,
			water_reminder_time = $8,
			breakfast_reminder_time = $9,
			lunch_reminder_time = $10,
			dinner_reminder_time = $11,
			water_reminder_frequency_hours = $12,
			send_notifications_on_weekends = $13,
			updated_at = $14
		WHERE user_id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		p.UserID,
		p.WaterRemindersEnabled,
		p.MealRemindersEnabled,
		p.CalorieLimitWarningsEnabled,
		p.GoalAchievementsEnabled,
		p.WeeklyProgressEnabled,
		p.DailySummaryEnabled,
		timeToPG(p.WaterReminderTime),
		timeToPG(p.BreakfastReminderTime),
		timeToPG(p.LunchReminderTime),
		timeToPG(p.DinnerReminderTime),
		p.WaterReminderFrequencyHours,
		p.SendNotificationsOnWeekends,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

// ListPreferences pages through every stored record in user_id order. The
// scheduler uses it to find reminders that are due.
func (r *PreferencesRepository) ListPreferences(ctx context.Context, limit, offset int) ([]*notification.Preferences, error) {
	query := `
		SELECT ` + preferencesColumns + `
		FROM notification_preferences
		ORDER BY user_id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool().Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var list []*notification.Preferences
	for rows.Next() {
		p, err := scanPreferences(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preferences: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}
	return list, nil
}

func scanPreferences(row pgx.Row) (*notification.Preferences, error) {
	var (
		p                               notification.Preferences
		water, breakfast, lunch, dinner pgtype.Time
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.WaterRemindersEnabled,
		&p.MealRemindersEnabled,
		&p.CalorieLimitWarningsEnabled,
		&p.GoalAchievementsEnabled,
		&p.WeeklyProgressEnabled,
		&p.DailySummaryEnabled,
		&water,
		&breakfast,
		&lunch,
		&dinner,
		&p.WaterReminderFrequencyHours,
		&p.SendNotificationsOnWeekends,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.WaterReminderTime = timeFromPG(water)
	p.BreakfastReminderTime = timeFromPG(breakfast)
	p.LunchReminderTime = timeFromPG(lunch)
	p.DinnerReminderTime = timeFromPG(dinner)
	return &p, nil
}

func timeToPG(t *notification.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: t.Duration().Microseconds(), Valid: true}
}

// timeFromPG truncates seconds; stored values are always whole minutes.
func timeFromPG(t pgtype.Time) *notification.TimeOfDay {
	if !t.Valid {
		return nil
	}
	minutes := int(t.Microseconds / int64(time.Minute/time.Microsecond))
	tod := notification.At(minutes/60, minutes%60)
	return &tod
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
