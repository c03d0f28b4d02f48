package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListQuery selects one page of a user's notifications, newest first.
type ListQuery struct {
	UserID      uuid.UUID
	IncludeRead bool
	Limit       int
	Offset      int
}

// NotificationStore persists notifications. Implementations return
// ErrNotFound for point lookups that miss and raw driver errors otherwise.
type NotificationStore interface {
	Insert(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)
	List(ctx context.Context, q ListQuery) ([]*Notification, error)
	// MarkRead sets status and read_at only if the row is still unread.
	MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
	// DeleteReadBefore removes read notifications whose read_at is before cutoff.
	DeleteReadBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// PreferencesStore persists one Preferences record per user.
type PreferencesStore interface {
	// FindByUserID returns ErrNotFound when the user has no record yet.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Preferences, error)
	// Insert returns ErrConflict when a record for the user already exists.
	Insert(ctx context.Context, p *Preferences) error
	Update(ctx context.Context, p *Preferences) error
}

// Publisher receives every persisted notification, e.g. to fan it out to
// realtime or push consumers.
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}
