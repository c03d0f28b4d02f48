package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a single message addressed to one user.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        Type       `json:"type"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	ContextData *string    `json:"context_data,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// Params describes a notification to construct.
type Params struct {
	UserID      uuid.UUID
	Title       string
	Message     string
	Type        Type
	Priority    Priority // empty means PriorityMedium
	ContextData *string
	ImageURL    *string
}

// New builds an unread notification created at now.
func New(p Params, now time.Time) *Notification {
	priority := p.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	return &Notification{
		ID:          uuid.New(),
		UserID:      p.UserID,
		Title:       p.Title,
		Message:     p.Message,
		Type:        p.Type,
		Priority:    priority,
		Status:      StatusUnread,
		ContextData: p.ContextData,
		ImageURL:    p.ImageURL,
		CreatedAt:   now,
	}
}

// IsRead reports whether the notification reached the terminal Read state.
func (n *Notification) IsRead() bool {
	return n.Status == StatusRead
}

// MarkAsRead moves Unread to Read and stamps ReadAt. It returns false when
// the notification was already read, in which case nothing changes.
func (n *Notification) MarkAsRead(at time.Time) bool {
	if n.IsRead() {
		return false
	}
	n.Status = StatusRead
	n.ReadAt = &at
	return true
}

// OwnedBy reports whether the notification belongs to userID.
func (n *Notification) OwnedBy(userID uuid.UUID) bool {
	return n.UserID == userID
}
