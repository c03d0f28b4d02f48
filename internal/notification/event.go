package notification

import "time"

// EventCreated is the event name published after a notification is stored.
const EventCreated = "notification.created"

// Event is the payload external consumers (realtime push, mobile fan-out)
// receive for a stored notification.
type Event struct {
	Event          string    `json:"event"`
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Type           Type      `json:"type"`
	Priority       Priority  `json:"priority"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Icon           string    `json:"icon"`
	Color          string    `json:"color"`
	ContextData    *string   `json:"context_data,omitempty"`
	ImageURL       *string   `json:"image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewCreatedEvent describes n as a notification.created event.
func NewCreatedEvent(n *Notification) Event {
	return Event{
		Event:          EventCreated,
		NotificationID: n.ID.String(),
		UserID:         n.UserID.String(),
		Type:           n.Type,
		Priority:       n.Priority,
		Title:          n.Title,
		Message:        n.Message,
		Icon:           n.Type.Icon(),
		Color:          n.Priority.Color(),
		ContextData:    n.ContextData,
		ImageURL:       n.ImageURL,
		CreatedAt:      n.CreatedAt,
	}
}
