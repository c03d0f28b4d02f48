package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

const (
	maxTitleLength   = 200
	maxMessageLength = 1000
)

// Service is the notification engine surface the HTTP layer drives.
type Service interface {
	CreateNotification(ctx context.Context, p notification.Params) (*notification.Notification, error)
	CreateWaterReminder(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateMealReminder(ctx context.Context, userID uuid.UUID, localTime notification.TimeOfDay) (*notification.Notification, error)
	CreateCalorieLimitWarning(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateGoalAchievementNotification(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateWeeklyProgressNotification(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)
	CreateDailySummaryNotification(ctx context.Context, userID uuid.UUID) (*notification.Notification, error)

	GetUserNotifications(ctx context.Context, userID uuid.UUID, page, pageSize int, includeRead bool) ([]*notification.Notification, error)
	GetNotification(ctx context.Context, id, userID uuid.UUID) (*notification.Notification, error)
	MarkNotificationAsRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkAllNotificationsAsRead(ctx context.Context, userID uuid.UUID) (bool, error)
	GetUnreadNotificationCount(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteNotification(ctx context.Context, id, userID uuid.UUID) (bool, error)
	CleanupOldReadNotifications(ctx context.Context, userID uuid.UUID) (int, error)

	GetPreferences(ctx context.Context, userID uuid.UUID) (*notification.Preferences, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, u notification.PreferencesUpdate) (*notification.Preferences, error)
}

// NotificationRequest is the body of an ad-hoc create.
type NotificationRequest struct {
	Title       string  `json:"title"`
	Message     string  `json:"message"`
	Type        string  `json:"type"`
	Priority    string  `json:"priority,omitempty"`
	ContextData *string `json:"context_data,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// NotificationResponse is a notification plus its display hints.
type NotificationResponse struct {
	*notification.Notification
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func newNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		Notification: n,
		Icon:         n.Type.Icon(),
		Color:        n.Priority.Color(),
	}
}

// ErrorResponse represents an error in problem+json format
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Handler holds dependencies for API handlers
type Handler struct {
	logger *zap.Logger
	svc    Service
}

// NewHandler creates a new API handler
func NewHandler(logger *zap.Logger, svc Service) *Handler {
	return &Handler{
		logger: logger,
		svc:    svc,
	}
}

// Register mounts every user-scoped route on r. All of them require the
// X-User-ID header.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireUser(h.logger))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Post("/", h.CreateNotification)
			r.Get("/unread-count", h.UnreadCount)
			r.Post("/read-all", h.MarkAllAsRead)
			r.Post("/cleanup", h.Cleanup)
			r.Post("/generate/{kind}", h.Generate)
			r.Get("/{id}", h.GetNotification)
			r.Delete("/{id}", h.DeleteNotification)
			r.Post("/{id}/read", h.MarkAsRead)
		})

		r.Get("/preferences", h.GetPreferences)
		r.Patch("/preferences", h.UpdatePreferences)
	})
}

// CreateNotification handles POST /v1/notifications
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())

	var req NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON", "Request body must be valid JSON")
		return
	}
	if detail := validateNotificationRequest(req); detail != "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid notification", detail)
		return
	}

	n, err := h.svc.CreateNotification(r.Context(), notification.Params{
		UserID:      userID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        notification.Type(req.Type),
		Priority:    notification.Priority(req.Priority),
		ContextData: req.ContextData,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.writeServiceError(w, err, "Failed to create notification")
		return
	}

	h.logger.Info("notification created",
		zap.String("id", n.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("type", string(n.Type)),
	)

	writeJSON(w, http.StatusCreated, newNotificationResponse(n))
}

func validateNotificationRequest(req NotificationRequest) string {
	switch {
	case req.Title == "":
		return "title is required"
	case len(req.Title) > maxTitleLength:
		return "title must be at most 200 characters"
	case req.Message == "":
		return "message is required"
	case len(req.Message) > maxMessageLength:
		return "message must be at most 1000 characters"
	case req.Type == "":
		return "type is required"
	case req.Priority != "" && !notification.Priority(req.Priority).Valid():
		return "priority must be one of low, medium, high, urgent"
	case req.ContextData != nil && !json.Valid([]byte(*req.ContextData)):
		return "context_data must be a JSON document"
	}
	return ""
}

// GetNotification handles GET /v1/notifications/{id}
func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := h.notificationID(w, r)
	if !ok {
		return
	}

	n, err := h.svc.GetNotification(r.Context(), id, UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Failed to get notification")
		return
	}

	writeJSON(w, http.StatusOK, newNotificationResponse(n))
}

// ListNotifications handles GET /v1/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())
	query := r.URL.Query()

	page, ok := h.positiveQueryInt(w, query.Get("page"), "page", 1)
	if !ok {
		return
	}
	pageSize, ok := h.positiveQueryInt(w, query.Get("page_size"), "page_size", notification.DefaultPageSize)
	if !ok {
		return
	}
	includeRead := false
	if v := query.Get("include_read"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid include_read", "include_read must be a boolean")
			return
		}
		includeRead = b
	}

	notifications, err := h.svc.GetUserNotifications(r.Context(), userID, page, pageSize, includeRead)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list notifications")
		return
	}

	page, pageSize = notification.ClampPage(page, pageSize)
	data := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		data = append(data, newNotificationResponse(n))
	}

	h.logger.Debug("notifications listed",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(data)),
		zap.Int("page", page),
		zap.Int("page_size", pageSize),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":      data,
		"page":      page,
		"page_size": pageSize,
		"count":     len(data),
	})
}

// MarkAsRead handles POST /v1/notifications/{id}/read
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.notificationID(w, r)
	if !ok {
		return
	}

	marked, err := h.svc.MarkNotificationAsRead(r.Context(), id, UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Failed to mark notification as read")
		return
	}
	if !marked {
		h.writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "read": true})
}

// MarkAllAsRead handles POST /v1/notifications/read-all
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.MarkAllNotificationsAsRead(r.Context(), UserFromContext(r.Context())); err != nil {
		h.writeServiceError(w, err, "Failed to mark notifications as read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UnreadCount handles GET /v1/notifications/unread-count
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.GetUnreadNotificationCount(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Failed to count notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// DeleteNotification handles DELETE /v1/notifications/{id}
func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := h.notificationID(w, r)
	if !ok {
		return
	}

	deleted, err := h.svc.DeleteNotification(r.Context(), id, UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Failed to delete notification")
		return
	}
	if !deleted {
		h.writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Cleanup handles POST /v1/notifications/cleanup
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.CleanupOldReadNotifications(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Failed to clean up notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// GetPreferences handles GET /v1/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.svc.GetPreferences(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PATCH /v1/preferences
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := UserFromContext(r.Context())

	var update notification.PreferencesUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON", err.Error())
		return
	}

	prefs, err := h.svc.UpdatePreferences(r.Context(), userID, update)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update preferences")
		return
	}

	h.logger.Info("preferences updated", zap.String("user_id", userID.String()))
	writeJSON(w, http.StatusOK, prefs)
}

func (h *Handler) notificationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid notification ID", "ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) positiveQueryInt(w http.ResponseWriter, raw, name string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid "+name, name+" must be a positive integer")
		return 0, false
	}
	return v, true
}

// writeServiceError maps engine errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, title string) {
	switch {
	case errors.Is(err, notification.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", title, err.Error())
	case errors.Is(err, notification.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, "invalid_request", title, err.Error())
	default:
		h.logger.Error(title, zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "storage_error", title, "")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	writeProblem(w, status, ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
