package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

type generateFunc func(ctx context.Context, svc Service, userID uuid.UUID, r *http.Request) (*notification.Notification, error)

func fixed(create func(Service, context.Context, uuid.UUID) (*notification.Notification, error)) generateFunc {
	return func(ctx context.Context, svc Service, userID uuid.UUID, _ *http.Request) (*notification.Notification, error) {
		return create(svc, ctx, userID)
	}
}

// generators maps the {kind} path segment to the gated creator behind it.
var generators = map[string]generateFunc{
	"water":            fixed(Service.CreateWaterReminder),
	"calorie-limit":    fixed(Service.CreateCalorieLimitWarning),
	"goal-achievement": fixed(Service.CreateGoalAchievementNotification),
	"weekly-progress":  fixed(Service.CreateWeeklyProgressNotification),
	"daily-summary":    fixed(Service.CreateDailySummaryNotification),
	"meal": func(ctx context.Context, svc Service, userID uuid.UUID, r *http.Request) (*notification.Notification, error) {
		at, err := notification.ParseTimeOfDay(r.URL.Query().Get("time"))
		if err != nil {
			return nil, err
		}
		return svc.CreateMealReminder(ctx, userID, at)
	},
}

// Generate handles POST /v1/notifications/generate/{kind}. It responds 201
// with the notification, or 204 when the user's preferences suppress it.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	gen, ok := generators[kind]
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "Unknown notification kind", kind)
		return
	}

	userID := UserFromContext(r.Context())
	n, err := gen(r.Context(), h.svc, userID, r)
	if err != nil {
		h.writeServiceError(w, err, "Failed to generate notification")
		return
	}
	if n == nil {
		h.logger.Debug("notification suppressed by preferences",
			zap.String("user_id", userID.String()),
			zap.String("kind", kind),
		)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusCreated, newNotificationResponse(n))
}
