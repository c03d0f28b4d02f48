package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/test", 200, 100*time.Millisecond)
	RecordRequest("POST", "/test", 201, 50*time.Millisecond)
	RecordRequest("GET", "/test", 404, 10*time.Millisecond)
}

func TestRecordNotificationCounters(t *testing.T) {
	RecordNotificationGenerated("water_reminder")
	RecordNotificationSuppressed("meal_reminder")
	RecordNotificationsRead(3)
	RecordNotificationsRead(0)
	RecordCleanupDeleted(2)
	RecordCleanupDeleted(0)
	RecordPublishFailure()
	RecordRateLimitRejection()
}

func TestRecordScheduler(t *testing.T) {
	RecordSchedulerJob("water", "created")
	RecordSchedulerJob("meal", "suppressed")
	RecordSchedulerTick(250 * time.Millisecond)
}

func TestHandler(t *testing.T) {
	RecordNotificationGenerated("daily_summary")

	handler := Handler()
	if handler == nil {
		t.Fatal("Handler should not return nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	if !strings.Contains(rec.Body.String(), "fooddiary_notifications_generated_total") {
		t.Error("expected generated counter in metrics output")
	}
}

func TestMiddleware(t *testing.T) {
	innerCalled := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		innerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	handler := Middleware(func(*http.Request) string { return "/v1/notifications/{id}" })(inner)
	req := httptest.NewRequest("POST", "/v1/notifications/123", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if !innerCalled {
		t.Error("inner handler should have been called")
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
}

func TestMiddleware_NilPattern(t *testing.T) {
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestResponseWriter_ExplicitStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)

	if rw.status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rw.status)
	}
}
