package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

type mockPublisher struct {
	err   error
	calls int
}

func (m *mockPublisher) Publish(ctx context.Context, n *notification.Notification) error {
	m.calls++
	return m.err
}

func testNotification() *notification.Notification {
	return notification.New(notification.Params{
		UserID:  uuid.New(),
		Title:   "Time to drink water",
		Message: "Stay hydrated",
		Type:    notification.TypeWaterReminder,
	}, time.Now())
}

func TestProtectedPublisher_PassesThrough(t *testing.T) {
	mock := &mockPublisher{}
	cb, _ := newTestBreaker(Config{Name: "sqs", MaxFailures: 5})
	pp := NewProtectedPublisher(mock, cb, zap.NewNop())

	if err := pp.Publish(context.Background(), testNotification()); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("calls = %d", mock.calls)
	}
	if cb.State() != StateClosed || cb.Stats().Failures != 0 {
		t.Fatalf("unexpected breaker stats %+v", cb.Stats())
	}
}

func TestProtectedPublisher_Lifecycle(t *testing.T) {
	mock := &mockPublisher{err: errors.New("queue down")}
	cb, advance := newTestBreaker(Config{Name: "sqs", MaxFailures: 3, RecoveryTimeout: time.Minute})
	pp := NewProtectedPublisher(mock, cb, zap.NewNop())
	ctx := context.Background()
	n := testNotification()

	for i := 0; i < 3; i++ {
		if err := pp.Publish(ctx, n); err == nil || errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("attempt %d: expected the sink error, got %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	mock.calls = 0
	if err := pp.Publish(ctx, n); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if mock.calls != 0 {
		t.Fatal("publisher should not be called while open")
	}

	advance(time.Minute)
	mock.err = nil
	if err := pp.Publish(ctx, n); err != nil {
		t.Fatalf("probe should succeed: %v", err)
	}
	if pp.Breaker().State() != StateClosed {
		t.Fatalf("expected closed after recovery, got %s", cb.State())
	}
}

func TestFanOut(t *testing.T) {
	ok := &mockPublisher{}
	failing := &mockPublisher{err: errors.New("topic missing")}
	last := &mockPublisher{}

	err := FanOut{ok, failing, last}.Publish(context.Background(), testNotification())
	if err == nil || err.Error() != "topic missing" {
		t.Fatalf("expected joined sink error, got %v", err)
	}
	if ok.calls != 1 || failing.calls != 1 || last.calls != 1 {
		t.Fatal("every publisher should be called once")
	}

	if err := (FanOut{ok, last}).Publish(context.Background(), testNotification()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
