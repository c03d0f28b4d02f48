package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

var errSink = errors.New("sink down")

// newTestBreaker returns a breaker whose clock only moves when advance is
// called.
func newTestBreaker(cfg Config) (*CircuitBreaker, func(time.Duration)) {
	cb := New(cfg, zap.NewNop())
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return cb, func(d time.Duration) { now = now.Add(d) }
}

func succeed() error {
	return nil
}

func fail() error {
	return errSink
}

func tripOpen(cb *CircuitBreaker, failures int) {
	for i := 0; i < failures; i++ {
		_ = cb.Do(fail)
	}
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(DefaultConfig("test"))
	if cb.State() != StateClosed {
		t.Fatalf("expected StateClosed, got %s", cb.State())
	}
	for i := 0; i < 10; i++ {
		if err := cb.Do(succeed); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(Config{Name: "test", MaxFailures: 3, RecoveryTimeout: time.Second})

	tripOpen(cb, 2)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed below threshold, got %s", cb.State())
	}
	tripOpen(cb, 1)
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	called := false
	err := cb.Do(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open circuit should reject without calling, got %v called=%v", err, called)
	}
}

func TestCircuitBreaker_DoReturnsCallError(t *testing.T) {
	cb, _ := newTestBreaker(DefaultConfig("test"))
	if err := cb.Do(fail); !errors.Is(err, errSink) {
		t.Fatalf("expected the sink error, got %v", err)
	}
}

func TestCircuitBreaker_Recovery(t *testing.T) {
	tests := []struct {
		name      string
		probe     func() error
		wantState State
	}{
		{"successful probe closes", succeed, StateClosed},
		{"failed probe reopens", fail, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, advance := newTestBreaker(Config{Name: "test", MaxFailures: 2, RecoveryTimeout: 30 * time.Second})
			tripOpen(cb, 2)

			advance(29 * time.Second)
			if err := cb.Do(succeed); !errors.Is(err, ErrCircuitOpen) {
				t.Fatalf("should still reject before the recovery timeout, got %v", err)
			}

			advance(time.Second)
			var concurrent error
			_ = cb.Do(func() error {
				if cb.State() != StateHalfOpen {
					t.Errorf("expected StateHalfOpen during the probe, got %s", cb.State())
				}
				concurrent = cb.Do(succeed)
				return tt.probe()
			})
			if !errors.Is(concurrent, ErrCircuitOpen) {
				t.Errorf("a second call during the probe should be rejected, got %v", concurrent)
			}
			if cb.State() != tt.wantState {
				t.Fatalf("expected %s, got %s", tt.wantState, cb.State())
			}
		})
	}
}

func TestCircuitBreaker_ReopenRestartsTimeout(t *testing.T) {
	cb, advance := newTestBreaker(Config{Name: "test", MaxFailures: 1, RecoveryTimeout: 10 * time.Second})
	tripOpen(cb, 1)

	advance(10 * time.Second)
	_ = cb.Do(fail)

	advance(5 * time.Second)
	if err := cb.Do(succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("timeout should count from the failed probe, got %v", err)
	}
	advance(5 * time.Second)
	if err := cb.Do(succeed); err != nil {
		t.Fatalf("expected a probe after the full timeout, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(Config{Name: "test", MaxFailures: 3})
	tripOpen(cb, 2)
	_ = cb.Do(succeed)
	tripOpen(cb, 2)
	if cb.State() != StateClosed {
		t.Fatal("success should have reset failure count")
	}
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb, _ := newTestBreaker(Config{Name: "sqs", MaxFailures: 2, RecoveryTimeout: time.Minute})
	_ = cb.Do(fail)

	stats := cb.Stats()
	if stats.Name != "sqs" || stats.State != "closed" || stats.Failures != 1 || stats.OpenedAt != nil {
		t.Fatalf("unexpected closed stats %+v", stats)
	}

	_ = cb.Do(fail)
	_ = cb.Do(succeed) // rejected

	stats = cb.Stats()
	if stats.State != "open" || stats.Rejected != 1 || stats.OpenedAt == nil {
		t.Fatalf("unexpected open stats %+v", stats)
	}
}

func TestCircuitBreaker_DefaultsForZeroConfig(t *testing.T) {
	cb := New(Config{Name: "zero"}, zap.NewNop())
	if cb.config.MaxFailures != 5 || cb.config.RecoveryTimeout != 30*time.Second || cb.config.HalfOpenMaxRequests != 1 {
		t.Fatalf("unexpected defaults %+v", cb.config)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d) = %s, want %s", tt.s, got, tt.want)
		}
	}
}
