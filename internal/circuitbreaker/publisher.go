package circuitbreaker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

// ProtectedPublisher wraps a notification.Publisher with a breaker so a
// dead event sink fails fast instead of adding its timeout to every create.
type ProtectedPublisher struct {
	publisher notification.Publisher
	breaker   *CircuitBreaker
	logger    *zap.Logger
}

// NewProtectedPublisher wraps publisher with breaker.
func NewProtectedPublisher(publisher notification.Publisher, breaker *CircuitBreaker, logger *zap.Logger) *ProtectedPublisher {
	return &ProtectedPublisher{
		publisher: publisher,
		breaker:   breaker,
		logger:    logger,
	}
}

// Publish returns an error wrapping ErrCircuitOpen without calling the
// wrapped publisher while the circuit is open.
func (p *ProtectedPublisher) Publish(ctx context.Context, n *notification.Notification) error {
	err := p.breaker.Do(func() error {
		return p.publisher.Publish(ctx, n)
	})
	if errors.Is(err, ErrCircuitOpen) {
		p.logger.Debug("circuit breaker rejected publish",
			zap.String("breaker", p.breaker.Name()),
			zap.String("notification_id", n.ID.String()),
		)
		return fmt.Errorf("%w: %s publisher unavailable", err, p.breaker.Name())
	}
	return err
}

func (p *ProtectedPublisher) Breaker() *CircuitBreaker {
	return p.breaker
}

// FanOut publishes to every publisher and joins their errors. One failing
// sink does not stop the others.
type FanOut []notification.Publisher

func (f FanOut) Publish(ctx context.Context, n *notification.Notification) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
