// Package events wires the configured notification.created sinks (SQS and
// SNS), each behind its own circuit breaker. The gateway and notifyctl share
// it so both publish the same events.
package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/circuitbreaker"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/config"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/sns"
	"github.com/TheJudgeY/FoodDiary-sub001/internal/sqs"
)

// Sinks is the set of protected publishers.
type Sinks struct {
	sinks []*circuitbreaker.ProtectedPublisher
}

// Build creates a sink for every configured destination. A destination whose
// client cannot be created is logged and skipped.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Sinks {
	s := &Sinks{}

	if cfg.SQSQueueURL != "" {
		client, err := sqs.NewClient(ctx, sqs.Config{
			Region:   cfg.AWSRegion,
			QueueURL: cfg.SQSQueueURL,
			Endpoint: cfg.AWSEndpoint,
		})
		if err != nil {
			logger.Warn("sqs unavailable, events will not be enqueued", zap.Error(err))
		} else {
			s.add("sqs", sqs.NewProducer(client, cfg.SQSQueueURL, logger), logger)
		}
	}

	if cfg.SNSTopicARN != "" {
		client, err := sns.NewClient(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			logger.Warn("sns unavailable, events will not be fanned out", zap.Error(err))
		} else {
			s.add("sns", sns.NewPublisher(client, cfg.SNSTopicARN, logger), logger)
		}
	}

	logger.Info("event publishing configured",
		zap.Bool("sqs", cfg.SQSQueueURL != ""),
		zap.Bool("sns", cfg.SNSTopicARN != ""),
		zap.Int("sinks", len(s.sinks)),
	)
	return s
}

func (s *Sinks) add(name string, p notification.Publisher, logger *zap.Logger) {
	breaker := circuitbreaker.New(circuitbreaker.DefaultConfig(name), logger)
	s.sinks = append(s.sinks, circuitbreaker.NewProtectedPublisher(p, breaker, logger))
}

// Publisher returns nil when no sink is configured, the sink itself when
// there is one, and a fan-out otherwise.
func (s *Sinks) Publisher() notification.Publisher {
	switch len(s.sinks) {
	case 0:
		return nil
	case 1:
		return s.sinks[0]
	default:
		fan := make(circuitbreaker.FanOut, len(s.sinks))
		for i, p := range s.sinks {
			fan[i] = p
		}
		return fan
	}
}

// ServiceOptions is WithPublisher for the configured sinks, or nothing.
func (s *Sinks) ServiceOptions() []notification.Option {
	if p := s.Publisher(); p != nil {
		return []notification.Option{notification.WithPublisher(p)}
	}
	return nil
}

// Stats reports every sink's breaker.
func (s *Sinks) Stats() []circuitbreaker.Stats {
	out := make([]circuitbreaker.Stats, len(s.sinks))
	for i, p := range s.sinks {
		out[i] = p.Breaker().Stats()
	}
	return out
}
