package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

// API is the subset of the SNS client the publisher uses.
type API interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher fans notification.created events out through an SNS topic.
// Subscribers filter on the type and priority message attributes.
type Publisher struct {
	client   API
	topicARN string
	logger   *zap.Logger
}

// NewClient creates an SNS client. endpoint is optional (LocalStack).
func NewClient(ctx context.Context, region, endpoint string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return sns.NewFromConfig(cfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// NewPublisher creates an SNS publisher for the given topic
func NewPublisher(client API, topicARN string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:   client,
		topicARN: topicARN,
		logger:   logger,
	}
}

func attributes(n *notification.Notification) map[string]types.MessageAttributeValue {
	return map[string]types.MessageAttributeValue{
		"event": {
			DataType:    aws.String("String"),
			StringValue: aws.String(notification.EventCreated),
		},
		"type": {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(n.Type)),
		},
		"priority": {
			DataType:    aws.String("String"),
			StringValue: aws.String(string(n.Priority)),
		},
	}
}

// Publish sends one event for n.
func (p *Publisher) Publish(ctx context.Context, n *notification.Notification) error {
	payload, err := json.Marshal(notification.NewCreatedEvent(n))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(p.topicARN),
		Message:           aws.String(string(payload)),
		MessageAttributes: attributes(n),
	})
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	p.logger.Debug("notification event published",
		zap.String("notification_id", n.ID.String()),
		zap.String("message_id", aws.ToString(result.MessageId)),
	)
	return nil
}
