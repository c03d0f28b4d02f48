package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

// Config holds SQS configuration.
type Config struct {
	Region   string
	QueueURL string
	Endpoint string // optional, e.g. LocalStack
}

// API is the subset of the SQS client the producer and consumer use.
type API interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// NewClient builds an SQS client from the default AWS credential chain.
func NewClient(ctx context.Context, cfg Config) (*sqs.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Producer enqueues notification.created events. It implements
// notification.Publisher.
type Producer struct {
	client   API
	queueURL string
	logger   *zap.Logger
}

// NewProducer creates a new SQS producer.
func NewProducer(client API, queueURL string, logger *zap.Logger) *Producer {
	logger.Info("sqs producer initialized",
		zap.String("queue_url", queueURL),
	)

	return &Producer{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish sends one event for n. Messages are grouped by user id on FIFO
// queues so a user's events stay ordered.
func (p *Producer) Publish(ctx context.Context, n *notification.Notification) error {
	body, err := json.Marshal(notification.NewCreatedEvent(n))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {
				DataType:    aws.String("String"),
				StringValue: aws.String(notification.EventCreated),
			},
			"type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(n.Type)),
			},
		},
	}
	if isFIFO(p.queueURL) {
		input.MessageGroupId = aws.String(n.UserID.String())
		input.MessageDeduplicationId = aws.String(n.ID.String())
	}

	result, err := p.client.SendMessage(ctx, input)
	if err != nil {
		p.logger.Error("failed to send message to sqs",
			zap.Error(err),
			zap.String("notification_id", n.ID.String()),
		)
		return fmt.Errorf("sqs send failed: %w", err)
	}

	p.logger.Debug("notification event enqueued",
		zap.String("notification_id", n.ID.String()),
		zap.String("message_id", aws.ToString(result.MessageId)),
	)
	return nil
}

func isFIFO(queueURL string) bool {
	return strings.HasSuffix(queueURL, ".fifo")
}

// Consumer reads notification events back from the queue. The operator CLI
// uses it to tail what the service emits.
type Consumer struct {
	client   API
	queueURL string
	logger   *zap.Logger
}

// NewConsumer creates a new SQS consumer.
func NewConsumer(client API, queueURL string, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Received is one decoded event plus the handle needed to delete it.
type Received struct {
	Event         notification.Event
	ReceiptHandle string
}

// Receive long-polls for up to maxMessages events. Malformed bodies are logged and
// skipped.
func (c *Consumer) Receive(ctx context.Context, maxMessages int32) ([]Received, error) {
	result, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive failed: %w", err)
	}

	out := make([]Received, 0, len(result.Messages))
	for _, m := range result.Messages {
		var ev notification.Event
		if err := json.Unmarshal([]byte(aws.ToString(m.Body)), &ev); err != nil {
			c.logger.Warn("skipping malformed event",
				zap.Error(err),
				zap.String("message_id", aws.ToString(m.MessageId)),
			)
			continue
		}
		out = append(out, Received{Event: ev, ReceiptHandle: aws.ToString(m.ReceiptHandle)})
	}
	return out, nil
}

// Delete removes a message after it was handled.
func (c *Consumer) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs delete failed: %w", err)
	}
	return nil
}
