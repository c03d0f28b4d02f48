package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheJudgeY/FoodDiary-sub001/internal/notification"
)

type mockAPI struct {
	sent     []*sqs.SendMessageInput
	sendErr  error
	messages []types.Message
	deleted  []string
}

func (m *mockAPI) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func (m *mockAPI) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{Messages: m.messages}, nil
}

func (m *mockAPI) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	m.deleted = append(m.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func testNotification() *notification.Notification {
	return notification.New(notification.Params{
		UserID:   uuid.New(),
		Title:    "Calorie limit warning",
		Message:  "You are close to your daily calorie limit.",
		Type:     notification.TypeCalorieLimitWarning,
		Priority: notification.PriorityHigh,
	}, time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC))
}

func TestProducer_Publish(t *testing.T) {
	api := &mockAPI{}
	p := NewProducer(api, "https://sqs.eu-west-1.amazonaws.com/123/notifications", zap.NewNop())
	n := testNotification()

	if err := p.Publish(context.Background(), n); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(api.sent))
	}

	in := api.sent[0]
	if in.MessageGroupId != nil {
		t.Error("standard queues must not set a message group")
	}
	if got := aws.ToString(in.MessageAttributes["type"].StringValue); got != string(notification.TypeCalorieLimitWarning) {
		t.Errorf("type attribute = %q", got)
	}

	var ev notification.Event
	if err := json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &ev); err != nil {
		t.Fatalf("body is not an event: %v", err)
	}
	if ev.Event != notification.EventCreated || ev.NotificationID != n.ID.String() {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Icon != "alert-triangle" || ev.Color != notification.PriorityHigh.Color() {
		t.Errorf("display hints missing: icon=%q color=%q", ev.Icon, ev.Color)
	}
}

func TestProducer_PublishFIFO(t *testing.T) {
	api := &mockAPI{}
	p := NewProducer(api, "https://sqs.eu-west-1.amazonaws.com/123/notifications.fifo", zap.NewNop())
	n := testNotification()

	if err := p.Publish(context.Background(), n); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	in := api.sent[0]
	if aws.ToString(in.MessageGroupId) != n.UserID.String() {
		t.Errorf("group id = %q, want user id", aws.ToString(in.MessageGroupId))
	}
	if aws.ToString(in.MessageDeduplicationId) != n.ID.String() {
		t.Errorf("dedup id = %q, want notification id", aws.ToString(in.MessageDeduplicationId))
	}
}

func TestProducer_PublishError(t *testing.T) {
	api := &mockAPI{sendErr: errors.New("throttled")}
	p := NewProducer(api, "queue", zap.NewNop())

	if err := p.Publish(context.Background(), testNotification()); err == nil {
		t.Fatal("expected error")
	}
}

func TestConsumer_ReceiveSkipsMalformed(t *testing.T) {
	n := testNotification()
	body, _ := json.Marshal(notification.NewCreatedEvent(n))

	api := &mockAPI{messages: []types.Message{
		{Body: aws.String(string(body)), ReceiptHandle: aws.String("rh-1")},
		{Body: aws.String("{not json"), ReceiptHandle: aws.String("rh-2"), MessageId: aws.String("bad")},
	}}
	c := NewConsumer(api, "queue", zap.NewNop())

	got, err := c.Receive(context.Background(), 10)
	if err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 decoded event, got %d", len(got))
	}
	if got[0].Event.NotificationID != n.ID.String() || got[0].ReceiptHandle != "rh-1" {
		t.Errorf("unexpected received %+v", got[0])
	}

	if err := c.Delete(context.Background(), "rh-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(api.deleted) != 1 || api.deleted[0] != "rh-1" {
		t.Errorf("deleted = %v", api.deleted)
	}
}
