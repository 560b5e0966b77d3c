package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

type publishCapture struct {
	subject string
	data    []byte
	headers map[string]string
	err     error
}

func (p *publishCapture) SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error {
	return nil
}

func (p *publishCapture) SetupConsumer(ctx context.Context, streamName string, consumerConfig *nats.ConsumerConfig) error {
	return nil
}

func (p *publishCapture) SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return nil, nil
}

func (p *publishCapture) SubscribePull(streamName, subject, consumer string) (*nats.Subscription, error) {
	return nil, nil
}

func (p *publishCapture) Publish(subject string, data []byte, headers map[string]string) error {
	p.subject = subject
	p.data = data
	p.headers = headers
	return p.err
}

func (p *publishCapture) Close() {}

func (p *publishCapture) NatsConn() *nats.Conn { return nil }

func TestPublishEnrollmentCompleted(t *testing.T) {
	client := &publishCapture{}
	publisher := NewEventPublisher(client, "v1.outreach")

	payload := &model.EnrollmentCompletedPayload{
		RequestID:  "req-1",
		CompanyID:  "acme",
		CampaignID: "camp-1",
		Recipients: 3,
		Generated:  9,
		Persisted:  8,
		Skipped:    1,
		FinishedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	err := publisher.PublishEnrollmentCompleted(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "v1.outreach.enrollment.completed.acme", client.subject)
	assert.Equal(t, "completed-req-1", client.headers["Nats-Msg-Id"])

	var decoded model.EnrollmentCompletedPayload
	require.NoError(t, utils.UnmarshalJSON(client.data, &decoded))
	assert.Equal(t, *payload, decoded)
}

func TestPublishEnrollmentCompleted_PublishFailureIsRetryable(t *testing.T) {
	client := &publishCapture{err: errors.New("nats: connection closed")}
	publisher := NewEventPublisher(client, "v1.outreach")

	err := publisher.PublishEnrollmentCompleted(context.Background(), &model.EnrollmentCompletedPayload{
		RequestID: "req-1",
		CompanyID: "acme",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	assert.True(t, apperrors.IsPublishError(err))
}

func TestPublishTouchpointsScheduled(t *testing.T) {
	client := &publishCapture{}
	publisher := NewEventPublisher(client, "v1.outreach")

	firstDue := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	payload := &model.TouchpointsScheduledPayload{
		CompanyID:  "acme",
		CampaignID: "camp-1",
		Recipient:  model.LeadRecipient("lead-1"),
		Count:      4,
		FirstDue:   &firstDue,
	}

	err := publisher.PublishTouchpointsScheduled(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "v1.outreach.touchpoints.scheduled.acme", client.subject)
	assert.Equal(t, "scheduled-camp-1-lead-lead-1", client.headers["Nats-Msg-Id"])
}
