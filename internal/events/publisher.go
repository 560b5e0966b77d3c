package events

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

// Publisher emits outreach lifecycle events onto the JetStream stream.
type Publisher interface {
	PublishEnrollmentCompleted(ctx context.Context, payload *model.EnrollmentCompletedPayload) error
	PublishTouchpointsScheduled(ctx context.Context, payload *model.TouchpointsScheduledPayload) error
}

// EventPublisher publishes events through the JetStream client, suffixing
// every subject with the tenant's company ID.
type EventPublisher struct {
	client        ClientInterface
	subjectPrefix string
}

var _ Publisher = (*EventPublisher)(nil)

// NewEventPublisher creates a publisher over the given client
func NewEventPublisher(client ClientInterface, subjectPrefix string) *EventPublisher {
	return &EventPublisher{
		client:        client,
		subjectPrefix: subjectPrefix,
	}
}

// PublishEnrollmentCompleted publishes the outcome summary of an enrollment run.
// The request ID doubles as the message ID so redelivered requests do not
// produce duplicate completion events.
func (p *EventPublisher) PublishEnrollmentCompleted(ctx context.Context, payload *model.EnrollmentCompletedPayload) error {
	subject := fmt.Sprintf("%s.%s.%s", p.subjectPrefix, model.EventEnrollmentCompleted, payload.CompanyID)
	headers := map[string]string{
		"Nats-Msg-Id": fmt.Sprintf("completed-%s", payload.RequestID),
	}

	if err := p.client.Publish(subject, utils.MustMarshalJSON(payload), headers); err != nil {
		logger.FromContext(ctx).Error("Failed to publish enrollment completed event",
			zap.Error(err),
			zap.String("subject", subject),
			zap.String("request_id", payload.RequestID),
		)
		return apperrors.NewRetryable(apperrors.ErrPublish, "failed to publish enrollment completed event: %v", err)
	}

	return nil
}

// PublishTouchpointsScheduled publishes the per-recipient scheduling summary.
func (p *EventPublisher) PublishTouchpointsScheduled(ctx context.Context, payload *model.TouchpointsScheduledPayload) error {
	subject := fmt.Sprintf("%s.%s.%s", p.subjectPrefix, model.EventTouchpointsScheduled, payload.CompanyID)
	headers := map[string]string{
		"Nats-Msg-Id": fmt.Sprintf("scheduled-%s-%s-%s", payload.CampaignID, payload.Recipient.Kind, payload.Recipient.ID),
	}

	if err := p.client.Publish(subject, utils.MustMarshalJSON(payload), headers); err != nil {
		logger.FromContext(ctx).Error("Failed to publish touchpoints scheduled event",
			zap.Error(err),
			zap.String("subject", subject),
			zap.String("campaign_id", payload.CampaignID),
		)
		return apperrors.NewRetryable(apperrors.ErrPublish, "failed to publish touchpoints scheduled event: %v", err)
	}

	return nil
}
