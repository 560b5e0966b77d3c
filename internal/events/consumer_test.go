package events

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/config"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
)

// The consumer constructor derives its context logger from the global logger,
// so the package tests bootstrap it once.
func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

func TestDetermineAckNakAction(t *testing.T) {
	baseDelay := 2 * time.Second
	maxDelay := 10 * time.Second
	maxDeliver := 5

	tests := []struct {
		name          string
		err           error
		numDelivered  uint64
		expectedAct   AckNakAction
		expectedDelay time.Duration
	}{
		{
			name:        "success acks",
			err:         nil,
			expectedAct: ActionAck,
		},
		{
			name:          "retryable first attempt uses base delay",
			err:           apperrors.NewRetryable(errors.New("db down"), "save failed"),
			numDelivered:  1,
			expectedAct:   ActionNakDelay,
			expectedDelay: baseDelay,
		},
		{
			name:          "retryable second attempt doubles delay",
			err:           apperrors.NewRetryable(errors.New("db down"), "save failed"),
			numDelivered:  2,
			expectedAct:   ActionNakDelay,
			expectedDelay: 4 * time.Second,
		},
		{
			name:          "retryable delay capped at max",
			err:           apperrors.NewRetryable(errors.New("db down"), "save failed"),
			numDelivered:  4,
			expectedAct:   ActionNakDelay,
			expectedDelay: maxDelay,
		},
		{
			name:         "retryable at max deliver terminates",
			err:          apperrors.NewRetryable(errors.New("db down"), "save failed"),
			numDelivered: 5,
			expectedAct:  ActionTerm,
		},
		{
			name:         "fatal error terminates on first attempt",
			err:          apperrors.NewFatal(errors.New("bad payload"), "unmarshal failed"),
			numDelivered: 1,
			expectedAct:  ActionTerm,
		},
		{
			name:         "unwrapped error terminates",
			err:          errors.New("unexpected"),
			numDelivered: 1,
			expectedAct:  ActionTerm,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			metadata := &nats.MsgMetadata{NumDelivered: tc.numDelivered}
			action, delay := determineAckNakAction(tc.err, metadata, maxDeliver, baseDelay, maxDelay)
			assert.Equal(t, tc.expectedAct, action)
			assert.Equal(t, tc.expectedDelay, delay)
		})
	}
}

func TestEnrollmentSubjects(t *testing.T) {
	streamSubject, consumerSubject := enrollmentSubjects("v1.outreach", "acme")
	assert.Equal(t, "v1.outreach.enrollment.requested.*", streamSubject)
	assert.Equal(t, "v1.outreach.enrollment.requested.acme", consumerSubject)
}

func TestNewEnrollmentConsumer_SeedsTenantContext(t *testing.T) {
	c := newTestConsumer(&processorStub{}, "acme")
	require.NotNil(t, c.ctx)

	companyID, err := tenant.FromContext(c.ctx)
	require.NoError(t, err)
	assert.Equal(t, "acme", companyID)
}

type processorStub struct {
	received *model.EnrollmentRequestPayload
	err      error
}

func (p *processorStub) ProcessEnrollmentRequest(ctx context.Context, payload *model.EnrollmentRequestPayload) error {
	p.received = payload
	return p.err
}

func newTestConsumer(processor EnrollmentProcessor, companyID string) *EnrollmentConsumer {
	cfg := &config.Config{}
	cfg.NATS.Stream = "outreach_events"
	cfg.NATS.SubjectPrefix = "v1.outreach"
	cfg.NATS.Consumer = "outreach_enrollment"
	cfg.NATS.MaxDeliver = 5
	cfg.NATS.NakBaseDelay = time.Second
	cfg.NATS.NakMaxDelay = time.Minute
	return NewEnrollmentConsumer(nil, processor, cfg, companyID)
}

func TestProcessRequest_DispatchesValidPayload(t *testing.T) {
	processor := &processorStub{}
	c := newTestConsumer(processor, "acme")

	data := []byte(`{"request_id":"req-1","company_id":"acme","campaign_id":"camp-1","lead_ids":["lead-1","lead-2"]}`)

	err := c.processRequest(context.Background(), data)
	require.NoError(t, err)
	require.NotNil(t, processor.received)
	assert.Equal(t, "req-1", processor.received.RequestID)
	assert.Equal(t, "camp-1", processor.received.CampaignID)
	assert.Equal(t, []string{"lead-1", "lead-2"}, processor.received.LeadIDs)
}

func TestProcessRequest_MalformedJSONIsFatal(t *testing.T) {
	processor := &processorStub{}
	c := newTestConsumer(processor, "acme")

	err := c.processRequest(context.Background(), []byte(`{not json`))
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.Nil(t, processor.received)
}

func TestProcessRequest_MissingFieldsAreFatal(t *testing.T) {
	processor := &processorStub{}
	c := newTestConsumer(processor, "acme")

	// campaign_id is required
	err := c.processRequest(context.Background(), []byte(`{"request_id":"req-1","company_id":"acme"}`))
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsValidationError(err))
	assert.Nil(t, processor.received)
}

func TestProcessRequest_TenantMismatchIsFatal(t *testing.T) {
	processor := &processorStub{}
	c := newTestConsumer(processor, "acme")

	data := []byte(`{"request_id":"req-1","company_id":"other","campaign_id":"camp-1"}`)

	err := c.processRequest(context.Background(), data)
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsUnauthorizedError(err))
	assert.Nil(t, processor.received)
}

func TestProcessRequest_ProcessorErrorPropagates(t *testing.T) {
	processor := &processorStub{err: apperrors.NewRetryable(errors.New("db down"), "enrollment failed")}
	c := newTestConsumer(processor, "acme")

	data := []byte(`{"request_id":"req-1","company_id":"acme","campaign_id":"camp-1"}`)

	err := c.processRequest(context.Background(), data)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}
