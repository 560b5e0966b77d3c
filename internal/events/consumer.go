package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/config"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/observer"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/validator"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

// AckNakAction represents the decision made after processing a message
type AckNakAction int

const (
	ActionAck      AckNakAction = iota // Message processed successfully, ACK it
	ActionNakDelay                     // Retryable error with attempts remaining, NAK with calculated delay
	ActionTerm                         // Max retries reached or fatal error, TERM to stop redelivery
)

const consumerTypeEnrollment = "enrollment"

// EnrollmentProcessor handles a decoded enrollment request.
type EnrollmentProcessor interface {
	ProcessEnrollmentRequest(ctx context.Context, payload *model.EnrollmentRequestPayload) error
}

// EnrollmentConsumer subscribes to enrollment.requested messages for one tenant
// and dispatches them to the processor.
type EnrollmentConsumer struct {
	client        ClientInterface
	processor     EnrollmentProcessor
	cfg           *config.Config
	companyID     string
	ctx           context.Context
	cancel        context.CancelFunc
	sub           *nats.Subscription
	filterSubject string
	maxDeliver    int
	nakBaseDelay  time.Duration
	nakMaxDelay   time.Duration
}

// NewEnrollmentConsumer creates a consumer for the tenant's enrollment requests
func NewEnrollmentConsumer(client ClientInterface, processor EnrollmentProcessor, cfg *config.Config, companyID string) *EnrollmentConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	loggerWithTenant := logger.Log.With(zap.String("company_id", companyID))
	ctx = logger.WithLogger(ctx, loggerWithTenant)
	ctx = tenant.WithCompanyID(ctx, companyID)

	return &EnrollmentConsumer{
		client:       client,
		processor:    processor,
		cfg:          cfg,
		companyID:    companyID,
		ctx:          ctx,
		cancel:       cancel,
		maxDeliver:   cfg.NATS.MaxDeliver,
		nakBaseDelay: cfg.NATS.NakBaseDelay,
		nakMaxDelay:  cfg.NATS.NakMaxDelay,
	}
}

// enrollmentSubjects builds the stream-wide and tenant-filtered subjects for
// enrollment requests. The stream captures every tenant under the prefix; the
// consumer filters down to its own company ID.
func enrollmentSubjects(subjectPrefix, companyID string) (streamSubject, consumerSubject string) {
	base := fmt.Sprintf("%s.%s", subjectPrefix, model.EventEnrollmentRequested)
	return fmt.Sprintf("%s.*", base), fmt.Sprintf("%s.%s", base, companyID)
}

// determineAckNakAction decides the fate of a message based on processing result and metadata.
// It returns the action to take (ACK, NAK_DELAY, TERM) and the delay duration if applicable.
// There is no dead-letter stream; exhausted or fatal messages are terminated
// after the failure is logged with the full payload context.
func determineAckNakAction(
	processingErr error,
	metadata *nats.MsgMetadata,
	maxDeliver int,
	nakBaseDelay time.Duration,
	nakMaxDelay time.Duration,
) (action AckNakAction, delay time.Duration) {

	if processingErr == nil {
		return ActionAck, 0
	}

	isRetryable := apperrors.IsRetryable(processingErr)
	numDelivered := metadata.NumDelivered

	if numDelivered >= uint64(maxDeliver) || !isRetryable {
		return ActionTerm, 0
	}

	// Retryable error with attempts remaining: NAK with exponential delay
	attempt := numDelivered // Current attempt number (starts at 1)
	delay = nakBaseDelay
	if attempt > 1 {
		delay = nakBaseDelay * (1 << (attempt - 1)) // Equivalent to base * 2^(attempt-1)
	}
	if delay > nakMaxDelay {
		delay = nakMaxDelay
	}
	return ActionNakDelay, delay
}

// Setup configures the NATS stream and consumer for enrollment requests
func (c *EnrollmentConsumer) Setup() error {
	log := logger.FromContext(c.ctx)
	log.Info("Setting up EnrollmentConsumer...",
		zap.String("stream", c.cfg.NATS.Stream),
		zap.String("consumer", c.cfg.NATS.Consumer),
	)

	maxAgeRetention := time.Duration(c.cfg.NATS.MaxAge*24) * time.Hour
	_, consumerSubject := enrollmentSubjects(c.cfg.NATS.SubjectPrefix, c.companyID)

	// The stream holds every outreach event under the prefix, not just
	// enrollment requests, so completed and scheduled events land here too.
	streamCfg := &nats.StreamConfig{
		Name:      c.cfg.NATS.Stream,
		Subjects:  []string{fmt.Sprintf("%s.>", c.cfg.NATS.SubjectPrefix)},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    maxAgeRetention,
	}

	if err := c.client.SetupStream(c.ctx, streamCfg); err != nil {
		log.Error("Failed to setup outreach stream", zap.Error(err), zap.String("stream", c.cfg.NATS.Stream))
		return fmt.Errorf("failed to setup outreach stream '%s': %w", c.cfg.NATS.Stream, err)
	}

	consumerCfg := &nats.ConsumerConfig{
		Durable:        c.cfg.NATS.Consumer,
		DeliverGroup:   c.cfg.NATS.Consumer,
		FilterSubject:  consumerSubject,
		AckPolicy:      nats.AckExplicitPolicy,
		DeliverSubject: nats.NewInbox(),
		MaxDeliver:     c.cfg.NATS.MaxDeliver,
		AckWait:        30 * time.Second,
		MaxAckPending:  1000,
		ReplayPolicy:   nats.ReplayInstantPolicy,
		DeliverPolicy:  nats.DeliverAllPolicy,
	}
	c.filterSubject = consumerSubject

	if err := c.client.SetupConsumer(c.ctx, c.cfg.NATS.Stream, consumerCfg); err != nil {
		log.Error("Failed to setup enrollment consumer", zap.Error(err),
			zap.String("stream", c.cfg.NATS.Stream),
			zap.String("consumer", c.cfg.NATS.Consumer),
		)
		return fmt.Errorf("failed to setup enrollment consumer '%s' for stream '%s': %w", c.cfg.NATS.Consumer, c.cfg.NATS.Stream, err)
	}

	log.Info("EnrollmentConsumer setup complete")
	return nil
}

// Start subscribes to the NATS stream
func (c *EnrollmentConsumer) Start() error {
	log := logger.FromContext(c.ctx)
	log.Info("Starting EnrollmentConsumer subscription...",
		zap.String("stream", c.cfg.NATS.Stream),
		zap.String("consumer", c.cfg.NATS.Consumer),
	)

	sub, err := c.client.SubscribePush(c.filterSubject, c.cfg.NATS.Consumer, c.cfg.NATS.Consumer, c.cfg.NATS.Stream, c.handleMessage)
	if err != nil {
		log.Error("Failed to subscribe enrollment consumer", zap.Error(err),
			zap.String("stream", c.cfg.NATS.Stream),
			zap.String("consumer", c.cfg.NATS.Consumer),
		)
		return fmt.Errorf("failed to subscribe enrollment consumer '%s': %w", c.cfg.NATS.Consumer, err)
	}
	c.sub = sub
	log.Info("EnrollmentConsumer subscribed successfully")
	return nil
}

// Stop unsubscribes and cleans up resources
func (c *EnrollmentConsumer) Stop() {
	log := logger.FromContext(c.ctx)
	log.Info("Stopping EnrollmentConsumer...",
		zap.String("stream", c.cfg.NATS.Stream),
		zap.String("consumer", c.cfg.NATS.Consumer),
	)
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Error("Error draining enrollment subscription", zap.Error(err))
		}
		log.Info("Enrollment subscription drained")
	}
	if c.cancel != nil {
		c.cancel()
	}
	log.Info("EnrollmentConsumer stopped")
}

// handleMessage is the core message processing logic
func (c *EnrollmentConsumer) handleMessage(msg *nats.Msg) {
	startTime := utils.Now()
	eventType := model.EventEnrollmentRequested.String()

	defer func() {
		observer.ObserveEventProcessingDuration(eventType, c.companyID, consumerTypeEnrollment, time.Since(startTime))

		if r := recover(); r != nil {
			logFromCtx := logger.FromContext(c.ctx)
			logFromCtx.Error("[panic] Recovered from panic in message handler",
				zap.Any("panic", r),
				zap.String("subject", msg.Subject),
				zap.Duration("duration", time.Since(startTime)),
				zap.Stack("stack"),
			)
			observer.IncEventsFailed(eventType, c.companyID, consumerTypeEnrollment)
			observer.IncEventProcessingAction(eventType, c.companyID, consumerTypeEnrollment, "panic_nak", "panic")
			if nakErr := msg.Nak(); nakErr != nil {
				logFromCtx.Error("Failed to NAK message after panic", zap.Error(nakErr))
			}
		}
	}()

	msgCtx := c.ctx
	logFromCtx := logger.FromContext(msgCtx)

	var msgID string
	if msg.Header != nil {
		msgID = msg.Header.Get("Nats-Msg-Id")
	}

	metadata, err := msg.Metadata()
	if err != nil {
		logFromCtx.Error("Failed to read message metadata", zap.Error(err), zap.Duration("duration", time.Since(startTime)))
		if nakErr := msg.Nak(); nakErr != nil {
			logFromCtx.Error("Failed to NAK message", zap.Error(nakErr))
		}
		observer.IncEventProcessingAction(eventType, c.companyID, consumerTypeEnrollment, "nak_metadata_error", "metadata")
		return
	}
	if msgID == "" {
		msgID = fmt.Sprintf("msg-%d", metadata.Sequence.Stream)
	}

	observer.IncEventsReceived(eventType, c.companyID, consumerTypeEnrollment)

	msgCtx = logger.WithLogger(msgCtx, logFromCtx.With(
		zap.String("nats_message_id", msgID),
		zap.Uint64("stream_sequence", metadata.Sequence.Stream),
		zap.Uint64("consumer_sequence", metadata.Sequence.Consumer),
		zap.String("subject", msg.Subject),
		zap.String("stream", metadata.Stream),
		zap.String("consumer", metadata.Consumer),
	))

	processingErr := c.processRequest(msgCtx, msg.Data)

	enhancedLog := logger.FromContext(msgCtx)

	action, nakDelay := determineAckNakAction(processingErr, metadata, c.maxDeliver, c.nakBaseDelay, c.nakMaxDelay)

	errorType := "none"
	if processingErr != nil {
		errorType = observer.SanitizeErrorType(processingErr.Error())
	}

	switch action {
	case ActionAck:
		enhancedLog.Info("Successfully processed enrollment request", zap.Duration("duration", time.Since(startTime)))
		observer.IncEventsProcessed(eventType, c.companyID, consumerTypeEnrollment)
		observer.IncEventProcessingAction(eventType, c.companyID, consumerTypeEnrollment, "ack_success", errorType)
		if ackErr := msg.Ack(); ackErr != nil {
			enhancedLog.Error("Failed to ACK message after successful processing", zap.Error(ackErr))
		}

	case ActionNakDelay:
		enhancedLog.Info("NAKing message with delay for redelivery (retryable error)",
			zap.Error(processingErr),
			zap.Uint64("num_delivered", metadata.NumDelivered),
			zap.Int("max_deliver", c.maxDeliver),
			zap.Duration("nak_delay", nakDelay),
			zap.Duration("duration", time.Since(startTime)),
		)
		observer.IncEventsFailed(eventType, c.companyID, consumerTypeEnrollment)
		observer.IncEventProcessingAction(eventType, c.companyID, consumerTypeEnrollment, "nak_retry", errorType)
		if nakErr := msg.NakWithDelay(nakDelay); nakErr != nil {
			enhancedLog.Error("Failed to NAK message with delay", zap.Error(nakErr))
		}

	case ActionTerm:
		isRetryable := apperrors.IsRetryable(processingErr)
		logReason := "max delivery attempts reached"
		if !isRetryable {
			logReason = "fatal error encountered"
		}
		// The payload is logged in full so a terminated request can be replayed
		// manually; there is no dead-letter stream for this service.
		enhancedLog.Error(fmt.Sprintf("Terminating message: %s", logReason),
			zap.Error(processingErr),
			zap.Uint64("num_delivered", metadata.NumDelivered),
			zap.Int("max_deliver", c.maxDeliver),
			zap.Bool("is_retryable", isRetryable),
			zap.ByteString("payload", msg.Data),
			zap.Duration("duration", time.Since(startTime)),
		)
		observer.IncEventsFailed(eventType, c.companyID, consumerTypeEnrollment)
		observer.IncEventProcessingAction(eventType, c.companyID, consumerTypeEnrollment, "term", errorType)
		if termErr := msg.Term(); termErr != nil {
			enhancedLog.Error("Failed to TERM message", zap.Error(termErr))
		}
	}
}

// processRequest decodes, validates and dispatches a single enrollment request
func (c *EnrollmentConsumer) processRequest(ctx context.Context, data []byte) error {
	var payload model.EnrollmentRequestPayload
	if err := utils.UnmarshalJSON(data, &payload); err != nil {
		return apperrors.NewFatal(err, "failed to unmarshal enrollment request")
	}

	if err := validator.Validate(&payload); err != nil {
		return apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error()), "invalid enrollment request")
	}

	// Requests routed here must belong to this consumer's tenant
	if payload.CompanyID != c.companyID {
		return apperrors.NewFatal(
			fmt.Errorf("%w: payload company '%s' does not match consumer company '%s'", apperrors.ErrUnauthorized, payload.CompanyID, c.companyID),
			"tenant mismatch in enrollment request",
		)
	}

	return c.processor.ProcessEnrollmentRequest(ctx, &payload)
}
