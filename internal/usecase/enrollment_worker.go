package usecase

import (
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/cache"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/config"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/events"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/observer"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/scheduler"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/storage"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
)

// channelRecipient is the behavior both recipient entities share: reporting
// which contact channels they carry and mapping themselves onto template
// variables.
type channelRecipient interface {
	HasChannel(stepType model.StepType) bool
	Personalization() model.PersonalizationData
}

// EnrollmentWorker manages the worker pool that enrolls recipients into
// campaigns. Each task handles one recipient end to end: resolve the entity,
// dedup against the bloom cache, compute the schedule, filter by channel,
// persist and publish.
type EnrollmentWorker struct {
	pool                *ants.PoolWithFunc
	leadRepo            storage.LeadRepo
	districtContactRepo storage.DistrictContactRepo
	touchpointRepo      storage.TouchpointRepo
	dedupCache          *cache.EnrollmentCache
	publisher           events.Publisher
	insertChunkSize     int
	baseLogger          *zap.Logger
}

// Ensure EnrollmentWorker implements IEnrollmentWorker
var _ IEnrollmentWorker = (*EnrollmentWorker)(nil)

// NewEnrollmentWorker creates and initializes a new enrollment worker pool.
func NewEnrollmentWorker(
	cfg config.EnrollmentWorkerPoolConfig,
	insertChunkSize int,
	leadRepo storage.LeadRepo,
	districtContactRepo storage.DistrictContactRepo,
	touchpointRepo storage.TouchpointRepo,
	dedupCache *cache.EnrollmentCache,
	publisher events.Publisher,
	baseLogger *zap.Logger,
) (*EnrollmentWorker, error) {
	worker := &EnrollmentWorker{
		leadRepo:            leadRepo,
		districtContactRepo: districtContactRepo,
		touchpointRepo:      touchpointRepo,
		dedupCache:          dedupCache,
		publisher:           publisher,
		insertChunkSize:     insertChunkSize,
		baseLogger:          baseLogger.Named("enrollment_worker"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		taskData, ok := i.(EnrollmentTaskData)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		worker.processEnrollmentTask(taskData)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in enrollment worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrollment worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("Enrollment worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
		zap.Duration("max_block_time", cfg.MaxBlock),
	)
	return worker, nil
}

// SubmitTask submits a new enrollment task to the worker pool.
func (w *EnrollmentWorker) SubmitTask(taskData EnrollmentTaskData) error {
	start := time.Now()
	observer.IncEnrollmentTasksSubmitted(taskData.Campaign.CompanyID)
	observer.SetEnrollmentQueueLength(w.pool.Waiting())

	err := w.pool.Invoke(taskData)

	duration := time.Since(start)

	if err != nil {
		w.baseLogger.Warn("Failed to submit enrollment task to pool",
			zap.String("campaign_id", taskData.Campaign.ID),
			zap.String("recipient_id", taskData.Recipient.ID),
			zap.Duration("submit_duration", duration),
			zap.Error(err),
		)
		observer.IncEnrollmentTasksProcessed(taskData.Campaign.CompanyID, "submit_error")
		if errors.Is(err, ants.ErrPoolOverload) {
			return fmt.Errorf("enrollment pool overload: %w", err)
		}
		return fmt.Errorf("failed to invoke enrollment task: %w", err)
	}

	w.baseLogger.Debug("Successfully submitted enrollment task",
		zap.String("campaign_id", taskData.Campaign.ID),
		zap.String("recipient_id", taskData.Recipient.ID),
		zap.Duration("submit_duration", duration),
	)
	return nil
}

// processEnrollmentTask contains the actual logic executed by a worker goroutine.
func (w *EnrollmentWorker) processEnrollmentTask(taskData EnrollmentTaskData) {
	// Done must run even when the task panics, or the submitting request
	// would wait forever.
	if taskData.WG != nil {
		defer taskData.WG.Done()
	}

	log := logger.FromContextOr(taskData.Ctx, w.baseLogger).With(
		zap.String("task_campaign_id", taskData.Campaign.ID),
		zap.String("task_recipient_kind", string(taskData.Recipient.Kind)),
		zap.String("task_recipient_id", taskData.Recipient.ID),
	)

	start := time.Now()
	companyID := taskData.Campaign.CompanyID
	result := taskData.Result
	result.Status = "success"

	log.Debug("Processing enrollment task")

	taskCtx := tenant.WithCompanyID(taskData.Ctx, companyID)

	// 1. Dedup pre-check against the bloom cache. A positive is only a hint;
	// storage is consulted before anything is skipped.
	cacheStatus := w.dedupCache.CheckEnrollmentStatus(taskData.Recipient, taskData.Campaign.SequenceID)

	// 2. Resolve the recipient entity
	entity, err := w.resolveRecipient(taskData)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			log.Warn("Skipping enrollment: recipient not found in storage")
			w.dedupCache.MarkNonExistent(taskData.Recipient)
			result.Status = "skipped_not_found"
			w.finishTask(companyID, result, start, log)
			return
		}
		log.Error("Error resolving recipient for enrollment", zap.Error(err))
		result.Status = "failure_recipient_lookup"
		result.Err = err
		w.finishTask(companyID, result, start, log)
		return
	}
	if cacheStatus == cache.StatusMaybeNotExist {
		// The filter said absent but storage disagreed
		w.dedupCache.RecordFalsePositive("nonexist")
	}

	// 3. Confirm a bloom enrolled-hit against storage before skipping
	if cacheStatus == cache.StatusMaybeEnrolled {
		enrolled, checkErr := w.hasExistingTouchpoints(taskData)
		if checkErr != nil {
			log.Error("Error confirming existing enrollment", zap.Error(checkErr))
			result.Status = "failure_dedup_check"
			result.Err = checkErr
			w.finishTask(companyID, result, start, log)
			return
		}
		if enrolled {
			log.Debug("Skipping enrollment: recipient already has touchpoints in this campaign")
			result.Status = "skipped_already_enrolled"
			w.finishTask(companyID, result, start, log)
			return
		}
		w.dedupCache.RecordFalsePositive("enrolled")
	}

	// 4. Compute the schedule and drop steps the recipient has no channel for
	scheduled := scheduler.ScheduleTouchpoints(taskData.Recipient, taskData.StartDate, taskData.Steps, entity.Personalization())
	result.Generated = len(scheduled)
	observer.AddTouchpointsGenerated(companyID, len(scheduled))

	reachable := make([]model.ScheduledTouchpoint, 0, len(scheduled))
	for _, tp := range scheduled {
		if entity.HasChannel(tp.Type) {
			reachable = append(reachable, tp)
		}
	}
	result.Skipped = len(scheduled) - len(reachable)
	observer.AddTouchpointsSkipped(companyID, result.Skipped)

	if len(reachable) == 0 {
		log.Info("No reachable touchpoints for recipient, nothing persisted",
			zap.Int("generated", result.Generated),
			zap.Int("skipped", result.Skipped),
		)
		result.Status = "skipped_no_channels"
		w.finishTask(companyID, result, start, log)
		return
	}

	// 5. Persist
	rows := w.buildTouchpointRows(taskData, reachable)
	if err := w.touchpointRepo.BulkInsert(taskCtx, rows, w.insertChunkSize); err != nil {
		log.Error("Error persisting touchpoints for recipient", zap.Error(err))
		result.Status = "failure_persist"
		result.Err = err
		w.finishTask(companyID, result, start, log)
		return
	}
	result.Persisted = len(rows)
	w.dedupCache.MarkEnrolled(taskData.Recipient, taskData.Campaign.SequenceID)

	// 6. Publish the per-recipient summary. Persistence already succeeded, so
	// a publish failure is logged but does not fail the task.
	if err := w.publishScheduled(taskData, reachable); err != nil {
		log.Warn("Failed to publish touchpoints scheduled event", zap.Error(err))
	}

	log.Info("Recipient enrolled",
		zap.Int("generated", result.Generated),
		zap.Int("persisted", result.Persisted),
		zap.Int("skipped", result.Skipped),
	)
	w.finishTask(companyID, result, start, log)
}

// resolveRecipient loads the concrete entity behind the tagged recipient.
func (w *EnrollmentWorker) resolveRecipient(taskData EnrollmentTaskData) (channelRecipient, error) {
	taskCtx := tenant.WithCompanyID(taskData.Ctx, taskData.Campaign.CompanyID)
	switch taskData.Recipient.Kind {
	case model.RecipientKindLead:
		return w.leadRepo.FindByID(taskCtx, taskData.Recipient.ID)
	case model.RecipientKindDistrictContact:
		return w.districtContactRepo.FindByID(taskCtx, taskData.Recipient.ID)
	default:
		return nil, apperrors.NewFatal(
			fmt.Errorf("%w: unknown recipient kind '%s'", apperrors.ErrBadRequest, taskData.Recipient.Kind),
			"cannot resolve recipient",
		)
	}
}

// hasExistingTouchpoints reports whether the recipient already has touchpoints
// in the campaign.
func (w *EnrollmentWorker) hasExistingTouchpoints(taskData EnrollmentTaskData) (bool, error) {
	taskCtx := tenant.WithCompanyID(taskData.Ctx, taskData.Campaign.CompanyID)
	existing, err := w.touchpointRepo.FindByCampaignID(taskCtx, taskData.Campaign.ID)
	if err != nil {
		return false, err
	}
	for _, tp := range existing {
		if tp.Recipient() == taskData.Recipient {
			return true, nil
		}
	}
	return false, nil
}

// buildTouchpointRows maps transient scheduler output onto storage rows.
func (w *EnrollmentWorker) buildTouchpointRows(taskData EnrollmentTaskData, scheduled []model.ScheduledTouchpoint) []model.Touchpoint {
	rows := make([]model.Touchpoint, 0, len(scheduled))
	for _, tp := range scheduled {
		scheduledAt := tp.ScheduledAt
		row := model.Touchpoint{
			CompanyID:   taskData.Campaign.CompanyID,
			CampaignID:  taskData.Campaign.ID,
			Type:        tp.Type,
			Subject:     tp.Subject,
			Content:     tp.Content,
			ScheduledAt: &scheduledAt,
		}
		switch tp.Recipient.Kind {
		case model.RecipientKindLead:
			row.LeadID = tp.Recipient.ID
		case model.RecipientKindDistrictContact:
			row.DistrictContactID = tp.Recipient.ID
		}
		rows = append(rows, row)
	}
	return rows
}

// publishScheduled emits the touchpoints.scheduled event for one recipient.
func (w *EnrollmentWorker) publishScheduled(taskData EnrollmentTaskData, scheduled []model.ScheduledTouchpoint) error {
	payload := &model.TouchpointsScheduledPayload{
		CompanyID:  taskData.Campaign.CompanyID,
		CampaignID: taskData.Campaign.ID,
		Recipient:  taskData.Recipient,
		Count:      len(scheduled),
	}
	kinds := make([]model.StepType, 0, len(scheduled))
	for i, tp := range scheduled {
		kinds = append(kinds, tp.Type)
		if i == 0 {
			firstDue := tp.ScheduledAt
			payload.FirstDue = &firstDue
		}
	}
	payload.Kinds = kinds

	return w.publisher.PublishTouchpointsScheduled(taskData.Ctx, payload)
}

// finishTask records metrics and the closing log line for a task.
func (w *EnrollmentWorker) finishTask(companyID string, result *RecipientEnrollmentResult, start time.Time, log *zap.Logger) {
	duration := time.Since(start)
	observer.ObserveEnrollmentProcessingDuration(companyID, duration)
	observer.IncEnrollmentTasksProcessed(companyID, result.Status)
	log.Debug("Finished processing enrollment task", zap.Duration("duration", duration), zap.String("final_status", result.Status))
}

// Stop gracefully shuts down the worker pool.
func (w *EnrollmentWorker) Stop() {
	if w.pool != nil {
		w.baseLogger.Info("Releasing enrollment worker pool")
		start := time.Now()
		w.pool.Release()
		w.baseLogger.Info("Enrollment worker pool released", zap.Duration("duration", time.Since(start)))
	}
}
