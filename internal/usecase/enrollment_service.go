package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/scheduler"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

// CampaignStatusActive is the only campaign status that accepts enrollments.
const CampaignStatusActive = "ACTIVE"

// ProcessEnrollmentRequest enrolls every recipient named in the payload into
// the campaign. Recipients fan out to the worker pool and the call blocks
// until all of them settle, so the consumer's ack decision covers the whole
// request. A retryable error is returned when any recipient failed on a
// transient fault; already-enrolled recipients are skipped on redelivery via
// the dedup cache, which keeps retries safe.
func (s *OutreachService) ProcessEnrollmentRequest(ctx context.Context, payload *model.EnrollmentRequestPayload) error {
	log := logger.FromContext(ctx).With(
		zap.String("request_id", payload.RequestID),
		zap.String("campaign_id", payload.CampaignID),
	)

	if err := validateCompanyTenant(ctx, payload.CompanyID); err != nil {
		return apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, err.Error()), "tenant validation failed for enrollment request")
	}

	campaign, sequence, err := s.loadEnrollmentTarget(ctx, payload.CampaignID)
	if err != nil {
		return err
	}

	recipients := payload.Recipients()
	startDate := s.resolveStartDate(campaign, payload)

	log.Info("Starting enrollment run",
		zap.Int("recipients", len(recipients)),
		zap.Int("steps", len(sequence.Steps)),
		zap.Time("start_date", startDate),
	)

	results := make([]RecipientEnrollmentResult, len(recipients))
	if len(sequence.Steps) > 0 {
		var wg sync.WaitGroup
		for i, recipient := range recipients {
			wg.Add(1)
			task := EnrollmentTaskData{
				Ctx:       ctx,
				Campaign:  *campaign,
				Steps:     sequence.Steps,
				Recipient: recipient,
				StartDate: startDate,
				Result:    &results[i],
				WG:        &wg,
			}
			if err := s.enrollmentWorker.SubmitTask(task); err != nil {
				wg.Done()
				results[i].Status = "submit_error"
				results[i].Err = err
				log.Warn("Failed to submit recipient enrollment",
					zap.String("recipient_id", recipient.ID),
					zap.Error(err),
				)
			}
		}
		wg.Wait()
	} else {
		log.Warn("Sequence has no steps, nothing to schedule", zap.String("sequence_id", sequence.ID))
	}

	completed := s.summarize(payload, recipients, results)

	// The completion event is best effort; the enrollment outcome stands
	// regardless of whether the summary reached the stream.
	if err := s.publisher.PublishEnrollmentCompleted(ctx, completed); err != nil {
		log.Warn("Failed to publish enrollment completed event", zap.Error(err))
	}

	if completed.Failed > 0 {
		// Redelivery re-runs only the failed recipients in effect: the dedup
		// cache short-circuits the ones that already persisted.
		return apperrors.NewRetryable(
			fmt.Errorf("%w: %d of %d recipients failed", apperrors.ErrPartialFailure, completed.Failed, len(recipients)),
			"enrollment run incomplete for request '%s'", payload.RequestID,
		)
	}

	log.Info("Enrollment run complete",
		zap.Int("generated", completed.Generated),
		zap.Int("persisted", completed.Persisted),
		zap.Int("skipped", completed.Skipped),
	)
	return nil
}

// EnrollRecipient enrolls a single recipient into a campaign, outside any
// NATS request. It shares the worker path with batch enrollment so dedup,
// channel filtering and metrics behave identically.
func (s *OutreachService) EnrollRecipient(ctx context.Context, campaignID string, recipient model.Recipient, startDate *time.Time) (*RecipientEnrollmentResult, error) {
	campaign, sequence, err := s.loadEnrollmentTarget(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := validateCompanyTenant(ctx, campaign.CompanyID); err != nil {
		return nil, apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, err.Error()), "tenant validation failed for enrollment")
	}

	payload := &model.EnrollmentRequestPayload{
		CampaignID: campaignID,
		StartDate:  startDate,
	}

	var result RecipientEnrollmentResult
	var wg sync.WaitGroup
	wg.Add(1)
	task := EnrollmentTaskData{
		Ctx:       ctx,
		Campaign:  *campaign,
		Steps:     sequence.Steps,
		Recipient: recipient,
		StartDate: s.resolveStartDate(campaign, payload),
		Result:    &result,
		WG:        &wg,
	}
	if err := s.enrollmentWorker.SubmitTask(task); err != nil {
		wg.Done()
		return nil, apperrors.NewRetryable(err, "failed to submit enrollment for recipient '%s'", recipient.ID)
	}
	wg.Wait()

	if result.Err != nil {
		return &result, apperrors.NewRetryable(result.Err, "enrollment failed for recipient '%s'", recipient.ID)
	}
	return &result, nil
}

// loadEnrollmentTarget resolves the campaign and its sequence, rejecting
// inactive campaigns.
func (s *OutreachService) loadEnrollmentTarget(ctx context.Context, campaignID string) (*model.Campaign, *model.OutreachSequence, error) {
	campaign, err := s.campaignRepo.FindByID(ctx, campaignID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, nil, apperrors.NewFatal(err, "campaign '%s' not found", campaignID)
		}
		return nil, nil, apperrors.NewRetryable(err, "failed to load campaign '%s'", campaignID)
	}
	if campaign.Status != CampaignStatusActive {
		return nil, nil, apperrors.NewFatal(
			fmt.Errorf("%w: campaign '%s' has status '%s'", apperrors.ErrConflict, campaign.ID, campaign.Status),
			"cannot enroll into inactive campaign",
		)
	}

	sequence, err := s.sequenceRepo.FindByID(ctx, campaign.SequenceID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, nil, apperrors.NewFatal(err, "sequence '%s' not found for campaign '%s'", campaign.SequenceID, campaign.ID)
		}
		return nil, nil, apperrors.NewRetryable(err, "failed to load sequence '%s'", campaign.SequenceID)
	}
	return campaign, sequence, nil
}

// resolveStartDate picks the campaign anchor date: an explicit request
// override wins, then the campaign's own start date, then the next batch
// start computed from the current clock and the configured cutoff hour.
func (s *OutreachService) resolveStartDate(campaign *model.Campaign, payload *model.EnrollmentRequestPayload) time.Time {
	if payload.StartDate != nil {
		return utils.TruncateToDate(payload.StartDate.UTC())
	}
	if campaign.StartDate != nil {
		return utils.TruncateToDate(campaign.StartDate.UTC())
	}
	return utils.TruncateToDate(scheduler.NextBatchStartDate(utils.Now(), s.batchCutoffHour))
}

// summarize folds per-recipient results into the completion payload.
func (s *OutreachService) summarize(payload *model.EnrollmentRequestPayload, recipients []model.Recipient, results []RecipientEnrollmentResult) *model.EnrollmentCompletedPayload {
	completed := &model.EnrollmentCompletedPayload{
		RequestID:  payload.RequestID,
		CompanyID:  payload.CompanyID,
		CampaignID: payload.CampaignID,
		Recipients: len(recipients),
		FinishedAt: utils.Now(),
	}
	for _, r := range results {
		completed.Generated += r.Generated
		completed.Persisted += r.Persisted
		completed.Skipped += r.Skipped
		if r.Err != nil {
			completed.Failed++
		}
	}
	return completed
}
