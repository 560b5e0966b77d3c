package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/scheduler"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

// DailyQueueResult is the operator's work list for one calendar day.
type DailyQueueResult struct {
	DueToday []model.Touchpoint `json:"due_today"`
	Overdue  []model.Touchpoint `json:"overdue"`
}

// DailyQueue returns the open touchpoints due today and those overdue,
// classified against a single clock reading. Storage is scanned once with an
// upper bound of tomorrow's date; the split into the two buckets is pure.
func (s *OutreachService) DailyQueue(ctx context.Context, now time.Time) (*DailyQueueResult, error) {
	// Everything scheduled before tomorrow is either due today or overdue
	tomorrow := utils.TruncateToDate(now).AddDate(0, 0, 1)

	open, err := s.touchpointRepo.FindOpenScheduledBefore(ctx, tomorrow)
	if err != nil {
		return nil, apperrors.NewRetryable(err, "failed to load open touchpoints")
	}

	result := &DailyQueueResult{
		DueToday: scheduler.DueToday(open, now),
		Overdue:  scheduler.Overdue(open, now),
	}

	logger.FromContext(ctx).Debug("Daily queue computed",
		zap.Int("open", len(open)),
		zap.Int("due_today", len(result.DueToday)),
		zap.Int("overdue", len(result.Overdue)),
	)
	return result, nil
}

// CompleteTouchpoint marks a touchpoint as done with the given outcome.
// Completion is one way; completing an already completed touchpoint returns
// a conflict error.
func (s *OutreachService) CompleteTouchpoint(ctx context.Context, id, outcome string) (*model.Touchpoint, error) {
	if outcome == "" {
		return nil, apperrors.NewFatal(
			fmt.Errorf("%w: outcome is required", apperrors.ErrBadRequest),
			"cannot complete touchpoint without an outcome",
		)
	}

	touchpoint, err := s.touchpointRepo.MarkCompleted(ctx, id, utils.Now(), outcome)
	if err != nil {
		if apperrors.IsNotFoundError(err) || apperrors.IsConflictError(err) {
			return nil, err
		}
		return nil, apperrors.NewRetryable(err, "failed to complete touchpoint '%s'", id)
	}

	logger.FromContext(ctx).Info("Touchpoint completed",
		zap.String("touchpoint_id", id),
		zap.String("outcome", outcome),
	)
	return touchpoint, nil
}
