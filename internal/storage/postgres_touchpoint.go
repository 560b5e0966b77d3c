package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/observer"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

// --- Touchpoint Repository Methods ---

const defaultTouchpointChunkSize = 200

// BulkInsertTouchpoints inserts touchpoints in chunks inside one transaction.
// Enrollment produces one insert per recipient per step, so chunking keeps a
// large enrollment from building a single oversized statement.
func (r *PostgresRepo) BulkInsertTouchpoints(ctx context.Context, touchpoints []model.Touchpoint, chunkSize int) error {
	if len(touchpoints) == 0 {
		return nil
	}
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)
	if chunkSize <= 0 {
		chunkSize = defaultTouchpointChunkSize
	}

	validTouchpoints := make([]model.Touchpoint, 0, len(touchpoints))
	for i := range touchpoints {
		if touchpoints[i].CompanyID != companyID {
			loggerCtx.Warn("Skipping touchpoint in bulk insert due to mismatched CompanyID",
				zap.String("campaign_id", touchpoints[i].CampaignID),
				zap.String("touchpoint_company_id", touchpoints[i].CompanyID),
				zap.String("expected_company_id", companyID))
			continue
		}
		if touchpoints[i].ID == "" {
			touchpoints[i].ID = uuid.New().String()
		}
		validTouchpoints = append(validTouchpoints, touchpoints[i])
	}

	if len(validTouchpoints) == 0 {
		loggerCtx.Info("No valid touchpoints found for bulk insert after tenant ID filtering")
		return nil
	}

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					loggerCtx.Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		result := tx.CreateInBatches(&validTouchpoints, chunkSize)
		if result.Error != nil {
			txErr = checkConstraintViolation(result.Error)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit bulk insert transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		loggerCtx.Info("Bulk insert successful", zap.Int("touchpoints_processed", len(validTouchpoints)), zap.Int64("rows_affected", result.RowsAffected))
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "BulkInsertTouchpoints Commit", operation)
	observer.ObserveDbOperationDuration("bulk_insert", "touchpoint", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to bulk insert touchpoints after retries", zap.Error(commitErr))
		return commitErr
	}
	observer.AddTouchpointsPersisted(companyID, len(validTouchpoints))
	return nil
}

// FindTouchpointByID finds a touchpoint by its ID.
func (r *PostgresRepo) FindTouchpointByID(ctx context.Context, id string) (*model.Touchpoint, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var touchpoint model.Touchpoint
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ? AND company_id = ?", id, companyID).First(&touchpoint)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: touchpoint_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindTouchpointByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "touchpoint", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		loggerCtx.Error("Failed to find touchpoint by ID after retries",
			zap.String("touchpoint_id", id),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &touchpoint, nil
}

// FindTouchpointsByCampaignID finds all touchpoints for a campaign, ordered by
// scheduled time.
func (r *PostgresRepo) FindTouchpointsByCampaignID(ctx context.Context, campaignID string) ([]model.Touchpoint, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var touchpoints []model.Touchpoint
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("campaign_id = ? AND company_id = ?", campaignID, companyID).
			Order("scheduled_at ASC").
			Find(&touchpoints)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindTouchpointsByCampaignID", operation)
	observer.ObserveDbOperationDuration("find_by_campaign", "touchpoint", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		loggerCtx.Error("Failed to find touchpoints by campaign ID after retries",
			zap.String("campaign_id", campaignID),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	if touchpoints == nil {
		return []model.Touchpoint{}, nil
	}
	return touchpoints, nil
}

// FindOpenTouchpointsScheduledBefore fetches open touchpoints scheduled before
// the given instant. The caller classifies them into due-today and overdue
// buckets in memory.
func (r *PostgresRepo) FindOpenTouchpointsScheduledBefore(ctx context.Context, before time.Time) ([]model.Touchpoint, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var touchpoints []model.Touchpoint
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ? AND completed_at IS NULL AND scheduled_at IS NOT NULL AND scheduled_at < ?", companyID, before).
			Order("scheduled_at ASC").
			Find(&touchpoints)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindOpenTouchpointsScheduledBefore", operation)
	observer.ObserveDbOperationDuration("find_open_due", "touchpoint", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		loggerCtx.Error("Failed to find open touchpoints after retries",
			zap.Time("before", before),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	if touchpoints == nil {
		return []model.Touchpoint{}, nil
	}
	return touchpoints, nil
}

// MarkTouchpointCompleted records the completion of an open touchpoint. A
// touchpoint that is already completed yields ErrConflict; completion is a
// one-way transition.
func (r *PostgresRepo) MarkTouchpointCompleted(ctx context.Context, id string, completedAt time.Time, outcome string) (*model.Touchpoint, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var completed model.Touchpoint
	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					loggerCtx.Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.Touchpoint
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND company_id = ?", id, companyID).
			First(&existing)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: touchpoint not found for completion (ID: %s): %w", apperrors.ErrNotFound, id, result.Error)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock touchpoint row: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		if existing.CompletedAt != nil {
			txErr = fmt.Errorf("%w: touchpoint %s already completed at %s", apperrors.ErrConflict, id, existing.CompletedAt.Format(time.RFC3339))
			return backoff.Permanent(txErr)
		}

		updateResult := tx.Model(&existing).Updates(map[string]interface{}{
			"completed_at": completedAt,
			"outcome":      outcome,
			"updated_at":   utils.Now(),
		})
		if updateResult.Error != nil {
			txErr = checkConstraintViolation(updateResult.Error)
			return txErr
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit completion transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}

		completed = existing
		completed.CompletedAt = &completedAt
		completed.Outcome = outcome
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "MarkTouchpointCompleted Commit", operation)
	observer.ObserveDbOperationDuration("mark_completed", "touchpoint", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		if errors.Is(commitErr, apperrors.ErrNotFound) || errors.Is(commitErr, apperrors.ErrConflict) {
			return nil, commitErr
		}
		loggerCtx.Error("Failed to mark touchpoint completed after retries", zap.Error(commitErr))
		return nil, commitErr
	}
	observer.IncTouchpointsCompleted(companyID)
	return &completed, nil
}
