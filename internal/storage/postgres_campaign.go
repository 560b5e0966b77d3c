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

// --- Campaign Repository Methods ---

// SaveCampaign saves a campaign record.
func (r *PostgresRepo) SaveCampaign(ctx context.Context, campaign model.Campaign) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != campaign.CompanyID {
		return fmt.Errorf("%w: campaign CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, campaign.CompanyID, companyID)
	}
	if campaign.ID == "" {
		campaign.ID = uuid.New().String()
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Create(&campaign)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveCampaign", operation)
	observer.ObserveDbOperationDuration("save", "campaign", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save campaign after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindCampaignByID finds a campaign by its ID.
func (r *PostgresRepo) FindCampaignByID(ctx context.Context, id string) (*model.Campaign, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var campaign model.Campaign
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ? AND company_id = ?", id, companyID).First(&campaign)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: campaign_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindCampaignByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "campaign", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		loggerCtx.Error("Failed to find campaign by ID after retries",
			zap.String("campaign_id", id),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &campaign, nil
}

// UpdateCampaignStatus updates a campaign's status field.
func (r *PostgresRepo) UpdateCampaignStatus(ctx context.Context, campaignID string, status string) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
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
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.Campaign
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND company_id = ?", campaignID, companyID).
			First(&existing)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: campaign not found for status update (ID: %s): %w", apperrors.ErrNotFound, campaignID, result.Error)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock campaign row: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		updateResult := tx.Model(&existing).Updates(map[string]interface{}{
			"status":     status,
			"updated_at": utils.Now(),
		})
		if updateResult.Error != nil {
			txErr = checkConstraintViolation(updateResult.Error)
			return txErr
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit status update transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateCampaignStatus Commit", operation)
	observer.ObserveDbOperationDuration("update_status", "campaign", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update campaign status after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}
