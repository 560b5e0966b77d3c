package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/observer"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

// --- Sequence Repository Methods ---

// SaveSequence creates a sequence together with its steps in one transaction.
func (r *PostgresRepo) SaveSequence(ctx context.Context, sequence model.OutreachSequence) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != sequence.CompanyID {
		return fmt.Errorf("%w: sequence CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, sequence.CompanyID, companyID)
	}
	if sequence.ID == "" {
		sequence.ID = uuid.New().String()
	}
	for i := range sequence.Steps {
		if sequence.Steps[i].ID == "" {
			sequence.Steps[i].ID = uuid.New().String()
		}
		sequence.Steps[i].SequenceID = sequence.ID
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

		// Steps ride along through the association; the unique index on
		// (sequence_id, step_order) rejects duplicate orders here.
		if createErr := tx.Create(&sequence).Error; createErr != nil {
			txErr = checkConstraintViolation(createErr)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit save transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveSequence Commit", operation)
	observer.ObserveDbOperationDuration("save", "sequence", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save sequence after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindSequenceByID finds a sequence by its ID, preloading its steps.
func (r *PostgresRepo) FindSequenceByID(ctx context.Context, id string) (*model.OutreachSequence, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var sequence model.OutreachSequence
	operation := func() error {
		result := r.db.WithContext(ctx).
			Preload("Steps", func(db *gorm.DB) *gorm.DB {
				return db.Order("step_order ASC")
			}).
			Where("id = ? AND company_id = ?", id, companyID).
			First(&sequence)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: sequence_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindSequenceByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "sequence", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		loggerCtx.Error("Failed to find sequence by ID after retries",
			zap.String("sequence_id", id),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &sequence, nil
}

// FindSequencesByCompanyID lists a tenant's sequences without preloading steps.
func (r *PostgresRepo) FindSequencesByCompanyID(ctx context.Context, companyID string) ([]model.OutreachSequence, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if tenantID != companyID {
		return nil, fmt.Errorf("%w: requested company %s does not match tenant ID %s", apperrors.ErrBadRequest, companyID, tenantID)
	}
	loggerCtx := logger.FromContext(ctx)

	var sequences []model.OutreachSequence
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("company_id = ?", companyID).
			Order("created_at ASC").
			Find(&sequences)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindSequencesByCompanyID", operation)
	observer.ObserveDbOperationDuration("find_by_company", "sequence", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		loggerCtx.Error("Failed to find sequences by company ID after retries",
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	if sequences == nil {
		return []model.OutreachSequence{}, nil
	}
	return sequences, nil
}
