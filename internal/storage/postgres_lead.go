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

// --- Lead Repository Methods ---

// SaveLead saves or updates a lead record.
func (r *PostgresRepo) SaveLead(ctx context.Context, lead model.Lead) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != lead.CompanyID {
		return fmt.Errorf("%w: lead CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, lead.CompanyID, companyID)
	}
	if lead.ID == "" {
		lead.ID = uuid.New().String()
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

		var existingLead model.Lead
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND company_id = ?", lead.ID, companyID).
			First(&existingLead)
		findErr := result.Error

		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				if createErr := tx.Create(&lead).Error; createErr != nil {
					txErr = checkConstraintViolation(createErr)
					return txErr
				}
			} else {
				txErr = fmt.Errorf("%w: failed to lock lead row: %w", apperrors.ErrDatabase, findErr)
				return txErr
			}
		} else {
			if updateErr := tx.Model(&existingLead).Updates(lead).Error; updateErr != nil {
				txErr = checkConstraintViolation(updateErr)
				return txErr
			}
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit save transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveLead Commit", operation)
	observer.ObserveDbOperationDuration("save", "lead", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save lead after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// UpdateLead updates specific fields of an existing lead record.
func (r *PostgresRepo) UpdateLead(ctx context.Context, lead model.Lead) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != lead.CompanyID {
		return fmt.Errorf("%w: lead CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, lead.CompanyID, companyID)
	}
	lead.UpdatedAt = utils.Now()

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

		var existingLead model.Lead
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND company_id = ?", lead.ID, companyID).
			First(&existingLead)
		findErr := result.Error

		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: lead not found for update (ID: %s, CompanyID: %s): %w", apperrors.ErrNotFound, lead.ID, companyID, findErr)
				return backoff.Permanent(txErr)
			}
			txErr = fmt.Errorf("%w: failed to lock lead row for update: %w", apperrors.ErrDatabase, findErr)
			return txErr
		}

		updateResult := tx.Model(&existingLead).Updates(lead)
		if updateResult.Error != nil {
			txErr = checkConstraintViolation(updateResult.Error)
			return txErr
		}
		if updateResult.RowsAffected == 0 {
			logger.FromContext(ctx).Warn("UpdateLead resulted in 0 rows affected, potentially no change", zap.String("lead_id", lead.ID))
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit update transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpdateLead Commit", operation)
	observer.ObserveDbOperationDuration("update", "lead", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to update lead after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindLeadByID finds a lead by its ID.
func (r *PostgresRepo) FindLeadByID(ctx context.Context, id string) (*model.Lead, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var lead model.Lead
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ? AND company_id = ?", id, companyID).First(&lead)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: lead_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindLeadByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "lead", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		loggerCtx.Error("Failed to find lead by ID after retries",
			zap.String("lead_id", id),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &lead, nil
}

// FindLeadByEmail finds a lead by its email address.
func (r *PostgresRepo) FindLeadByEmail(ctx context.Context, email string) (*model.Lead, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var lead model.Lead
	operation := func() error {
		if email == "" {
			return backoff.Permanent(fmt.Errorf("%w: email cannot be empty for FindLeadByEmail", apperrors.ErrBadRequest))
		}
		result := r.db.WithContext(ctx).Where("email = ? AND company_id = ?", email, companyID).First(&lead)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return backoff.Permanent(fmt.Errorf("%w: email %s: %w", apperrors.ErrNotFound, email, result.Error))
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindLeadByEmail", operation)
	observer.ObserveDbOperationDuration("find_by_email", "lead", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) || errors.Is(findErr, apperrors.ErrBadRequest) {
			return nil, findErr
		}
		loggerCtx.Error("Failed to find lead by email after retries",
			zap.String("email", email),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &lead, nil
}

// FindLeadsByStatusPaginated finds leads with a given status, ordered by creation time.
func (r *PostgresRepo) FindLeadsByStatusPaginated(ctx context.Context, status string, limit, offset int) ([]model.Lead, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var leads []model.Lead
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("status = ? AND company_id = ?", status, companyID).
			Order("created_at ASC").
			Limit(limit).
			Offset(offset).
			Find(&leads)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil // Success, even if no records found
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindLeadsByStatusPaginated", operation)
	observer.ObserveDbOperationDuration("find_by_status", "lead", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		loggerCtx.Error("Failed to find leads by status after retries",
			zap.String("status", status),
			zap.String("company_id", companyID),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
			zap.Error(findErr))
		return nil, findErr
	}
	if leads == nil { // Ensure empty slice is returned, not nil
		return []model.Lead{}, nil
	}
	return leads, nil
}

// BulkUpsertLeads performs a bulk upsert operation for lead records.
func (r *PostgresRepo) BulkUpsertLeads(ctx context.Context, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	// Filter leads to only include those matching the tenant ID
	validLeads := make([]model.Lead, 0, len(leads))
	for i := range leads {
		if leads[i].CompanyID != companyID {
			loggerCtx.Warn("Skipping lead in bulk upsert due to mismatched CompanyID",
				zap.String("lead_email", leads[i].Email),
				zap.String("lead_company_id", leads[i].CompanyID),
				zap.String("expected_company_id", companyID))
			continue
		}
		if leads[i].ID == "" {
			leads[i].ID = uuid.New().String()
		}
		leads[i].UpdatedAt = utils.Now()
		validLeads = append(validLeads, leads[i])
	}

	if len(validLeads) == 0 {
		loggerCtx.Info("No valid leads found for bulk upsert after tenant ID filtering")
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

		// Relies on the partial unique index on email.
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns(model.LeadUpdateColumns()),
		}).Create(&validLeads)

		if result.Error != nil {
			txErr = fmt.Errorf("%w: bulk upsert failed: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit bulk upsert transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		loggerCtx.Info("Bulk upsert successful", zap.Int("leads_processed", len(validLeads)), zap.Int64("rows_affected", result.RowsAffected))
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "BulkUpsertLeads Commit", operation)
	observer.ObserveDbOperationDuration("bulk_upsert", "lead", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to bulk upsert leads after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}
