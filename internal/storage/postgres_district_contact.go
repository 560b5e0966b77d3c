package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// --- District Contact Repository Methods ---

// SaveDistrictContact saves or updates a district contact record.
func (r *PostgresRepo) SaveDistrictContact(ctx context.Context, contact model.DistrictContact) error {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	if companyID != contact.CompanyID {
		return fmt.Errorf("%w: contact CompanyID %s does not match tenant ID %s", apperrors.ErrBadRequest, contact.CompanyID, companyID)
	}
	if contact.ID == "" {
		contact.ID = uuid.New().String()
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

		var existing model.DistrictContact
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND company_id = ?", contact.ID, companyID).
			First(&existing)
		findErr := result.Error

		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				if createErr := tx.Create(&contact).Error; createErr != nil {
					txErr = checkConstraintViolation(createErr)
					return txErr
				}
			} else {
				txErr = fmt.Errorf("%w: failed to lock district contact row: %w", apperrors.ErrDatabase, findErr)
				return txErr
			}
		} else {
			if updateErr := tx.Model(&existing).Updates(contact).Error; updateErr != nil {
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
	commitErr := retryableOperation(ctx, commitPolicy, "SaveDistrictContact Commit", operation)
	observer.ObserveDbOperationDuration("save", "district_contact", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save district contact after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindDistrictContactByID finds a district contact by its ID.
func (r *PostgresRepo) FindDistrictContactByID(ctx context.Context, id string) (*model.DistrictContact, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	var contact model.DistrictContact
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ? AND company_id = ?", id, companyID).First(&contact)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: district_contact_id %s: %w", apperrors.ErrNotFound, id, result.Error)
			}
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindDistrictContactByID", operation)
	observer.ObserveDbOperationDuration("find_by_id", "district_contact", companyID, time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		loggerCtx.Error("Failed to find district contact by ID after retries",
			zap.String("district_contact_id", id),
			zap.String("company_id", companyID),
			zap.Error(findErr))
		return nil, findErr
	}
	return &contact, nil
}

// BulkUpsertDistrictContacts performs a bulk upsert operation for district contact records.
func (r *PostgresRepo) BulkUpsertDistrictContacts(ctx context.Context, contacts []model.DistrictContact) error {
	if len(contacts) == 0 {
		return nil
	}
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to get tenant ID from context: %w", apperrors.ErrUnauthorized, err)
	}
	loggerCtx := logger.FromContext(ctx)

	validContacts := make([]model.DistrictContact, 0, len(contacts))
	for i := range contacts {
		if contacts[i].CompanyID != companyID {
			loggerCtx.Warn("Skipping district contact in bulk upsert due to mismatched CompanyID",
				zap.String("contact_email", contacts[i].Email),
				zap.String("contact_company_id", contacts[i].CompanyID),
				zap.String("expected_company_id", companyID))
			continue
		}
		if contacts[i].ID == "" {
			contacts[i].ID = uuid.New().String()
		}
		contacts[i].UpdatedAt = utils.Now()
		validContacts = append(validContacts, contacts[i])
	}

	if len(validContacts) == 0 {
		loggerCtx.Info("No valid district contacts found for bulk upsert after tenant ID filtering")
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

		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "title", "district_name", "email", "phone", "linkedin_url", "city", "updated_at", "last_metadata"}),
		}).Create(&validContacts)

		if result.Error != nil {
			txErr = fmt.Errorf("%w: bulk upsert failed: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit bulk upsert transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		loggerCtx.Info("Bulk upsert successful", zap.Int("contacts_processed", len(validContacts)), zap.Int64("rows_affected", result.RowsAffected))
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "BulkUpsertDistrictContacts Commit", operation)
	observer.ObserveDbOperationDuration("bulk_upsert", "district_contact", companyID, time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to bulk upsert district contacts after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}
