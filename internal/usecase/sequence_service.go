package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/validator"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
)

// CreateSequence validates and persists a new outreach sequence with its
// steps. Step orders must be unique within the sequence; the database enforces
// the same rule with a unique index, this check just fails earlier with a
// clearer message.
func (s *OutreachService) CreateSequence(ctx context.Context, sequence *model.OutreachSequence) error {
	log := logger.FromContext(ctx)

	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return apperrors.NewFatal(err, "missing tenant for sequence creation")
	}
	if sequence.CompanyID == "" {
		sequence.CompanyID = companyID
	}
	if err := validateCompanyTenant(ctx, sequence.CompanyID); err != nil {
		return apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, err.Error()), "tenant validation failed for sequence")
	}

	if err := validator.Validate(sequence); err != nil {
		return apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error()), "invalid sequence")
	}
	for _, step := range sequence.Steps {
		if err := validator.Validate(&step); err != nil {
			return apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error()), "invalid step at order %d", step.StepOrder)
		}
	}

	seen := make(map[int]bool, len(sequence.Steps))
	for _, step := range sequence.Steps {
		if seen[step.StepOrder] {
			return apperrors.NewFatal(
				fmt.Errorf("%w: duplicate step order %d", apperrors.ErrBadRequest, step.StepOrder),
				"sequence steps must have unique orders",
			)
		}
		seen[step.StepOrder] = true
	}

	if err := s.sequenceRepo.Save(ctx, *sequence); err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewFatal(err, "sequence already exists")
		}
		return apperrors.NewRetryable(err, "failed to save sequence '%s'", sequence.Name)
	}

	log.Info("Sequence created",
		zap.String("name", sequence.Name),
		zap.Int("steps", len(sequence.Steps)),
	)
	return nil
}

// GetSequence loads a sequence with its steps ordered by step order.
func (s *OutreachService) GetSequence(ctx context.Context, id string) (*model.OutreachSequence, error) {
	sequence, err := s.sequenceRepo.FindByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, err
		}
		return nil, apperrors.NewRetryable(err, "failed to load sequence '%s'", id)
	}
	return sequence, nil
}

// ListSequences returns the tenant's sequences without their steps.
func (s *OutreachService) ListSequences(ctx context.Context) ([]model.OutreachSequence, error) {
	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, apperrors.NewFatal(err, "missing tenant for sequence listing")
	}
	sequences, err := s.sequenceRepo.FindByCompanyID(ctx, companyID)
	if err != nil {
		return nil, apperrors.NewRetryable(err, "failed to list sequences for company '%s'", companyID)
	}
	return sequences, nil
}
