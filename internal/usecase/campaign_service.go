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

// Campaign statuses. Only ACTIVE campaigns accept enrollments; the other
// states exist for operator bookkeeping.
const (
	CampaignStatusPaused    = "PAUSED"
	CampaignStatusCompleted = "COMPLETED"
)

var validCampaignStatuses = map[string]bool{
	CampaignStatusActive:    true,
	CampaignStatusPaused:    true,
	CampaignStatusCompleted: true,
}

// CreateCampaign validates and persists a new campaign. The referenced
// sequence must exist; a campaign bound to a missing sequence would fail
// every enrollment against it.
func (s *OutreachService) CreateCampaign(ctx context.Context, campaign *model.Campaign) error {
	log := logger.FromContext(ctx)

	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return apperrors.NewFatal(err, "missing tenant for campaign creation")
	}
	if campaign.CompanyID == "" {
		campaign.CompanyID = companyID
	}
	if err := validateCompanyTenant(ctx, campaign.CompanyID); err != nil {
		return apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, err.Error()), "tenant validation failed for campaign")
	}

	if err := validator.Validate(campaign); err != nil {
		return apperrors.NewFatal(fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error()), "invalid campaign")
	}
	if campaign.Status == "" {
		campaign.Status = CampaignStatusActive
	}
	if !validCampaignStatuses[campaign.Status] {
		return apperrors.NewFatal(
			fmt.Errorf("%w: unknown campaign status '%s'", apperrors.ErrBadRequest, campaign.Status),
			"invalid campaign status",
		)
	}

	if _, err := s.sequenceRepo.FindByID(ctx, campaign.SequenceID); err != nil {
		if apperrors.IsNotFoundError(err) {
			return apperrors.NewFatal(
				fmt.Errorf("%w: sequence '%s' does not exist", apperrors.ErrBadRequest, campaign.SequenceID),
				"campaign references missing sequence",
			)
		}
		return apperrors.NewRetryable(err, "failed to verify sequence '%s'", campaign.SequenceID)
	}

	if err := s.campaignRepo.Save(ctx, *campaign); err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewFatal(err, "campaign already exists")
		}
		return apperrors.NewRetryable(err, "failed to save campaign '%s'", campaign.Name)
	}

	log.Info("Campaign created",
		zap.String("name", campaign.Name),
		zap.String("sequence_id", campaign.SequenceID),
		zap.String("status", campaign.Status),
	)
	return nil
}

// GetCampaign loads a campaign by ID.
func (s *OutreachService) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	campaign, err := s.campaignRepo.FindByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return nil, err
		}
		return nil, apperrors.NewRetryable(err, "failed to load campaign '%s'", id)
	}
	return campaign, nil
}

// SetCampaignStatus transitions a campaign to a new status.
func (s *OutreachService) SetCampaignStatus(ctx context.Context, id, status string) error {
	if !validCampaignStatuses[status] {
		return apperrors.NewFatal(
			fmt.Errorf("%w: unknown campaign status '%s'", apperrors.ErrBadRequest, status),
			"invalid campaign status",
		)
	}

	if err := s.campaignRepo.UpdateStatus(ctx, id, status); err != nil {
		if apperrors.IsNotFoundError(err) {
			return err
		}
		return apperrors.NewRetryable(err, "failed to update status of campaign '%s'", id)
	}

	logger.FromContext(ctx).Info("Campaign status updated",
		zap.String("campaign_id", id),
		zap.String("status", status),
	)
	return nil
}
