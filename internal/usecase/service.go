package usecase

import (
	"context"
	"fmt"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/events"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/storage"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
)

// OutreachService implements enrollment processing, sequence and campaign
// management, and the daily touchpoint queue.
type OutreachService struct {
	leadRepo            storage.LeadRepo
	districtContactRepo storage.DistrictContactRepo
	sequenceRepo        storage.SequenceRepo
	campaignRepo        storage.CampaignRepo
	touchpointRepo      storage.TouchpointRepo
	enrollmentWorker    IEnrollmentWorker
	publisher           events.Publisher
	batchCutoffHour     int
}

// NewOutreachService creates a new outreach service
func NewOutreachService(
	leadRepo storage.LeadRepo,
	districtContactRepo storage.DistrictContactRepo,
	sequenceRepo storage.SequenceRepo,
	campaignRepo storage.CampaignRepo,
	touchpointRepo storage.TouchpointRepo,
	enrollmentWorker IEnrollmentWorker,
	publisher events.Publisher,
	batchCutoffHour int,
) *OutreachService {
	return &OutreachService{
		leadRepo:            leadRepo,
		districtContactRepo: districtContactRepo,
		sequenceRepo:        sequenceRepo,
		campaignRepo:        campaignRepo,
		touchpointRepo:      touchpointRepo,
		enrollmentWorker:    enrollmentWorker,
		publisher:           publisher,
		batchCutoffHour:     batchCutoffHour,
	}
}

// validateCompanyTenant validates that the company field matches the tenant ID from context
func validateCompanyTenant(ctx context.Context, company string) error {
	if company == "" {
		return nil // Skip validation if company is not provided
	}

	companyID, err := tenant.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get tenant ID: %w", err)
	}

	if company != companyID {
		return fmt.Errorf("company (%s) does not match tenant ID (%s)", company, companyID)
	}

	return nil
}
