package storage

import (
	"context"
	"time"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

// LeadRepo defines lead storage operations
type LeadRepo interface {
	Save(ctx context.Context, lead model.Lead) error
	Update(ctx context.Context, lead model.Lead) error
	FindByID(ctx context.Context, id string) (*model.Lead, error)
	FindByEmail(ctx context.Context, email string) (*model.Lead, error)
	FindByStatusPaginated(ctx context.Context, status string, limit, offset int) ([]model.Lead, error)
	BulkUpsert(ctx context.Context, leads []model.Lead) error
	Close(ctx context.Context) error
}

// DistrictContactRepo defines district contact storage operations
type DistrictContactRepo interface {
	Save(ctx context.Context, contact model.DistrictContact) error
	FindByID(ctx context.Context, id string) (*model.DistrictContact, error)
	BulkUpsert(ctx context.Context, contacts []model.DistrictContact) error
	Close(ctx context.Context) error
}

// SequenceRepo defines outreach sequence storage operations
type SequenceRepo interface {
	Save(ctx context.Context, sequence model.OutreachSequence) error
	FindByID(ctx context.Context, id string) (*model.OutreachSequence, error)
	FindByCompanyID(ctx context.Context, companyID string) ([]model.OutreachSequence, error)
	Close(ctx context.Context) error
}

// CampaignRepo defines campaign storage operations
type CampaignRepo interface {
	Save(ctx context.Context, campaign model.Campaign) error
	FindByID(ctx context.Context, id string) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID string, status string) error
	Close(ctx context.Context) error
}

// TouchpointRepo defines touchpoint storage operations
type TouchpointRepo interface {
	BulkInsert(ctx context.Context, touchpoints []model.Touchpoint, chunkSize int) error
	FindByID(ctx context.Context, id string) (*model.Touchpoint, error)
	FindByCampaignID(ctx context.Context, campaignID string) ([]model.Touchpoint, error)
	FindOpenScheduledBefore(ctx context.Context, before time.Time) ([]model.Touchpoint, error)
	MarkCompleted(ctx context.Context, id string, completedAt time.Time, outcome string) (*model.Touchpoint, error)
	Close(ctx context.Context) error
}
