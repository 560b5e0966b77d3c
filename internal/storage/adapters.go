package storage

import (
	"context"
	"time"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

// LeadRepoAdapter adapts the PostgresRepo to the LeadRepo interface
type LeadRepoAdapter struct {
	postgres *PostgresRepo
}

// NewLeadRepoAdapter creates a new lead repository adapter
func NewLeadRepoAdapter(postgres *PostgresRepo) LeadRepo {
	return &LeadRepoAdapter{postgres: postgres}
}

// Save saves a lead
func (a *LeadRepoAdapter) Save(ctx context.Context, lead model.Lead) error {
	return a.postgres.SaveLead(ctx, lead)
}

// Update updates a lead
func (a *LeadRepoAdapter) Update(ctx context.Context, lead model.Lead) error {
	return a.postgres.UpdateLead(ctx, lead)
}

// FindByID finds a lead by ID
func (a *LeadRepoAdapter) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	return a.postgres.FindLeadByID(ctx, id)
}

// FindByEmail finds a lead by email address
func (a *LeadRepoAdapter) FindByEmail(ctx context.Context, email string) (*model.Lead, error) {
	return a.postgres.FindLeadByEmail(ctx, email)
}

// FindByStatusPaginated finds leads by status with pagination
func (a *LeadRepoAdapter) FindByStatusPaginated(ctx context.Context, status string, limit, offset int) ([]model.Lead, error) {
	return a.postgres.FindLeadsByStatusPaginated(ctx, status, limit, offset)
}

// BulkUpsert performs a bulk upsert of leads
func (a *LeadRepoAdapter) BulkUpsert(ctx context.Context, leads []model.Lead) error {
	return a.postgres.BulkUpsertLeads(ctx, leads)
}

func (a *LeadRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// DistrictContactRepoAdapter adapts the PostgresRepo to the DistrictContactRepo interface
type DistrictContactRepoAdapter struct {
	postgres *PostgresRepo
}

// NewDistrictContactRepoAdapter creates a new district contact repository adapter
func NewDistrictContactRepoAdapter(postgres *PostgresRepo) DistrictContactRepo {
	return &DistrictContactRepoAdapter{postgres: postgres}
}

// Save saves a district contact
func (a *DistrictContactRepoAdapter) Save(ctx context.Context, contact model.DistrictContact) error {
	return a.postgres.SaveDistrictContact(ctx, contact)
}

// FindByID finds a district contact by ID
func (a *DistrictContactRepoAdapter) FindByID(ctx context.Context, id string) (*model.DistrictContact, error) {
	return a.postgres.FindDistrictContactByID(ctx, id)
}

// BulkUpsert performs a bulk upsert of district contacts
func (a *DistrictContactRepoAdapter) BulkUpsert(ctx context.Context, contacts []model.DistrictContact) error {
	return a.postgres.BulkUpsertDistrictContacts(ctx, contacts)
}

func (a *DistrictContactRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// SequenceRepoAdapter adapts the PostgresRepo to the SequenceRepo interface
type SequenceRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSequenceRepoAdapter creates a new sequence repository adapter
func NewSequenceRepoAdapter(postgres *PostgresRepo) SequenceRepo {
	return &SequenceRepoAdapter{postgres: postgres}
}

// Save creates a sequence with its steps
func (a *SequenceRepoAdapter) Save(ctx context.Context, sequence model.OutreachSequence) error {
	return a.postgres.SaveSequence(ctx, sequence)
}

// FindByID finds a sequence by ID with its steps preloaded
func (a *SequenceRepoAdapter) FindByID(ctx context.Context, id string) (*model.OutreachSequence, error) {
	return a.postgres.FindSequenceByID(ctx, id)
}

// FindByCompanyID lists a tenant's sequences
func (a *SequenceRepoAdapter) FindByCompanyID(ctx context.Context, companyID string) ([]model.OutreachSequence, error) {
	return a.postgres.FindSequencesByCompanyID(ctx, companyID)
}

func (a *SequenceRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// CampaignRepoAdapter adapts the PostgresRepo to the CampaignRepo interface
type CampaignRepoAdapter struct {
	postgres *PostgresRepo
}

// NewCampaignRepoAdapter creates a new campaign repository adapter
func NewCampaignRepoAdapter(postgres *PostgresRepo) CampaignRepo {
	return &CampaignRepoAdapter{postgres: postgres}
}

// Save saves a campaign
func (a *CampaignRepoAdapter) Save(ctx context.Context, campaign model.Campaign) error {
	return a.postgres.SaveCampaign(ctx, campaign)
}

// FindByID finds a campaign by ID
func (a *CampaignRepoAdapter) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	return a.postgres.FindCampaignByID(ctx, id)
}

// UpdateStatus updates a campaign's status
func (a *CampaignRepoAdapter) UpdateStatus(ctx context.Context, campaignID string, status string) error {
	return a.postgres.UpdateCampaignStatus(ctx, campaignID, status)
}

func (a *CampaignRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// TouchpointRepoAdapter adapts the PostgresRepo to the TouchpointRepo interface
type TouchpointRepoAdapter struct {
	postgres *PostgresRepo
}

// NewTouchpointRepoAdapter creates a new touchpoint repository adapter
func NewTouchpointRepoAdapter(postgres *PostgresRepo) TouchpointRepo {
	return &TouchpointRepoAdapter{postgres: postgres}
}

// BulkInsert inserts touchpoints in chunks
func (a *TouchpointRepoAdapter) BulkInsert(ctx context.Context, touchpoints []model.Touchpoint, chunkSize int) error {
	return a.postgres.BulkInsertTouchpoints(ctx, touchpoints, chunkSize)
}

// FindByID finds a touchpoint by ID
func (a *TouchpointRepoAdapter) FindByID(ctx context.Context, id string) (*model.Touchpoint, error) {
	return a.postgres.FindTouchpointByID(ctx, id)
}

// FindByCampaignID finds touchpoints by campaign ID
func (a *TouchpointRepoAdapter) FindByCampaignID(ctx context.Context, campaignID string) ([]model.Touchpoint, error) {
	return a.postgres.FindTouchpointsByCampaignID(ctx, campaignID)
}

// FindOpenScheduledBefore finds open touchpoints scheduled before an instant
func (a *TouchpointRepoAdapter) FindOpenScheduledBefore(ctx context.Context, before time.Time) ([]model.Touchpoint, error) {
	return a.postgres.FindOpenTouchpointsScheduledBefore(ctx, before)
}

// MarkCompleted records the completion of an open touchpoint
func (a *TouchpointRepoAdapter) MarkCompleted(ctx context.Context, id string, completedAt time.Time, outcome string) (*model.Touchpoint, error) {
	return a.postgres.MarkTouchpointCompleted(ctx, id, completedAt, outcome)
}

func (a *TouchpointRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

// Ensure adapters implement the interfaces
var _ LeadRepo = (*LeadRepoAdapter)(nil)
var _ DistrictContactRepo = (*DistrictContactRepoAdapter)(nil)
var _ SequenceRepo = (*SequenceRepoAdapter)(nil)
var _ CampaignRepo = (*CampaignRepoAdapter)(nil)
var _ TouchpointRepo = (*TouchpointRepoAdapter)(nil)
