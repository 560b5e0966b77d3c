package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

// --- LeadRepo Mock ---

// LeadRepoMock mocks the LeadRepo interface
type LeadRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *LeadRepoMock) Save(ctx context.Context, lead model.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// Update mocks the Update method
func (m *LeadRepoMock) Update(ctx context.Context, lead model.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *LeadRepoMock) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

// FindByEmail mocks the FindByEmail method
func (m *LeadRepoMock) FindByEmail(ctx context.Context, email string) (*model.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

// FindByStatusPaginated mocks the FindByStatusPaginated method
func (m *LeadRepoMock) FindByStatusPaginated(ctx context.Context, status string, limit, offset int) ([]model.Lead, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

// BulkUpsert mocks the BulkUpsert method
func (m *LeadRepoMock) BulkUpsert(ctx context.Context, leads []model.Lead) error {
	args := m.Called(ctx, leads)
	return args.Error(0)
}

func (m *LeadRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- DistrictContactRepo Mock ---

// DistrictContactRepoMock mocks the DistrictContactRepo interface
type DistrictContactRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *DistrictContactRepoMock) Save(ctx context.Context, contact model.DistrictContact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *DistrictContactRepoMock) FindByID(ctx context.Context, id string) (*model.DistrictContact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DistrictContact), args.Error(1)
}

// BulkUpsert mocks the BulkUpsert method
func (m *DistrictContactRepoMock) BulkUpsert(ctx context.Context, contacts []model.DistrictContact) error {
	args := m.Called(ctx, contacts)
	return args.Error(0)
}

func (m *DistrictContactRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- SequenceRepo Mock ---

// SequenceRepoMock mocks the SequenceRepo interface
type SequenceRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *SequenceRepoMock) Save(ctx context.Context, sequence model.OutreachSequence) error {
	args := m.Called(ctx, sequence)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *SequenceRepoMock) FindByID(ctx context.Context, id string) (*model.OutreachSequence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OutreachSequence), args.Error(1)
}

// FindByCompanyID mocks the FindByCompanyID method
func (m *SequenceRepoMock) FindByCompanyID(ctx context.Context, companyID string) ([]model.OutreachSequence, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OutreachSequence), args.Error(1)
}

func (m *SequenceRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- CampaignRepo Mock ---

// CampaignRepoMock mocks the CampaignRepo interface
type CampaignRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *CampaignRepoMock) Save(ctx context.Context, campaign model.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *CampaignRepoMock) FindByID(ctx context.Context, id string) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Campaign), args.Error(1)
}

// UpdateStatus mocks the UpdateStatus method
func (m *CampaignRepoMock) UpdateStatus(ctx context.Context, campaignID string, status string) error {
	args := m.Called(ctx, campaignID, status)
	return args.Error(0)
}

func (m *CampaignRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- TouchpointRepo Mock ---

// TouchpointRepoMock mocks the TouchpointRepo interface
type TouchpointRepoMock struct {
	mock.Mock
}

// BulkInsert mocks the BulkInsert method
func (m *TouchpointRepoMock) BulkInsert(ctx context.Context, touchpoints []model.Touchpoint, chunkSize int) error {
	args := m.Called(ctx, touchpoints, chunkSize)
	return args.Error(0)
}

// FindByID mocks the FindByID method
func (m *TouchpointRepoMock) FindByID(ctx context.Context, id string) (*model.Touchpoint, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Touchpoint), args.Error(1)
}

// FindByCampaignID mocks the FindByCampaignID method
func (m *TouchpointRepoMock) FindByCampaignID(ctx context.Context, campaignID string) ([]model.Touchpoint, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Touchpoint), args.Error(1)
}

// FindOpenScheduledBefore mocks the FindOpenScheduledBefore method
func (m *TouchpointRepoMock) FindOpenScheduledBefore(ctx context.Context, before time.Time) ([]model.Touchpoint, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Touchpoint), args.Error(1)
}

// MarkCompleted mocks the MarkCompleted method
func (m *TouchpointRepoMock) MarkCompleted(ctx context.Context, id string, completedAt time.Time, outcome string) (*model.Touchpoint, error) {
	args := m.Called(ctx, id, completedAt, outcome)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Touchpoint), args.Error(1)
}

func (m *TouchpointRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
