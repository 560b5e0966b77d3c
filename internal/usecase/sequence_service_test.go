package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

func TestCreateSequence_Success(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	sequence := threeStepSequence()
	sequence.ID = ""
	f.sequenceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	err := f.service.CreateSequence(ctx, sequence)
	require.NoError(t, err)
	assert.Equal(t, testCompanyID, sequence.CompanyID)
	f.sequenceRepo.AssertCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateSequence_FillsCompanyFromTenant(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	sequence := threeStepSequence()
	sequence.CompanyID = ""
	f.sequenceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	err := f.service.CreateSequence(ctx, sequence)
	require.NoError(t, err)
	assert.Equal(t, testCompanyID, sequence.CompanyID)
}

func TestCreateSequence_DuplicateStepOrderRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	sequence := threeStepSequence()
	sequence.Steps[2].StepOrder = 2 // Collides with step-2

	err := f.service.CreateSequence(ctx, sequence)
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsBadRequestError(err))
	f.sequenceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateSequence_InvalidStepTypeRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	sequence := threeStepSequence()
	sequence.Steps[0].Type = "carrier_pigeon"

	err := f.service.CreateSequence(ctx, sequence)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	f.sequenceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreateSequence_TenantMismatchRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	sequence := threeStepSequence()
	sequence.CompanyID = "other-company"

	err := f.service.CreateSequence(ctx, sequence)
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorizedError(err))
}

func TestCreateCampaign_Success(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.sequenceRepo.On("FindByID", mock.Anything, "seq-1").Return(threeStepSequence(), nil)
	f.campaignRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	campaign := &model.Campaign{
		CompanyID:  testCompanyID,
		Name:       "Spring Push",
		SequenceID: "seq-1",
	}
	err := f.service.CreateCampaign(ctx, campaign)
	require.NoError(t, err)
	assert.Equal(t, CampaignStatusActive, campaign.Status)
}

func TestCreateCampaign_MissingSequenceRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.sequenceRepo.On("FindByID", mock.Anything, "seq-ghost").
		Return(nil, apperrors.ErrNotFound)

	campaign := &model.Campaign{
		CompanyID:  testCompanyID,
		Name:       "Orphan",
		SequenceID: "seq-ghost",
	}
	err := f.service.CreateCampaign(ctx, campaign)
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsBadRequestError(err))
	f.campaignRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSetCampaignStatus(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	t.Run("valid status", func(t *testing.T) {
		f.campaignRepo.On("UpdateStatus", mock.Anything, "camp-1", CampaignStatusPaused).Return(nil)

		err := f.service.SetCampaignStatus(ctx, "camp-1", CampaignStatusPaused)
		require.NoError(t, err)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		err := f.service.SetCampaignStatus(ctx, "camp-1", "SHIPPED")
		require.Error(t, err)
		assert.True(t, apperrors.IsBadRequestError(err))
	})
}
