package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

func openTouchpoint(id string, scheduledAt time.Time) model.Touchpoint {
	return model.Touchpoint{
		ID:          id,
		CompanyID:   testCompanyID,
		CampaignID:  "camp-1",
		LeadID:      "lead-1",
		Type:        model.StepTypeEmail,
		ScheduledAt: &scheduledAt,
	}
}

func TestDailyQueue_ClassifiesDueTodayAndOverdue(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	now := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	tomorrow := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

	open := []model.Touchpoint{
		openTouchpoint("tp-today", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		openTouchpoint("tp-overdue", time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC)),
	}
	f.touchpointRepo.On("FindOpenScheduledBefore", mock.Anything, tomorrow).Return(open, nil)

	result, err := f.service.DailyQueue(ctx, now)
	require.NoError(t, err)

	require.Len(t, result.DueToday, 1)
	assert.Equal(t, "tp-today", result.DueToday[0].ID)
	require.Len(t, result.Overdue, 1)
	assert.Equal(t, "tp-overdue", result.Overdue[0].ID)
}

func TestDailyQueue_EmptyStorage(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	f.touchpointRepo.On("FindOpenScheduledBefore", mock.Anything, mock.Anything).
		Return([]model.Touchpoint{}, nil)

	result, err := f.service.DailyQueue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, result.DueToday)
	assert.Empty(t, result.Overdue)
}

func TestDailyQueue_StorageErrorIsRetryable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.touchpointRepo.On("FindOpenScheduledBefore", mock.Anything, mock.Anything).
		Return(nil, apperrors.ErrDatabase)

	result, err := f.service.DailyQueue(ctx, time.Now().UTC())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestCompleteTouchpoint_Success(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	completedAt := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	completed := openTouchpoint("tp-1", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	completed.CompletedAt = &completedAt
	completed.Outcome = "connected"

	f.touchpointRepo.On("MarkCompleted", mock.Anything, "tp-1", mock.Anything, "connected").
		Return(&completed, nil)

	got, err := f.service.CompleteTouchpoint(ctx, "tp-1", "connected")
	require.NoError(t, err)
	assert.Equal(t, "connected", got.Outcome)
	require.NotNil(t, got.CompletedAt)
}

func TestCompleteTouchpoint_EmptyOutcomeRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	got, err := f.service.CompleteTouchpoint(ctx, "tp-1", "")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsBadRequestError(err))
	f.touchpointRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteTouchpoint_AlreadyCompletedConflict(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.touchpointRepo.On("MarkCompleted", mock.Anything, "tp-1", mock.Anything, "connected").
		Return(nil, apperrors.ErrConflict)

	got, err := f.service.CompleteTouchpoint(ctx, "tp-1", "connected")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, apperrors.IsConflictError(err))
}
