package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/apperrors"
	eventmock "gitlab.com/leadpilot/api/outreach-crm-service/internal/events/mock"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	storagemock "gitlab.com/leadpilot/api/outreach-crm-service/internal/storage/mock"
	"gitlab.com/leadpilot/api/outreach-crm-service/internal/tenant"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/logger"
)

const testCompanyID = "company-1"

// workerStub executes enrollment tasks synchronously so tests control the
// per-recipient results without real pool timing.
type workerStub struct {
	submitted []EnrollmentTaskData
	process   func(task EnrollmentTaskData)
	submitErr error
}

func (w *workerStub) SubmitTask(task EnrollmentTaskData) error {
	if w.submitErr != nil {
		return w.submitErr
	}
	w.submitted = append(w.submitted, task)
	if w.process != nil {
		w.process(task)
	}
	task.WG.Done()
	return nil
}

func (w *workerStub) Stop() {}

type serviceFixture struct {
	campaignRepo   *storagemock.CampaignRepoMock
	sequenceRepo   *storagemock.SequenceRepoMock
	touchpointRepo *storagemock.TouchpointRepoMock
	publisher      *eventmock.PublisherMock
	worker         *workerStub
	service        *OutreachService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		campaignRepo:   new(storagemock.CampaignRepoMock),
		sequenceRepo:   new(storagemock.SequenceRepoMock),
		touchpointRepo: new(storagemock.TouchpointRepoMock),
		publisher:      new(eventmock.PublisherMock),
		worker:         &workerStub{},
	}
	f.service = NewOutreachService(
		new(storagemock.LeadRepoMock),
		new(storagemock.DistrictContactRepoMock),
		f.sequenceRepo,
		f.campaignRepo,
		f.touchpointRepo,
		f.worker,
		f.publisher,
		17,
	)
	return f
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx := tenant.WithCompanyID(context.Background(), testCompanyID)
	return logger.WithLogger(ctx, zaptest.NewLogger(t))
}

func activeCampaign() *model.Campaign {
	return &model.Campaign{
		ID:         "camp-1",
		CompanyID:  testCompanyID,
		Name:       "Spring Push",
		SequenceID: "seq-1",
		Status:     CampaignStatusActive,
	}
}

func threeStepSequence() *model.OutreachSequence {
	return &model.OutreachSequence{
		ID:        "seq-1",
		CompanyID: testCompanyID,
		Name:      "Default Outreach",
		Steps: []model.OutreachStep{
			{ID: "step-1", SequenceID: "seq-1", StepOrder: 1, Type: model.StepTypeEmail, DayOffset: 0},
			{ID: "step-2", SequenceID: "seq-1", StepOrder: 2, Type: model.StepTypeCall, DayOffset: 2},
			{ID: "step-3", SequenceID: "seq-1", StepOrder: 3, Type: model.StepTypeEmail, DayOffset: 5},
		},
	}
}

func enrollmentRequest() *model.EnrollmentRequestPayload {
	return &model.EnrollmentRequestPayload{
		RequestID:  "req-1",
		CompanyID:  testCompanyID,
		CampaignID: "camp-1",
		LeadIDs:    []string{"lead-1", "lead-2"},
	}
}

func TestProcessEnrollmentRequest_Success(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.campaignRepo.On("FindByID", mock.Anything, "camp-1").Return(activeCampaign(), nil)
	f.sequenceRepo.On("FindByID", mock.Anything, "seq-1").Return(threeStepSequence(), nil)

	f.worker.process = func(task EnrollmentTaskData) {
		task.Result.Generated = 3
		task.Result.Persisted = 3
		task.Result.Status = "success"
	}

	var published *model.EnrollmentCompletedPayload
	f.publisher.On("PublishEnrollmentCompleted", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(*model.EnrollmentCompletedPayload)
		}).
		Return(nil)

	err := f.service.ProcessEnrollmentRequest(ctx, enrollmentRequest())
	require.NoError(t, err)

	require.Len(t, f.worker.submitted, 2)
	assert.Equal(t, model.LeadRecipient("lead-1"), f.worker.submitted[0].Recipient)
	assert.Equal(t, model.LeadRecipient("lead-2"), f.worker.submitted[1].Recipient)

	require.NotNil(t, published)
	assert.Equal(t, "req-1", published.RequestID)
	assert.Equal(t, 2, published.Recipients)
	assert.Equal(t, 6, published.Generated)
	assert.Equal(t, 6, published.Persisted)
	assert.Equal(t, 0, published.Failed)
}

func TestProcessEnrollmentRequest_CampaignNotFound(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.campaignRepo.On("FindByID", mock.Anything, "camp-1").
		Return(nil, apperrors.ErrNotFound)

	err := f.service.ProcessEnrollmentRequest(ctx, enrollmentRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.Empty(t, f.worker.submitted)
	f.publisher.AssertNotCalled(t, "PublishEnrollmentCompleted", mock.Anything, mock.Anything)
}

func TestProcessEnrollmentRequest_InactiveCampaign(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	paused := activeCampaign()
	paused.Status = CampaignStatusPaused
	f.campaignRepo.On("FindByID", mock.Anything, "camp-1").Return(paused, nil)

	err := f.service.ProcessEnrollmentRequest(ctx, enrollmentRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsConflictError(err))
	assert.Empty(t, f.worker.submitted)
}

func TestProcessEnrollmentRequest_TenantMismatch(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	payload := enrollmentRequest()
	payload.CompanyID = "other-company"

	err := f.service.ProcessEnrollmentRequest(ctx, payload)
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	assert.True(t, apperrors.IsUnauthorizedError(err))
}

func TestProcessEnrollmentRequest_PartialFailureIsRetryable(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.campaignRepo.On("FindByID", mock.Anything, "camp-1").Return(activeCampaign(), nil)
	f.sequenceRepo.On("FindByID", mock.Anything, "seq-1").Return(threeStepSequence(), nil)

	f.worker.process = func(task EnrollmentTaskData) {
		if task.Recipient.ID == "lead-2" {
			task.Result.Status = "failure_persist"
			task.Result.Err = errors.New("db down")
			return
		}
		task.Result.Generated = 3
		task.Result.Persisted = 3
		task.Result.Status = "success"
	}

	var published *model.EnrollmentCompletedPayload
	f.publisher.On("PublishEnrollmentCompleted", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(*model.EnrollmentCompletedPayload)
		}).
		Return(nil)

	err := f.service.ProcessEnrollmentRequest(ctx, enrollmentRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	assert.True(t, apperrors.IsPartialFailureError(err))

	// The completion event still reports the partial outcome
	require.NotNil(t, published)
	assert.Equal(t, 1, published.Failed)
	assert.Equal(t, 3, published.Persisted)
}

func TestProcessEnrollmentRequest_EmptySequenceStillCompletes(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.campaignRepo.On("FindByID", mock.Anything, "camp-1").Return(activeCampaign(), nil)
	empty := &model.OutreachSequence{ID: "seq-1", CompanyID: testCompanyID, Name: "Empty"}
	f.sequenceRepo.On("FindByID", mock.Anything, "seq-1").Return(empty, nil)

	var published *model.EnrollmentCompletedPayload
	f.publisher.On("PublishEnrollmentCompleted", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(*model.EnrollmentCompletedPayload)
		}).
		Return(nil)

	err := f.service.ProcessEnrollmentRequest(ctx, enrollmentRequest())
	require.NoError(t, err)

	assert.Empty(t, f.worker.submitted)
	require.NotNil(t, published)
	assert.Equal(t, 2, published.Recipients)
	assert.Equal(t, 0, published.Generated)
}

func TestEnrollRecipient_SingleRecipient(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testContext(t)

	f.campaignRepo.On("FindByID", mock.Anything, "camp-1").Return(activeCampaign(), nil)
	f.sequenceRepo.On("FindByID", mock.Anything, "seq-1").Return(threeStepSequence(), nil)

	f.worker.process = func(task EnrollmentTaskData) {
		task.Result.Generated = 3
		task.Result.Persisted = 3
		task.Result.Status = "success"
	}

	startDate := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	result, err := f.service.EnrollRecipient(ctx, "camp-1", model.LeadRecipient("lead-1"), &startDate)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Persisted)

	require.Len(t, f.worker.submitted, 1)
	assert.Equal(t, startDate, f.worker.submitted[0].StartDate)
}

func TestResolveStartDate(t *testing.T) {
	f := newServiceFixture(t)

	override := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	campaignStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	t.Run("request override wins", func(t *testing.T) {
		campaign := activeCampaign()
		campaign.StartDate = &campaignStart
		payload := enrollmentRequest()
		payload.StartDate = &override

		got := f.service.resolveStartDate(campaign, payload)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("campaign start date used when no override", func(t *testing.T) {
		campaign := activeCampaign()
		campaign.StartDate = &campaignStart

		got := f.service.resolveStartDate(campaign, enrollmentRequest())
		assert.Equal(t, campaignStart, got)
	})

	t.Run("falls back to next batch start", func(t *testing.T) {
		got := f.service.resolveStartDate(activeCampaign(), enrollmentRequest())
		// Date-only and never on a weekend
		assert.Equal(t, got, got.Truncate(24*time.Hour))
		weekday := got.Weekday()
		assert.NotEqual(t, time.Saturday, weekday)
		assert.NotEqual(t, time.Sunday, weekday)
	})
}
