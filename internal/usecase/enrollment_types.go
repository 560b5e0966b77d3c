package usecase

import (
	"context"
	"sync"
	"time"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

// EnrollmentTaskData holds the necessary data for enrolling one recipient.
type EnrollmentTaskData struct {
	Ctx       context.Context // Context derived for the task, NOT the original request context
	Campaign  model.Campaign
	Steps     []model.OutreachStep
	Recipient model.Recipient
	StartDate time.Time
	Result    *RecipientEnrollmentResult
	WG        *sync.WaitGroup
}

// RecipientEnrollmentResult captures the per-recipient outcome of an
// enrollment task. Generated counts scheduler output before channel
// filtering; Persisted counts rows written; the difference between them is
// Skipped plus failed chunks.
type RecipientEnrollmentResult struct {
	Generated int
	Persisted int
	Skipped   int
	Status    string
	Err       error
}

// IEnrollmentWorker defines the interface for the enrollment worker pool.
type IEnrollmentWorker interface {
	SubmitTask(taskData EnrollmentTaskData) error
	Stop()
}
