package model

import "time"

// EventType identifies the outreach events flowing through NATS.
type EventType string

const (
	// EventEnrollmentRequested asks the service to enroll recipients into a campaign.
	EventEnrollmentRequested EventType = "enrollment.requested"
	// EventEnrollmentCompleted reports the outcome of an enrollment run.
	EventEnrollmentCompleted EventType = "enrollment.completed"
	// EventTouchpointsScheduled reports touchpoints persisted for one recipient.
	EventTouchpointsScheduled EventType = "touchpoints.scheduled"
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	return string(e)
}

// EnrollmentRequestPayload is the body of an enrollment.requested message.
// Recipients are referenced by ID per kind; personalization and channel data
// are resolved from storage at processing time.
type EnrollmentRequestPayload struct {
	RequestID          string     `json:"request_id" validate:"required"`
	CompanyID          string     `json:"company_id" validate:"required"`
	CampaignID         string     `json:"campaign_id" validate:"required"`
	LeadIDs            []string   `json:"lead_ids,omitempty"`
	DistrictContactIDs []string   `json:"district_contact_ids,omitempty"`
	StartDate          *time.Time `json:"start_date,omitempty"` // Overrides the campaign start date when set
}

// Recipients expands the ID lists into tagged recipient identities.
func (p *EnrollmentRequestPayload) Recipients() []Recipient {
	recipients := make([]Recipient, 0, len(p.LeadIDs)+len(p.DistrictContactIDs))
	for _, id := range p.LeadIDs {
		recipients = append(recipients, LeadRecipient(id))
	}
	for _, id := range p.DistrictContactIDs {
		recipients = append(recipients, DistrictContactRecipient(id))
	}
	return recipients
}

// EnrollmentCompletedPayload is published after an enrollment run finishes.
// Generated and Persisted can legitimately differ (channel filtering, failed
// chunks); the discrepancy is surfaced here rather than swallowed.
type EnrollmentCompletedPayload struct {
	RequestID  string    `json:"request_id"`
	CompanyID  string    `json:"company_id"`
	CampaignID string    `json:"campaign_id"`
	Recipients int       `json:"recipients"`
	Generated  int       `json:"generated"`
	Persisted  int       `json:"persisted"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	FinishedAt time.Time `json:"finished_at"`
}

// TouchpointsScheduledPayload is published per recipient after its touchpoints
// are persisted.
type TouchpointsScheduledPayload struct {
	CompanyID  string     `json:"company_id"`
	CampaignID string     `json:"campaign_id"`
	Recipient  Recipient  `json:"recipient"`
	Count      int        `json:"count"`
	FirstDue   *time.Time `json:"first_due,omitempty"`
	Kinds      []StepType `json:"kinds,omitempty"`
}
