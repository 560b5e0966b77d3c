package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// Touchpoint is one persisted outreach action directed at one recipient.
// It transitions from scheduled (ScheduledAt set, CompletedAt nil) to
// completed (CompletedAt and Outcome set) exclusively through operator action.
type Touchpoint struct {
	ID                string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID         string         `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	CampaignID        string         `json:"campaign_id" gorm:"index;type:text"`
	LeadID            string         `json:"lead_id,omitempty" gorm:"index;type:text"`
	DistrictContactID string         `json:"district_contact_id,omitempty" gorm:"index;type:text"`
	Type              StepType       `json:"type" gorm:"type:text"`
	Subject           string         `json:"subject,omitempty" gorm:"type:text"`
	Content           string         `json:"content,omitempty" gorm:"type:text"`
	ScheduledAt       *time.Time     `json:"scheduled_at,omitempty" gorm:"index"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	Outcome           string         `json:"outcome,omitempty" gorm:"type:text"`
	LastMetadata      datatypes.JSON `json:"last_metadata,omitempty" gorm:"type:jsonb;column:last_metadata"`
	CreatedAt         time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Touchpoint model, respecting the Namer.
func (Touchpoint) TableName(namer schema.Namer) string {
	return namer.TableName("touchpoints")
}

// Recipient reconstructs the tagged recipient identity from the storage columns.
func (t *Touchpoint) Recipient() Recipient {
	if t.LeadID != "" {
		return LeadRecipient(t.LeadID)
	}
	if t.DistrictContactID != "" {
		return DistrictContactRecipient(t.DistrictContactID)
	}
	return Recipient{}
}

// IsOpen reports whether the touchpoint is scheduled and not yet completed.
func (t *Touchpoint) IsOpen() bool {
	return t.ScheduledAt != nil && t.CompletedAt == nil
}

// ScheduledTouchpoint is the transient scheduler output: one record per
// sequence step per recipient, never persisted directly. The caller maps it
// to a Touchpoint row after channel filtering.
type ScheduledTouchpoint struct {
	Recipient   Recipient `json:"recipient"`
	Type        StepType  `json:"type"`
	Subject     string    `json:"subject,omitempty"`
	Content     string    `json:"content,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}
