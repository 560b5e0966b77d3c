package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// StepType enumerates the outreach channels a step can use.
type StepType string

const (
	StepTypeEmail           StepType = "email"
	StepTypeCall            StepType = "call"
	StepTypeLinkedInMessage StepType = "linkedin_message"
)

// OutreachSequence is a named, tenant-owned template of outreach steps reused
// across campaigns.
type OutreachSequence struct {
	ID        string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID string         `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	Name      string         `json:"name" gorm:"type:text" validate:"required"`
	Steps     []OutreachStep `json:"steps,omitempty" gorm:"foreignKey:SequenceID;references:ID"`
	CreatedAt time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the OutreachSequence model, respecting the Namer.
func (OutreachSequence) TableName(namer schema.Namer) string {
	return namer.TableName("outreach_sequences")
}

// OutreachStep is one slot in a sequence. StepOrder defines execution order
// and is not necessarily the storage order; the scheduler re-sorts on every
// run.
//
// DayOffset and DaysAfterPrevious are a two-mode offset contract: DayOffset
// anchors the step to the campaign start date, DaysAfterPrevious (when set on
// a non-first step) anchors it to the previous step's computed date and takes
// precedence. On the first step DaysAfterPrevious is ignored. Both are counted
// in business days.
type OutreachStep struct {
	ID                string    `json:"id" gorm:"primaryKey;type:text"`
	SequenceID        string    `json:"sequence_id" gorm:"uniqueIndex:idx_outreach_steps_sequence_order,priority:1;type:text"`
	StepOrder         int       `json:"step_order" gorm:"uniqueIndex:idx_outreach_steps_sequence_order,priority:2" validate:"gte=1"`
	Type              StepType  `json:"type" gorm:"type:text" validate:"required,oneof=email call linkedin_message"`
	Name              string    `json:"name,omitempty" gorm:"type:text"`         // Subject template, may carry {{...}} variables
	ContentLink       string    `json:"content_link,omitempty" gorm:"type:text"` // Content template, may carry {{...}} variables
	DayOffset         int       `json:"day_offset" gorm:"default:0" validate:"gte=0"`
	DaysAfterPrevious *int      `json:"days_after_previous,omitempty" validate:"omitempty,gte=0"`
	CreatedAt         time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
}

// TableName specifies the table name for the OutreachStep model, respecting the Namer.
func (OutreachStep) TableName(namer schema.Namer) string {
	return namer.TableName("outreach_steps")
}
