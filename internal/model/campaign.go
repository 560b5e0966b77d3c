package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Campaign groups recipients enrolled against one sequence with one start date.
type Campaign struct {
	ID         string     `json:"id" gorm:"primaryKey;type:text"`
	CompanyID  string     `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	Name       string     `json:"name" gorm:"type:text" validate:"required"`
	SequenceID string     `json:"sequence_id" gorm:"index;type:text" validate:"required"`
	StartDate  *time.Time `json:"start_date,omitempty" gorm:"type:date"` // Nil means anchor to the next batch start date at enrollment time
	Status     string     `json:"status,omitempty" gorm:"type:text;default:ACTIVE"`
	CreatedAt  time.Time  `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Campaign model, respecting the Namer.
func (Campaign) TableName(namer schema.Namer) string {
	return namer.TableName("campaigns")
}
