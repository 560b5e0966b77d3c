package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// DistrictContact represents a school-district contact. One tenant tracks
// district staff instead of commercial leads; both feed the same scheduler.
type DistrictContact struct {
	ID           string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID    string         `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	FirstName    string         `json:"first_name,omitempty" gorm:"type:text"`
	LastName     string         `json:"last_name,omitempty" gorm:"type:text"`
	Title        string         `json:"title,omitempty" gorm:"type:text"` // e.g. Superintendent, Curriculum Director
	DistrictName string         `json:"district_name,omitempty" gorm:"type:text"`
	Email        string         `json:"email,omitempty" gorm:"type:text" validate:"omitempty,email"`
	Phone        string         `json:"phone,omitempty" gorm:"type:text"`
	LinkedInURL  string         `json:"linkedin_url,omitempty" gorm:"column:linkedin_url;type:text"`
	City         string         `json:"city,omitempty" gorm:"type:text"`
	Status       string         `json:"status,omitempty" gorm:"type:text;default:NEW"`
	LastMetadata datatypes.JSON `json:"last_metadata,omitempty" gorm:"type:jsonb;column:last_metadata"`
	CreatedAt    time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the DistrictContact model, respecting the Namer.
func (DistrictContact) TableName(namer schema.Namer) string {
	return namer.TableName("district_contacts")
}

// Personalization maps the contact's identity fields onto template variables.
// The district name stands in for the company variable.
func (c *DistrictContact) Personalization() PersonalizationData {
	return PersonalizationData{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		City:      c.City,
		Company:   c.DistrictName,
	}
}

// HasChannel reports whether the contact has the channel a step type needs.
func (c *DistrictContact) HasChannel(stepType StepType) bool {
	switch stepType {
	case StepTypeEmail:
		return c.Email != ""
	case StepTypeCall:
		return c.Phone != ""
	case StepTypeLinkedInMessage:
		return c.LinkedInURL != ""
	default:
		return false
	}
}
