package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// Lead represents a sales prospect in the PostgreSQL database.
type Lead struct {
	ID           string         `json:"id" gorm:"primaryKey;type:text"`
	CompanyID    string         `json:"company_id" gorm:"column:company_id;index" validate:"required"`
	FirstName    string         `json:"first_name,omitempty" gorm:"type:text"`
	LastName     string         `json:"last_name,omitempty" gorm:"type:text"`
	Email        string         `json:"email,omitempty" gorm:"type:text" validate:"omitempty,email"`
	Phone        string         `json:"phone,omitempty" gorm:"type:text"`
	LinkedInURL  string         `json:"linkedin_url,omitempty" gorm:"column:linkedin_url;type:text"`
	City         string         `json:"city,omitempty" gorm:"type:text"`
	CompanyName  string         `json:"company_name,omitempty" gorm:"type:text"`            // Prospect's employer, not the tenant
	Status       string         `json:"status,omitempty" gorm:"type:text;default:NEW"`      // NEW, ENROLLED, CONTACTED, DISQUALIFIED
	Tags         string         `json:"tags,omitempty" gorm:"type:text"`                    // Comma-separated tags
	Origin       string         `json:"origin,omitempty" gorm:"type:text"`                  // Origin source (manual, csv_import, etc.)
	LastMetadata datatypes.JSON `json:"last_metadata,omitempty" gorm:"type:jsonb;column:last_metadata"`
	CreatedAt    time.Time      `json:"created_at,omitempty" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at,omitempty" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Lead model, respecting the Namer.
func (Lead) TableName(namer schema.Namer) string {
	return namer.TableName("leads")
}

// Personalization maps the lead's identity fields onto template variables.
func (l *Lead) Personalization() PersonalizationData {
	return PersonalizationData{
		FirstName: l.FirstName,
		LastName:  l.LastName,
		City:      l.City,
		Company:   l.CompanyName,
	}
}

// HasChannel reports whether the lead has the contact channel a step type needs.
func (l *Lead) HasChannel(stepType StepType) bool {
	switch stepType {
	case StepTypeEmail:
		return l.Email != ""
	case StepTypeCall:
		return l.Phone != ""
	case StepTypeLinkedInMessage:
		return l.LinkedInURL != ""
	default:
		return false
	}
}

// LeadUpdateColumns lists the columns refreshed on bulk upsert conflicts.
func LeadUpdateColumns() []string {
	return []string{
		"first_name",
		"last_name",
		"email",
		"phone",
		"linkedin_url",
		"city",
		"company_name",
		"tags",
		"updated_at",
		"last_metadata",
	}
}
