package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

// RandomJSONB generates random JSON data for testing.
func RandomJSONB() datatypes.JSON {
	jsonData := map[string]interface{}{
		"source":    gofakeit.Word(),
		"import_id": gofakeit.Number(1, 100),
	}
	bytes, _ := json.Marshal(jsonData)
	return datatypes.JSON(bytes)
}

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewLead creates a new Lead instance with default fake data.
func NewLead(overrideDefaults ...*Lead) *Lead {
	base := &Lead{
		ID:          uuid.New().String(),
		CompanyID:   "tenant_" + gofakeit.LetterN(10),
		FirstName:   gofakeit.FirstName(),
		LastName:    gofakeit.LastName(),
		Email:       gofakeit.Email(),
		Phone:       gofakeit.Phone(),
		LinkedInURL: fmt.Sprintf("https://linkedin.com/in/%s", gofakeit.Username()),
		City:        gofakeit.City(),
		CompanyName: gofakeit.Company(),
		Status:      "NEW",
		Origin:      gofakeit.RandomString([]string{"manual", "csv_import", "seeder"}),
		CreatedAt:   utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:   utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		override := overrideDefaults[0]
		if override.ID != "" {
			base.ID = override.ID
		}
		if override.CompanyID != "" {
			base.CompanyID = override.CompanyID
		}
		if override.FirstName != "" {
			base.FirstName = override.FirstName
		}
		if override.LastName != "" {
			base.LastName = override.LastName
		}
		if override.Email != "" {
			base.Email = override.Email
		}
		if override.Phone != "" {
			base.Phone = override.Phone
		}
		if override.City != "" {
			base.City = override.City
		}
		if override.CompanyName != "" {
			base.CompanyName = override.CompanyName
		}
		if override.Status != "" {
			base.Status = override.Status
		}
	}
	return base
}

// NewDistrictContact creates a new DistrictContact instance with default fake data.
func NewDistrictContact(overrideDefaults ...*DistrictContact) *DistrictContact {
	base := &DistrictContact{
		ID:           uuid.New().String(),
		CompanyID:    "tenant_" + gofakeit.LetterN(10),
		FirstName:    gofakeit.FirstName(),
		LastName:     gofakeit.LastName(),
		Title:        gofakeit.RandomString([]string{"Superintendent", "Principal", "Curriculum Director", "IT Director"}),
		DistrictName: gofakeit.City() + " Unified School District",
		Email:        gofakeit.Email(),
		Phone:        gofakeit.Phone(),
		City:         gofakeit.City(),
		Status:       "NEW",
		CreatedAt:    utils.Now(),
		UpdatedAt:    utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		override := overrideDefaults[0]
		if override.ID != "" {
			base.ID = override.ID
		}
		if override.CompanyID != "" {
			base.CompanyID = override.CompanyID
		}
		if override.Email != "" {
			base.Email = override.Email
		}
		if override.Phone != "" {
			base.Phone = override.Phone
		}
		if override.DistrictName != "" {
			base.DistrictName = override.DistrictName
		}
	}
	return base
}

// NewOutreachSequence creates a sequence with the given number of steps,
// alternating channel types.
func NewOutreachSequence(companyID string, stepCount int) *OutreachSequence {
	seq := &OutreachSequence{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      gofakeit.BuzzWord() + " Outreach",
		CreatedAt: utils.Now(),
		UpdatedAt: utils.Now(),
	}

	types := []StepType{StepTypeEmail, StepTypeCall, StepTypeLinkedInMessage}
	for i := 0; i < stepCount; i++ {
		seq.Steps = append(seq.Steps, OutreachStep{
			ID:          uuid.New().String(),
			SequenceID:  seq.ID,
			StepOrder:   i + 1,
			Type:        types[i%len(types)],
			Name:        fmt.Sprintf("Touch %d for {{first_name}}", i+1),
			ContentLink: fmt.Sprintf("https://content.example.com/%s", gofakeit.UUID()),
			DayOffset:   i * 2,
		})
	}
	return seq
}

// NewCampaign creates a campaign bound to the given sequence.
func NewCampaign(companyID, sequenceID string) *Campaign {
	start := utils.TruncateToDate(utils.Now())
	return &Campaign{
		ID:         uuid.New().String(),
		CompanyID:  companyID,
		Name:       gofakeit.Company() + " Q" + fmt.Sprint(gofakeit.Number(1, 4)),
		SequenceID: sequenceID,
		StartDate:  &start,
		Status:     "ACTIVE",
		CreatedAt:  utils.Now(),
		UpdatedAt:  utils.Now(),
	}
}

// NewTouchpoint creates a persisted-shape touchpoint with default fake data.
func NewTouchpoint(companyID string, recipient Recipient) *Touchpoint {
	scheduledAt := utils.Now().AddDate(0, 0, gofakeit.Number(0, 10))
	tp := &Touchpoint{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		CampaignID:  uuid.New().String(),
		Type:        StepTypeEmail,
		Subject:     gofakeit.Sentence(4),
		Content:     gofakeit.URL(),
		ScheduledAt: &scheduledAt,
		CreatedAt:   utils.Now(),
		UpdatedAt:   utils.Now(),
	}
	switch recipient.Kind {
	case RecipientKindLead:
		tp.LeadID = recipient.ID
	case RecipientKindDistrictContact:
		tp.DistrictContactID = recipient.ID
	}
	return tp
}
