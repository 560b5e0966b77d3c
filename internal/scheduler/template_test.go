package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

func TestReplaceTemplateVariables(t *testing.T) {
	fullData := model.PersonalizationData{
		FirstName: "Ada",
		LastName:  "Lovelace",
		City:      "London",
		Company:   "Analytical Engines",
	}

	tests := []struct {
		name     string
		text     string
		data     model.PersonalizationData
		expected string
	}{
		{
			name:     "all variables substituted",
			text:     "Hi {{first_name}} {{last_name}} from {{company}} in {{city}}",
			data:     fullData,
			expected: "Hi Ada Lovelace from Analytical Engines in London",
		},
		{
			name:     "missing fields fall back to placeholders",
			text:     "Hi {{first_name}}, greetings to {{company}}",
			data:     model.PersonalizationData{},
			expected: "Hi [First Name], greetings to [Company]",
		},
		{
			name:     "partial data mixes values and placeholders",
			text:     "{{first_name}} {{last_name}}",
			data:     model.PersonalizationData{FirstName: "Grace"},
			expected: "Grace [Last Name]",
		},
		{
			name:     "unrecognized tokens are left untouched",
			text:     "Hello {{nickname}}, meet {{first_name}}",
			data:     fullData,
			expected: "Hello {{nickname}}, meet Ada",
		},
		{
			name:     "token names are case sensitive",
			text:     "{{First_Name}} vs {{first_name}}",
			data:     fullData,
			expected: "{{First_Name}} vs Ada",
		},
		{
			name:     "repeated tokens all substituted",
			text:     "{{city}}, {{city}}!",
			data:     fullData,
			expected: "London, London!",
		},
		{
			name:     "empty text yields empty string",
			text:     "",
			data:     fullData,
			expected: "",
		},
		{
			name:     "plain text passes through",
			text:     "No variables here",
			data:     model.PersonalizationData{},
			expected: "No variables here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ReplaceTemplateVariables(tt.text, tt.data))
		})
	}
}
