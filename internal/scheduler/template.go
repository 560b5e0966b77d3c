package scheduler

import (
	"strings"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

// templateVariable binds a {{token}} to the placeholder used when the
// personalization field is empty. Drafts are reviewed by a human before
// sending, so missing data degrades to a visible bracketed label rather than
// rendering blank.
type templateVariable struct {
	token       string
	placeholder string
	value       func(model.PersonalizationData) string
}

var templateVariables = []templateVariable{
	{"{{first_name}}", "[First Name]", func(d model.PersonalizationData) string { return d.FirstName }},
	{"{{last_name}}", "[Last Name]", func(d model.PersonalizationData) string { return d.LastName }},
	{"{{city}}", "[City]", func(d model.PersonalizationData) string { return d.City }},
	{"{{company}}", "[Company]", func(d model.PersonalizationData) string { return d.Company }},
}

// ReplaceTemplateVariables substitutes the known {{...}} tokens in text with
// the matching personalization fields. Token names are case-sensitive;
// unrecognized tokens are left untouched. Empty input text yields an empty
// string.
func ReplaceTemplateVariables(text string, data model.PersonalizationData) string {
	if text == "" {
		return ""
	}
	result := text
	for _, v := range templateVariables {
		replacement := v.value(data)
		if replacement == "" {
			replacement = v.placeholder
		}
		result = strings.ReplaceAll(result, v.token, replacement)
	}
	return result
}
