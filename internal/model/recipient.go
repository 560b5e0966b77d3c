package model

// RecipientKind discriminates the two recipient entities a touchpoint can target.
type RecipientKind string

const (
	RecipientKindLead            RecipientKind = "lead"
	RecipientKindDistrictContact RecipientKind = "district_contact"
)

// Recipient identifies the target of scheduled touchpoints as a tagged variant.
// Exactly one entity kind is referenced; the "both set" and "neither set"
// states of a two-nullable-column design are unrepresentable here.
type Recipient struct {
	Kind RecipientKind `json:"kind"`
	ID   string        `json:"id"`
}

// LeadRecipient builds a Recipient referencing a lead.
func LeadRecipient(id string) Recipient {
	return Recipient{Kind: RecipientKindLead, ID: id}
}

// DistrictContactRecipient builds a Recipient referencing a district contact.
func DistrictContactRecipient(id string) Recipient {
	return Recipient{Kind: RecipientKindDistrictContact, ID: id}
}

// IsZero reports whether the recipient carries no identity.
func (r Recipient) IsZero() bool {
	return r.ID == "" && r.Kind == ""
}

// PersonalizationData holds the optional fields substituted into step templates.
// Values are never validated; empty fields fall back to bracketed placeholders
// during substitution.
type PersonalizationData struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	City      string `json:"city,omitempty"`
	Company   string `json:"company,omitempty"`
}
