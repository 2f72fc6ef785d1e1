package api

import "time"

type School struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NameNormalized string    `json:"name_normalized"`
	Status         string    `json:"status"`
	Prefectures    []string  `json:"prefectures,omitempty"`
	Slug           string    `json:"slug,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type SchoolAlias struct {
	ID              string    `json:"id"`
	SchoolID        string    `json:"school_id"`
	Alias           string    `json:"alias"`
	AliasNormalized string    `json:"alias_normalized"`
	CreatedAt       time.Time `json:"created_at"`
}

type Review struct {
	ID               string         `json:"id"`
	SchoolID         string         `json:"school_id"`
	AuthorRole       string         `json:"author_role,omitempty"`
	EnrollmentStatus string         `json:"enrollment_status,omitempty"`
	Rating           int            `json:"rating,omitempty"`
	Comment          string         `json:"comment,omitempty"`
	ContactEmail     string         `json:"contact_email,omitempty"`
	Answers          map[string]any `json:"answers,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

type FieldDescriptor struct {
	Key        string   `json:"key"`
	Type       string   `json:"type"`
	Required   bool     `json:"required"`
	EnumValues []string `json:"enum_values,omitempty"`
	AliasKeys  []string `json:"alias_keys,omitempty"`
}

// MergeResult mirrors what an applied merge moved.
type MergeResult struct {
	ReviewsMoved   int  `json:"reviews_moved"`
	AliasesMoved   int  `json:"aliases_moved"`
	NameAliasAdded bool `json:"name_alias_added"`
}

type AdminUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}
