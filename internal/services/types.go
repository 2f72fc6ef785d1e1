package services

import "time"

func nowUTC() time.Time { return time.Now().UTC() }

// SchoolStatus tracks the lifecycle of a school entity. Transitions are
// pending -> active (admin approval) and pending|active -> merged (merge
// operator). merged is terminal.
type SchoolStatus string

const (
	SchoolPending SchoolStatus = "pending"
	SchoolActive  SchoolStatus = "active"
	SchoolMerged  SchoolStatus = "merged"
)

// School is the resolved entity a review attaches to. NameNormalized is
// derived from Name via textnorm and is the only form used for lookups.
type School struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	NameNormalized string       `json:"name_normalized"`
	Status         SchoolStatus `json:"status"`
	Prefectures    []string     `json:"prefectures,omitempty"`
	Slug           string       `json:"slug,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// SchoolAlias maps an alternate spelling to its owning school. After a merge
// the owner is always the surviving school.
type SchoolAlias struct {
	ID              string    `json:"id"`
	SchoolID        string    `json:"school_id"`
	Alias           string    `json:"alias"`
	AliasNormalized string    `json:"alias_normalized"`
	CreatedAt       time.Time `json:"created_at"`
}

// Review is a persisted survey response. SchoolID is rewritten only by the
// merge operator; content fields are editable by admins, identity is not.
type Review struct {
	ID               string           `json:"id"`
	SchoolID         string           `json:"school_id"`
	AuthorRole       string           `json:"author_role,omitempty"`
	EnrollmentStatus string           `json:"enrollment_status,omitempty"`
	Rating           int              `json:"rating,omitempty"`
	Comment          string           `json:"comment,omitempty"`
	ContactEmail     string           `json:"contact_email,omitempty"`
	Answers          CanonicalAnswers `json:"answers,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// AdminUser is a CMS account. Password hashes only, never plaintext.
type AdminUser struct {
	ID        string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

// AuditEntry records an administrative mutation for later review.
type AuditEntry struct {
	Time   time.Time
	Actor  string
	Action string
	Target string
	Note   string
}
