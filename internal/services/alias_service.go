package services

import (
	"strings"
	"time"

	"github.com/kurataraku/survey-app/internal/textnorm"
)

// AliasStore is the persistence surface AliasService needs.
// FindOwnerByNormalizedName covers both primary names and aliases, because
// an alias must not create ambiguity against either.
type AliasStore interface {
	GetSchool(id string) (*School, error)
	GetAlias(id string) (*SchoolAlias, error)
	InsertAlias(a *SchoolAlias) (*SchoolAlias, error)
	DeleteAlias(id string) error
	ListAliasesBySchool(schoolID string) ([]*SchoolAlias, error)
	FindOwnerByNormalizedName(norm string) (string, error)
	AddAudit(entry AuditEntry)
}

// AliasService maintains the many-to-one mapping of alternate name strings
// to a canonical school, used for search recall and resolver lookups.
type AliasService struct {
	store AliasStore
	now   func() time.Time
	idGen func(n int) string
}

func NewAliasService(store AliasStore) *AliasService {
	return &AliasService{
		store: store,
		now:   nowUTC,
		idGen: shortID,
	}
}

// Add registers alias as an alternate spelling of the given school. It
// conflicts when the normalized form already resolves anywhere else; the
// store's unique index on the normalized column backs this check under
// concurrency.
func (s *AliasService) Add(actor, schoolID, alias string) (*SchoolAlias, error) {
	display := strings.TrimSpace(alias)
	norm := textnorm.Normalize(display)
	if norm == "" {
		return nil, NewInvalidError("alias required")
	}
	sc, err := s.store.GetSchool(schoolID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, NewNotFoundError("school not found")
	}
	if sc.Status == SchoolMerged {
		return nil, NewInvalidError("cannot add aliases to a merged school")
	}
	ownerID, err := s.store.FindOwnerByNormalizedName(norm)
	if err != nil {
		return nil, err
	}
	if ownerID != "" {
		if ownerID == schoolID {
			return nil, NewConflictError("alias already resolves to this school")
		}
		return nil, NewConflictError("alias already resolves to another school")
	}
	a := &SchoolAlias{
		ID:              s.idGen(12),
		SchoolID:        schoolID,
		Alias:           display,
		AliasNormalized: norm,
		CreatedAt:       s.now(),
	}
	created, err := s.store.InsertAlias(a)
	if err != nil {
		return nil, err
	}
	if created != nil {
		a = created
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "add_alias", Target: schoolID, Note: display})
	return a, nil
}

// Remove deletes one alias. The owning school and its reviews are untouched.
func (s *AliasService) Remove(actor, aliasID string) error {
	a, err := s.store.GetAlias(aliasID)
	if err != nil {
		return err
	}
	if a == nil {
		return NewNotFoundError("alias not found")
	}
	if err := s.store.DeleteAlias(aliasID); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "remove_alias", Target: a.SchoolID, Note: a.Alias})
	return nil
}

// ListBySchool returns every alias owned by the school.
func (s *AliasService) ListBySchool(schoolID string) ([]*SchoolAlias, error) {
	return s.store.ListAliasesBySchool(schoolID)
}

// FindSchoolIDByName resolves a free-text name through the alias table and
// primary names; empty string means no owner.
func (s *AliasService) FindSchoolIDByName(name string) (string, error) {
	norm := textnorm.Normalize(name)
	if norm == "" {
		return "", nil
	}
	return s.store.FindOwnerByNormalizedName(norm)
}
