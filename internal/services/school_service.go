package services

import (
	"strings"
	"time"

	"github.com/kurataraku/survey-app/internal/textnorm"
)

// SchoolStore is the persistence surface SchoolService needs. Lookups by
// normalized name must never return merged schools.
type SchoolStore interface {
	GetSchool(id string) (*School, error)
	InsertSchool(sc *School) (*School, error)
	UpdateSchool(sc *School) error
	FindOwnerByNormalizedName(norm string) (string, error)
	ListSchoolsByStatus(status SchoolStatus) ([]*School, error)
	SearchSchools(norm string, limit int) ([]*School, error)
	AddAudit(entry AuditEntry)
}

// SchoolService resolves free-text school names to stable entities and hosts
// the admin CRUD around them.
type SchoolService struct {
	store SchoolStore
	now   func() time.Time
	idGen func(n int) string
}

func NewSchoolService(store SchoolStore) *SchoolService {
	return &SchoolService{
		store: store,
		now:   nowUTC,
		idGen: shortID,
	}
}

// Resolve maps a candidate school name to an entity id, provisioning a
// pending school when the name is unknown. Two submissions racing on the
// same new name may both create a pending row; duplicates are reconciled by
// an administrative merge later, never attached to an unrelated school.
func (s *SchoolService) Resolve(candidateName string) (string, bool, error) {
	display := strings.TrimSpace(candidateName)
	norm := textnorm.Normalize(display)
	if norm == "" {
		return "", false, NewInvalidError("school name required")
	}

	ownerID, err := s.store.FindOwnerByNormalizedName(norm)
	if err != nil {
		return "", false, err
	}
	if ownerID != "" {
		return ownerID, false, nil
	}

	sc := &School{
		ID:             s.idGen(12),
		Name:           display,
		NameNormalized: norm,
		Status:         SchoolPending,
		Slug:           s.idGen(8),
		CreatedAt:      s.now(),
	}
	created, err := s.store.InsertSchool(sc)
	if err != nil {
		return "", false, err
	}
	if created != nil {
		sc = created
	}
	return sc.ID, true, nil
}

// Create registers a school directly as active (admin path). Unlike Resolve,
// a normalized-name collision here is an error rather than a silent reuse.
func (s *SchoolService) Create(actor, name string, prefectures []string) (*School, error) {
	display := strings.TrimSpace(name)
	norm := textnorm.Normalize(display)
	if norm == "" {
		return nil, NewInvalidError("school name required")
	}
	ownerID, err := s.store.FindOwnerByNormalizedName(norm)
	if err != nil {
		return nil, err
	}
	if ownerID != "" {
		return nil, NewConflictError("a school with this name already exists")
	}
	sc := &School{
		ID:             s.idGen(12),
		Name:           display,
		NameNormalized: norm,
		Status:         SchoolActive,
		Prefectures:    prefectures,
		Slug:           s.idGen(8),
		CreatedAt:      s.now(),
	}
	created, err := s.store.InsertSchool(sc)
	if err != nil {
		return nil, err
	}
	if created != nil {
		sc = created
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "create_school", Target: sc.ID, Note: sc.Name})
	return sc, nil
}

// Approve transitions a pending school to active.
func (s *SchoolService) Approve(actor, id string) (*School, error) {
	sc, err := s.store.GetSchool(id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, NewNotFoundError("school not found")
	}
	switch sc.Status {
	case SchoolActive:
		return sc, nil
	case SchoolMerged:
		return nil, NewInvalidError("merged schools cannot be approved")
	}
	sc.Status = SchoolActive
	if err := s.store.UpdateSchool(sc); err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "approve_school", Target: sc.ID, Note: sc.Name})
	return sc, nil
}

// Update edits display fields. The normalized name is re-derived so lookups
// stay consistent with what admins see.
func (s *SchoolService) Update(actor, id, name string, prefectures []string) (*School, error) {
	sc, err := s.store.GetSchool(id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, NewNotFoundError("school not found")
	}
	if sc.Status == SchoolMerged {
		return nil, NewInvalidError("merged schools are read-only")
	}
	if display := strings.TrimSpace(name); display != "" && display != sc.Name {
		norm := textnorm.Normalize(display)
		ownerID, err := s.store.FindOwnerByNormalizedName(norm)
		if err != nil {
			return nil, err
		}
		if ownerID != "" && ownerID != sc.ID {
			return nil, NewConflictError("a school with this name already exists")
		}
		sc.Name = display
		sc.NameNormalized = norm
	}
	if prefectures != nil {
		sc.Prefectures = prefectures
	}
	if err := s.store.UpdateSchool(sc); err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "update_school", Target: sc.ID, Note: sc.Name})
	return sc, nil
}

// Get returns one school, merged ones included (admins may inspect history).
func (s *SchoolService) Get(id string) (*School, error) {
	sc, err := s.store.GetSchool(id)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, NewNotFoundError("school not found")
	}
	return sc, nil
}

// ListByStatus lists schools in one lifecycle state (admin review queues).
func (s *SchoolService) ListByStatus(status SchoolStatus) ([]*School, error) {
	switch status {
	case SchoolPending, SchoolActive, SchoolMerged:
	default:
		return nil, NewInvalidError("unknown status: " + string(status))
	}
	return s.store.ListSchoolsByStatus(status)
}

// Search finds non-merged schools whose normalized name or alias starts with
// the normalized query. Exact-normalized matching only; no fuzzy recall.
func (s *SchoolService) Search(query string, limit int) ([]*School, error) {
	norm := textnorm.Normalize(query)
	if norm == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.store.SearchSchools(norm, limit)
}
