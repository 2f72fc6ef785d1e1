package api

import (
	"sort"
	"strings"
	"sync"

	"github.com/kurataraku/survey-app/internal/services"
)

const (
	statusPending = "pending"
	statusActive  = "active"
	statusMerged  = "merged"
)

// memoryStore is the default store for development and tests. The mutex is
// the atomicity boundary: MergeSchools holds it for the whole collapse, so
// concurrent readers never observe a partially applied merge.
type memoryStore struct {
	mu       sync.RWMutex
	schools  map[string]*School
	aliases  map[string]*SchoolAlias
	reviews  map[string]*Review
	fields   map[string]*FieldDescriptor
	admins   map[string]*AdminUser
	audit    []AuditEntry
	reviewIx []string // insertion order for stable listings
}

// NewMemoryStore returns the non-durable Store used in development and tests.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		schools: map[string]*School{},
		aliases: map[string]*SchoolAlias{},
		reviews: map[string]*Review{},
		fields:  map[string]*FieldDescriptor{},
		admins:  map[string]*AdminUser{},
	}
}

func (s *memoryStore) AddSchool(sc *School) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *sc
	s.schools[sc.ID] = &copy
}

func (s *memoryStore) GetSchool(id string) *School {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.schools[id]; ok {
		copy := *sc
		return &copy
	}
	return nil
}

func (s *memoryStore) UpdateSchool(sc *School) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schools[sc.ID]; !ok {
		return false
	}
	copy := *sc
	s.schools[sc.ID] = &copy
	return true
}

// ownerLocked resolves a normalized name to its owning school among primary
// names and aliases, skipping merged schools. Callers hold the lock.
func (s *memoryStore) ownerLocked(norm string) string {
	for _, sc := range s.schools {
		if sc.Status != statusMerged && sc.NameNormalized == norm {
			return sc.ID
		}
	}
	for _, a := range s.aliases {
		if a.AliasNormalized != norm {
			continue
		}
		if owner, ok := s.schools[a.SchoolID]; ok && owner.Status != statusMerged {
			return a.SchoolID
		}
	}
	return ""
}

func (s *memoryStore) FindOwnerByNormalizedName(norm string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerLocked(norm)
}

func (s *memoryStore) ListSchoolsByStatus(status string) []*School {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*School
	for _, sc := range s.schools {
		if sc.Status == status {
			copy := *sc
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) SearchSchools(norm string, limit int) []*School {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []*School
	add := func(id string) {
		if seen[id] {
			return
		}
		if sc, ok := s.schools[id]; ok && sc.Status != statusMerged {
			seen[id] = true
			copy := *sc
			out = append(out, &copy)
		}
	}
	for _, sc := range s.schools {
		if strings.HasPrefix(sc.NameNormalized, norm) {
			add(sc.ID)
		}
	}
	for _, a := range s.aliases {
		if strings.HasPrefix(a.AliasNormalized, norm) {
			add(a.SchoolID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *memoryStore) AddAlias(a *SchoolAlias) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *a
	s.aliases[a.ID] = &copy
}

func (s *memoryStore) GetAlias(id string) *SchoolAlias {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.aliases[id]; ok {
		copy := *a
		return &copy
	}
	return nil
}

func (s *memoryStore) DeleteAlias(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.aliases[id]; !ok {
		return false
	}
	delete(s.aliases, id)
	return true
}

func (s *memoryStore) ListAliasesBySchool(schoolID string) []*SchoolAlias {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*SchoolAlias
	for _, a := range s.aliases {
		if a.SchoolID == schoolID {
			copy := *a
			out = append(out, &copy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) MergeSchools(sourceID, targetID string, nameAlias *SchoolAlias) (*MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.schools[sourceID]
	if !ok {
		return nil, services.NewNotFoundError("source school not found")
	}
	if _, ok := s.schools[targetID]; !ok {
		return nil, services.NewNotFoundError("target school not found")
	}

	// Decide the fate of the losing name before touching anything, so a
	// conflict leaves the store untouched. Ownership is evaluated against
	// the post-merge world: the source no longer counts, and its aliases
	// belong to the target.
	owner := ""
	for _, sc := range s.schools {
		if sc.ID == sourceID || sc.Status == statusMerged {
			continue
		}
		if sc.NameNormalized == nameAlias.AliasNormalized {
			owner = sc.ID
			break
		}
	}
	if owner == "" {
		for _, a := range s.aliases {
			if a.AliasNormalized != nameAlias.AliasNormalized {
				continue
			}
			own := a.SchoolID
			if own == sourceID {
				own = targetID
			}
			if sc, ok := s.schools[own]; ok && sc.Status != statusMerged {
				owner = own
				break
			}
		}
	}
	if owner != "" && owner != targetID {
		return nil, services.NewConflictError("source name already resolves to another school")
	}

	res := &MergeResult{}
	src.Status = statusMerged
	for _, r := range s.reviews {
		if r.SchoolID == sourceID {
			r.SchoolID = targetID
			res.ReviewsMoved++
		}
	}
	for _, a := range s.aliases {
		if a.SchoolID == sourceID {
			a.SchoolID = targetID
			res.AliasesMoved++
		}
	}
	if owner == "" {
		copy := *nameAlias
		s.aliases[nameAlias.ID] = &copy
		res.NameAliasAdded = true
	}
	return res, nil
}

func (s *memoryStore) AddReview(r *Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *r
	s.reviews[r.ID] = &copy
	s.reviewIx = append(s.reviewIx, r.ID)
}

func (s *memoryStore) GetReview(id string) *Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.reviews[id]; ok {
		copy := *r
		return &copy
	}
	return nil
}

func (s *memoryStore) UpdateReview(r *Review) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[r.ID]; !ok {
		return false
	}
	copy := *r
	s.reviews[r.ID] = &copy
	return true
}

func (s *memoryStore) DeleteReview(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return false
	}
	delete(s.reviews, id)
	return true
}

func (s *memoryStore) ListReviewsBySchool(schoolID string) []*Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Review
	for _, id := range s.reviewIx {
		r, ok := s.reviews[id]
		if !ok || r.SchoolID != schoolID {
			continue
		}
		copy := *r
		out = append(out, &copy)
	}
	return out
}

func (s *memoryStore) ListFieldDescriptors() ([]*FieldDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*FieldDescriptor, 0, len(s.fields))
	for _, d := range s.fields {
		copy := *d
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memoryStore) UpsertFieldDescriptor(d *FieldDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *d
	s.fields[d.Key] = &copy
}

func (s *memoryStore) DeleteFieldDescriptor(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[key]; !ok {
		return false
	}
	delete(s.fields, key)
	return true
}

func (s *memoryStore) CountFieldDescriptors() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fields)
}

func (s *memoryStore) AddAdmin(u *AdminUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *u
	s.admins[u.Email] = &copy
}

func (s *memoryStore) FindAdminByEmail(email string) *AdminUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.admins[email]; ok {
		copy := *u
		return &copy
	}
	return nil
}

func (s *memoryStore) AddAudit(e AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
}

func (s *memoryStore) ListAudit() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
