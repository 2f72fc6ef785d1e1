package services

import (
	"strconv"
	"time"

	"github.com/kurataraku/survey-app/internal/textnorm"
)

// MergeCounts reports what a completed merge moved, for audit and the admin
// confirmation screen.
type MergeCounts struct {
	ReviewsMoved   int  `json:"reviews_moved"`
	AliasesMoved   int  `json:"aliases_moved"`
	NameAliasAdded bool `json:"name_alias_added"`
}

// MergeStore applies the collapse. ApplyMerge must be atomic: reassign the
// source's reviews and aliases to the target, register nameAlias for the
// target unless its normalized form already resolves to it, and mark the
// source merged — all visible together or not at all. It fails without
// partial effects when the alias would resolve to a third school.
type MergeStore interface {
	GetSchool(id string) (*School, error)
	ApplyMerge(sourceID, targetID string, nameAlias *SchoolAlias) (*MergeCounts, error)
	AddAudit(entry AuditEntry)
}

// MergeService collapses one school entity into another. Irreversible; the
// admin UI warns before calling.
type MergeService struct {
	store MergeStore
	now   func() time.Time
	idGen func(n int) string
}

func NewMergeService(store MergeStore) *MergeService {
	return &MergeService{
		store: store,
		now:   nowUTC,
		idGen: shortID,
	}
}

// Merge collapses source into target: every review and alias of the source
// is reassigned to the target, the source's own name becomes an alias of the
// target, and the source is terminally marked merged.
func (s *MergeService) Merge(actor, sourceID, targetID string) (*MergeCounts, error) {
	if sourceID == "" || targetID == "" {
		return nil, NewInvalidError("source and target school ids required")
	}
	if sourceID == targetID {
		return nil, NewInvalidError("cannot merge a school into itself")
	}
	source, err := s.store.GetSchool(sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, NewNotFoundError("source school not found")
	}
	if source.Status == SchoolMerged {
		return nil, NewInvalidError("source school is already merged")
	}
	target, err := s.store.GetSchool(targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, NewNotFoundError("target school not found")
	}
	if target.Status == SchoolMerged {
		return nil, NewInvalidError("target school is already merged")
	}

	// Future submissions typed with the old name must keep resolving, so the
	// source's own name rides along as an alias of the winner.
	nameAlias := &SchoolAlias{
		ID:              s.idGen(12),
		SchoolID:        targetID,
		Alias:           source.Name,
		AliasNormalized: textnorm.Normalize(source.Name),
		CreatedAt:       s.now(),
	}
	counts, err := s.store.ApplyMerge(sourceID, targetID, nameAlias)
	if err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{
		Time:   s.now(),
		Actor:  actor,
		Action: "merge_schools",
		Target: targetID,
		Note:   "absorbed " + sourceID + " reviews=" + strconv.Itoa(counts.ReviewsMoved) + " aliases=" + strconv.Itoa(counts.AliasesMoved),
	})
	return counts, nil
}
