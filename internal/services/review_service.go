package services

import (
	"log"
	"strings"
	"time"
)

// ReviewStore persists canonical reviews.
type ReviewStore interface {
	InsertReview(r *Review) (*Review, error)
	GetReview(id string) (*Review, error)
	UpdateReview(r *Review) error
	DeleteReview(id string) error
	ListReviewsBySchool(schoolID string) ([]*Review, error)
	AddAudit(entry AuditEntry)
}

// SchoolResolver is the slice of SchoolService the submission flow needs.
type SchoolResolver interface {
	Resolve(candidateName string) (schoolID string, created bool, err error)
}

// DescriptorSource is the slice of AnswerService the submission flow needs.
type DescriptorSource interface {
	LoadDescriptors() []*FieldDescriptor
}

// SubmitReviewRequest is the sanitized inbound submission: promoted scalar
// fields plus the nested raw-answers object exactly as the client sent it.
type SubmitReviewRequest struct {
	SchoolName       string
	AuthorRole       string
	EnrollmentStatus string
	Rating           int
	Comment          string
	ContactEmail     string
	RawAnswers       map[string]any
}

// SubmitReviewResult reports what the submission produced.
type SubmitReviewResult struct {
	ReviewID      string
	SchoolID      string
	SchoolCreated bool
}

// ReviewService hosts the survey submission workflow: resolve the school,
// shape the raw answers, enforce required completeness, persist.
type ReviewService struct {
	store    ReviewStore
	resolver SchoolResolver
	answers  DescriptorSource
	now      func() time.Time
	idGen    func(n int) string
}

func NewReviewService(store ReviewStore, resolver SchoolResolver, answers DescriptorSource) *ReviewService {
	return &ReviewService{
		store:    store,
		resolver: resolver,
		answers:  answers,
		now:      nowUTC,
		idGen:    shortID,
	}
}

// Submit runs the full inbound pipeline. Malformed or unexpected answer
// fields never fail the submission; only missing required canonical fields
// block it.
func (s *ReviewService) Submit(req SubmitReviewRequest) (*SubmitReviewResult, error) {
	if strings.TrimSpace(req.SchoolName) == "" {
		return nil, NewInvalidError("school name required")
	}
	if req.Rating < 0 || req.Rating > 5 {
		return nil, NewInvalidError("rating must be between 0 and 5")
	}

	// Answers are shaped and completeness-checked before the school is
	// resolved: a rejected submission must not leave a pending school behind.
	descs := s.answers.LoadDescriptors()
	if len(descs) == 0 && len(req.RawAnswers) > 0 {
		log.Printf("WARN no field descriptors loaded, dropping %d raw answers", len(req.RawAnswers))
	}
	canonical, discards := NormalizeAnswers(req.RawAnswers, descs)
	for _, d := range discards {
		switch d.Reason {
		case DiscardTypeMismatch, DiscardEnumViolation:
			log.Printf("WARN dropped answer field %q: %s", d.Key, d.Reason)
		}
	}
	if missing := MissingRequired(canonical, descs); len(missing) > 0 {
		return nil, NewInvalidError("missing required answers: " + strings.Join(missing, ", "))
	}

	schoolID, created, err := s.resolver.Resolve(req.SchoolName)
	if err != nil {
		return nil, err
	}

	r := &Review{
		ID:               s.idGen(12),
		SchoolID:         schoolID,
		AuthorRole:       strings.TrimSpace(req.AuthorRole),
		EnrollmentStatus: strings.TrimSpace(req.EnrollmentStatus),
		Rating:           req.Rating,
		Comment:          req.Comment,
		ContactEmail:     strings.TrimSpace(req.ContactEmail),
		Answers:          canonical,
		CreatedAt:        s.now(),
	}
	stored, err := s.store.InsertReview(r)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		r = stored
	}
	return &SubmitReviewResult{ReviewID: r.ID, SchoolID: schoolID, SchoolCreated: created}, nil
}

// Edit updates content fields of an existing review. Identity (id, school,
// creation time) never changes here.
func (s *ReviewService) Edit(actor, id string, rating *int, comment *string) (*Review, error) {
	r, err := s.store.GetReview(id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, NewNotFoundError("review not found")
	}
	if rating != nil {
		if *rating < 0 || *rating > 5 {
			return nil, NewInvalidError("rating must be between 0 and 5")
		}
		r.Rating = *rating
	}
	if comment != nil {
		r.Comment = *comment
	}
	if err := s.store.UpdateReview(r); err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "edit_review", Target: id})
	return r, nil
}

// Delete removes a review entirely.
func (s *ReviewService) Delete(actor, id string) error {
	r, err := s.store.GetReview(id)
	if err != nil {
		return err
	}
	if r == nil {
		return NewNotFoundError("review not found")
	}
	if err := s.store.DeleteReview(id); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "delete_review", Target: id, Note: r.SchoolID})
	return nil
}

// ListBySchool returns a school's reviews for the public detail page.
func (s *ReviewService) ListBySchool(schoolID string) ([]*Review, error) {
	return s.store.ListReviewsBySchool(schoolID)
}
