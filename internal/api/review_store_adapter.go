package api

import "github.com/kurataraku/survey-app/internal/services"

// reviewStoreAdapter serves both the submission flow and the stats service.
type reviewStoreAdapter struct {
	store Store
}

func newReviewStoreAdapter(store Store) *reviewStoreAdapter {
	return &reviewStoreAdapter{store: store}
}

var (
	_ services.ReviewStore = (*reviewStoreAdapter)(nil)
	_ services.StatsStore  = (*reviewStoreAdapter)(nil)
)

func (a *reviewStoreAdapter) InsertReview(r *services.Review) (*services.Review, error) {
	apiReview := convertServiceReview(r)
	a.store.AddReview(apiReview)
	return convertAPIReview(a.store.GetReview(apiReview.ID)), nil
}

func (a *reviewStoreAdapter) GetReview(id string) (*services.Review, error) {
	return convertAPIReview(a.store.GetReview(id)), nil
}

func (a *reviewStoreAdapter) UpdateReview(r *services.Review) error {
	if r == nil {
		return services.NewInvalidError("review required")
	}
	if ok := a.store.UpdateReview(convertServiceReview(r)); !ok {
		return services.NewNotFoundError("review not found")
	}
	return nil
}

func (a *reviewStoreAdapter) DeleteReview(id string) error {
	if ok := a.store.DeleteReview(id); !ok {
		return services.NewNotFoundError("review not found")
	}
	return nil
}

func (a *reviewStoreAdapter) ListReviewsBySchool(schoolID string) ([]*services.Review, error) {
	reviews := a.store.ListReviewsBySchool(schoolID)
	out := make([]*services.Review, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, convertAPIReview(r))
	}
	return out, nil
}

func (a *reviewStoreAdapter) GetSchool(id string) (*services.School, error) {
	return convertAPISchool(a.store.GetSchool(id)), nil
}

func (a *reviewStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(AuditEntry{Time: entry.Time, Actor: entry.Actor, Action: entry.Action, Target: entry.Target, Note: entry.Note})
}

func convertServiceReview(r *services.Review) *Review {
	if r == nil {
		return nil
	}
	return &Review{
		ID:               r.ID,
		SchoolID:         r.SchoolID,
		AuthorRole:       r.AuthorRole,
		EnrollmentStatus: r.EnrollmentStatus,
		Rating:           r.Rating,
		Comment:          r.Comment,
		ContactEmail:     r.ContactEmail,
		Answers:          map[string]any(r.Answers),
		CreatedAt:        r.CreatedAt,
	}
}

func convertAPIReview(r *Review) *services.Review {
	if r == nil {
		return nil
	}
	return &services.Review{
		ID:               r.ID,
		SchoolID:         r.SchoolID,
		AuthorRole:       r.AuthorRole,
		EnrollmentStatus: r.EnrollmentStatus,
		Rating:           r.Rating,
		Comment:          r.Comment,
		ContactEmail:     r.ContactEmail,
		Answers:          services.CanonicalAnswers(r.Answers),
		CreatedAt:        r.CreatedAt,
	}
}
