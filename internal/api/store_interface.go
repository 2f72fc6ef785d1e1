package api

// Store is the persistence boundary shared by the in-memory store and the
// sqlite store. Name lookups use normalized forms only, and any lookup that
// feeds resolution or search must exclude merged schools.
type Store interface {
	AddSchool(sc *School)
	GetSchool(id string) *School
	UpdateSchool(sc *School) bool
	FindOwnerByNormalizedName(norm string) string
	ListSchoolsByStatus(status string) []*School
	SearchSchools(norm string, limit int) []*School

	AddAlias(a *SchoolAlias)
	GetAlias(id string) *SchoolAlias
	DeleteAlias(id string) bool
	ListAliasesBySchool(schoolID string) []*SchoolAlias

	// MergeSchools applies the whole collapse atomically: either every step
	// is visible or none are.
	MergeSchools(sourceID, targetID string, nameAlias *SchoolAlias) (*MergeResult, error)

	AddReview(r *Review)
	GetReview(id string) *Review
	UpdateReview(r *Review) bool
	DeleteReview(id string) bool
	ListReviewsBySchool(schoolID string) []*Review

	// ListFieldDescriptors reports store failure instead of swallowing it:
	// an unreachable registry degrades submissions to an empty canonical
	// map and must surface at error severity, not as a store log line.
	ListFieldDescriptors() ([]*FieldDescriptor, error)
	UpsertFieldDescriptor(d *FieldDescriptor)
	DeleteFieldDescriptor(key string) bool
	CountFieldDescriptors() int

	AddAdmin(u *AdminUser)
	FindAdminByEmail(email string) *AdminUser

	AddAudit(e AuditEntry)
	ListAudit() []AuditEntry
}

var _ Store = (*memoryStore)(nil)
