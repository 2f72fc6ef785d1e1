package api

import "github.com/kurataraku/survey-app/internal/services"

// schoolStoreAdapter exposes one api.Store as the school, alias, and merge
// store interfaces the services consume.
type schoolStoreAdapter struct {
	store Store
}

func newSchoolStoreAdapter(store Store) *schoolStoreAdapter {
	return &schoolStoreAdapter{store: store}
}

var (
	_ services.SchoolStore = (*schoolStoreAdapter)(nil)
	_ services.AliasStore  = (*schoolStoreAdapter)(nil)
	_ services.MergeStore  = (*schoolStoreAdapter)(nil)
)

func (a *schoolStoreAdapter) GetSchool(id string) (*services.School, error) {
	return convertAPISchool(a.store.GetSchool(id)), nil
}

func (a *schoolStoreAdapter) InsertSchool(sc *services.School) (*services.School, error) {
	apiSchool := convertServiceSchool(sc)
	a.store.AddSchool(apiSchool)
	return convertAPISchool(a.store.GetSchool(apiSchool.ID)), nil
}

func (a *schoolStoreAdapter) UpdateSchool(sc *services.School) error {
	if sc == nil {
		return services.NewInvalidError("school required")
	}
	if ok := a.store.UpdateSchool(convertServiceSchool(sc)); !ok {
		return services.NewNotFoundError("school not found")
	}
	return nil
}

func (a *schoolStoreAdapter) FindOwnerByNormalizedName(norm string) (string, error) {
	return a.store.FindOwnerByNormalizedName(norm), nil
}

func (a *schoolStoreAdapter) ListSchoolsByStatus(status services.SchoolStatus) ([]*services.School, error) {
	schools := a.store.ListSchoolsByStatus(string(status))
	out := make([]*services.School, 0, len(schools))
	for _, sc := range schools {
		out = append(out, convertAPISchool(sc))
	}
	return out, nil
}

func (a *schoolStoreAdapter) SearchSchools(norm string, limit int) ([]*services.School, error) {
	schools := a.store.SearchSchools(norm, limit)
	out := make([]*services.School, 0, len(schools))
	for _, sc := range schools {
		out = append(out, convertAPISchool(sc))
	}
	return out, nil
}

func (a *schoolStoreAdapter) GetAlias(id string) (*services.SchoolAlias, error) {
	return convertAPIAlias(a.store.GetAlias(id)), nil
}

func (a *schoolStoreAdapter) InsertAlias(al *services.SchoolAlias) (*services.SchoolAlias, error) {
	apiAlias := convertServiceAlias(al)
	a.store.AddAlias(apiAlias)
	return convertAPIAlias(a.store.GetAlias(apiAlias.ID)), nil
}

func (a *schoolStoreAdapter) DeleteAlias(id string) error {
	if ok := a.store.DeleteAlias(id); !ok {
		return services.NewNotFoundError("alias not found")
	}
	return nil
}

func (a *schoolStoreAdapter) ListAliasesBySchool(schoolID string) ([]*services.SchoolAlias, error) {
	aliases := a.store.ListAliasesBySchool(schoolID)
	out := make([]*services.SchoolAlias, 0, len(aliases))
	for _, al := range aliases {
		out = append(out, convertAPIAlias(al))
	}
	return out, nil
}

func (a *schoolStoreAdapter) ApplyMerge(sourceID, targetID string, nameAlias *services.SchoolAlias) (*services.MergeCounts, error) {
	res, err := a.store.MergeSchools(sourceID, targetID, convertServiceAlias(nameAlias))
	if err != nil {
		return nil, err
	}
	return &services.MergeCounts{
		ReviewsMoved:   res.ReviewsMoved,
		AliasesMoved:   res.AliasesMoved,
		NameAliasAdded: res.NameAliasAdded,
	}, nil
}

func (a *schoolStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(AuditEntry{Time: entry.Time, Actor: entry.Actor, Action: entry.Action, Target: entry.Target, Note: entry.Note})
}

func convertServiceSchool(sc *services.School) *School {
	if sc == nil {
		return nil
	}
	return &School{
		ID:             sc.ID,
		Name:           sc.Name,
		NameNormalized: sc.NameNormalized,
		Status:         string(sc.Status),
		Prefectures:    sc.Prefectures,
		Slug:           sc.Slug,
		CreatedAt:      sc.CreatedAt,
	}
}

func convertAPISchool(sc *School) *services.School {
	if sc == nil {
		return nil
	}
	return &services.School{
		ID:             sc.ID,
		Name:           sc.Name,
		NameNormalized: sc.NameNormalized,
		Status:         services.SchoolStatus(sc.Status),
		Prefectures:    sc.Prefectures,
		Slug:           sc.Slug,
		CreatedAt:      sc.CreatedAt,
	}
}

func convertServiceAlias(al *services.SchoolAlias) *SchoolAlias {
	if al == nil {
		return nil
	}
	return &SchoolAlias{
		ID:              al.ID,
		SchoolID:        al.SchoolID,
		Alias:           al.Alias,
		AliasNormalized: al.AliasNormalized,
		CreatedAt:       al.CreatedAt,
	}
}

func convertAPIAlias(al *SchoolAlias) *services.SchoolAlias {
	if al == nil {
		return nil
	}
	return &services.SchoolAlias{
		ID:              al.ID,
		SchoolID:        al.SchoolID,
		Alias:           al.Alias,
		AliasNormalized: al.AliasNormalized,
		CreatedAt:       al.CreatedAt,
	}
}
