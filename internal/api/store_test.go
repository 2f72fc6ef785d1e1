package api

import (
	"testing"
	"time"

	"github.com/kurataraku/survey-app/internal/services"
)

func seedSchool(s *memoryStore, id, name, norm, status string) {
	s.AddSchool(&School{ID: id, Name: name, NameNormalized: norm, Status: status, CreatedAt: time.Now().UTC()})
}

func TestFindOwnerExcludesMergedSchools(t *testing.T) {
	s := newMemoryStore()
	seedSchool(s, "OLD", "Old High", "oldhigh", statusMerged)
	seedSchool(s, "CUR", "Current High", "currenthigh", statusActive)
	s.AddAlias(&SchoolAlias{ID: "AL1", SchoolID: "CUR", Alias: "Old High", AliasNormalized: "oldhigh"})

	if got := s.FindOwnerByNormalizedName("oldhigh"); got != "CUR" {
		t.Fatalf("expected alias of survivor to win over merged primary name, got %q", got)
	}
	if got := s.FindOwnerByNormalizedName("nosuch"); got != "" {
		t.Fatalf("expected no owner, got %q", got)
	}
}

func TestSearchSchoolsMatchesAliasesAndSkipsMerged(t *testing.T) {
	s := newMemoryStore()
	seedSchool(s, "A", "Asahi High", "asahihigh", statusActive)
	seedSchool(s, "B", "Byways Academy", "bywaysacademy", statusActive)
	seedSchool(s, "C", "Asahi Gakuen", "asahigakuen", statusMerged)
	s.AddAlias(&SchoolAlias{ID: "AL1", SchoolID: "B", Alias: "Asahi East", AliasNormalized: "asahieast"})

	out := s.SearchSchools("asahi", 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	ids := map[string]bool{}
	for _, sc := range out {
		ids[sc.ID] = true
	}
	if !ids["A"] || !ids["B"] {
		t.Fatalf("expected A (primary match) and B (alias match), got %v", ids)
	}
}

func TestMergeSchoolsMovesEverythingAtomically(t *testing.T) {
	s := newMemoryStore()
	seedSchool(s, "SRC", "Sakura High", "sakurahigh", statusPending)
	seedSchool(s, "DST", "Sakura High School", "sakurahighschool", statusActive)
	s.AddReview(&Review{ID: "R1", SchoolID: "SRC", Rating: 4})
	s.AddReview(&Review{ID: "R2", SchoolID: "SRC", Rating: 2})
	s.AddAlias(&SchoolAlias{ID: "AL1", SchoolID: "SRC", Alias: "Sakura", AliasNormalized: "sakura"})

	res, err := s.MergeSchools("SRC", "DST", &SchoolAlias{ID: "NA1", SchoolID: "DST", Alias: "Sakura High", AliasNormalized: "sakurahigh"})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if res.ReviewsMoved != 2 || res.AliasesMoved != 1 || !res.NameAliasAdded {
		t.Fatalf("unexpected merge result: %+v", res)
	}
	if s.GetSchool("SRC").Status != statusMerged {
		t.Fatalf("source not marked merged")
	}
	for _, r := range []string{"R1", "R2"} {
		if got := s.GetReview(r).SchoolID; got != "DST" {
			t.Fatalf("review %s still on %s", r, got)
		}
	}
	if got := s.FindOwnerByNormalizedName("sakurahigh"); got != "DST" {
		t.Fatalf("losing name should resolve to survivor, got %q", got)
	}
	if got := s.FindOwnerByNormalizedName("sakura"); got != "DST" {
		t.Fatalf("moved alias should resolve to survivor, got %q", got)
	}
}

func TestMergeSchoolsConflictLeavesStoreUntouched(t *testing.T) {
	s := newMemoryStore()
	seedSchool(s, "SRC", "Fuji High", "fujihigh", statusActive)
	seedSchool(s, "DST", "Fuji Academy", "fujiacademy", statusActive)
	seedSchool(s, "OTHER", "Third School", "thirdschool", statusActive)
	s.AddAlias(&SchoolAlias{ID: "AL1", SchoolID: "OTHER", Alias: "Fuji High", AliasNormalized: "fujihigh"})
	s.AddReview(&Review{ID: "R1", SchoolID: "SRC", Rating: 5})

	_, err := s.MergeSchools("SRC", "DST", &SchoolAlias{ID: "NA1", SchoolID: "DST", Alias: "Fuji High", AliasNormalized: "fujihigh"})
	if err == nil {
		t.Fatalf("expected conflict")
	}
	if se, ok := services.AsServiceError(err); !ok || se.Code != services.ErrorConflict {
		t.Fatalf("expected conflict code, got %v", err)
	}
	if s.GetSchool("SRC").Status != statusActive {
		t.Fatalf("conflicting merge must not mark source merged")
	}
	if got := s.GetReview("R1").SchoolID; got != "SRC" {
		t.Fatalf("conflicting merge must not move reviews, review on %s", got)
	}
}

func TestMergeSchoolsSkipsAliasAlreadyOnTarget(t *testing.T) {
	s := newMemoryStore()
	seedSchool(s, "SRC", "Umi High", "umihigh", statusPending)
	seedSchool(s, "DST", "Umi High School", "umihighschool", statusActive)
	s.AddAlias(&SchoolAlias{ID: "AL1", SchoolID: "DST", Alias: "Umi High", AliasNormalized: "umihigh"})

	res, err := s.MergeSchools("SRC", "DST", &SchoolAlias{ID: "NA1", SchoolID: "DST", Alias: "Umi High", AliasNormalized: "umihigh"})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if res.NameAliasAdded {
		t.Fatalf("alias already owned by target must not be re-added")
	}
	if len(s.ListAliasesBySchool("DST")) != 1 {
		t.Fatalf("expected single alias on target")
	}
}
