package services

import (
	"strconv"
	"testing"
)

func mergeFixture() *schoolStubStore {
	store := newSchoolStubStore()
	store.schools["SRC"] = &School{ID: "SRC", Name: "Tokyo Daiichi High", NameNormalized: "tokyodaiichihigh", Status: SchoolPending}
	store.schools["DST"] = &School{ID: "DST", Name: "Tokyo First High", NameNormalized: "tokyofirsthigh", Status: SchoolActive}
	for i := 0; i < 5; i++ {
		id := "R" + strconv.Itoa(i)
		store.reviews[id] = &Review{ID: id, SchoolID: "SRC"}
	}
	store.aliases["A1"] = &SchoolAlias{ID: "A1", SchoolID: "SRC", Alias: "T1 High", AliasNormalized: "t1high"}
	store.aliases["A2"] = &SchoolAlias{ID: "A2", SchoolID: "SRC", Alias: "Daiichi", AliasNormalized: "daiichi"}
	return store
}

func TestMergeCollapsesSourceIntoTarget(t *testing.T) {
	store := mergeFixture()
	svc := NewMergeService(store)

	counts, err := svc.Merge("admin", "SRC", "DST")
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if counts.ReviewsMoved != 5 || counts.AliasesMoved != 2 || !counts.NameAliasAdded {
		t.Fatalf("counts = %+v, want 5 reviews, 2 aliases, name alias added", counts)
	}

	for id, r := range store.reviews {
		if r.SchoolID != "DST" {
			t.Errorf("review %s still references %q", id, r.SchoolID)
		}
	}
	if store.schools["SRC"].Status != SchoolMerged {
		t.Errorf("source status = %q, want merged", store.schools["SRC"].Status)
	}

	// All former aliases plus the source's own name belong to the target.
	aliases, _ := store.ListAliasesBySchool("DST")
	if len(aliases) != 3 {
		t.Fatalf("target aliases = %d, want 3", len(aliases))
	}

	// The old name must keep resolving, now to the winner.
	resolver := NewSchoolService(store)
	id, created, err := resolver.Resolve("Tokyo Daiichi High")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if created || id != "DST" {
		t.Fatalf("resolve after merge = (%q, %v), want (DST, false)", id, created)
	}
}

func TestMergePreconditions(t *testing.T) {
	store := mergeFixture()
	store.schools["GONE"] = &School{ID: "GONE", Name: "Gone High", NameNormalized: "gonehigh", Status: SchoolMerged}
	svc := NewMergeService(store)

	tests := []struct {
		name   string
		source string
		target string
	}{
		{"source equals target", "SRC", "SRC"},
		{"missing source", "NOPE", "DST"},
		{"missing target", "SRC", "NOPE"},
		{"merged source", "GONE", "DST"},
		{"merged target", "SRC", "GONE"},
		{"blank ids", "", ""},
	}
	for _, tt := range tests {
		if _, err := svc.Merge("admin", tt.source, tt.target); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
	// No effects may be applied by failed precondition checks.
	if store.schools["SRC"].Status != SchoolPending {
		t.Fatalf("source status changed by rejected merges")
	}
	for id, r := range store.reviews {
		if r.SchoolID != "SRC" {
			t.Fatalf("review %s reassigned by rejected merge", id)
		}
	}
}

func TestMergeIsIrreversible(t *testing.T) {
	store := mergeFixture()
	svc := NewMergeService(store)
	if _, err := svc.Merge("admin", "SRC", "DST"); err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	// Nothing transitions a school out of merged: re-merge and approval both refuse.
	if _, err := svc.Merge("admin", "SRC", "DST"); err == nil {
		t.Fatalf("expected error re-merging a merged source")
	}
	if _, err := NewSchoolService(store).Approve("admin", "SRC"); err == nil {
		t.Fatalf("expected error approving a merged school")
	}
}

func TestMergeSkipsNameAliasAlreadyOnTarget(t *testing.T) {
	store := mergeFixture()
	// The source's normalized name already resolves to the target via an alias.
	store.aliases["A3"] = &SchoolAlias{ID: "A3", SchoolID: "DST", Alias: "Tokyo Daiichi High", AliasNormalized: "tokyodaiichihigh"}
	svc := NewMergeService(store)

	counts, err := svc.Merge("admin", "SRC", "DST")
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if counts.NameAliasAdded {
		t.Fatalf("expected no duplicate name alias")
	}
}
