package services

import (
	"testing"
	"time"
)

func TestStatsSummary(t *testing.T) {
	store := newSchoolStubStore()
	store.schools["S1"] = &School{ID: "S1", Name: "Tokyo High", Status: SchoolActive}
	day1 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	store.reviews["R1"] = &Review{ID: "R1", SchoolID: "S1", Rating: 5, CreatedAt: day1}
	store.reviews["R2"] = &Review{ID: "R2", SchoolID: "S1", Rating: 3, CreatedAt: day1}
	store.reviews["R3"] = &Review{ID: "R3", SchoolID: "S1", Rating: 0, CreatedAt: day2} // unrated
	store.reviews["R4"] = &Review{ID: "R4", SchoolID: "OTHER", Rating: 1, CreatedAt: day2}

	svc := NewStatsService(store)
	sum, err := svc.Summary("S1")
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if sum.TotalReviews != 3 {
		t.Errorf("total = %d, want 3", sum.TotalReviews)
	}
	if sum.AverageRating != 4 {
		t.Errorf("average = %v, want 4 (unrated excluded)", sum.AverageRating)
	}
	if len(sum.Timeseries) != 2 || sum.Timeseries[0].Date != "2026-04-01" || sum.Timeseries[0].Count != 2 {
		t.Errorf("timeseries = %+v", sum.Timeseries)
	}
}

func TestStatsSummaryUnknownSchool(t *testing.T) {
	svc := NewStatsService(newSchoolStubStore())
	if _, err := svc.Summary("NOPE"); err == nil {
		t.Fatalf("expected not-found error")
	}
}
