package services

import "sort"

type StatsStore interface {
	GetSchool(id string) (*School, error)
	ListReviewsBySchool(schoolID string) ([]*Review, error)
}

type StatsService struct {
	store StatsStore
}

type StatsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SchoolSummary is the public school-page aggregate.
type SchoolSummary struct {
	SchoolID      string            `json:"school_id"`
	Name          string            `json:"name"`
	Status        SchoolStatus      `json:"status"`
	TotalReviews  int               `json:"total_reviews"`
	AverageRating float64           `json:"average_rating"`
	Timeseries    []StatsTimeseries `json:"timeseries"`
}

func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store}
}

func (s *StatsService) Summary(schoolID string) (*SchoolSummary, error) {
	sc, err := s.store.GetSchool(schoolID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, NewNotFoundError("school not found")
	}
	reviews, err := s.store.ListReviewsBySchool(schoolID)
	if err != nil {
		return nil, err
	}
	total := 0
	rated := 0
	sum := 0
	countsByDay := map[string]int{}
	for _, r := range reviews {
		total++
		if r.Rating > 0 {
			rated++
			sum += r.Rating
		}
		countsByDay[r.CreatedAt.Format("2006-01-02")]++
	}
	avg := 0.0
	if rated > 0 {
		avg = float64(sum) / float64(rated)
	}
	return &SchoolSummary{
		SchoolID:      sc.ID,
		Name:          sc.Name,
		Status:        sc.Status,
		TotalReviews:  total,
		AverageRating: avg,
		Timeseries:    buildTimeseries(countsByDay),
	}, nil
}

func buildTimeseries(countsByDay map[string]int) []StatsTimeseries {
	days := make([]string, 0, len(countsByDay))
	for d := range countsByDay {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]StatsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, StatsTimeseries{Date: d, Count: countsByDay[d]})
	}
	return out
}
