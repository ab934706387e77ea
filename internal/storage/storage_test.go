package storage

import (
	"testing"
	"time"

	"github.com/FranksOps/profscout/internal/profile"
)

func TestNewRecord_RoundTrip(t *testing.T) {
	s := &profile.Summary{
		URL:              "https://www.ratemyprofessors.com/professor/1",
		Name:             "Jane Doe",
		Grade:            4.2,
		Difficulty:       profile.NewDifficulty([]float64{3, 4}),
		Ratings:          87,
		MostRecentReview: profile.ReviewDate{Time: time.Date(2022, 11, 20, 0, 0, 0, 0, time.UTC)},
		School:           "State University",
	}

	r := NewRecord("run-1", "CS101", s)
	if r.ID == "" || r.RunID != "run-1" || r.Class != "CS101" {
		t.Fatalf("unexpected record %+v", r)
	}
	if r.Difficulty == nil || *r.Difficulty != 3.5 {
		t.Errorf("expected difficulty 3.5, got %v", r.Difficulty)
	}

	back := r.Summary()
	if back.Difficulty.String() != "3.50" || back.MostRecentReview.String() != "2022-11-20" {
		t.Errorf("unexpected summary %+v", back)
	}
	if back.Name != s.Name || back.Grade != s.Grade || back.Ratings != s.Ratings || back.School != s.School {
		t.Errorf("summary fields lost: %+v", back)
	}
}

func TestNewRecord_Empty(t *testing.T) {
	r := NewRecord("run", "cs", &profile.Summary{Name: "A B"})
	if r.Difficulty != nil || r.MostRecentReview != nil {
		t.Errorf("expected nil difficulty and review date, got %+v", r)
	}
	back := r.Summary()
	if back.Difficulty.Valid() || back.MostRecentReview.Found() {
		t.Errorf("expected empty summary values, got %+v", back)
	}
}

func TestFilter_MatchAndPage(t *testing.T) {
	now := time.Now()
	recs := []*Record{
		{ID: "1", RunID: "a", School: "State University", Class: "CS101", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "2", RunID: "a", School: "State University", Class: "MATH200", CreatedAt: now.Add(-time.Hour)},
		{ID: "3", RunID: "b", School: "Tech College", Class: "cs101", CreatedAt: now},
	}

	since := now.Add(-90 * time.Minute)
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"3", "2", "1"}},
		{"run", Filter{RunID: "a"}, []string{"2", "1"}},
		{"class folds case", Filter{Class: "cs101"}, []string{"3", "1"}},
		{"school substring", Filter{School: "State"}, []string{"2", "1"}},
		{"since", Filter{Since: &since}, []string{"3", "2"}},
		{"limit offset", Filter{Limit: 1, Offset: 1}, []string{"2"}},
		{"offset past end", Filter{Offset: 5}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var matched []*Record
			for _, r := range recs {
				if tt.filter.Match(r) {
					matched = append(matched, r)
				}
			}
			got := tt.filter.Page(matched)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %d records", tt.want, len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
				}
			}
		})
	}
}
