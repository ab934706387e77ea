package storage

import (
	"context"
	"time"

	"github.com/FranksOps/profscout/internal/profile"
	"github.com/google/uuid"
)

// Record is a persisted Summary together with the run and class it was
// extracted for.
type Record struct {
	ID               string     `json:"id"`
	RunID            string     `json:"run_id"`
	URL              string     `json:"url"`
	Name             string     `json:"name"`
	Grade            float64    `json:"grade"`
	Difficulty       *float64   `json:"difficulty"` // nil when the page had no difficulty values
	Ratings          int        `json:"ratings"`
	MostRecentReview *time.Time `json:"most_recent_review"` // nil when no review matched the class
	School           string     `json:"school"`
	Class            string     `json:"class"`
	CreatedAt        time.Time  `json:"created_at"`
}

// NewRecord wraps a Summary for storage.
func NewRecord(runID, class string, s *profile.Summary) *Record {
	r := &Record{
		ID:        uuid.New().String(),
		RunID:     runID,
		URL:       s.URL,
		Name:      s.Name,
		Grade:     s.Grade,
		Ratings:   s.Ratings,
		School:    s.School,
		Class:     class,
		CreatedAt: time.Now().UTC(),
	}
	if s.Difficulty.Valid() {
		v := s.Difficulty.Value
		r.Difficulty = &v
	}
	if s.MostRecentReview.Found() {
		t := s.MostRecentReview.Time
		r.MostRecentReview = &t
	}
	return r
}

// Summary converts the record back to the extraction output.
func (r *Record) Summary() *profile.Summary {
	s := &profile.Summary{
		URL:     r.URL,
		Name:    r.Name,
		Grade:   r.Grade,
		Ratings: r.Ratings,
		School:  r.School,
	}
	if r.Difficulty != nil {
		s.Difficulty = profile.Difficulty{Value: *r.Difficulty, Count: 1}
	}
	if r.MostRecentReview != nil {
		s.MostRecentReview = profile.ReviewDate{Time: r.MostRecentReview.UTC()}
	}
	return s
}

// Filter selects stored records. Zero fields do not filter.
type Filter struct {
	RunID  string
	School string // substring match
	Class  string // case-insensitive match
	Since  *time.Time
	Limit  int
	Offset int
}

// Backend stores and queries extracted records.
type Backend interface {
	Save(ctx context.Context, record *Record) error
	Query(ctx context.Context, filter Filter) ([]*Record, error)
	Close() error
}
