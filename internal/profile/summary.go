package profile

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"
)

// ErrStructure reports that a page passed validation but an element needed
// for extraction was missing or unreadable.
var ErrStructure = errors.New("unexpected page structure")

// NoReviewFound is how a ReviewDate without a matching review renders.
const NoReviewFound = "No review found"

// Summary is the normalized record for one validated professor/class page.
type Summary struct {
	URL              string     `json:"URL"`
	Name             string     `json:"Name"`
	Grade            float64    `json:"Grade"`
	Difficulty       Difficulty `json:"Difficulty"`
	Ratings          int        `json:"Ratings"`
	MostRecentReview ReviewDate `json:"Most_Recent_Review"`
	School           string     `json:"School"`
}

// Difficulty is the mean of the per-review difficulty values on a page,
// rounded to two decimals. A page without difficulty values has a zero
// Count and no value.
type Difficulty struct {
	Value float64
	Count int
}

// NewDifficulty averages values. An empty slice yields an invalid Difficulty.
func NewDifficulty(values []float64) Difficulty {
	if len(values) == 0 {
		return Difficulty{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Difficulty{
		Value: math.Round(sum/float64(len(values))*100) / 100,
		Count: len(values),
	}
}

// Valid reports whether at least one difficulty value was averaged.
func (d Difficulty) Valid() bool { return d.Count > 0 }

// String formats the value with two decimals, or returns "" when invalid.
func (d Difficulty) String() string {
	if !d.Valid() {
		return ""
	}
	return strconv.FormatFloat(d.Value, 'f', 2, 64)
}

func (d Difficulty) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Difficulty) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Difficulty{}
		return nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		return err
	}
	// the count is not carried across serialization
	*d = Difficulty{Value: v, Count: 1}
	return nil
}

// ReviewDate is a calendar date. The zero value means no matching review.
type ReviewDate struct {
	time.Time
}

const dateLayout = "2006-01-02"

// Found reports whether a review date was resolved.
func (r ReviewDate) Found() bool { return !r.IsZero() }

func (r ReviewDate) String() string {
	if !r.Found() {
		return NoReviewFound
	}
	return r.Format(dateLayout)
}

func (r ReviewDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *ReviewDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" || s == NoReviewFound {
		*r = ReviewDate{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	*r = ReviewDate{Time: t}
	return nil
}
