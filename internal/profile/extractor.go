package profile

import (
	"fmt"
	"log/slog"

	"github.com/FranksOps/profscout/internal/document"
)

// Extractor turns a parsed profile page into a Summary.
type Extractor struct {
	Selectors Selectors
	Logger    *slog.Logger
}

// NewExtractor creates an Extractor. Zero-valued selectors fall back to
// DefaultSelectors.
func NewExtractor(sel Selectors, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{Selectors: sel.withDefaults(), Logger: logger}
}

// Extract validates tree against school and class and, when both gates pass,
// builds the Summary. A rejected page returns a nil Summary with the verdict
// explaining why; a page that passes validation but lacks an expected
// element returns an error wrapping ErrStructure.
func (e *Extractor) Extract(tree *document.Tree, pageURL, school, class string) (*Summary, Verdict, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	verdict := Validate(tree, e.Selectors, school, class)
	if !verdict.Passed() {
		if verdict.Reject == RejectSchool && verdict.Similarity >= NearMiss {
			logger.Info("school near miss, check the expected school spelling", "url", pageURL, "school", verdict.School, "expected", school, "similarity", verdict.Similarity)
		} else {
			logger.Debug("page rejected", "url", pageURL, "reason", verdict.Reject, "school", verdict.School)
		}
		return nil, verdict, nil
	}

	fields, err := ExtractFields(tree, e.Selectors)
	if err != nil {
		return nil, verdict, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	if !fields.Difficulty.Valid() {
		logger.Debug("no difficulty values on page", "url", pageURL)
	}

	newest, skipped := MostRecentReview(tree, e.Selectors, class)
	if skipped > 0 {
		logger.Debug("skipped unparsable review dates", "url", pageURL, "count", skipped)
	}

	return &Summary{
		URL:              pageURL,
		Name:             fields.Name,
		Grade:            fields.Grade,
		Difficulty:       fields.Difficulty,
		Ratings:          fields.Ratings,
		MostRecentReview: newest,
		School:           verdict.School,
	}, verdict, nil
}
