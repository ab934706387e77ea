package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/profscout/internal/document"
)

var monthAbbrevs = [12]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// reviewDateRegex accepts "Jan 5th, 2021", "Jan 05, 2021", "Jan/05/2021" and
// full month names.
var reviewDateRegex = regexp.MustCompile(`^\s*([A-Za-z]{3})[A-Za-z]*\.?[\s/,.\-]*(\d{1,2})(?:st|nd|rd|th)?[\s/,.\-]+(\d{4})\b`)

func parseMonth(abbrev string) (time.Month, bool) {
	abbrev = strings.ToLower(abbrev)
	for i, m := range monthAbbrevs {
		if m == abbrev {
			return time.January + time.Month(i), true
		}
	}
	return 0, false
}

// ParseReviewDate parses review timestamp text into a UTC calendar date.
func ParseReviewDate(text string) (time.Time, error) {
	m := reviewDateRegex.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized review date %q", text)
	}
	month, ok := parseMonth(m[1])
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q in %q", m[1], text)
	}
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("day out of range in %q", text)
	}
	return t, nil
}

// MostRecentReview scans every timestamp on the page, keeps those whose
// enclosing container mentions class (case-insensitive) and returns the
// latest date. Timestamps that cannot be parsed are skipped and counted.
func MostRecentReview(tree *document.Tree, sel Selectors, class string) (ReviewDate, int) {
	sel = sel.withDefaults()
	needle := strings.ToLower(strings.TrimSpace(class))

	var newest time.Time
	skipped := 0
	for _, ts := range tree.ByClass(sel.Timestamp) {
		container := ts.Parent().Text()
		if !strings.Contains(strings.ToLower(container), needle) {
			continue
		}
		d, err := ParseReviewDate(ts.Text())
		if err != nil {
			skipped++
			continue
		}
		if d.After(newest) {
			newest = d
		}
	}
	return ReviewDate{Time: newest}, skipped
}
