package profile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/FranksOps/profscout/internal/document"
)

// Fields are the values read from a validated profile page.
type Fields struct {
	Name       string
	Grade      float64
	Difficulty Difficulty
	Ratings    int
}

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// ExtractFields reads name, grade, difficulty and rating count. Any missing
// or unreadable element fails the whole extraction with ErrStructure.
func ExtractFields(tree *document.Tree, sel Selectors) (Fields, error) {
	sel = sel.withDefaults()
	var f Fields

	nameText, err := firstText(tree, sel.Name, "name")
	if err != nil {
		return Fields{}, err
	}
	f.Name = NormalizeName(nameText)
	if f.Name == "" {
		return Fields{}, fmt.Errorf("%w: empty name", ErrStructure)
	}

	gradeText, err := firstText(tree, sel.Grade, "grade")
	if err != nil {
		return Fields{}, err
	}
	if f.Grade, err = parseLeadingFloat(gradeText); err != nil {
		return Fields{}, fmt.Errorf("%w: grade %q", ErrStructure, gradeText)
	}

	var diffs []float64
	for _, n := range tree.ByClass(sel.Difficulty) {
		v, err := parseLeadingFloat(n.Text())
		if err != nil {
			return Fields{}, fmt.Errorf("%w: difficulty %q", ErrStructure, n.Text())
		}
		diffs = append(diffs, v)
	}
	f.Difficulty = NewDifficulty(diffs)

	countText, err := firstText(tree, sel.RatingCount, "rating count")
	if err != nil {
		return Fields{}, err
	}
	if f.Ratings, err = parseLeadingInt(countText); err != nil {
		return Fields{}, fmt.Errorf("%w: rating count %q", ErrStructure, countText)
	}

	return f, nil
}

// NormalizeName keeps the first and last whitespace-separated tokens, which
// drops middle names and initials.
func NormalizeName(raw string) string {
	tokens := strings.Fields(raw)
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		return tokens[0]
	}
	return tokens[0] + " " + tokens[len(tokens)-1]
}

func firstText(tree *document.Tree, marker, what string) (string, error) {
	nodes := tree.ByClass(marker)
	if len(nodes) == 0 {
		return "", fmt.Errorf("%w: no %s element", ErrStructure, what)
	}
	return strings.TrimSpace(nodes[0].Text()), nil
}

func parseLeadingFloat(s string) (float64, error) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return strconv.ParseFloat(m, 64)
}

func parseLeadingInt(s string) (int, error) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return strconv.Atoi(m)
}
