package profile

import (
	"strings"

	"github.com/FranksOps/profscout/internal/document"
	"github.com/antzucaro/matchr"
)

// NearMiss is the school similarity above which a school mismatch is
// probably a spelling variant rather than a different school.
const NearMiss = 0.9

// Reject explains why a page was not accepted. Rejections are expected for
// most search results and are not errors.
type Reject string

const (
	RejectNone     Reject = ""
	RejectNoSchool Reject = "no_school"
	RejectSchool   Reject = "school_mismatch"
	RejectClass    Reject = "class_mismatch"
)

// Verdict is the outcome of the validation gates.
type Verdict struct {
	// School is the affiliated-school text found on the page.
	School string
	Reject Reject
	// ClassMatches counts class labels equal to the expected class.
	ClassMatches int
	// Similarity is the Jaro-Winkler similarity between the page's school and
	// the expected one, set on school mismatches.
	Similarity float64
}

// Passed reports whether both gates succeeded.
func (v Verdict) Passed() bool { return v.Reject == RejectNone }

// Validate runs the school gate and then the class gate, stopping at the
// first failure. school must appear verbatim in the page's school text;
// class is compared case-insensitively against each class label.
func Validate(tree *document.Tree, sel Selectors, school, class string) Verdict {
	sel = sel.withDefaults()

	pageSchool, ok := schoolText(tree, sel)
	if !ok {
		return Verdict{Reject: RejectNoSchool}
	}
	if !strings.Contains(pageSchool, school) {
		return Verdict{
			School:     pageSchool,
			Reject:     RejectSchool,
			Similarity: matchr.JaroWinkler(strings.ToLower(pageSchool), strings.ToLower(school), false),
		}
	}

	matches := 0
	for _, label := range tree.ByClass(sel.ClassLabel) {
		if classEqual(label.Text(), class) {
			matches++
		}
	}
	if matches == 0 {
		return Verdict{School: pageSchool, Reject: RejectClass}
	}
	return Verdict{School: pageSchool, ClassMatches: matches}
}

func schoolText(tree *document.Tree, sel Selectors) (string, bool) {
	titles := tree.ByClass(sel.School)
	if len(titles) == 0 {
		return "", false
	}
	anchors := titles[0].ByTag("a")
	if len(anchors) == 0 {
		return "", false
	}
	return strings.TrimSpace(anchors[0].Text()), true
}

func classEqual(label, class string) bool {
	return strings.EqualFold(strings.TrimSpace(label), strings.TrimSpace(class))
}
