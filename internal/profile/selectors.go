package profile

// Selectors are the class markers that locate each piece of a profile page.
// A marker matches a class token exactly or as its prefix before a "-", so
// the hashed suffixes the site generates can be left off.
type Selectors struct {
	// School is the container of the professor's title line; the school is
	// the first anchor inside it.
	School      string
	ClassLabel  string
	Name        string
	Grade       string
	Difficulty  string
	RatingCount string
	Timestamp   string
}

// DefaultSelectors returns the markers used by RateMyProfessors profile pages.
func DefaultSelectors() Selectors {
	return Selectors{
		School:      "NameTitle__Title",
		ClassLabel:  "RatingHeader__StyledClass",
		Name:        "NameTitle__Name",
		Grade:       "RatingValue__Numerator",
		Difficulty:  "RatingValues__RatingValue",
		RatingCount: "TeacherRatingTabs__StyledTab",
		Timestamp:   "TimeStamp__StyledTimeStamp",
	}
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	if s.School == "" {
		s.School = d.School
	}
	if s.ClassLabel == "" {
		s.ClassLabel = d.ClassLabel
	}
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.Grade == "" {
		s.Grade = d.Grade
	}
	if s.Difficulty == "" {
		s.Difficulty = d.Difficulty
	}
	if s.RatingCount == "" {
		s.RatingCount = d.RatingCount
	}
	if s.Timestamp == "" {
		s.Timestamp = d.Timestamp
	}
	return s
}
