package profile

import (
	"fmt"
	"strings"
)

type review struct {
	class      string
	date       string
	difficulty string
}

// profilePage renders a page shaped like a RateMyProfessors profile.
func profilePage(name, school, grade, count string, reviews []review) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="TeacherInfo__StyledTeacher-ti1fio-1">`)
	fmt.Fprintf(&b, `<div class="RatingValue__Numerator-qw8sqy-2 liyUjw">%s</div>`, grade)
	fmt.Fprintf(&b, `<div class="NameTitle__Name-dowf0z-0 cfjPUG"><span>%s</span></div>`, name)
	if school != "" {
		fmt.Fprintf(&b, `<div class="NameTitle__Title-dowf0z-1 wVnqu">Professor in the <b>Computer Science department</b> at <a href="/school/1">%s</a></div>`, school)
	}
	b.WriteString(`</div>`)
	fmt.Fprintf(&b, `<ul><li class="TeacherRatingTabs__StyledTab-pnmswv-1 kLGmQB">%s&nbsp;<span>Student Ratings</span></li></ul>`, count)
	b.WriteString(`<ul id="ratingsList">`)
	for _, r := range reviews {
		b.WriteString(`<li><div class="Rating__StyledRating-sc-1rhvpxz-1">`)
		b.WriteString(`<div class="RatingHeader__StyledHeader-sc-1dlkqw1-1">`)
		fmt.Fprintf(&b, `<div class="RatingHeader__StyledClass-sc-1dlkqw1-2 eXfReS">%s</div>`, r.class)
		fmt.Fprintf(&b, `<div class="TimeStamp__StyledTimeStamp-sc-9q2r30-0 bXQmMr">%s</div>`, r.date)
		b.WriteString(`</div>`)
		fmt.Fprintf(&b, `<div class="RatingValues__RatingValue-sc-6dc747-3 lgjXUh">%s</div>`, r.difficulty)
		b.WriteString(`</div></li>`)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}
