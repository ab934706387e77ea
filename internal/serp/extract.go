package serp

import (
	"net/url"
	"strings"

	"github.com/FranksOps/profscout/internal/document"
)

const (
	DefaultDomainMarker = "ratemyprofessor"
	DefaultCacheMarker  = "webcache.google"
)

// Filter decides which result links are profile candidates.
type Filter struct {
	// DomainMarker must appear in a kept link.
	DomainMarker string
	// CacheMarker must not appear in a kept link; it identifies cached copies.
	CacheMarker string
}

// DefaultFilter matches RateMyProfessors links and drops Google cache copies.
func DefaultFilter() Filter {
	return Filter{DomainMarker: DefaultDomainMarker, CacheMarker: DefaultCacheMarker}
}

// Keep reports whether href is a candidate profile link.
func (f Filter) Keep(href string) bool {
	if f.DomainMarker == "" || !strings.Contains(href, f.DomainMarker) {
		return false
	}
	if f.CacheMarker != "" && strings.Contains(href, f.CacheMarker) {
		return false
	}
	return true
}

// ExtractCandidates returns every anchor href in tree accepted by filter, in
// document order. Duplicates are kept.
func ExtractCandidates(tree *document.Tree, filter Filter) []string {
	var out []string
	for _, href := range tree.Links() {
		href = unwrapRedirect(href)
		if filter.Keep(href) {
			out = append(out, href)
		}
	}
	return out
}

// unwrapRedirect turns Google's "/url?q=<target>&sa=..." result wrappers into
// the target link. Anything else is returned untouched.
func unwrapRedirect(href string) string {
	if !strings.HasPrefix(href, "/url?") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	if q := u.Query().Get("url"); q != "" {
		return q
	}
	return href
}
