package serp

import "context"

// Candidate is a search result link suspected of pointing at a profile page.
type Candidate struct {
	URL string `json:"url"`
}

// SERPProvider abstracts a search engine provider that can return candidate
// profile links for a query. The limit parameter caps the number of results
// returned; zero means no cap.
type SERPProvider interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// URLs flattens candidates into their link strings, preserving order.
func URLs(candidates []Candidate) []string {
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, c.URL)
	}
	return urls
}
