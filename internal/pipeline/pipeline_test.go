package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/FranksOps/profscout/internal/profile"
	"github.com/FranksOps/profscout/internal/scraper"
	"github.com/FranksOps/profscout/internal/serp"
	"github.com/FranksOps/profscout/internal/storage"
)

type mockSERP struct {
	candidates []serp.Candidate
	err        error
	query      string
}

func (m *mockSERP) Search(ctx context.Context, query string, limit int) ([]serp.Candidate, error) {
	m.query = query
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.candidates) > limit {
		return m.candidates[:limit], nil
	}
	return m.candidates, nil
}

type mockFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (m *mockFetcher) FetchText(ctx context.Context, u string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, u)
	m.mu.Unlock()
	body, ok := m.pages[u]
	if !ok {
		return "", &scraper.TransportError{URL: u, StatusCode: 404, Reason: "unexpected status"}
	}
	return body, nil
}

type mockBackend struct {
	mu      sync.Mutex
	records []*storage.Record
}

func (m *mockBackend) Save(ctx context.Context, r *storage.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *mockBackend) Query(ctx context.Context, f storage.Filter) ([]*storage.Record, error) {
	return nil, nil
}

func (m *mockBackend) Close() error { return nil }

type denyAll struct{}

func (denyAll) Allowed(ctx context.Context, u string) (bool, error) { return false, nil }

func page(name, school, class, date string) string {
	return fmt.Sprintf(`<html><body>
<div class="RatingValue__Numerator-qw8sqy-2">4.1</div>
<div class="NameTitle__Name-dowf0z-0"><span>%s</span></div>
<div class="NameTitle__Title-dowf0z-1">Professor at <a href="/school/1">%s</a></div>
<ul><li class="TeacherRatingTabs__StyledTab-pnmswv-1">12&nbsp;<span>Student Ratings</span></li></ul>
<div><div class="RatingHeader__StyledClass-sc-1">%s</div><div class="TimeStamp__StyledTimeStamp-sc-9q2r30-0">%s</div></div>
<div class="RatingValues__RatingValue-sc-6dc747-3">3</div>
</body></html>`, name, school, class, date)
}

func newTestPipeline(urls []string, pages map[string]string) (*Pipeline, *mockFetcher, *mockBackend) {
	var cands []serp.Candidate
	for _, u := range urls {
		cands = append(cands, serp.Candidate{URL: u})
	}
	f := &mockFetcher{pages: pages}
	b := &mockBackend{}
	return &Pipeline{
		SERPProvider: &mockSERP{candidates: cands},
		Fetcher:      f,
		Backend:      b,
		Concurrency:  2,
	}, f, b
}

func TestPipeline_Discover(t *testing.T) {
	s := &mockSERP{candidates: []serp.Candidate{{URL: "https://www.ratemyprofessors.com/professor/1"}}}
	p := &Pipeline{SERPProvider: s}

	urls, err := p.Discover(context.Background(), []string{"Jane Doe", "CS101"})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("expected 1 url, got %d", len(urls))
	}
	if s.query != "jane+doe+cs101" {
		t.Errorf("unexpected query %q", s.query)
	}
}

func TestPipeline_DiscoverError(t *testing.T) {
	cause := &scraper.TransportError{URL: "https://www.google.com/search", StatusCode: 429, Reason: "unexpected status"}
	p := &Pipeline{SERPProvider: &mockSERP{err: cause}}

	_, err := p.Discover(context.Background(), []string{"x"})
	var te *scraper.TransportError
	if !errors.As(err, &te) || te.StatusCode != 429 {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestPipeline_Extract(t *testing.T) {
	u := "https://www.ratemyprofessors.com/professor/1"
	p, _, _ := newTestPipeline(nil, map[string]string{
		u: page("Jane Q Doe", "State University", "CS101", "Mar 3rd, 2023"),
	})
	ctx := context.Background()

	s, err := p.Extract(ctx, u, "State University", "cs101")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if s == nil {
		t.Fatal("expected summary")
	}
	if s.Name != "Jane Doe" || s.Grade != 4.1 || s.Ratings != 12 {
		t.Errorf("unexpected summary %+v", s)
	}
	if got := s.MostRecentReview.String(); got != "2023-03-03" {
		t.Errorf("expected 2023-03-03, got %s", got)
	}

	s, err = p.Extract(ctx, u, "Other College", "CS101")
	if err != nil || s != nil {
		t.Errorf("expected rejection, got %v, %v", s, err)
	}

	_, err = p.Extract(ctx, "https://www.ratemyprofessors.com/missing", "State University", "CS101")
	if !scraper.IsTransportError(err) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestPipeline_ExtractStructureError(t *testing.T) {
	u := "https://www.ratemyprofessors.com/professor/9"
	p, _, _ := newTestPipeline(nil, map[string]string{
		u: `<div class="NameTitle__Title-x"><a>State University</a></div><div class="RatingHeader__StyledClass-x">CS101</div>`,
	})

	s, err := p.Extract(context.Background(), u, "State University", "CS101")
	if err != nil || s != nil {
		t.Errorf("expected nil, nil for malformed page, got %v, %v", s, err)
	}
}

func TestPipeline_ExtractRobots(t *testing.T) {
	u := "https://www.ratemyprofessors.com/professor/1"
	p, f, _ := newTestPipeline(nil, map[string]string{u: page("A B", "S", "C", "Jan 1st, 2020")})
	p.Robots = denyAll{}

	s, err := p.Extract(context.Background(), u, "S", "C")
	if err != nil || s != nil {
		t.Errorf("expected skipped candidate, got %v, %v", s, err)
	}
	if len(f.calls) != 0 {
		t.Errorf("expected no fetch, got %v", f.calls)
	}
}

func TestPipeline_Run(t *testing.T) {
	urls := []string{
		"https://www.ratemyprofessors.com/professor/1",
		"https://www.ratemyprofessors.com/professor/2",
		"https://www.ratemyprofessors.com/professor/3",
		"https://www.ratemyprofessors.com/professor/4",
		"https://www.ratemyprofessors.com/professor/5",
	}
	p, _, backend := newTestPipeline(urls, map[string]string{
		urls[0]: page("Ann One", "State University", "CS101", "Jan 5th, 2021"),
		urls[1]: page("Bob Two", "Other College", "CS101", "Jan 5th, 2021"),
		// urls[2] is missing and fails in transport
		urls[3]: page("Dee Four", "State University", "CS101", "Feb 1st, 2022"),
		urls[4]: page("Eve Five", "State University", "MATH200", "Feb 1st, 2022"),
	})

	res, err := p.Run(context.Background(), Request{Keywords: []string{"ann", "cs101"}, School: "State University", Class: "CS101"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(res.Candidates) != 5 {
		t.Errorf("expected 5 candidates, got %d", len(res.Candidates))
	}
	if res.Dropped != 1 {
		t.Errorf("expected 1 dropped candidate, got %d", res.Dropped)
	}
	if len(res.Summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(res.Summaries))
	}
	if res.Summaries[0].Name != "Ann One" || res.Summaries[1].Name != "Dee Four" {
		t.Errorf("summaries out of candidate order: %s, %s", res.Summaries[0].Name, res.Summaries[1].Name)
	}

	if len(backend.records) != 2 {
		t.Fatalf("expected 2 saved records, got %d", len(backend.records))
	}
	for _, r := range backend.records {
		if r.RunID != res.RunID || r.Class != "CS101" {
			t.Errorf("unexpected record %+v", r)
		}
	}
}

func TestPipeline_RunLimit(t *testing.T) {
	urls := []string{
		"https://www.ratemyprofessors.com/professor/1",
		"https://www.ratemyprofessors.com/professor/2",
	}
	p, f, _ := newTestPipeline(urls, map[string]string{
		urls[0]: page("Ann One", "S", "C", "Jan 5th, 2021"),
		urls[1]: page("Bob Two", "S", "C", "Jan 5th, 2021"),
	})
	p.Limit = 1
	p.Extractor = profile.NewExtractor(profile.DefaultSelectors(), nil)

	res, err := p.Run(context.Background(), Request{Keywords: []string{"x"}, School: "S", Class: "C"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(res.Summaries) != 1 || len(f.calls) != 1 {
		t.Errorf("expected one candidate processed, got %d summaries and %d fetches", len(res.Summaries), len(f.calls))
	}
}

func TestPipeline_RunCancelled(t *testing.T) {
	p, _, _ := newTestPipeline([]string{"https://www.ratemyprofessors.com/professor/1"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Run(ctx, Request{Keywords: []string{"x"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPipeline_MissingComponents(t *testing.T) {
	p := &Pipeline{}
	if _, err := p.Discover(context.Background(), nil); err == nil {
		t.Error("expected error for nil SERPProvider")
	}
	if _, err := p.Extract(context.Background(), "https://x", "", ""); err == nil {
		t.Error("expected error for nil Fetcher")
	}
}
