package serp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/FranksOps/profscout/internal/document"
)

const resultsPage = `<html><body>
<div id="search">
  <a href="https://www.ratemyprofessors.com/professor/111">Jane Doe at State</a>
  <a href="https://webcache.googleusercontent.com/search?q=cache:abc:https://www.ratemyprofessors.com/professor/111">Cached</a>
  <a href="/url?q=https://www.ratemyprofessors.com/professor/222&sa=U&ved=xyz">John Roe</a>
  <a href="https://en.wikipedia.org/wiki/Professor">Wikipedia</a>
  <a href="https://www.ratemyprofessors.com/professor/111">Jane Doe again</a>
  <a>no href</a>
</div>
</body></html>`

type stubFetcher struct {
	body string
	err  error
	got  string
}

func (s *stubFetcher) FetchText(ctx context.Context, targetURL string) (string, error) {
	s.got = targetURL
	return s.body, s.err
}

func TestBuildQuery(t *testing.T) {
	got := BuildQuery([]string{"Rate My Professor", "Jane Doe", "CS101"})
	want := "rate+my+professor+jane+doe+cs101"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := BuildQuery(nil); got != "" {
		t.Errorf("expected empty query, got %q", got)
	}
}

func TestSearchURL(t *testing.T) {
	got := SearchURL("", "jane+doe&co", 0)
	want := "https://www.google.com/search?q=jane+doe%26co&num=50"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	got = SearchURL("http://127.0.0.1:8080/search?hl=en", "a+b", 10)
	want = "http://127.0.0.1:8080/search?hl=en&q=a+b&num=10"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractCandidates(t *testing.T) {
	tree := document.ParseString(resultsPage)
	defer tree.Release()

	filter := DefaultFilter()
	got := ExtractCandidates(tree, filter)
	want := []string{
		"https://www.ratemyprofessors.com/professor/111",
		"https://www.ratemyprofessors.com/professor/222",
		"https://www.ratemyprofessors.com/professor/111",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	for _, u := range got {
		if !strings.Contains(u, filter.DomainMarker) {
			t.Errorf("candidate %q does not contain domain marker", u)
		}
		if strings.Contains(u, filter.CacheMarker) {
			t.Errorf("candidate %q contains cache marker", u)
		}
	}
}

func TestExtractCandidates_Garbage(t *testing.T) {
	tree := document.ParseString("\x00<<<not html at all")
	defer tree.Release()

	if got := ExtractCandidates(tree, DefaultFilter()); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestFilter_Keep(t *testing.T) {
	f := Filter{DomainMarker: "ratemyprofessor", CacheMarker: "webcache.google"}
	cases := map[string]bool{
		"https://www.ratemyprofessors.com/professor/1":                  true,
		"https://webcache.googleusercontent.com/?q=ratemyprofessors.com": false,
		"https://example.com":                                            false,
		"":                                                               false,
	}
	for in, want := range cases {
		if got := f.Keep(in); got != want {
			t.Errorf("Keep(%q) = %v, want %v", in, got, want)
		}
	}

	if (Filter{}).Keep("https://www.ratemyprofessors.com") {
		t.Error("empty filter should keep nothing")
	}
}

func TestGoogleScrape_Search(t *testing.T) {
	f := &stubFetcher{body: resultsPage}
	g := &GoogleScrape{Fetcher: f}

	candidates, err := g.Search(context.Background(), "jane+doe", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if f.got != "https://www.google.com/search?q=jane+doe&num=50" {
		t.Errorf("unexpected search url %q", f.got)
	}

	limited, err := g.Search(context.Background(), "jane+doe", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 candidate with limit, got %d", len(limited))
	}
	if urls := URLs(limited); urls[0] != "https://www.ratemyprofessors.com/professor/111" {
		t.Errorf("unexpected first url %q", urls[0])
	}
}

func TestGoogleScrape_FetchError(t *testing.T) {
	boom := errors.New("connection refused")
	g := &GoogleScrape{Fetcher: &stubFetcher{err: boom}}

	_, err := g.Search(context.Background(), "x", 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestGoogleScrape_NegativeLimit(t *testing.T) {
	g := &GoogleScrape{Fetcher: &stubFetcher{}}
	if _, err := g.Search(context.Background(), "x", -1); err == nil {
		t.Error("expected error for negative limit")
	}
}
