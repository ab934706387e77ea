package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/profscout/internal/pipeline"
	"github.com/FranksOps/profscout/internal/profile"
	"github.com/FranksOps/profscout/internal/storage"
)

func sampleResult() *pipeline.Result {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &pipeline.Result{
		RunID:      "run-1",
		Query:      "jane+doe+cs101",
		Candidates: []string{"a", "b", "c"},
		Dropped:    1,
		StartedAt:  start,
		Duration:   2 * time.Second,
		Summaries: []*profile.Summary{
			{
				URL:              "https://www.ratemyprofessors.com/professor/1",
				Name:             "Jane Doe",
				Grade:            4,
				Difficulty:       profile.NewDifficulty([]float64{3, 4}),
				Ratings:          10,
				MostRecentReview: profile.ReviewDate{Time: time.Date(2023, 3, 3, 0, 0, 0, 0, time.UTC)},
				School:           "State University",
			},
			{
				URL:    "https://www.ratemyprofessors.com/professor/2",
				Name:   "<b>Bob</b> Roe",
				Grade:  3,
				School: "State University",
			},
		},
	}
}

func TestFromResult(t *testing.T) {
	r := FromResult(sampleResult(), "State University", "CS101")

	if r.Candidates != 3 || r.Dropped != 1 || len(r.Profiles) != 2 {
		t.Errorf("unexpected counts %+v", r)
	}
	if r.MeanGrade != 3.5 {
		t.Errorf("expected mean grade 3.5, got %v", r.MeanGrade)
	}
	if !r.EndTime.Equal(r.StartTime.Add(2 * time.Second)) {
		t.Errorf("unexpected end time %v", r.EndTime)
	}
}

func TestFromRecords(t *testing.T) {
	now := time.Now().UTC()
	res := sampleResult()
	records := []*storage.Record{
		storage.NewRecord("run-1", "CS101", res.Summaries[0]),
		storage.NewRecord("run-1", "CS101", res.Summaries[1]),
	}
	records[0].CreatedAt = now
	records[1].CreatedAt = now.Add(-time.Minute)

	r := FromRecords(records)
	if r.RunID != "run-1" || r.Class != "CS101" {
		t.Errorf("expected single run and class, got %q %q", r.RunID, r.Class)
	}
	if r.Duration != time.Minute {
		t.Errorf("expected 1m window, got %v", r.Duration)
	}
	if got := r.Profiles[0].Difficulty.String(); got != "3.50" {
		t.Errorf("expected difficulty 3.50, got %q", got)
	}
	if r.Profiles[1].MostRecentReview.Found() {
		t.Error("expected no review for second profile")
	}

	if empty := FromRecords(nil); len(empty.Profiles) != 0 || empty.Candidates != 0 {
		t.Errorf("unexpected empty report %+v", empty)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, FromResult(sampleResult(), "State University", "CS101")); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Run:         run-1", "Candidates:  3 (1 dropped)", "Jane Doe", "3.50", "2023-03-03", "No review found", "n/a"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteText(&buf, Report{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No matching profiles.") {
		t.Errorf("expected empty marker, got:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, FromResult(sampleResult(), "State University", "CS101")); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var decoded struct {
		RunID    string            `json:"run_id"`
		Profiles []map[string]any `json:"profiles"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.RunID != "run-1" || len(decoded.Profiles) != 2 {
		t.Errorf("unexpected decoded report %+v", decoded)
	}
	if got := decoded.Profiles[0]["Most_Recent_Review"]; got != "2023-03-03" {
		t.Errorf("expected Most_Recent_Review 2023-03-03, got %v", got)
	}
	if got := decoded.Profiles[1]["Most_Recent_Review"]; got != "No review found" {
		t.Errorf("expected placeholder review, got %v", got)
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, FromResult(sampleResult(), "State University", "CS101")); err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<!DOCTYPE html>") || !strings.Contains(out, "Jane Doe") {
		t.Errorf("unexpected html output")
	}
	if strings.Contains(out, "<b>Bob</b>") {
		t.Error("page text must be escaped")
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, FromResult(sampleResult(), "", "")); err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NAME", "Jane Doe", "3.50", "No review found"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	if err := Write(&bytes.Buffer{}, "xml", Report{}); err == nil {
		t.Error("expected error for unknown format")
	}
}
