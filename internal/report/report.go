package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	texttemplate "text/template"
	"time"

	"github.com/FranksOps/profscout/internal/pipeline"
	"github.com/FranksOps/profscout/internal/profile"
	"github.com/FranksOps/profscout/internal/storage"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Report is the printable outcome of one run, or of a set of stored records.
type Report struct {
	RunID      string             `json:"run_id,omitempty"`
	Query      string             `json:"query,omitempty"`
	School     string             `json:"school,omitempty"`
	Class      string             `json:"class,omitempty"`
	Candidates int                `json:"candidates"`
	Dropped    int                `json:"dropped"`
	StartTime  time.Time          `json:"start_time"`
	EndTime    time.Time          `json:"end_time"`
	Duration   time.Duration      `json:"duration"`
	MeanGrade  float64            `json:"mean_grade"`
	Profiles   []*profile.Summary `json:"profiles"`
}

// FromResult builds a report for a finished pipeline run.
func FromResult(res *pipeline.Result, school, class string) Report {
	r := Report{
		RunID:      res.RunID,
		Query:      res.Query,
		School:     school,
		Class:      class,
		Candidates: len(res.Candidates),
		Dropped:    res.Dropped,
		StartTime:  res.StartedAt,
		EndTime:    res.StartedAt.Add(res.Duration),
		Duration:   res.Duration,
		Profiles:   res.Summaries,
	}
	r.MeanGrade = meanGrade(r.Profiles)
	return r
}

// FromRecords builds a report over stored records. The time window spans
// the records' creation times.
func FromRecords(records []*storage.Record) Report {
	r := Report{Profiles: make([]*profile.Summary, 0, len(records))}
	if len(records) == 0 {
		return r
	}

	r.StartTime = records[0].CreatedAt
	r.EndTime = records[0].CreatedAt
	runs := make(map[string]struct{})
	classes := make(map[string]struct{})
	for _, rec := range records {
		r.Profiles = append(r.Profiles, rec.Summary())
		runs[rec.RunID] = struct{}{}
		classes[rec.Class] = struct{}{}
		if rec.CreatedAt.Before(r.StartTime) {
			r.StartTime = rec.CreatedAt
		}
		if rec.CreatedAt.After(r.EndTime) {
			r.EndTime = rec.CreatedAt
		}
	}
	if len(runs) == 1 {
		r.RunID = records[0].RunID
	}
	if len(classes) == 1 {
		r.Class = records[0].Class
	}
	r.Candidates = len(records)
	r.Duration = r.EndTime.Sub(r.StartTime)
	r.MeanGrade = meanGrade(r.Profiles)
	return r
}

func meanGrade(profiles []*profile.Summary) float64 {
	if len(profiles) == 0 {
		return 0
	}
	var sum float64
	for _, p := range profiles {
		sum += p.Grade
	}
	return sum / float64(len(profiles))
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

const textTmpl = `profscout report
----------------
{{- if .RunID}}
Run:         {{.RunID}}
{{- end}}
{{- if .Query}}
Query:       {{.Query}}
{{- end}}
{{- if .School}}
School:      {{.School}}
{{- end}}
{{- if .Class}}
Class:       {{.Class}}
{{- end}}
Time:        {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})
Candidates:  {{.Candidates}} ({{.Dropped}} dropped)
Profiles:    {{len .Profiles}}
{{- if .Profiles}}
Mean grade:  {{printf "%.2f" .MeanGrade}}
{{- end}}
{{range .Profiles}}
{{.Name}}
  School:       {{.School}}
  Grade:        {{printf "%.1f" .Grade}}
  Difficulty:   {{or .Difficulty.String "n/a"}}
  Ratings:      {{.Ratings}}
  Last review:  {{.MostRecentReview}}
  URL:          {{.URL}}
{{else}}
No matching profiles.
{{end}}`

var textReport = texttemplate.Must(texttemplate.New("textReport").Parse(textTmpl))

// WriteText writes a human-readable report.
func WriteText(w io.Writer, r Report) error {
	if err := textReport.Execute(w, r); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>profscout report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>profscout report</h1>
  {{- if .School}}<p><strong>School:</strong> {{.School}}</p>{{end}}
  {{- if .Class}}<p><strong>Class:</strong> {{.Class}}</p>{{end}}
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Candidates</div>
    <div class="stat-val">{{.Candidates}}</div>
  </div>
  <div class="stat-card">
    <div>Dropped</div>
    <div class="stat-val" style="color: {{if gt .Dropped 0}}red{{else}}green{{end}};">{{.Dropped}}</div>
  </div>
  <div class="stat-card">
    <div>Profiles</div>
    <div class="stat-val">{{len .Profiles}}</div>
  </div>

  <h3>Profiles</h3>
  <table>
    <tr><th>Name</th><th>School</th><th>Grade</th><th>Difficulty</th><th>Ratings</th><th>Most recent review</th></tr>
    {{- range .Profiles}}
    <tr><td><a href="{{.URL}}">{{.Name}}</a></td><td>{{.School}}</td><td>{{printf "%.1f" .Grade}}</td><td>{{.Difficulty}}</td><td>{{.Ratings}}</td><td>{{.MostRecentReview}}</td></tr>
    {{- else}}
    <tr><td colspan="6">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`

var htmlReport = template.Must(template.New("htmlReport").Parse(htmlTmpl))

// WriteHTML writes a standalone HTML page. Page-sourced text is escaped.
func WriteHTML(w io.Writer, r Report) error {
	if err := htmlReport.Execute(w, r); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// WriteTable renders the profiles as a terminal table.
func WriteTable(w io.Writer, r Report) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "School", "Grade", "Difficulty", "Ratings", "Most Recent Review", "URL"})
	for _, p := range r.Profiles {
		t.AppendRow(table.Row{
			p.Name,
			p.School,
			strconv.FormatFloat(p.Grade, 'f', 1, 64),
			p.Difficulty.String(),
			p.Ratings,
			p.MostRecentReview.String(),
			p.URL,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "profiles", len(r.Profiles)})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

// Write dispatches on format: text, json, html or table.
func Write(w io.Writer, format string, r Report) error {
	switch format {
	case "", "text":
		return WriteText(w, r)
	case "json":
		return WriteJSON(w, r)
	case "html":
		return WriteHTML(w, r)
	case "table":
		return WriteTable(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
