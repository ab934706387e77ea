package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/profscout/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"run_id",
	"url",
	"name",
	"grade",
	"difficulty",
	"ratings",
	"most_recent_review",
	"school",
	"class",
	"created_at",
}

const reviewLayout = "2006-01-02"

// New creates a new CSV-backed storage.Backend. A header row is written to
// new files.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, r *storage.Record) error {
	difficulty := ""
	if r.Difficulty != nil {
		difficulty = strconv.FormatFloat(*r.Difficulty, 'f', 2, 64)
	}
	review := ""
	if r.MostRecentReview != nil {
		review = r.MostRecentReview.Format(reviewLayout)
	}

	record := []string{
		r.ID,
		r.RunID,
		r.URL,
		r.Name,
		strconv.FormatFloat(r.Grade, 'f', -1, 64),
		difficulty,
		strconv.Itoa(r.Ratings),
		review,
		r.School,
		r.Class,
		r.CreatedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.Record{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var matched []*storage.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		rec := parseRow(row)
		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	return filter.Page(matched), nil
}

func parseRow(row []string) *storage.Record {
	grade, _ := strconv.ParseFloat(row[4], 64)
	ratings, _ := strconv.Atoi(row[6])
	createdAt, _ := time.Parse(time.RFC3339Nano, row[10])

	rec := &storage.Record{
		ID:        row[0],
		RunID:     row[1],
		URL:       row[2],
		Name:      row[3],
		Grade:     grade,
		Ratings:   ratings,
		School:    row[8],
		Class:     row[9],
		CreatedAt: createdAt,
	}
	if v, err := strconv.ParseFloat(row[5], 64); err == nil {
		rec.Difficulty = &v
	}
	if t, err := time.Parse(reviewLayout, row[7]); err == nil {
		rec.MostRecentReview = &t
	}
	return rec
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
