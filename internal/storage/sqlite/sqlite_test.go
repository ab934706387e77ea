package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/FranksOps/profscout/internal/storage"
)

func TestSQLiteBackend(t *testing.T) {
	b, err := New("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	difficulty := 3.5
	review := time.Date(2022, 11, 20, 0, 0, 0, 0, time.UTC)

	rec := &storage.Record{
		ID:               "rec-1",
		RunID:            "run-1",
		URL:              "https://www.ratemyprofessors.com/professor/1",
		Name:             "Jane Doe",
		Grade:            4.2,
		Difficulty:       &difficulty,
		Ratings:          87,
		MostRecentReview: &review,
		School:           "State University",
		Class:            "CS101",
		CreatedAt:        now,
	}
	if err := b.Save(ctx, rec); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	empty := &storage.Record{
		ID:        "rec-2",
		RunID:     "run-2",
		URL:       "https://www.ratemyprofessors.com/professor/2",
		Name:      "John Roe",
		Grade:     3.1,
		Ratings:   4,
		School:    "Tech College",
		Class:     "math200",
		CreatedAt: now.Add(time.Second),
	}
	if err := b.Save(ctx, empty); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{RunID: "run-1"})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	got := results[0]
	if got.ID != rec.ID || got.URL != rec.URL || got.Name != rec.Name || got.School != rec.School || got.Class != rec.Class {
		t.Errorf("Expected %+v, got %+v", rec, got)
	}
	if got.Grade != rec.Grade || got.Ratings != rec.Ratings {
		t.Errorf("Expected grade %v ratings %d, got %v %d", rec.Grade, rec.Ratings, got.Grade, got.Ratings)
	}
	if got.Difficulty == nil || *got.Difficulty != difficulty {
		t.Errorf("Expected difficulty %v, got %v", difficulty, got.Difficulty)
	}
	if got.MostRecentReview == nil || !got.MostRecentReview.Equal(review) {
		t.Errorf("Expected review %v, got %v", review, got.MostRecentReview)
	}
	if got.CreatedAt.Unix() != rec.CreatedAt.Unix() {
		t.Errorf("Expected CreatedAt %v, got %v", rec.CreatedAt, got.CreatedAt)
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "rec-2" {
		t.Fatalf("Expected newest first, got %d results", len(all))
	}
	if all[0].Difficulty != nil || all[0].MostRecentReview != nil {
		t.Errorf("Expected NULL difficulty and review, got %+v", all[0])
	}

	byClass, err := b.Query(ctx, storage.Filter{Class: "MATH200"})
	if err != nil {
		t.Fatalf("Failed to query by class: %v", err)
	}
	if len(byClass) != 1 || byClass[0].ID != "rec-2" {
		t.Errorf("Expected rec-2 by class, got %d results", len(byClass))
	}

	bySchool, err := b.Query(ctx, storage.Filter{School: "State"})
	if err != nil {
		t.Fatalf("Failed to query by school: %v", err)
	}
	if len(bySchool) != 1 || bySchool[0].ID != "rec-1" {
		t.Errorf("Expected rec-1 by school, got %d results", len(bySchool))
	}

	paged, err := b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query with offset: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != "rec-1" {
		t.Errorf("Expected rec-1 after offset, got %d results", len(paged))
	}
}
