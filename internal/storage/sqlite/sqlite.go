package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/profscout/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS professor_summaries (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	name TEXT NOT NULL,
	grade REAL NOT NULL,
	difficulty REAL,
	ratings INTEGER NOT NULL,
	most_recent_review DATETIME,
	school TEXT NOT NULL,
	class TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS professor_summaries_run ON professor_summaries (run_id);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, r *storage.Record) error {
	query := `
	INSERT INTO professor_summaries (
		id, run_id, url, name, grade, difficulty, ratings, most_recent_review, school, class, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		r.ID,
		r.RunID,
		r.URL,
		r.Name,
		r.Grade,
		r.Difficulty,
		r.Ratings,
		r.MostRecentReview,
		r.School,
		r.Class,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save record %s: %w", r.URL, err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT id, run_id, url, name, grade, difficulty, ratings, most_recent_review, school, class, created_at FROM professor_summaries WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.School != "" {
		query += ` AND instr(school, ?) > 0`
		args = append(args, filter.School)
	}
	if filter.Class != "" {
		query += ` AND lower(class) = lower(?)`
		args = append(args, filter.Class)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var results []*storage.Record
	for rows.Next() {
		var r storage.Record
		var difficulty sql.NullFloat64
		var review sql.NullTime

		err := rows.Scan(
			&r.ID, &r.RunID, &r.URL, &r.Name, &r.Grade, &difficulty,
			&r.Ratings, &review, &r.School, &r.Class, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if difficulty.Valid {
			v := difficulty.Float64
			r.Difficulty = &v
		}
		if review.Valid {
			t := review.Time.UTC()
			r.MostRecentReview = &t
		}
		r.CreatedAt = r.CreatedAt.UTC()

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}

