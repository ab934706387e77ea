package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/profscout/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS professor_summaries (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	name TEXT NOT NULL,
	grade DOUBLE PRECISION NOT NULL,
	difficulty DOUBLE PRECISION,
	ratings INTEGER NOT NULL,
	most_recent_review DATE,
	school TEXT NOT NULL,
	class TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS professor_summaries_run ON professor_summaries (run_id);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, r *storage.Record) error {
	query := `
	INSERT INTO professor_summaries (
		id, run_id, url, name, grade, difficulty, ratings, most_recent_review, school, class, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := b.pool.Exec(ctx, query,
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

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT id, run_id, url, name, grade, difficulty, ratings, most_recent_review, school, class, created_at FROM professor_summaries WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.School != "" {
		query += fmt.Sprintf(` AND strpos(school, $%d) > 0`, paramCount)
		args = append(args, filter.School)
		paramCount++
	}
	if filter.Class != "" {
		query += fmt.Sprintf(` AND lower(class) = lower($%d)`, paramCount)
		args = append(args, filter.Class)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var results []*storage.Record
	for rows.Next() {
		var r storage.Record
		err := rows.Scan(
			&r.ID, &r.RunID, &r.URL, &r.Name, &r.Grade, &r.Difficulty,
			&r.Ratings, &r.MostRecentReview, &r.School, &r.Class, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
