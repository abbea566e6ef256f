package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var _ SourceRepository = (*sourceRepository)(nil)

type sourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) SourceRepository {
	return &sourceRepository{db: db}
}

const sourceColumns = `id, name, feed_url, site_domain, method, frequency_minutes,
	COALESCE(etag, ''), COALESCE(last_modified, ''), active,
	last_fetched_at, next_fetch_at, created_at, updated_at`

func (r *sourceRepository) UpsertSource(ctx context.Context, name, feedURL, siteDomain, method string, frequencyMinutes int, active bool) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sources (name, feed_url, site_domain, method, frequency_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			feed_url = EXCLUDED.feed_url,
			site_domain = EXCLUDED.site_domain,
			method = EXCLUDED.method,
			frequency_minutes = EXCLUDED.frequency_minutes,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING id
	`, name, feedURL, siteDomain, method, frequencyMinutes, active).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to upsert source: %w", err)
	}

	return id, nil
}

func (r *sourceRepository) GetSource(ctx context.Context, name string) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources
		WHERE name = $1
	`, name)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return source, nil
}

func (r *sourceRepository) GetActiveSources(ctx context.Context) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources
		WHERE active = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active sources: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

func (r *sourceRepository) GetSourcesDueForFetch(ctx context.Context, limit int) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources
		WHERE active = TRUE
		  AND (next_fetch_at IS NULL OR next_fetch_at <= NOW())
		ORDER BY COALESCE(next_fetch_at, '1970-01-01'::timestamptz)
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources due for fetch: %w", err)
	}
	defer rows.Close()

	return collectSources(rows)
}

func (r *sourceRepository) UpdateFetchState(ctx context.Context, sourceID int64, etag, lastModified string, lastFetched, nextFetch time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET etag = NULLIF($2, ''), last_modified = NULLIF($3, ''),
		    last_fetched_at = $4, next_fetch_at = $5, updated_at = NOW()
		WHERE id = $1
	`, sourceID, etag, lastModified, lastFetched, nextFetch)

	if err != nil {
		return fmt.Errorf("failed to update fetch state: %w", err)
	}

	return nil
}

func (r *sourceRepository) SetSourceActive(ctx context.Context, name string, active bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET active = $2, updated_at = NOW()
		WHERE name = $1
	`, name, active)

	if err != nil {
		return fmt.Errorf("failed to set source active status: %w", err)
	}

	return nil
}

func (r *sourceRepository) GetSourceCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func (r *sourceRepository) GetActiveSourceCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources WHERE active = TRUE").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get active source count: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var s Source
	err := row.Scan(
		&s.ID, &s.Name, &s.FeedURL, &s.SiteDomain, &s.Method, &s.FrequencyMinutes,
		&s.ETag, &s.LastModified, &s.Active,
		&s.LastFetchedAt, &s.NextFetchAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSources(rows *sql.Rows) ([]Source, error) {
	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}
