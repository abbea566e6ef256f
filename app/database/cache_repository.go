package database

import (
	"context"
	"database/sql"
	"fmt"
)

var _ CacheRepository = (*cacheRepository)(nil)

type cacheRepository struct {
	db *DB
}

func NewCacheRepository(db *DB) CacheRepository {
	return &cacheRepository{db: db}
}

func (r *cacheRepository) GetEntry(ctx context.Context, cacheKey string) (*CacheEntry, error) {
	var e CacheEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT id, cache_key, operation, model, COALESCE(params, 'null'::jsonb), response, created_at
		FROM generation_cache
		WHERE cache_key = $1
	`, cacheKey).Scan(&e.ID, &e.CacheKey, &e.Operation, &e.Model, &e.Params, &e.Response, &e.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	return &e, nil
}

func (r *cacheRepository) InsertEntry(ctx context.Context, e CacheEntry) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO generation_cache (cache_key, operation, model, params, response)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cache_key) DO NOTHING
		RETURNING id
	`, e.CacheKey, e.Operation, e.Model, nullableJSON(e.Params), e.Response).Scan(&id)

	// Entries are immutable; a concurrent writer winning the race is fine.
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return true, nil
}

func (r *cacheRepository) GetEntryCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generation_cache").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get cache entry count: %w", err)
	}
	return count, nil
}
