package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var _ ClusterRepository = (*clusterRepository)(nil)

type clusterRepository struct {
	db *DB
}

func NewClusterRepository(db *DB) ClusterRepository {
	return &clusterRepository{db: db}
}

func (r *clusterRepository) CreateCluster(ctx context.Context, c Cluster) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clusters (id, representative_simhash, member_count, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, int64(c.RepresentativeSimhash), c.MemberCount, c.FirstSeenAt, c.LastSeenAt)

	if err != nil {
		return fmt.Errorf("failed to create cluster: %w", err)
	}

	return nil
}

func (r *clusterRepository) AddMember(ctx context.Context, clusterID string, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE clusters
		SET member_count = member_count + 1,
		    last_seen_at = GREATEST(last_seen_at, $2),
		    updated_at = NOW()
		WHERE id = $1
	`, clusterID, lastSeen)

	if err != nil {
		return fmt.Errorf("failed to add cluster member: %w", err)
	}

	return nil
}

func (r *clusterRepository) GetCluster(ctx context.Context, clusterID string) (*Cluster, error) {
	var c Cluster
	var simhash int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, representative_simhash, member_count, first_seen_at, last_seen_at, created_at, updated_at
		FROM clusters
		WHERE id = $1
	`, clusterID).Scan(&c.ID, &simhash, &c.MemberCount, &c.FirstSeenAt, &c.LastSeenAt, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}

	c.RepresentativeSimhash = uint64(simhash)
	return &c, nil
}

func (r *clusterRepository) ListRecentClusters(ctx context.Context, since time.Time, limit int) ([]Cluster, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, representative_simhash, member_count, first_seen_at, last_seen_at, created_at, updated_at
		FROM clusters
		WHERE last_seen_at >= $1
		ORDER BY member_count DESC, last_seen_at DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent clusters: %w", err)
	}
	defer rows.Close()

	var clusters []Cluster
	for rows.Next() {
		var c Cluster
		var simhash int64
		err := rows.Scan(&c.ID, &simhash, &c.MemberCount, &c.FirstSeenAt, &c.LastSeenAt, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster row: %w", err)
		}
		c.RepresentativeSimhash = uint64(simhash)
		clusters = append(clusters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cluster rows: %w", err)
	}

	return clusters, nil
}

func (r *clusterRepository) GetClusterCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clusters").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get cluster count: %w", err)
	}
	return count, nil
}
