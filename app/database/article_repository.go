package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var _ ArticleRepository = (*articleRepository)(nil)

type articleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) InsertArticle(ctx context.Context, a NewArticle) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO articles (
			source_id, url, canonical_url, domain, title, summary_feed,
			full_text, authors, published_at, content_hash, simhash, status
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12)
		ON CONFLICT (canonical_url) DO NOTHING
		RETURNING id
	`, a.SourceID, a.URL, a.CanonicalURL, a.Domain, a.Title, a.SummaryFeed,
		a.FullText, pq.Array(a.Authors), a.PublishedAt, a.ContentHash,
		int64(a.Simhash), a.Status).Scan(&id)

	// The unique constraint on canonical_url is the authoritative dedup
	// guard; losing the insert race is an expected outcome, not an error.
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert article: %w", err)
	}

	return id, true, nil
}

func (r *articleRepository) ExistsByCanonicalURL(ctx context.Context, canonicalURL string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM articles WHERE canonical_url = $1 LIMIT 1
	`, canonicalURL).Scan(&id)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check canonical URL: %w", err)
	}

	return true, nil
}

func (r *articleRepository) GetRecentFingerprints(ctx context.Context, since time.Time) ([]FingerprintRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, simhash, COALESCE(cluster_id::text, ''), COALESCE(published_at, fetched_at)
		FROM articles
		WHERE COALESCE(published_at, fetched_at) >= $1
		ORDER BY COALESCE(published_at, fetched_at)
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent fingerprints: %w", err)
	}
	defer rows.Close()

	var records []FingerprintRecord
	for rows.Next() {
		var rec FingerprintRecord
		var simhash int64
		if err := rows.Scan(&rec.ArticleID, &simhash, &rec.ClusterID, &rec.PublishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint row: %w", err)
		}
		rec.Simhash = uint64(simhash)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fingerprint rows: %w", err)
	}

	return records, nil
}

func (r *articleRepository) AssignCluster(ctx context.Context, articleID int64, clusterID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET cluster_id = $2, status = 'clustered'
		WHERE id = $1
	`, articleID, clusterID)

	if err != nil {
		return fmt.Errorf("failed to assign cluster: %w", err)
	}

	return nil
}

func (r *articleRepository) UpdateEnrichment(ctx context.Context, articleID int64, e Enrichment) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET keywords = COALESCE($2, keywords),
		    entities = COALESCE($3, entities),
		    sentiment = COALESCE($4, sentiment),
		    embedding = COALESCE($5, embedding),
		    summary_llm = COALESCE(NULLIF($6, ''), summary_llm),
		    status = 'enriched'
		WHERE id = $1
	`, articleID, pq.Array(e.Keywords), nullableJSON(e.Entities), e.Sentiment,
		nullableJSON(e.Embedding), e.SummaryLLM)

	if err != nil {
		return fmt.Errorf("failed to update enrichment: %w", err)
	}

	return nil
}

func (r *articleRepository) GetArticlesByCluster(ctx context.Context, clusterID string, limit, offset int) ([]Article, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_id, url, canonical_url, domain, title,
		       COALESCE(summary_feed, ''), COALESCE(full_text, ''),
		       COALESCE(authors, '{}'), published_at, content_hash, simhash,
		       COALESCE(cluster_id::text, ''), status, fetched_at, created_at
		FROM articles
		WHERE cluster_id = $1
		ORDER BY published_at DESC NULLS LAST
		LIMIT $2 OFFSET $3
	`, clusterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles by cluster: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		var simhash int64
		err := rows.Scan(
			&a.ID, &a.SourceID, &a.URL, &a.CanonicalURL, &a.Domain, &a.Title,
			&a.SummaryFeed, &a.FullText, pq.Array(&a.Authors), &a.PublishedAt,
			&a.ContentHash, &simhash, &a.ClusterID, &a.Status, &a.FetchedAt,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		a.Simhash = uint64(simhash)
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *articleRepository) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
