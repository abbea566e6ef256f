package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakom/newsriver/app/article"
	"github.com/ilyakom/newsriver/app/database"
	"github.com/ilyakom/newsriver/app/fetch"
)

// Assigner places a freshly inserted article into a story cluster.
type Assigner interface {
	Assign(ctx context.Context, articleID int64, simhash uint64, publishedAt time.Time) (string, bool, error)
}

// Dispatcher hands inserted articles to external enrichment.
type Dispatcher interface {
	ArticleInserted(ctx context.Context, articleID int64)
}

// Report counts per-item outcomes of one source-fetch pass. Individual bad
// items land in counters and never abort the batch.
type Report struct {
	Inserted   int
	Duplicates int
	Invalid    int
	Failed     int
}

type Pipeline struct {
	articles   database.ArticleRepository
	assigner   Assigner
	dispatcher Dispatcher
}

func NewPipeline(articles database.ArticleRepository, assigner Assigner, dispatcher Dispatcher) *Pipeline {
	return &Pipeline{
		articles:   articles,
		assigner:   assigner,
		dispatcher: dispatcher,
	}
}

// Run processes one source's raw items in yielded order: canonicalize,
// dedup-check, fingerprint, insert-if-absent, then hand new articles to the
// cluster assigner and the enrichment dispatcher. Only a dead store aborts
// the batch; everything else is a per-item counter.
func (p *Pipeline) Run(ctx context.Context, source database.Source, items []fetch.RawItem) (Report, error) {
	var report Report

	for _, item := range items {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		canonicalURL, domain, err := article.Canonicalize(item.Link, source.FeedURL)
		if errors.Is(err, article.ErrInvalidURL) {
			report.Invalid++
			slog.Debug("Item rejected", "source", source.Name, "link", item.Link, "reason", "invalid_url")
			continue
		}

		exists, err := p.articles.ExistsByCanonicalURL(ctx, canonicalURL)
		if err != nil {
			return report, fmt.Errorf("failed to check canonical URL: %w", err)
		}
		if exists {
			report.Duplicates++
			continue
		}

		body := item.Content
		if body == "" {
			body = item.Summary
		}
		normalized := article.NormalizeText(item.Title, body)

		newArticle := database.NewArticle{
			SourceID:     source.ID,
			URL:          item.Link,
			CanonicalURL: canonicalURL,
			Domain:       domain,
			Title:        item.Title,
			SummaryFeed:  item.Summary,
			FullText:     item.Content,
			Authors:      item.Authors,
			PublishedAt:  item.PublishedAt,
			ContentHash:  article.ContentHash(normalized),
			Simhash:      article.Simhash(normalized),
			Status:       "new",
		}

		articleID, inserted, err := p.articles.InsertArticle(ctx, newArticle)
		if err != nil {
			return report, fmt.Errorf("failed to insert article: %w", err)
		}
		if !inserted {
			// Lost the insert race to a concurrent worker: the canonical URL
			// unique constraint already holds the winner. A skip, not a failure.
			report.Duplicates++
			continue
		}

		report.Inserted++

		publishedAt := time.Now().UTC()
		if item.PublishedAt != nil {
			publishedAt = *item.PublishedAt
		}

		if _, _, err := p.assigner.Assign(ctx, articleID, newArticle.Simhash, publishedAt); err != nil {
			slog.Error("Cluster assignment failed", "source", source.Name, "article_id", articleID, "error", err)
			report.Failed++
		}

		if p.dispatcher != nil {
			p.dispatcher.ArticleInserted(ctx, articleID)
		}
	}

	return report, nil
}
