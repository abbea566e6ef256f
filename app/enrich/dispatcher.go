package enrich

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher queues freshly inserted articles for enrichment. Enrichment runs
// outside the ingestion path: results attach later through the article
// repository's UpdateEnrichment and never re-enter dedup or clustering.
//
// The default dispatcher only records the hand-off. External enrichers consume
// the articles table directly.
type Dispatcher struct {
	queue chan int64
	wg    sync.WaitGroup
	once  sync.Once
}

func NewDispatcher(buffer int) *Dispatcher {
	return &Dispatcher{
		queue: make(chan int64, buffer),
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for articleID := range d.queue {
			slog.Debug("Article dispatched for enrichment", "article_id", articleID)
		}
	}()
}

func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// ArticleInserted never blocks ingestion: when the queue is full the article
// is skipped, not waited on.
func (d *Dispatcher) ArticleInserted(ctx context.Context, articleID int64) {
	select {
	case d.queue <- articleID:
	default:
		slog.Warn("Enrichment queue full, skipping article", "article_id", articleID)
	}
}
