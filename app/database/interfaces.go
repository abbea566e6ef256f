package database

import (
	"context"
	"time"
)

type SourceRepository interface {
	UpsertSource(ctx context.Context, name, feedURL, siteDomain, method string, frequencyMinutes int, active bool) (int64, error)
	GetSource(ctx context.Context, name string) (*Source, error)
	GetActiveSources(ctx context.Context) ([]Source, error)
	GetSourcesDueForFetch(ctx context.Context, limit int) ([]Source, error)
	UpdateFetchState(ctx context.Context, sourceID int64, etag, lastModified string, lastFetched, nextFetch time.Time) error
	SetSourceActive(ctx context.Context, name string, active bool) error
	GetSourceCount(ctx context.Context) (int, error)
	GetActiveSourceCount(ctx context.Context) (int, error)
}

type ArticleRepository interface {
	// InsertArticle inserts the article if its canonical URL is unseen and
	// reports whether a row was created. A concurrent insert of the same
	// canonical URL yields (0, false, nil), never an error.
	InsertArticle(ctx context.Context, a NewArticle) (int64, bool, error)
	ExistsByCanonicalURL(ctx context.Context, canonicalURL string) (bool, error)
	GetRecentFingerprints(ctx context.Context, since time.Time) ([]FingerprintRecord, error)
	AssignCluster(ctx context.Context, articleID int64, clusterID string) error
	UpdateEnrichment(ctx context.Context, articleID int64, e Enrichment) error
	GetArticlesByCluster(ctx context.Context, clusterID string, limit, offset int) ([]Article, error)
	GetArticleCount(ctx context.Context) (int, error)
}

type ClusterRepository interface {
	CreateCluster(ctx context.Context, c Cluster) error
	AddMember(ctx context.Context, clusterID string, lastSeen time.Time) error
	GetCluster(ctx context.Context, clusterID string) (*Cluster, error)
	ListRecentClusters(ctx context.Context, since time.Time, limit int) ([]Cluster, error)
	GetClusterCount(ctx context.Context) (int, error)
}

type CacheRepository interface {
	GetEntry(ctx context.Context, cacheKey string) (*CacheEntry, error)
	// InsertEntry stores the entry if the key is unseen and reports whether a
	// row was created. Entries are immutable: a conflicting insert is a no-op.
	InsertEntry(ctx context.Context, e CacheEntry) (bool, error)
	GetEntryCount(ctx context.Context) (int, error)
}
