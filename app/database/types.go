package database

import (
	"time"
)

type Source struct {
	ID               int64
	Name             string
	FeedURL          string
	SiteDomain       string
	Method           string // feed, sitemap, api
	FrequencyMinutes int
	ETag             string
	LastModified     string
	Active           bool
	LastFetchedAt    *time.Time
	NextFetchAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Article struct {
	ID           int64
	SourceID     int64
	URL          string
	CanonicalURL string
	Domain       string
	Title        string
	SummaryFeed  string
	FullText     string
	Authors      []string
	PublishedAt  *time.Time
	ContentHash  string
	Simhash      uint64
	ClusterID    string // empty until assigned
	Status       string
	FetchedAt    time.Time
	CreatedAt    time.Time
}

// NewArticle carries the fields the ingestion pipeline computes for an insert
// attempt. Enrichment columns are attached later through UpdateEnrichment.
type NewArticle struct {
	SourceID     int64
	URL          string
	CanonicalURL string
	Domain       string
	Title        string
	SummaryFeed  string
	FullText     string
	Authors      []string
	PublishedAt  *time.Time
	ContentHash  string
	Simhash      uint64
	Status       string
}

// FingerprintRecord is one candidate in the cluster comparison window.
type FingerprintRecord struct {
	ArticleID   int64
	Simhash     uint64
	ClusterID   string
	PublishedAt time.Time
}

type Cluster struct {
	ID                    string
	RepresentativeSimhash uint64
	MemberCount           int
	FirstSeenAt           time.Time
	LastSeenAt            time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Enrichment struct {
	Keywords   []string
	Entities   []byte // raw JSON
	Sentiment  *float64
	Embedding  []byte // raw JSON
	SummaryLLM string
}

type CacheEntry struct {
	ID        int64
	CacheKey  string
	Operation string
	Model     string
	Params    []byte // raw JSON
	Response  string
	CreatedAt time.Time
}
