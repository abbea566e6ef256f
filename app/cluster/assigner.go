package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ilyakom/newsriver/app/article"
	"github.com/ilyakom/newsriver/app/database"
)

// Assigner places each newly inserted article into a story cluster by
// comparing its fingerprint against every article fingerprint inside the
// lookback window. Assignment is greedy and single-pass: the first cluster
// within threshold wins, and the partition is not globally optimal.
//
// One mutex serializes all assignment decisions. Two concurrent articles
// about the same story must never both open a new cluster, so the whole
// compare-and-commit runs under the lock; over-serializing here is the
// accepted cost.
type Assigner struct {
	articles  database.ArticleRepository
	clusters  database.ClusterRepository
	window    time.Duration
	threshold int
	now       func() time.Time

	mu    sync.Mutex
	index *windowIndex
}

func NewAssigner(articles database.ArticleRepository, clusters database.ClusterRepository, window time.Duration, threshold int) *Assigner {
	return &Assigner{
		articles:  articles,
		clusters:  clusters,
		window:    window,
		threshold: threshold,
		now:       time.Now,
		index:     newWindowIndex(),
	}
}

// Seed loads the comparison window from storage. Called once at startup;
// articles ingested before a restart stay clusterable against.
func (a *Assigner) Seed(ctx context.Context) error {
	since := a.now().UTC().Add(-a.window)

	records, err := a.articles.GetRecentFingerprints(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to seed cluster window: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, rec := range records {
		if rec.ClusterID == "" {
			continue
		}
		a.index.add(candidate{
			simhash:     rec.Simhash,
			clusterID:   rec.ClusterID,
			publishedAt: rec.PublishedAt,
		})
	}

	slog.Info("Cluster window seeded", "candidates", a.index.size(), "clusters", a.index.clusterCount(), "since", since)

	return nil
}

// Assign finds or creates the cluster for one article and reports the chosen
// cluster ID and whether it was newly created.
func (a *Assigner) Assign(ctx context.Context, articleID int64, simhash uint64, publishedAt time.Time) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now().UTC()
	a.index.prune(now.Add(-a.window))

	clusterID, found := a.pickCluster(simhash)
	if found {
		if err := a.articles.AssignCluster(ctx, articleID, clusterID); err != nil {
			return "", false, err
		}
		if err := a.clusters.AddMember(ctx, clusterID, publishedAt); err != nil {
			return "", false, err
		}

		a.index.add(candidate{simhash: simhash, clusterID: clusterID, publishedAt: publishedAt})
		a.index.recordJoin(clusterID, now)

		slog.Debug("Article joined cluster", "article_id", articleID, "cluster_id", clusterID)
		return clusterID, false, nil
	}

	clusterID = uuid.NewString()

	// The founding article's fingerprint stays the cluster representative for
	// its whole life; later members never rewrite it.
	err := a.clusters.CreateCluster(ctx, database.Cluster{
		ID:                    clusterID,
		RepresentativeSimhash: simhash,
		MemberCount:           1,
		FirstSeenAt:           publishedAt,
		LastSeenAt:            publishedAt,
	})
	if err != nil {
		return "", false, err
	}
	if err := a.articles.AssignCluster(ctx, articleID, clusterID); err != nil {
		return "", false, err
	}

	a.index.add(candidate{simhash: simhash, clusterID: clusterID, publishedAt: publishedAt})

	slog.Debug("New cluster created", "article_id", articleID, "cluster_id", clusterID)
	return clusterID, true, nil
}

// pickCluster scans the window for the minimum Hamming distance within
// threshold. Ties at the minimum distance resolve deterministically: most
// members, then most recently updated, then smallest cluster ID.
func (a *Assigner) pickCluster(simhash uint64) (string, bool) {
	minDist := a.threshold + 1
	tied := make(map[string]bool)

	for _, c := range a.index.candidates() {
		dist := article.HammingDistance(simhash, c.simhash)
		if dist > a.threshold || dist > minDist {
			continue
		}
		if dist < minDist {
			minDist = dist
			clear(tied)
		}
		tied[c.clusterID] = true
	}

	if len(tied) == 0 {
		return "", false
	}

	var best string
	var bestStat clusterStat
	for clusterID := range tied {
		stat := a.index.stat(clusterID)
		if best == "" || betterCandidate(stat, clusterID, bestStat, best) {
			best = clusterID
			bestStat = stat
		}
	}

	return best, true
}

func betterCandidate(s clusterStat, id string, bestStat clusterStat, bestID string) bool {
	if s.members != bestStat.members {
		return s.members > bestStat.members
	}
	if !s.updatedAt.Equal(bestStat.updatedAt) {
		return s.updatedAt.After(bestStat.updatedAt)
	}
	return id < bestID
}
