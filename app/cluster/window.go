package cluster

import (
	"time"
)

// candidate is one article fingerprint inside the comparison window.
type candidate struct {
	simhash     uint64
	clusterID   string
	publishedAt time.Time
}

type clusterStat struct {
	members   int
	updatedAt time.Time
}

// windowIndex buckets candidates by publish hour so pruning drops whole
// buckets instead of rescanning the corpus. Not safe for concurrent use; the
// Assigner's mutex guards it.
type windowIndex struct {
	buckets map[int64][]candidate
	stats   map[string]clusterStat
	refs    map[string]int
}

func newWindowIndex() *windowIndex {
	return &windowIndex{
		buckets: make(map[int64][]candidate),
		stats:   make(map[string]clusterStat),
		refs:    make(map[string]int),
	}
}

func bucketKey(t time.Time) int64 {
	return t.UTC().Unix() / 3600
}

func (w *windowIndex) add(c candidate) {
	key := bucketKey(c.publishedAt)
	w.buckets[key] = append(w.buckets[key], c)
	w.refs[c.clusterID]++

	stat := w.stats[c.clusterID]
	stat.members++
	if c.publishedAt.After(stat.updatedAt) {
		stat.updatedAt = c.publishedAt
	}
	w.stats[c.clusterID] = stat
}

// recordJoin bumps the cluster's recency so the most-recently-updated
// tie-break reflects assignment order, not just publish timestamps.
func (w *windowIndex) recordJoin(clusterID string, at time.Time) {
	stat := w.stats[clusterID]
	if at.After(stat.updatedAt) {
		stat.updatedAt = at
		w.stats[clusterID] = stat
	}
}

// prune drops buckets entirely before the cutoff. Cluster stats survive as
// long as any candidate of that cluster remains in the window.
func (w *windowIndex) prune(cutoff time.Time) {
	cutoffKey := bucketKey(cutoff)

	for key, bucket := range w.buckets {
		if key >= cutoffKey {
			continue
		}
		for _, c := range bucket {
			w.refs[c.clusterID]--
			if w.refs[c.clusterID] <= 0 {
				delete(w.refs, c.clusterID)
				delete(w.stats, c.clusterID)
			}
		}
		delete(w.buckets, key)
	}
}

func (w *windowIndex) candidates() []candidate {
	var all []candidate
	for _, bucket := range w.buckets {
		all = append(all, bucket...)
	}
	return all
}

func (w *windowIndex) stat(clusterID string) clusterStat {
	return w.stats[clusterID]
}

func (w *windowIndex) size() int {
	total := 0
	for _, bucket := range w.buckets {
		total += len(bucket)
	}
	return total
}

func (w *windowIndex) clusterCount() int {
	return len(w.stats)
}
