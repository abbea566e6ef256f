package gencache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ilyakom/newsriver/app/database"
)

// mockCacheRepository implements database.CacheRepository for testing
type mockCacheRepository struct {
	mu      sync.Mutex
	entries map[string]database.CacheEntry
	getErr  error
}

func newMockCacheRepository() *mockCacheRepository {
	return &mockCacheRepository{entries: make(map[string]database.CacheEntry)}
}

func (m *mockCacheRepository) GetEntry(ctx context.Context, cacheKey string) (*database.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if entry, ok := m.entries[cacheKey]; ok {
		return &entry, nil
	}
	return nil, nil
}

func (m *mockCacheRepository) InsertEntry(ctx context.Context, e database.CacheEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.CacheKey]; ok {
		return false, nil
	}
	m.entries[e.CacheKey] = e
	return true, nil
}

func (m *mockCacheRepository) GetEntryCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func TestKeyIsOrderIndependent(t *testing.T) {
	a := Key("synthesis", "llama3", map[string]any{"topic": "ai", "hours": 24})
	b := Key("synthesis", "llama3", map[string]any{"hours": 24, "topic": "ai"})

	if a != b {
		t.Errorf("Expected identical keys for equal params, got %s vs %s", a, b)
	}
}

func TestKeyVariesWithInputs(t *testing.T) {
	base := Key("synthesis", "llama3", map[string]any{"topic": "ai"})

	variants := map[string]string{
		"operation": Key("summary", "llama3", map[string]any{"topic": "ai"}),
		"model":     Key("synthesis", "mistral", map[string]any{"topic": "ai"}),
		"params":    Key("synthesis", "llama3", map[string]any{"topic": "energy"}),
	}

	for name, key := range variants {
		if key == base {
			t.Errorf("Expected differing %s to change the key", name)
		}
	}
}

func TestGetOrComputeStoresOnMiss(t *testing.T) {
	store := newMockCacheRepository()
	cache := NewCache(store, nil)

	computed := 0
	response, cached, err := cache.GetOrCompute(context.Background(), "synthesis", "llama3",
		map[string]any{"topic": "ai"},
		func(ctx context.Context) (string, error) {
			computed++
			return "generated text", nil
		})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cached {
		t.Error("Expected a cache miss on first call")
	}
	if response != "generated text" {
		t.Errorf("Expected computed response, got: %q", response)
	}
	if computed != 1 {
		t.Errorf("Expected 1 computation, got: %d", computed)
	}

	count, _ := store.GetEntryCount(context.Background())
	if count != 1 {
		t.Errorf("Expected 1 stored entry, got: %d", count)
	}
}

func TestGetOrComputeServesRepeatFromCache(t *testing.T) {
	store := newMockCacheRepository()
	cache := NewCache(store, nil)
	ctx := context.Background()
	params := map[string]any{"topic": "ai", "hours": 24}

	computed := 0
	compute := func(ctx context.Context) (string, error) {
		computed++
		return "generated text", nil
	}

	cache.GetOrCompute(ctx, "synthesis", "llama3", params, compute)

	// Same request with params in a different construction order.
	response, cached, err := cache.GetOrCompute(ctx, "synthesis", "llama3",
		map[string]any{"hours": 24, "topic": "ai"}, compute)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !cached {
		t.Error("Expected a cache hit on repeat request")
	}
	if response != "generated text" {
		t.Errorf("Expected cached response, got: %q", response)
	}
	if computed != 1 {
		t.Errorf("Expected exactly 1 computation, got: %d", computed)
	}
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	store := newMockCacheRepository()
	cache := NewCache(store, nil)
	ctx := context.Background()

	var computed atomic.Int32
	compute := func(ctx context.Context) (string, error) {
		computed.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "generated text", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			response, _, err := cache.GetOrCompute(ctx, "synthesis", "llama3",
				map[string]any{"topic": "ai"}, compute)
			if err != nil {
				t.Errorf("GetOrCompute failed: %v", err)
				return
			}
			if response != "generated text" {
				t.Errorf("Expected shared response, got: %q", response)
			}
		}()
	}
	wg.Wait()

	if got := computed.Load(); got != 1 {
		t.Errorf("Expected exactly 1 computation across concurrent callers, got: %d", got)
	}

	count, _ := store.GetEntryCount(ctx)
	if count != 1 {
		t.Errorf("Expected 1 stored entry, got: %d", count)
	}
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	store := newMockCacheRepository()
	cache := NewCache(store, nil)
	ctx := context.Background()
	params := map[string]any{"topic": "ai"}

	_, _, err := cache.GetOrCompute(ctx, "synthesis", "llama3", params,
		func(ctx context.Context) (string, error) {
			return "", errors.New("model unavailable")
		})
	if err == nil {
		t.Fatal("Expected compute error to propagate")
	}

	count, _ := store.GetEntryCount(ctx)
	if count != 0 {
		t.Fatalf("Expected nothing cached after a failed computation, got: %d entries", count)
	}

	// The next identical request retries and succeeds.
	response, cached, err := cache.GetOrCompute(ctx, "synthesis", "llama3", params,
		func(ctx context.Context) (string, error) {
			return "generated text", nil
		})
	if err != nil {
		t.Fatalf("Expected retry to succeed, got: %v", err)
	}
	if cached {
		t.Error("Expected retry to recompute, not hit cache")
	}
	if response != "generated text" {
		t.Errorf("Expected recomputed response, got: %q", response)
	}
}

func TestGetOrComputeSurfacesStoreErrors(t *testing.T) {
	store := newMockCacheRepository()
	store.getErr = errors.New("connection refused")
	cache := NewCache(store, nil)

	_, _, err := cache.GetOrCompute(context.Background(), "synthesis", "llama3",
		map[string]any{"topic": "ai"},
		func(ctx context.Context) (string, error) {
			return "generated text", nil
		})
	if err == nil {
		t.Fatal("Expected store error to propagate")
	}
}
