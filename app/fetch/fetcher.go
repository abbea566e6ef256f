package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ilyakom/newsriver/app/database"
)

type Fetcher struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
	timeout    time.Duration
	maxItems   int
}

func NewFetcher(httpClient *http.Client, userAgent string, timeout time.Duration, maxItems int) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
		userAgent:  userAgent,
		timeout:    timeout,
		maxItems:   maxItems,
	}
}

// FetchFeed retrieves the source's feed over its primary path. Stored
// conditional-fetch tokens are sent with the request; a 304 yields a
// NotModified result with zero items. A successful fetch carries the new
// tokens back to the caller for persisting.
func (f *Fetcher) FetchFeed(ctx context.Context, source database.Source) Result {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", source.FeedURL, nil)
	if err != nil {
		return failed(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if source.ETag != "" {
		req.Header.Set("If-None-Match", source.ETag)
	}
	if source.LastModified != "" {
		req.Header.Set("If-Modified-Since", source.LastModified)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return failed(fmt.Errorf("failed to fetch feed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return Result{
			Status:       StatusNotModified,
			ETag:         source.ETag,
			LastModified: source.LastModified,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return failed(fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failed(fmt.Errorf("failed to read response body: %w", err))
	}

	feed, err := f.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return failed(fmt.Errorf("failed to parse feed: %w", err))
	}

	items := make([]RawItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		items = append(items, f.normalizeItem(item))
		if len(items) >= f.maxItems {
			break
		}
	}

	slog.Debug("Feed fetched", "source", source.Name, "entries", len(feed.Items), "items", len(items))

	return Result{
		Status:       StatusFetched,
		Items:        items,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}
}

func (f *Fetcher) normalizeItem(item *gofeed.Item) RawItem {
	raw := RawItem{
		Link:    item.Link,
		Title:   item.Title,
		Summary: item.Description,
		Content: item.Content,
	}

	if item.PublishedParsed != nil {
		published := item.PublishedParsed.UTC()
		raw.PublishedAt = &published
	} else if item.UpdatedParsed != nil {
		updated := item.UpdatedParsed.UTC()
		raw.PublishedAt = &updated
	}

	for _, author := range item.Authors {
		if author == nil {
			continue
		}
		if author.Name != "" {
			raw.Authors = append(raw.Authors, author.Name)
		} else if author.Email != "" {
			raw.Authors = append(raw.Authors, author.Email)
		}
	}

	return raw
}

func (f *Fetcher) get(ctx context.Context, url, accept string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
