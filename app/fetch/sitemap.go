package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakom/newsriver/app/database"
)

const (
	sitemapAccept    = "application/xml, text/xml;q=0.9, */*;q=0.8"
	maxChildSitemaps = 5
)

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type sitemapDoc struct {
	XMLName  xml.Name
	Sitemaps []sitemapEntry `xml:"sitemap"`
	URLs     []sitemapEntry `xml:"url"`
}

// FetchSitemap is the fallback path: discover the source's sitemap, extract
// candidate article links, and backfill title/body from the article pages.
// Feed-provided metadata is absent here, so whatever the backfill cannot
// recover stays empty.
func (f *Fetcher) FetchSitemap(ctx context.Context, source database.Source) Result {
	entries, err := f.discoverSitemap(ctx, source.SiteDomain)
	if err != nil {
		return failed(fmt.Errorf("sitemap discovery failed: %w", err))
	}
	if len(entries) == 0 {
		return failed(fmt.Errorf("no URLs found in sitemap for %s", source.SiteDomain))
	}

	items := make([]RawItem, 0, len(entries))
	for _, entry := range entries {
		item := RawItem{Link: entry.Loc}

		if entry.LastMod != "" {
			if t, err := time.Parse(time.RFC3339, entry.LastMod); err == nil {
				published := t.UTC()
				item.PublishedAt = &published
			}
		}

		f.backfill(ctx, &item)
		if item.Title == "" {
			item.Title = titleFromSlug(entry.Loc)
		}

		items = append(items, item)
	}

	slog.Debug("Sitemap fallback produced items", "source", source.Name, "items", len(items))

	return Result{Status: StatusFetched, Items: items, FallbackUsed: true}
}

func (f *Fetcher) discoverSitemap(ctx context.Context, domain string) ([]sitemapEntry, error) {
	var lastErr error

	for _, url := range []string{
		"https://" + domain + "/sitemap.xml",
		"http://" + domain + "/sitemap.xml",
	} {
		data, err := f.get(ctx, url, sitemapAccept)
		if err != nil {
			lastErr = err
			continue
		}

		entries, err := f.parseSitemap(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("empty sitemap")
	}
	return nil, lastErr
}

func (f *Fetcher) parseSitemap(ctx context.Context, data []byte) ([]sitemapEntry, error) {
	var doc sitemapDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap XML: %w", err)
	}

	entries := trimEntries(doc.URLs, f.maxItems)

	// A sitemap index points at child sitemaps instead of URLs; descend one
	// level into a bounded number of children.
	if len(entries) == 0 && len(doc.Sitemaps) > 0 {
		children := doc.Sitemaps
		if len(children) > maxChildSitemaps {
			children = children[:maxChildSitemaps]
		}

		for _, child := range children {
			if child.Loc == "" {
				continue
			}
			childData, err := f.get(ctx, strings.TrimSpace(child.Loc), sitemapAccept)
			if err != nil {
				continue
			}
			var childDoc sitemapDoc
			if err := xml.Unmarshal(childData, &childDoc); err != nil {
				continue
			}
			entries = append(entries, childDoc.URLs...)
			if len(entries) >= f.maxItems {
				break
			}
		}
		entries = trimEntries(entries, f.maxItems)
	}

	for i := range entries {
		entries[i].Loc = strings.TrimSpace(entries[i].Loc)
	}

	filtered := entries[:0]
	for _, e := range entries {
		if e.Loc != "" {
			filtered = append(filtered, e)
		}
	}

	return filtered, nil
}

func trimEntries(entries []sitemapEntry, limit int) []sitemapEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
