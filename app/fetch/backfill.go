package fetch

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// backfill fetches the article page and extracts title and text via
// readability. Best effort: sitemap entries without a reachable or parseable
// page keep their empty fields.
func (f *Fetcher) backfill(ctx context.Context, item *RawItem) {
	data, err := f.get(ctx, item.Link, "text/html, application/xhtml+xml;q=0.9, */*;q=0.8")
	if err != nil {
		slog.Debug("Backfill fetch failed", "url", item.Link, "error", err)
		return
	}

	pageURL, _ := url.Parse(item.Link)
	article, err := readability.FromReader(strings.NewReader(string(data)), pageURL)
	if err != nil {
		slog.Debug("Backfill extraction failed", "url", item.Link, "error", err)
		return
	}

	if article.Title != "" {
		item.Title = article.Title
	}
	if article.TextContent != "" {
		item.Content = article.TextContent
	}
	if article.Excerpt != "" {
		item.Summary = article.Excerpt
	}
}

var slugTitleCaser = cases.Title(language.English)

// titleFromSlug derives a readable title from the last URL path segment when
// neither the sitemap nor the article page provided one.
func titleFromSlug(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "Article"
	}

	segment := path.Base(strings.TrimSuffix(u.Path, "/"))
	segment = strings.TrimSuffix(segment, path.Ext(segment))
	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	segment = strings.TrimSpace(segment)

	if segment == "" || segment == "." || segment == "/" {
		return "Article"
	}

	return slugTitleCaser.String(segment)
}
