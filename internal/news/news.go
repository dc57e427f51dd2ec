// Package news turns the Google News RSS search feed into paginated
// vaccine news articles.
package news

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/sakif/vaccine-portal/internal/model"
)

// DefaultFeedURL is the search endpoint; the query string is appended to it.
const DefaultFeedURL = "https://news.google.com/rss/search?q="

// PageSize is the number of articles per page.
const PageSize = 9

const (
	defaultSource = "Google News"
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	localeParams  = "&hl=en-US&gl=US&ceid=US:en"
)

// Fetcher downloads and normalises the feed, optionally through a Cache.
type Fetcher struct {
	baseURL  string
	client   *http.Client
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewFetcher creates a Fetcher. cache may be nil to always hit the feed.
func NewFetcher(baseURL string, client *http.Client, cache Cache, cacheTTL time.Duration, logger *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultFeedURL
	}
	return &Fetcher{
		baseURL:  baseURL,
		client:   client,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Query builds the search query for filter: "<filter>+vaccine", or
// "vaccine+health" when no filter is given, plus the US English locale.
func Query(filter string) string {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return "vaccine+health" + localeParams
	}
	return url.QueryEscape(filter) + "+vaccine" + localeParams
}

// Articles returns every article for filter, newest first.
//
// Cache errors never fail the request: a broken cache is logged and the
// feed is fetched directly.
func (f *Fetcher) Articles(ctx context.Context, filter string) ([]model.Article, error) {
	query := Query(filter)

	if f.cache != nil {
		cached, ok, err := f.cache.Get(ctx, query)
		if err != nil {
			f.logger.Warn("news cache read failed", "query", query, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	articles, err := f.fetch(ctx, f.baseURL+query)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, query, articles, f.cacheTTL); err != nil {
			f.logger.Warn("news cache write failed", "query", query, "error", err)
		}
	}
	return articles, nil
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) ([]model.Article, error) {
	// gofeed parsers keep per-parse state, so each fetch gets its own.
	fp := gofeed.NewParser()
	fp.UserAgent = userAgent
	if f.client != nil {
		fp.Client = f.client
	}

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("news: fetching %s: %w", feedURL, err)
	}

	source := feed.Title
	if source == "" {
		source = defaultSource
	}

	now := f.now().UTC()
	articles := make([]model.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		articles = append(articles, toArticle(item, source, now))
	}

	SortNewestFirst(articles)
	return articles, nil
}

func toArticle(item *gofeed.Item, source string, now time.Time) model.Article {
	id := item.GUID
	if id == "" {
		id = item.Link
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}

	image := ExtractImageURL(item.Content)
	if image == "" {
		image = ExtractImageURL(item.Description)
	}
	if image == "" {
		image = "https://picsum.photos/seed/" + url.PathEscape(id) + "/400/300"
	}

	published := now
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	}

	return model.Article{
		ID:          id,
		Title:       item.Title,
		Description: StripTags(body),
		URL:         item.Link,
		URLToImage:  image,
		PublishedAt: published,
		Source:      model.ArticleSource{Name: source},
	}
}

// SortNewestFirst orders by PublishedAt descending; equal dates keep feed order.
func SortNewestFirst(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}

// Paginate returns page (1-based) of size items. Pages below 1 are treated
// as 1. hasMore reports whether anything follows the returned page.
func Paginate(articles []model.Article, page, size int) (items []model.Article, hasMore bool) {
	if page < 1 {
		page = 1
	}
	// Compare page counts before multiplying; (page-1)*size can overflow.
	if size < 1 || page-1 >= (len(articles)+size-1)/size {
		return []model.Article{}, false
	}
	start := (page - 1) * size
	end := start + size
	if end > len(articles) {
		end = len(articles)
	}
	return articles[start:end], end < len(articles)
}

// Image patterns, tried in order.
var imagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<img[^>]+src="([^">]+)"`),
	regexp.MustCompile(`<figure[^>]*>.*?<img[^>]+src="([^">]+)".*?</figure>`),
	regexp.MustCompile(`<meta[^>]+property="og:image"[^>]+content="([^">]+)"`),
}

// ExtractImageURL returns the first image URL found in an HTML fragment,
// or "" if there is none.
func ExtractImageURL(content string) string {
	if content == "" {
		return ""
	}
	for _, re := range imagePatterns {
		if m := re.FindStringSubmatch(content); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags reduces an HTML fragment to plain text with collapsed whitespace.
func StripTags(s string) string {
	text := html.UnescapeString(tagPattern.ReplaceAllString(s, " "))
	return strings.Join(strings.Fields(text), " ")
}
