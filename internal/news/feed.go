package news

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"marketdesk/internal/domain"
)

// FetchFunc pulls a batch of articles from one source.
type FetchFunc func(ctx context.Context) ([]domain.NewsArticle, error)

// Feed aggregates articles from multiple sources into a bounded, deduped,
// newest-first list. Refresh merges; reads page over a snapshot.
type Feed struct {
	log         *slog.Logger
	maxArticles int
	sources     []FetchFunc

	mu       sync.RWMutex
	articles []domain.NewsArticle // newest first
	seen     map[string]bool      // headline|source
	lastSync time.Time
}

// NewFeed creates a feed capped at maxArticles.
func NewFeed(log *slog.Logger, maxArticles int, sources ...FetchFunc) *Feed {
	if maxArticles <= 0 {
		maxArticles = 500
	}
	return &Feed{
		log:         log,
		maxArticles: maxArticles,
		sources:     sources,
		seen:        make(map[string]bool),
	}
}

// Refresh pulls every source once and merges the results. Source errors are
// logged and skipped so one flaky feed does not starve the rest.
func (f *Feed) Refresh(ctx context.Context) {
	var fetched []domain.NewsArticle
	for i, src := range f.sources {
		articles, err := src(ctx)
		if err != nil {
			f.log.Warn("news source fetch failed", "source", i, "error", err)
			continue
		}
		fetched = append(fetched, articles...)
	}
	f.merge(fetched)
}

// Run refreshes immediately and then on every interval tick until ctx is done.
func (f *Feed) Run(ctx context.Context, interval time.Duration) {
	f.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Refresh(ctx)
		}
	}
}

func (f *Feed) merge(fetched []domain.NewsArticle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, a := range fetched {
		key := a.Headline + "|" + a.Source
		if f.seen[key] {
			continue
		}
		f.seen[key] = true
		f.articles = append(f.articles, a)
		added++
	}

	sort.SliceStable(f.articles, func(i, j int) bool {
		return f.articles[i].Time.After(f.articles[j].Time)
	})

	if len(f.articles) > f.maxArticles {
		for _, a := range f.articles[f.maxArticles:] {
			delete(f.seen, a.Headline+"|"+a.Source)
		}
		f.articles = f.articles[:f.maxArticles]
	}

	f.lastSync = time.Now()
	if added > 0 {
		f.log.Info("news feed merged", "added", added, "total", len(f.articles))
	}
}

// Page returns one page of articles, newest first, optionally filtered by
// category and a case-insensitive headline/summary search. total counts the
// filtered set.
func (f *Feed) Page(page, perPage int, category, search string) (articles []domain.NewsArticle, total int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	filtered := make([]domain.NewsArticle, 0, len(f.articles))
	needle := strings.ToLower(search)
	for _, a := range f.articles {
		if category != "" && a.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.Headline), needle) &&
			!strings.Contains(strings.ToLower(a.Summary), needle) {
			continue
		}
		filtered = append(filtered, a)
	}

	total = len(filtered)
	start := (page - 1) * perPage
	if start >= total {
		return []domain.NewsArticle{}, total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return filtered[start:end], total
}

// LastSync reports when the feed last merged a refresh.
func (f *Feed) LastSync() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastSync
}
