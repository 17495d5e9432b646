// Package news fetches and aggregates market news for Indian equities from
// RSS sources, keeping a bounded in-memory feed for the dashboard.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"marketdesk/internal/domain"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// --- RSS decoding ---

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

func parsePubDate(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 02 Jan 2006 15:04 MST",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func fetchRSS(ctx context.Context, u string) (*rssResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss fetch %s: status %d", u, resp.StatusCode)
	}

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, err
	}
	return &rss, nil
}

// --- Google News RSS ---

// FetchGoogleNews fetches recent articles for a query from Google News RSS,
// scoped to the Indian edition.
func FetchGoogleNews(ctx context.Context, query, category string) ([]domain.NewsArticle, error) {
	q := url.QueryEscape(query)
	u := "https://news.google.com/rss/search?q=" + q + "&hl=en-IN&gl=IN&ceid=IN:en"

	rss, err := fetchRSS(ctx, u)
	if err != nil {
		return nil, err
	}

	var articles []domain.NewsArticle
	for _, item := range rss.Channel.Items {
		t, ok := parsePubDate(item.PubDate)
		if !ok {
			continue
		}
		headline, source := splitGoogleTitle(item.Title)
		articles = append(articles, domain.NewsArticle{
			Headline: headline,
			Summary:  ExtractText(item.Desc),
			Source:   source,
			URL:      item.Link,
			Category: category,
			Time:     t,
		})
	}
	return articles, nil
}

// splitGoogleTitle separates the publisher suffix Google News appends to
// every headline ("Headline - Publisher").
func splitGoogleTitle(title string) (headline, source string) {
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		return title[:idx], title[idx+3:]
	}
	return title, "google"
}

// --- Exchange announcements RSS ---

// FetchAnnouncements fetches corporate announcement items from an RSS feed
// URL (exchange filings, press releases).
func FetchAnnouncements(ctx context.Context, feedURL, source string) ([]domain.NewsArticle, error) {
	rss, err := fetchRSS(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var articles []domain.NewsArticle
	for _, item := range rss.Channel.Items {
		t, ok := parsePubDate(item.PubDate)
		if !ok {
			continue
		}
		articles = append(articles, domain.NewsArticle{
			Headline: item.Title,
			Summary:  ExtractText(item.Desc),
			Source:   source,
			URL:      item.Link,
			Category: "announcements",
			Time:     t,
		})
	}
	return articles, nil
}

// --- HTML helpers ---

// ExtractText renders an HTML fragment to plain text with whitespace
// normalized. RSS descriptions frequently embed markup and entities.
func ExtractText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(html.UnescapeString(fragment)), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
