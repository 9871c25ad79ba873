package pubnotion

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/eringen/pubnotion/content"
)

// DefaultFeedItems is the number of posts included in the feed.
const DefaultFeedItems = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
}

// GenerateFeed returns an RSS 2.0 document with the newest limit posts.
// posts must already be ordered newest first; limit <= 0 means
// DefaultFeedItems.
func GenerateFeed(posts []content.Post, site content.SiteConfig, baseURL string, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultFeedItems
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		postURL := PostURL(baseURL, p.Slug)
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Description,
			Categories:  p.Tags,
			PubDate:     p.PublishDate.UTC().Format(time.RFC1123Z),
			GUID:        postURL,
		})
	}
	channel := rssChannel{
		Title:       site.Title,
		Link:        BuildURL(baseURL),
		Description: site.Description,
		Language:    site.Language,
		AtomLink: atomLink{
			Href: BuildURL(baseURL, "feed.xml"),
			Rel:  "self",
			Type: "application/rss+xml",
		},
		Items: items,
	}
	if len(posts) > 0 {
		channel.LastBuildDate = latestEdit(posts).Format(time.RFC1123Z)
	}
	feed := rssXML{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: channel,
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(feed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func latestEdit(posts []content.Post) time.Time {
	var latest time.Time
	for _, p := range posts {
		t := p.LastEditedAt
		if t.IsZero() {
			t = p.PublishDate
		}
		if t.After(latest) {
			latest = t
		}
	}
	return latest.UTC()
}
