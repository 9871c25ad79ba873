package pubnotion

import (
	"bytes"
	"encoding/xml"
	"time"

	"github.com/eringen/pubnotion/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// GenerateSitemap returns a sitemap listing the static pages and one entry
// per post.
func GenerateSitemap(posts []content.Post, baseURL string) ([]byte, error) {
	urls := []sitemapURL{
		{Loc: BuildURL(baseURL), ChangeFreq: "daily", Priority: "1.0"},
		{Loc: BuildURL(baseURL, "about"), ChangeFreq: "monthly", Priority: "0.5"},
	}
	for _, p := range posts {
		mod := p.LastEditedAt
		if mod.IsZero() {
			mod = p.PublishDate
		}
		u := sitemapURL{
			Loc:        PostURL(baseURL, p.Slug),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		}
		if !mod.IsZero() {
			u.LastMod = mod.UTC().Format(time.RFC3339)
		}
		urls = append(urls, u)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(sitemap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
