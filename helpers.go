package pubnotion

import (
	"encoding/json"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/eringen/pubnotion/content"
)

// BuildURL joins a base URL with path segments. Segments are escaped; the
// result never ends in a slash unless it is the site root.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return base
	}
	escaped := make([]string, len(pathSegments))
	for i, s := range pathSegments {
		escaped[i] = url.PathEscape(s)
	}
	joined := path.Join(append([]string{"/", u.EscapedPath()}, escaped...)...)
	if len(pathSegments) == 0 && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	if u.Scheme == "" || u.Host == "" {
		return joined
	}
	return u.Scheme + "://" + u.Host + joined
}

// PostURL is the canonical URL of a post.
func PostURL(base, slug string) string {
	return BuildURL(base, "posts", slug)
}

// TagURL is the listing URL of a tag.
func TagURL(base, tag string) string {
	return BuildURL(base, "tags", tag)
}

// OGImageURL is the URL of a post's generated preview image.
func OGImageURL(base, slug string) string {
	return BuildURL(base, "og", slug+".png")
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// ListTags returns the unique tags of posts, sorted case-insensitively.
// The first spelling seen wins.
func ListTags(posts []content.Post) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, p := range posts {
		for _, t := range p.Tags {
			key := normalizeTag(t)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			tags = append(tags, t)
		}
	}
	sort.SliceStable(tags, func(i, j int) bool {
		return normalizeTag(tags[i]) < normalizeTag(tags[j])
	})
	return tags
}

// FilterByTag returns the posts carrying tag, ignoring case.
func FilterByTag(posts []content.Post, tag string) []content.Post {
	if strings.TrimSpace(tag) == "" {
		return posts
	}
	var filtered []content.Post
	for _, p := range posts {
		if p.HasTag(tag) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func marshalJSONLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func person(name string) map[string]string {
	return map[string]string{"@type": "Person", "name": name}
}

// WebsiteJSONLD returns a Schema.org WebSite document for the site.
func WebsiteJSONLD(site content.SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Title,
		"url":      BuildURL(site.BaseURL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Language != "" {
		data["inLanguage"] = site.Language
	}
	if site.Author != "" {
		data["author"] = person(site.Author)
	}
	return marshalJSONLD(data)
}

// BlogJSONLD returns a Schema.org Blog document listing posts.
func BlogJSONLD(site content.SiteConfig, posts []content.Post) string {
	entries := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, map[string]interface{}{
			"@type":         "BlogPosting",
			"headline":      p.Title,
			"url":           PostURL(site.BaseURL, p.Slug),
			"datePublished": p.PublishDate.UTC().Format(time.RFC3339),
		})
	}
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "Blog",
		"name":     site.Title,
		"url":      BuildURL(site.BaseURL),
		"blogPost": entries,
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	return marshalJSONLD(data)
}

// PersonJSONLD returns a Schema.org Person document for the site author,
// or "" when no author is configured.
func PersonJSONLD(site content.SiteConfig) string {
	if site.Author == "" {
		return ""
	}
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "Person",
		"name":     site.Author,
		"url":      BuildURL(site.BaseURL, "about"),
	}
	return marshalJSONLD(data)
}

// ArticleJSONLD returns a Schema.org BlogPosting document for a post.
func ArticleJSONLD(post content.Post, site content.SiteConfig) string {
	postURL := PostURL(site.BaseURL, post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"datePublished": post.PublishDate.UTC().Format(time.RFC3339),
		"url":           postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if !post.LastEditedAt.IsZero() {
		data["dateModified"] = post.LastEditedAt.UTC().Format(time.RFC3339)
	}
	if post.Description != "" {
		data["description"] = post.Description
	}
	if post.CoverImageURL != "" {
		data["image"] = post.CoverImageURL
	} else {
		data["image"] = OGImageURL(site.BaseURL, post.Slug)
	}
	switch {
	case post.Author != "":
		data["author"] = person(post.Author)
	case site.Author != "":
		data["author"] = person(site.Author)
	}
	if site.Title != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  site.Title,
		}
	}
	if len(post.Tags) > 0 {
		data["keywords"] = strings.Join(post.Tags, ", ")
	}
	return marshalJSONLD(data)
}
