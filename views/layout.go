// Package views renders the page shells of the site as templ components.
package views

import (
	"bytes"
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

// component adapts a buffer-writing function to templ.Component.
func component(fn func(ctx context.Context, buf *bytes.Buffer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := fn(ctx, &buf); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func esc(s string) string {
	return html.EscapeString(s)
}

// Layout wraps body in the document shell: head metadata, navigation,
// an optional notice banner and the footer.
func Layout(p Page, body templ.Component) templ.Component {
	return component(func(ctx context.Context, buf *bytes.Buffer) error {
		site := p.Site
		meta := p.Meta
		title := site.Title
		if meta.Title != "" && meta.Title != site.Title {
			title = meta.Title + " | " + site.Title
		}
		lang := site.Language
		if lang == "" {
			lang = "en"
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		buf.WriteString(`<!DOCTYPE html><html lang="` + esc(lang) + `"><head>`)
		buf.WriteString(`<meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		buf.WriteString(`<title>` + esc(title) + `</title>`)
		if meta.Description != "" {
			buf.WriteString(`<meta name="description" content="` + esc(meta.Description) + `"/>`)
			buf.WriteString(`<meta property="og:description" content="` + esc(meta.Description) + `"/>`)
		}
		if meta.NoIndex {
			buf.WriteString(`<meta name="robots" content="noindex"/>`)
		}
		if meta.URL != "" {
			buf.WriteString(`<link rel="canonical" href="` + esc(meta.URL) + `"/>`)
			buf.WriteString(`<meta property="og:url" content="` + esc(meta.URL) + `"/>`)
		}
		buf.WriteString(`<meta property="og:title" content="` + esc(title) + `"/>`)
		buf.WriteString(`<meta property="og:type" content="` + esc(ogType) + `"/>`)
		buf.WriteString(`<meta property="og:site_name" content="` + esc(site.Title) + `"/>`)
		if meta.Image != "" {
			buf.WriteString(`<meta property="og:image" content="` + esc(meta.Image) + `"/>`)
			buf.WriteString(`<meta name="twitter:card" content="summary_large_image"/>`)
		}
		buf.WriteString(`<link rel="alternate" type="application/rss+xml" title="` + esc(site.Title) + `" href="/feed.xml"/>`)
		buf.WriteString(`<link rel="stylesheet" href="/public/style.css"/>`)
		for _, doc := range meta.JSONLD {
			if doc == "" {
				continue
			}
			// json.Marshal escapes <, > and &, so the document cannot close the tag.
			buf.WriteString(`<script type="application/ld+json">` + doc + `</script>`)
		}
		if site.AnalyticsEnabled() {
			id := esc(site.AnalyticsID)
			buf.WriteString(`<script async src="https://www.googletagmanager.com/gtag/js?id=` + id + `"></script>`)
			buf.WriteString(`<script>window.dataLayer=window.dataLayer||[];function gtag(){dataLayer.push(arguments);}gtag('js',new Date());gtag('config','` + id + `');</script>`)
		}
		if site.AdsenseEnabled() {
			buf.WriteString(`<script async src="https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js?client=` + esc(site.AdsenseID) + `" crossorigin="anonymous"></script>`)
		}
		buf.WriteString(`</head><body>`)

		buf.WriteString(`<header class="site-header"><a class="site-title" href="/">` + esc(site.Title) + `</a>`)
		buf.WriteString(`<nav><a href="/">Posts</a><a href="/about">About</a><a href="/feed.xml">RSS</a></nav></header>`)

		switch p.Notice {
		case NoticeStale:
			buf.WriteString(`<div class="notice notice-stale" role="status">The content source is unreachable. You are viewing a saved copy that may be out of date.</div>`)
		case NoticeUnavailable:
			buf.WriteString(`<div class="notice notice-unavailable" role="status">Content is temporarily unavailable. Please try again shortly.</div>`)
		}

		buf.WriteString(`<main>`)
		if err := body.Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString(`</main>`)

		buf.WriteString(`<footer class="site-footer">`)
		if site.Author != "" {
			buf.WriteString(`<span>` + esc(site.Author) + `</span>`)
		}
		buf.WriteString(`<a href="/feed.xml">RSS</a><a href="/sitemap.xml">Sitemap</a></footer>`)
		buf.WriteString(`</body></html>`)
		return nil
	})
}
