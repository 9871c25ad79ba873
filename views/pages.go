package views

import (
	"bytes"
	"context"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/pubnotion/content"
	"github.com/eringen/pubnotion/render"
)

func writeTags(buf *bytes.Buffer, tags []string, active string) {
	if len(tags) == 0 {
		return
	}
	buf.WriteString(`<ul class="tags">`)
	for _, t := range tags {
		buf.WriteString(`<li><a class="` + TagClass(t == active) + `" href="` + esc(tagPath(t)) + `">` + esc(t) + `</a></li>`)
	}
	buf.WriteString(`</ul>`)
}

func writePostList(buf *bytes.Buffer, posts []content.Post) {
	buf.WriteString(`<ul class="post-list">`)
	for _, p := range posts {
		buf.WriteString(`<li class="post-item"><a href="` + esc(postPath(p.Slug)) + `">`)
		buf.WriteString(`<h2 class="post-title">` + esc(p.Title) + `</h2></a>`)
		buf.WriteString(`<time datetime="` + p.PublishDate.UTC().Format("2006-01-02") + `">` + esc(FormatDate(p.PublishDate)) + `</time>`)
		if p.Label != "" {
			buf.WriteString(` <span class="label">` + esc(p.Label) + `</span>`)
		}
		if p.Description != "" {
			buf.WriteString(`<p class="post-description">` + esc(p.Description) + `</p>`)
		}
		writeTags(buf, p.Tags, "")
		buf.WriteString(`</li>`)
	}
	buf.WriteString(`</ul>`)
}

// Home lists posts, optionally filtered by activeTag.
func Home(p Page, posts []content.Post, tags []string, activeTag string) templ.Component {
	return Layout(p, component(func(ctx context.Context, buf *bytes.Buffer) error {
		if activeTag != "" {
			buf.WriteString(`<h1>Posts tagged “` + esc(activeTag) + `”</h1>`)
		} else {
			buf.WriteString(`<h1>` + esc(p.Site.Title) + `</h1>`)
			if p.Site.Description != "" {
				buf.WriteString(`<p class="site-description">` + esc(p.Site.Description) + `</p>`)
			}
		}
		writeTags(buf, tags, activeTag)
		if len(posts) == 0 {
			buf.WriteString(`<p class="empty">No posts yet.</p>`)
			return nil
		}
		writePostList(buf, posts)
		return nil
	}))
}

// Post renders a single post with its table of contents and related posts.
func Post(p Page, post content.Post, related []content.Post) templ.Component {
	return Layout(p, component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<article class="post">`)
		if post.CoverImageURL != "" {
			if src := render.SafeURL(post.CoverImageURL); src != "" {
				buf.WriteString(`<img class="cover" fetchpriority="high" alt="" src="` + src + `"/>`)
			}
		}
		buf.WriteString(`<h1>` + esc(post.Title) + `</h1>`)
		buf.WriteString(`<p class="post-meta"><time datetime="` + post.PublishDate.UTC().Format("2006-01-02") + `">` + esc(FormatDate(post.PublishDate)) + `</time>`)
		if post.Author != "" {
			buf.WriteString(` · <span class="author">` + esc(post.Author) + `</span>`)
		}
		buf.WriteString(`</p>`)
		writeTags(buf, post.Tags, "")

		if toc := render.Headings(post.Body); len(toc) > 1 {
			buf.WriteString(`<nav class="toc"><ol>`)
			for _, h := range toc {
				buf.WriteString(`<li class="toc-level-` + strconv.Itoa(h.Level) + `"><a href="#` + esc(h.Anchor) + `">` + esc(h.Text) + `</a></li>`)
			}
			buf.WriteString(`</ol></nav>`)
		}

		buf.WriteString(`<div class="post-body">`)
		if err := render.Component(post.Body).Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString(`</div></article>`)

		if len(related) > 0 {
			buf.WriteString(`<section class="related"><h2>Related posts</h2>`)
			if len(related) > 3 {
				related = related[:3]
			}
			writePostList(buf, related)
			buf.WriteString(`</section>`)
		}
		return nil
	}))
}

// About renders the about page. With no body the site description stands in.
func About(p Page, about content.AboutPage) templ.Component {
	title := about.Title
	if title == "" {
		title = "About"
	}
	return Layout(p, component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<article class="about"><h1>` + esc(title) + `</h1>`)
		if len(about.Body) == 0 && p.Site.Description != "" {
			buf.WriteString(`<p>` + esc(p.Site.Description) + `</p>`)
		}
		if err := render.Component(about.Body).Render(ctx, buf); err != nil {
			return err
		}
		buf.WriteString(`</article>`)
		return nil
	}))
}

// NotFound renders the 404 page.
func NotFound(p Page) templ.Component {
	return Layout(p, component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<section class="error"><h1>Page not found</h1><p>The page you are looking for does not exist.</p><p><a href="/">Back to all posts</a></p></section>`)
		return nil
	}))
}

// ServerError renders the 500 page.
func ServerError(p Page) templ.Component {
	return Layout(p, component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<section class="error"><h1>Something went wrong</h1><p>Please try again later.</p></section>`)
		return nil
	}))
}

// Unavailable renders a page whose content could not be loaded from the
// source or the snapshot.
func Unavailable(p Page) templ.Component {
	if p.Notice == NoNotice {
		p.Notice = NoticeUnavailable
	}
	return Layout(p, component(func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString(`<section class="error"><h1>Content unavailable</h1><p>This page cannot be loaded right now.</p><p><a href="/">Back to all posts</a></p></section>`)
		return nil
	}))
}
