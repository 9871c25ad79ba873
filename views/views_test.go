package views

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/pubnotion/content"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(t.Context(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func testSite() content.SiteConfig {
	site := content.DefaultSiteConfig()
	site.Title = "Field Notes"
	site.Author = "Ada"
	return site
}

func TestLayoutHead(t *testing.T) {
	site := testSite()
	p := Page{
		Site: site,
		Meta: PageMeta{
			Title:       "Hello",
			Description: "A first post",
			URL:         "https://blog.example.com/posts/hello",
			OGType:      "article",
			Image:       "https://blog.example.com/og/hello.png",
			JSONLD:      []string{`{"@type":"BlogPosting"}`},
		},
	}
	out := renderString(t, NotFound(p))

	for _, want := range []string{
		"<!DOCTYPE html>",
		`<html lang="en">`,
		"<title>Hello | Field Notes</title>",
		`<link rel="canonical" href="https://blog.example.com/posts/hello"/>`,
		`<meta property="og:type" content="article"/>`,
		`<meta property="og:image" content="https://blog.example.com/og/hello.png"/>`,
		`<script type="application/ld+json">{"@type":"BlogPosting"}</script>`,
		`href="/feed.xml"`,
		`href="/public/style.css"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("layout missing %q", want)
		}
	}
	if strings.Contains(out, "googletagmanager") {
		t.Error("analytics rendered while disabled")
	}
}

func TestLayoutAnalyticsAndNotices(t *testing.T) {
	site := testSite()
	site.AnalyticsID = "G-TEST"
	site.EnableAnalytics = true

	tests := []struct {
		notice Notice
		want   string
	}{
		{NoNotice, ""},
		{NoticeStale, "notice-stale"},
		{NoticeUnavailable, "notice-unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.notice.String(), func(t *testing.T) {
			out := renderString(t, NotFound(Page{Site: site, Notice: tt.notice}))
			if !strings.Contains(out, "gtag/js?id=G-TEST") {
				t.Error("analytics snippet missing")
			}
			if tt.want == "" {
				if strings.Contains(out, `class="notice`) {
					t.Error("unexpected notice banner")
				}
				return
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("notice %q missing", tt.want)
			}
		})
	}
}

func TestHomeEscapesAndMarksActiveTag(t *testing.T) {
	posts := []content.Post{
		{Slug: "a b", Title: "<script>x</script>", Tags: []string{"go"}, PublishDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	out := renderString(t, Home(Page{Site: testSite()}, posts, []string{"go", "web"}, "go"))

	if strings.Contains(out, "<script>x</script>") {
		t.Error("post title not escaped")
	}
	if !strings.Contains(out, `href="/posts/a%20b"`) {
		t.Error("post link not path-escaped")
	}
	if !strings.Contains(out, `<a class="tag tag-active" href="/tags/go">go</a>`) {
		t.Error("active tag not marked")
	}
	if !strings.Contains(out, "March 1, 2024") {
		t.Error("publish date missing")
	}
}

func TestHomeEmpty(t *testing.T) {
	out := renderString(t, Home(Page{Site: testSite(), Notice: NoticeUnavailable}, nil, nil, ""))
	if !strings.Contains(out, "No posts yet.") {
		t.Error("empty listing message missing")
	}
}

func heading(text string) content.Block {
	return content.Block{Kind: content.KindHeading, Level: 1, Text: content.RichText{Text: text}}
}

func TestPostTableOfContentsAndRelated(t *testing.T) {
	post := content.Post{
		Slug:  "hello",
		Title: "Hello",
		Tags:  []string{"go"},
		Body: []content.Block{
			heading("Intro"),
			{Kind: content.KindParagraph, Text: content.RichText{Text: "body text"}},
			heading("Intro"),
		},
	}
	var related []content.Post
	for _, s := range []string{"r1", "r2", "r3", "r4"} {
		related = append(related, content.Post{Slug: s, Title: "Related " + s})
	}
	out := renderString(t, Post(Page{Site: testSite()}, post, related))

	for _, want := range []string{
		`<nav class="toc">`,
		`<a href="#intro">Intro</a>`,
		`<a href="#intro-2">Intro</a>`,
		`id="intro-2"`,
		"<p>body text</p>",
		"Related r3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("post page missing %q", want)
		}
	}
	if strings.Contains(out, "Related r4") {
		t.Error("related posts not limited to three")
	}
}

func TestPostWithoutHeadingsHasNoTOC(t *testing.T) {
	post := content.Post{Slug: "p", Title: "P", Body: []content.Block{heading("Only")}}
	out := renderString(t, Post(Page{Site: testSite()}, post, nil))
	if strings.Contains(out, `class="toc"`) {
		t.Error("single heading should not produce a table of contents")
	}
}

func TestFilterRelatedPosts(t *testing.T) {
	current := content.Post{Slug: "a", Tags: []string{"Go"}}
	posts := []content.Post{
		current,
		{Slug: "b", Tags: []string{"go "}},
		{Slug: "c", Tags: []string{"rust"}},
	}
	got := FilterRelatedPosts(current, posts)
	if len(got) != 1 || got[0].Slug != "b" {
		t.Errorf("FilterRelatedPosts = %v", got)
	}
}

func TestUnavailableDefaultsNotice(t *testing.T) {
	out := renderString(t, Unavailable(Page{Site: testSite()}))
	if !strings.Contains(out, "notice-unavailable") || !strings.Contains(out, "Content unavailable") {
		t.Errorf("unavailable page = %s", out)
	}
}
