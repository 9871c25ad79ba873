// Package content defines the normalized blog model and converts raw Notion
// pages and blocks into it.
package content

import (
	"strings"
	"time"
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft    Status = "Draft"
	StatusPublish  Status = "Publish"
	StatusArchived Status = "Archived"
)

// ParseStatus maps a source status name onto a Status. Unrecognized names
// are treated as drafts so they never become visible.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "publish", "published", "public", "live":
		return StatusPublish
	case "archived", "archive":
		return StatusArchived
	default:
		return StatusDraft
	}
}

// Post is one normalized blog post.
type Post struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Status        Status    `json:"status"`
	PublishDate   time.Time `json:"publish_date"`
	Tags          []string  `json:"tags,omitempty"`
	Label         string    `json:"label,omitempty"`
	Description   string    `json:"description,omitempty"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	Author        string    `json:"author,omitempty"`
	LastEditedAt  time.Time `json:"last_edited_at"`
	Body          []Block   `json:"body,omitempty"`

	slugGenerated bool
}

// Visible reports whether the post may be shown publicly.
func (p Post) Visible() bool {
	return p.Status == StatusPublish
}

// HasTag reports whether the post carries tag, ignoring case.
func (p Post) HasTag(tag string) bool {
	want := strings.ToLower(strings.TrimSpace(tag))
	for _, t := range p.Tags {
		if strings.ToLower(t) == want {
			return true
		}
	}
	return false
}

// BlockKind discriminates Block.
type BlockKind int

const (
	KindUnsupported BlockKind = iota
	KindParagraph
	KindHeading
	KindListItem
	KindToDo
	KindToggle
	KindQuote
	KindCallout
	KindCode
	KindDiagram
	KindEquation
	KindImage
	KindBookmark
	KindDivider
	KindColumns
	KindColumn
	KindTable
	KindContainer
)

var kindNames = map[BlockKind]string{
	KindUnsupported: "unsupported",
	KindParagraph:   "paragraph",
	KindHeading:     "heading",
	KindListItem:    "list_item",
	KindToDo:        "to_do",
	KindToggle:      "toggle",
	KindQuote:       "quote",
	KindCallout:     "callout",
	KindCode:        "code",
	KindDiagram:     "diagram",
	KindEquation:    "equation",
	KindImage:       "image",
	KindBookmark:    "bookmark",
	KindDivider:     "divider",
	KindColumns:     "columns",
	KindColumn:      "column",
	KindTable:       "table",
	KindContainer:   "container",
}

func (k BlockKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unsupported"
}

// Block is one node of a post body. A block exclusively owns its children;
// children are kept in source order.
type Block struct {
	ID       string    `json:"id"`
	Kind     BlockKind `json:"kind"`
	Text     RichText  `json:"text,omitempty"`
	Children []Block   `json:"children,omitempty"`

	Level      int          `json:"level,omitempty"`   // heading 1-3
	Ordered    bool         `json:"ordered,omitempty"` // list item
	Depth      int          `json:"depth,omitempty"`   // list nesting, 0 at top level
	Checked    bool         `json:"checked,omitempty"` // to-do
	Language   string       `json:"language,omitempty"`
	Caption    RichText     `json:"caption,omitempty"`
	URL        string       `json:"url,omitempty"`
	Icon       string       `json:"icon,omitempty"`
	Expression string       `json:"expression,omitempty"`
	Rows       [][]RichText `json:"rows,omitempty"`
	HeaderRow  bool         `json:"header_row,omitempty"`
	SourceType string       `json:"source_type,omitempty"` // raw type name of unsupported blocks
}

// AboutPage is the standalone page rendered at /about.
type AboutPage struct {
	Title string  `json:"title"`
	Body  []Block `json:"body"`
}

// SpanKind is an inline formatting kind.
type SpanKind int

const (
	SpanBold SpanKind = iota
	SpanItalic
	SpanStrikethrough
	SpanUnderline
	SpanCode
	SpanLink
	SpanEquation
)

// Span formats Text[Start:End] of a RichText. Offsets are byte offsets and
// always fall on rune boundaries. Spans may overlap each other freely.
type Span struct {
	Kind  SpanKind `json:"kind"`
	Start int      `json:"start"`
	End   int      `json:"end"`
	Href  string   `json:"href,omitempty"`
}

// RichText is a text run with formatting spans.
type RichText struct {
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`
}

// Plain returns the unformatted text.
func (r RichText) Plain() string {
	return r.Text
}

// IsZero reports whether the run has no text.
func (r RichText) IsZero() bool {
	return r.Text == ""
}

// SiteConfig is the site-wide configuration resolved once per cache window.
// Consumers must treat it as read-only.
type SiteConfig struct {
	Title           string `json:"title" yaml:"title"`
	Description     string `json:"description" yaml:"description"`
	Author          string `json:"author" yaml:"author"`
	BaseURL         string `json:"base_url" yaml:"base_url"`
	Language        string `json:"language" yaml:"language"`
	AnalyticsID     string `json:"analytics_id" yaml:"analytics_id"`
	AdsenseID       string `json:"adsense_id" yaml:"adsense_id"`
	EnableAnalytics bool   `json:"enable_analytics" yaml:"enable_analytics"`
	EnableAdsense   bool   `json:"enable_adsense" yaml:"enable_adsense"`
}

// DefaultSiteConfig is used when no settings source is configured.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		Title:    "Blog",
		BaseURL:  "http://localhost:3000",
		Language: "en",
	}
}

// AnalyticsEnabled reports whether analytics should be injected.
func (s SiteConfig) AnalyticsEnabled() bool {
	return s.EnableAnalytics && s.AnalyticsID != ""
}

// AdsenseEnabled reports whether ads should be injected.
func (s SiteConfig) AdsenseEnabled() bool {
	return s.EnableAdsense && s.AdsenseID != ""
}
