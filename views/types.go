package views

import "github.com/eringen/pubnotion/content"

// PageMeta carries per-page OpenGraph and SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string   // canonical + og:url
	OGType      string   // "website" or "article"
	Image       string   // og:image
	JSONLD      []string // serialized JSON-LD documents
	NoIndex     bool
}

// Notice is a banner shown above the page content.
type Notice int

const (
	NoNotice Notice = iota
	// NoticeStale marks content served from the offline snapshot.
	NoticeStale
	// NoticeUnavailable marks a page rendered without any content.
	NoticeUnavailable
)

// Page is the shell every view renders into.
type Page struct {
	Site   content.SiteConfig
	Meta   PageMeta
	Notice Notice
}

func (n Notice) String() string {
	switch n {
	case NoticeStale:
		return "stale"
	case NoticeUnavailable:
		return "unavailable"
	default:
		return "none"
	}
}
