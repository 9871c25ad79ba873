package render

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("id").OnElements("h2", "h3", "h4")
		p.AllowAttrs("class").Globally()
		p.AllowAttrs("data-block-type").OnElements("div")
		p.AllowAttrs("loading", "decoding", "fetchpriority").OnElements("img")
		p.AllowAttrs("target").OnElements("a")
		p.AllowElements("aside", "details", "summary", "figure", "figcaption", "s", "u")
		p.AddTargetBlankToFullyQualifiedLinks(true)
		policy = p
	})
	return policy
}

// Sanitize strips anything from rendered markup that the renderer itself
// would never emit.
func Sanitize(markup string) string {
	return sanitizer().Sanitize(markup)
}
