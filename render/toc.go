package render

import "github.com/eringen/pubnotion/content"

// Heading is one table-of-contents entry.
type Heading struct {
	Level  int
	Text   string
	Anchor string
}

type anchors struct {
	set *content.SlugSet
}

func newAnchors() *anchors {
	return &anchors{set: content.NewSlugSet()}
}

// next returns the anchor of the next heading in document order.
func (a *anchors) next(text string) string {
	base := content.Slugify(text)
	if base == "" {
		base = "section"
	}
	return a.set.Claim(base)
}

// Headings lists the headings of blocks in document order. Anchors are
// identical to the ids Render assigns.
func Headings(blocks []content.Block) []Heading {
	var out []Heading
	a := newAnchors()
	var walk func([]content.Block)
	walk = func(bs []content.Block) {
		for _, b := range bs {
			if b.Kind == content.KindHeading {
				out = append(out, Heading{
					Level:  headingLevel(b.Level),
					Text:   b.Text.Plain(),
					Anchor: a.next(b.Text.Plain()),
				})
			}
			if rendersChildren(b.Kind) {
				walk(b.Children)
			}
		}
	}
	walk(blocks)
	return out
}

func headingLevel(l int) int {
	switch {
	case l < 1:
		return 1
	case l > 3:
		return 3
	}
	return l
}
