package content

import (
	"sort"
	"strings"

	"github.com/eringen/pubnotion/notion"
)

type openKey struct {
	kind SpanKind
	href string
}

// NormalizeRichText concatenates Notion runs into one RichText. Each
// annotation becomes a span; a span continues across adjacent runs that carry
// the same annotation (and, for links, the same target), so formatting that
// Notion splits into several runs comes out as one span per kind.
func NormalizeRichText(runs []notion.RichText) RichText {
	var (
		b     strings.Builder
		spans []Span
		open  = map[openKey]int{}
	)
	for _, run := range runs {
		text := run.Content()
		if text == "" {
			continue
		}
		start := b.Len()
		b.WriteString(text)
		end := b.Len()

		next := map[openKey]int{}
		for _, k := range runKinds(run) {
			if i, ok := open[k]; ok && spans[i].End == start {
				spans[i].End = end
				next[k] = i
				continue
			}
			spans = append(spans, Span{Kind: k.kind, Start: start, End: end, Href: k.href})
			next[k] = len(spans) - 1
		}
		open = next
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].Kind < spans[j].Kind
	})
	return RichText{Text: b.String(), Spans: spans}
}

func runKinds(run notion.RichText) []openKey {
	var keys []openKey
	a := run.Annotations
	if a.Bold {
		keys = append(keys, openKey{kind: SpanBold})
	}
	if a.Italic {
		keys = append(keys, openKey{kind: SpanItalic})
	}
	if a.Strikethrough {
		keys = append(keys, openKey{kind: SpanStrikethrough})
	}
	if a.Underline {
		keys = append(keys, openKey{kind: SpanUnderline})
	}
	if a.Code {
		keys = append(keys, openKey{kind: SpanCode})
	}
	if run.Type == "equation" || run.Equation != nil {
		keys = append(keys, openKey{kind: SpanEquation})
	}
	if href := run.Link(); href != "" {
		keys = append(keys, openKey{kind: SpanLink, href: href})
	}
	return keys
}
