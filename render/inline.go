package render

import (
	"bytes"
	"html"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/eringen/pubnotion/content"
)

// Outer kinds first when two spans end at the same offset.
var spanRank = map[content.SpanKind]int{
	content.SpanLink:          0,
	content.SpanBold:          1,
	content.SpanItalic:        2,
	content.SpanUnderline:     3,
	content.SpanStrikethrough: 4,
	content.SpanCode:          5,
	content.SpanEquation:      6,
}

func openTag(s content.Span) string {
	switch s.Kind {
	case content.SpanBold:
		return "<strong>"
	case content.SpanItalic:
		return "<em>"
	case content.SpanStrikethrough:
		return "<s>"
	case content.SpanUnderline:
		return "<u>"
	case content.SpanCode:
		return "<code>"
	case content.SpanEquation:
		return `<span class="equation-inline">`
	case content.SpanLink:
		href := SafeURL(s.Href)
		if href == "" {
			return `<a>`
		}
		return `<a href="` + href + `" class="underline decoration-2 underline-offset-4">`
	}
	return ""
}

func closeTag(k content.SpanKind) string {
	switch k {
	case content.SpanBold:
		return "</strong>"
	case content.SpanItalic:
		return "</em>"
	case content.SpanStrikethrough:
		return "</s>"
	case content.SpanUnderline:
		return "</u>"
	case content.SpanCode:
		return "</code>"
	case content.SpanEquation:
		return "</span>"
	case content.SpanLink:
		return "</a>"
	}
	return ""
}

// validSpans drops empty spans and clamps the rest to rune boundaries inside
// text.
func validSpans(text string, spans []content.Span) []content.Span {
	out := make([]content.Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > len(text) {
			s.End = len(text)
		}
		for s.Start < len(text) && !utf8.RuneStart(text[s.Start]) {
			s.Start++
		}
		for s.End < len(text) && !utf8.RuneStart(text[s.End]) {
			s.End++
		}
		if s.Start >= s.End {
			continue
		}
		out = append(out, s)
	}
	return out
}

// writeInline renders rich text with a boundary sweep. At every offset where
// some span starts or ends, the open tags that must close are popped from a
// stack; tags above them that are still active are closed too and reopened,
// so the output is always well nested however the spans overlap.
func writeInline(buf *bytes.Buffer, rt content.RichText) {
	text := rt.Text
	spans := validSpans(text, rt.Spans)
	if len(spans) == 0 {
		writeText(buf, text)
		return
	}

	bounds := []int{0, len(text)}
	for _, s := range spans {
		bounds = append(bounds, s.Start, s.End)
	}
	sort.Ints(bounds)

	var stack []int
	outer := func(a, b int) bool {
		sa, sb := spans[a], spans[b]
		if sa.End != sb.End {
			return sa.End > sb.End
		}
		if spanRank[sa.Kind] != spanRank[sb.Kind] {
			return spanRank[sa.Kind] < spanRank[sb.Kind]
		}
		return a < b
	}

	prev := -1
	for bi, pos := range bounds {
		if pos == prev {
			continue
		}
		prev = pos

		cut := len(stack)
		for i, si := range stack {
			if spans[si].End <= pos {
				cut = i
				break
			}
		}
		for i := len(stack) - 1; i >= cut; i-- {
			buf.WriteString(closeTag(spans[stack[i]].Kind))
		}
		stack = stack[:cut]

		if pos == len(text) {
			break
		}

		open := make(map[int]bool, len(stack))
		for _, si := range stack {
			open[si] = true
		}
		var pending []int
		for si, s := range spans {
			if s.Start <= pos && pos < s.End && !open[si] {
				pending = append(pending, si)
			}
		}
		sort.Slice(pending, func(i, j int) bool { return outer(pending[i], pending[j]) })
		for _, si := range pending {
			buf.WriteString(openTag(spans[si]))
			stack = append(stack, si)
		}

		next := len(text)
		for _, b := range bounds[bi+1:] {
			if b > pos {
				next = b
				break
			}
		}
		writeText(buf, text[pos:next])
	}
	for i := len(stack) - 1; i >= 0; i-- {
		buf.WriteString(closeTag(spans[stack[i]].Kind))
	}
}

func writeText(buf *bytes.Buffer, s string) {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i > 0 {
			buf.WriteString("<br/>")
		}
		buf.WriteString(html.EscapeString(line))
	}
}

// Inline renders rich text to HTML.
func Inline(rt content.RichText) string {
	var buf bytes.Buffer
	writeInline(&buf, rt)
	return buf.String()
}
