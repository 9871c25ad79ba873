// Package render turns a normalized block tree into HTML.
package render

import (
	"bytes"
	"context"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/pubnotion/content"
)

// Component returns a templ.Component that writes the sanitized HTML of
// blocks.
func Component(blocks []content.Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, Sanitize(Render(blocks)))
		return err
	})
}

// Render returns the HTML of blocks. Output is deterministic: the same
// blocks always produce the same bytes.
func Render(blocks []content.Block) string {
	var buf bytes.Buffer
	RenderTo(&buf, blocks)
	return buf.String()
}

// RenderTo writes the HTML of blocks to buf.
func RenderTo(buf *bytes.Buffer, blocks []content.Block) {
	r := &renderer{buf: buf, anchors: newAnchors()}
	r.blocks(blocks)
}

type renderer struct {
	buf        *bytes.Buffer
	anchors    *anchors
	imageCount int
}

func rendersChildren(k content.BlockKind) bool {
	return k != content.KindUnsupported && k != content.KindTable
}

func (r *renderer) blocks(bs []content.Block) {
	for i := 0; i < len(bs); {
		b := bs[i]
		if b.Kind != content.KindListItem {
			r.block(b)
			i++
			continue
		}
		j := i
		for j < len(bs) && bs[j].Kind == content.KindListItem && bs[j].Ordered == b.Ordered {
			j++
		}
		r.list(bs[i:j], b.Ordered)
		i = j
	}
}

func (r *renderer) list(items []content.Block, ordered bool) {
	tag := "ul"
	if ordered {
		tag = "ol"
	}
	r.buf.WriteString("<" + tag + ">")
	for _, it := range items {
		r.buf.WriteString("<li>")
		writeInline(r.buf, it.Text)
		r.blocks(it.Children)
		r.buf.WriteString("</li>")
	}
	r.buf.WriteString("</" + tag + ">")
}

func (r *renderer) block(b content.Block) {
	buf := r.buf
	switch b.Kind {
	case content.KindParagraph:
		buf.WriteString("<p>")
		writeInline(buf, b.Text)
		buf.WriteString("</p>")
		if len(b.Children) > 0 {
			buf.WriteString(`<div class="indent">`)
			r.blocks(b.Children)
			buf.WriteString("</div>")
		}

	case content.KindHeading:
		// Level 1 maps to h2; the page title owns h1.
		tag := "h" + strconv.Itoa(headingLevel(b.Level)+1)
		buf.WriteString("<" + tag + ` id="` + html.EscapeString(r.anchors.next(b.Text.Plain())) + `">`)
		writeInline(buf, b.Text)
		buf.WriteString("</" + tag + ">")
		r.blocks(b.Children)

	case content.KindToDo:
		class := "todo"
		if b.Checked {
			class += " todo-checked"
		}
		buf.WriteString(`<div class="` + class + `"><span class="todo-box"></span><span class="todo-text">`)
		writeInline(buf, b.Text)
		buf.WriteString("</span>")
		r.blocks(b.Children)
		buf.WriteString("</div>")

	case content.KindToggle:
		buf.WriteString("<details><summary>")
		writeInline(buf, b.Text)
		buf.WriteString("</summary>")
		r.blocks(b.Children)
		buf.WriteString("</details>")

	case content.KindQuote:
		buf.WriteString("<blockquote>")
		writeInline(buf, b.Text)
		r.blocks(b.Children)
		buf.WriteString("</blockquote>")

	case content.KindCallout:
		buf.WriteString(`<aside class="callout">`)
		if b.Icon != "" {
			if src := SafeURL(b.Icon); src != "" {
				buf.WriteString(`<img class="callout-icon" src="` + src + `" alt=""/>`)
			} else {
				buf.WriteString(`<span class="callout-icon">` + html.EscapeString(b.Icon) + `</span>`)
			}
		}
		buf.WriteString(`<div class="callout-body">`)
		writeInline(buf, b.Text)
		r.blocks(b.Children)
		buf.WriteString("</div></aside>")

	case content.KindCode:
		r.code(b)

	case content.KindDiagram:
		buf.WriteString(`<pre class="mermaid">`)
		buf.WriteString(html.EscapeString(b.Text.Text))
		buf.WriteString("</pre>")

	case content.KindEquation:
		buf.WriteString(`<div class="equation">`)
		buf.WriteString(html.EscapeString(b.Expression))
		buf.WriteString("</div>")

	case content.KindImage:
		r.image(b)

	case content.KindBookmark:
		href := SafeURL(b.URL)
		if href == "" {
			return
		}
		buf.WriteString(`<a class="bookmark" href="` + href + `" target="_blank" rel="noopener noreferrer">`)
		buf.WriteString(`<span class="bookmark-url">` + href + `</span>`)
		if !b.Caption.IsZero() {
			buf.WriteString(`<span class="bookmark-caption">`)
			writeInline(buf, b.Caption)
			buf.WriteString("</span>")
		}
		buf.WriteString("</a>")

	case content.KindDivider:
		buf.WriteString("<hr/>")

	case content.KindColumns:
		buf.WriteString(`<div class="columns">`)
		r.blocks(b.Children)
		buf.WriteString("</div>")

	case content.KindColumn:
		buf.WriteString(`<div class="column">`)
		r.blocks(b.Children)
		buf.WriteString("</div>")

	case content.KindTable:
		r.table(b)

	case content.KindContainer:
		r.blocks(b.Children)

	case content.KindListItem:
		r.list([]content.Block{b}, b.Ordered)

	default:
		typ := b.SourceType
		if typ == "" {
			typ = "unknown"
		}
		typ = html.EscapeString(typ)
		buf.WriteString(`<div class="block-unsupported" data-block-type="` + typ + `">Unsupported block: ` + typ + `</div>`)
	}
}

func (r *renderer) code(b content.Block) {
	buf := r.buf
	lang := strings.ReplaceAll(b.Language, " ", "-")
	if lang == "" || lang == "plain-text" {
		buf.WriteString(`<pre class="code-block"><code>`)
	} else {
		escapedLang := html.EscapeString(lang)
		buf.WriteString(`<div class="code-block-wrapper"><span class="code-lang code-lang-` + escapedLang + `">` + escapedLang + `</span>`)
		buf.WriteString(`<pre class="code-block"><code class="language-` + escapedLang + `">`)
	}
	buf.WriteString(html.EscapeString(b.Text.Text))
	buf.WriteString("</code></pre>")
	if lang != "" && lang != "plain-text" {
		buf.WriteString("</div>")
	}
	if !b.Caption.IsZero() {
		buf.WriteString(`<p class="code-caption">`)
		writeInline(buf, b.Caption)
		buf.WriteString("</p>")
	}
}

func (r *renderer) image(b content.Block) {
	src := SafeURL(b.URL)
	if src == "" {
		return
	}
	r.imageCount++
	loadAttr := `loading="lazy"`
	if r.imageCount == 1 {
		loadAttr = `fetchpriority="high"`
	}
	buf := r.buf
	buf.WriteString("<figure>")
	buf.WriteString(`<img ` + loadAttr + ` alt="` + html.EscapeString(b.Caption.Plain()) + `" src="` + src + `" decoding="async"/>`)
	if !b.Caption.IsZero() {
		buf.WriteString("<figcaption>")
		writeInline(buf, b.Caption)
		buf.WriteString("</figcaption>")
	}
	buf.WriteString("</figure>")
}

func (r *renderer) table(b content.Block) {
	buf := r.buf
	buf.WriteString("<table>")
	rows := b.Rows
	if b.HeaderRow && len(rows) > 0 {
		buf.WriteString("<thead><tr>")
		for _, cell := range rows[0] {
			buf.WriteString("<th>")
			writeInline(buf, cell)
			buf.WriteString("</th>")
		}
		buf.WriteString("</tr></thead>")
		rows = rows[1:]
	}
	buf.WriteString("<tbody>")
	for _, row := range rows {
		buf.WriteString("<tr>")
		for _, cell := range row {
			buf.WriteString("<td>")
			writeInline(buf, cell)
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table>")
}
