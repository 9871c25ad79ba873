package content

import (
	"strings"

	"github.com/eringen/pubnotion/notion"
)

// PageTitle returns the text of a page's title property. Standalone pages
// have exactly one, usually named "title".
func PageTitle(page notion.Page) string {
	for _, p := range page.Properties {
		if t, ok := p.Value.(notion.TitleValue); ok {
			return strings.TrimSpace(notion.PlainText(t))
		}
	}
	return ""
}

// NormalizeBlocks maps a raw block tree onto Blocks, preserving order.
// Archived blocks are dropped; types without a dedicated kind become
// KindUnsupported and keep their source type name.
func NormalizeBlocks(raw []notion.Block) []Block {
	return normalizeBlocks(raw, 0)
}

func normalizeBlocks(raw []notion.Block, listDepth int) []Block {
	if len(raw) == 0 {
		return nil
	}
	out := make([]Block, 0, len(raw))
	for _, rb := range raw {
		if rb.Archived {
			continue
		}
		out = append(out, normalizeBlock(rb, listDepth))
	}
	return out
}

func normalizeBlock(rb notion.Block, listDepth int) Block {
	b := Block{ID: rb.ID, SourceType: rb.Type}
	childDepth := 0

	switch p := rb.Payload.(type) {
	case notion.TextPayload:
		b.Text = NormalizeRichText(p.RichText)
		switch rb.Type {
		case "paragraph":
			b.Kind = KindParagraph
		case "heading_1", "heading_2", "heading_3":
			b.Kind = KindHeading
			b.Level = int(rb.Type[len(rb.Type)-1] - '0')
		case "bulleted_list_item", "numbered_list_item":
			b.Kind = KindListItem
			b.Ordered = rb.Type == "numbered_list_item"
			b.Depth = listDepth
			childDepth = listDepth + 1
		case "to_do":
			b.Kind = KindToDo
			b.Checked = p.Checked
		case "toggle":
			b.Kind = KindToggle
		case "quote":
			b.Kind = KindQuote
		case "callout":
			b.Kind = KindCallout
			b.Icon = iconText(p.Icon)
		case "code":
			b.Kind = KindCode
			b.Language = strings.ToLower(strings.TrimSpace(p.Language))
			b.Text = RichText{Text: b.Text.Text}
			b.Caption = NormalizeRichText(p.Caption)
			if b.Language == "mermaid" {
				b.Kind = KindDiagram
			}
		default:
			b.Kind = KindUnsupported
		}
	case notion.ImagePayload:
		b.Kind = KindImage
		b.URL = p.Location()
		b.Caption = NormalizeRichText(p.Caption)
	case notion.EquationPayload:
		b.Kind = KindEquation
		b.Expression = p.Expression
	case notion.LinkPayload:
		b.Kind = KindBookmark
		b.URL = p.Target()
		b.Caption = NormalizeRichText(p.Caption)
	case notion.TablePayload:
		b.Kind = KindTable
		b.HeaderRow = p.HasColumnHeader
		for _, row := range rb.Children {
			cells, ok := row.Payload.(notion.TableRowPayload)
			if !ok {
				continue
			}
			r := make([]RichText, len(cells.Cells))
			for i, c := range cells.Cells {
				r[i] = NormalizeRichText(c)
			}
			b.Rows = append(b.Rows, r)
		}
		return b
	case notion.EmptyPayload:
		switch rb.Type {
		case "divider":
			b.Kind = KindDivider
		case "column_list":
			b.Kind = KindColumns
		case "column":
			b.Kind = KindColumn
		case "synced_block":
			b.Kind = KindContainer
		default:
			b.Kind = KindUnsupported
		}
	default:
		b.Kind = KindUnsupported
	}

	b.Children = normalizeBlocks(rb.Children, childDepth)
	return b
}

func iconText(icon *notion.Icon) string {
	if icon == nil {
		return ""
	}
	if icon.Emoji != "" {
		return icon.Emoji
	}
	return icon.Location()
}
