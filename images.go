package pubnotion

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/eringen/pubnotion/content"
)

// OpenGraph image size.
const (
	OGWidth  = 1200
	OGHeight = 630
)

// Text is laid out on a small canvas and scaled up, since the only bundled
// face is a 7x13 bitmap font.
const (
	ogScale      = 5
	ogPad        = 12
	ogMaxLines   = 4
	ogLineHeight = 16
)

var (
	ogBackground = color.RGBA{0x1c, 0x1b, 0x22, 0xff}
	ogAccent     = color.RGBA{0xf2, 0x8c, 0x28, 0xff}
	ogTitle      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	ogSubtitle   = color.RGBA{0xa8, 0xa6, 0xb3, 0xff}
)

// RenderOGImage draws a 1200x630 PNG preview card with title and subtitle.
func RenderOGImage(title, subtitle string) ([]byte, error) {
	w, h := OGWidth/ogScale, OGHeight/ogScale
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(ogBackground), image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, w, 3), image.NewUniform(ogAccent), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	charsPerLine := (w - 2*ogPad) / face.Advance

	d := &font.Drawer{Dst: canvas, Src: image.NewUniform(ogTitle), Face: face}
	y := ogPad + face.Ascent + 4
	for _, line := range wrapText(asciiFold(title), charsPerLine, ogMaxLines) {
		d.Dot = fixed.P(ogPad, y)
		d.DrawString(line)
		y += ogLineHeight
	}

	if subtitle != "" {
		d.Src = image.NewUniform(ogSubtitle)
		lines := wrapText(asciiFold(subtitle), charsPerLine, 1)
		if len(lines) > 0 {
			d.Dot = fixed.P(ogPad, h-ogPad)
			d.DrawString(lines[0])
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))
	draw.NearestNeighbor.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// wrapText breaks s into at most maxLines lines of width runes, marking a
// truncated last line with "...".
func wrapText(s string, width, maxLines int) []string {
	words := strings.Fields(s)
	var lines []string
	var cur string
	for _, word := range words {
		for len(word) > width {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case cur == "":
			cur = word
		case len(cur)+1+len(word) <= width:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
		last := lines[maxLines-1]
		if len(last)+3 > width {
			last = last[:width-3]
		}
		lines[maxLines-1] = last + "..."
	}
	return lines
}

// asciiFold keeps printable ASCII, since the bitmap face has no other
// glyphs. Accented letters lose their marks; other runes become "?".
func asciiFold(s string) string {
	var b strings.Builder
	for _, r := range content.FoldAccents(s) {
		switch {
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		case r == '\n' || r == '\t':
			b.WriteByte(' ')
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}

// ogImage returns the cached preview card of post.
func (a *App) ogImage(ctx context.Context, post content.Post, site content.SiteConfig) ([]byte, error) {
	return GetOrCompute(ctx, a.Source.Cache(), ogKey(post.Slug), a.Config.PostsTTL, func(context.Context) ([]byte, error) {
		return RenderOGImage(post.Title, site.Title)
	})
}
