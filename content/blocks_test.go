package content

import (
	"encoding/json"
	"reflect"
	"sync"
	"testing"

	"github.com/eringen/pubnotion/notion"
)

func decodeBlocks(t *testing.T, raw string) []notion.Block {
	t.Helper()
	var blocks []notion.Block
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		t.Fatalf("decode blocks: %v", err)
	}
	return blocks
}

func TestNormalizeRichTextMergesRuns(t *testing.T) {
	runs := []notion.RichText{
		{PlainText: "He", Annotations: notion.Annotations{Bold: true}},
		{PlainText: "llo", Annotations: notion.Annotations{Bold: true, Italic: true}},
		{PlainText: " w", Annotations: notion.Annotations{Italic: true}},
		{PlainText: "orld"},
	}
	got := NormalizeRichText(runs)
	if got.Text != "Hello world" {
		t.Fatalf("Text = %q", got.Text)
	}
	want := []Span{
		{Kind: SpanBold, Start: 0, End: 5},
		{Kind: SpanItalic, Start: 2, End: 7},
	}
	if !reflect.DeepEqual(got.Spans, want) {
		t.Errorf("Spans = %+v, want %+v", got.Spans, want)
	}
}

func TestNormalizeRichTextLinks(t *testing.T) {
	var runs []notion.RichText
	raw := `[
		{"type":"text","plain_text":"go ","href":"https://go.dev"},
		{"type":"text","plain_text":"dev","href":"https://go.dev","annotations":{"code":true}},
		{"type":"text","plain_text":" pkg","href":"https://pkg.go.dev"},
		{"type":"equation","plain_text":"x^2","equation":{"expression":"x^2"}}
	]`
	if err := json.Unmarshal([]byte(raw), &runs); err != nil {
		t.Fatal(err)
	}
	got := NormalizeRichText(runs)
	want := []Span{
		{Kind: SpanLink, Start: 0, End: 6, Href: "https://go.dev"},
		{Kind: SpanCode, Start: 3, End: 6},
		{Kind: SpanLink, Start: 6, End: 10, Href: "https://pkg.go.dev"},
		{Kind: SpanEquation, Start: 10, End: 13},
	}
	if !reflect.DeepEqual(got.Spans, want) {
		t.Errorf("Spans = %+v, want %+v", got.Spans, want)
	}
}

func TestNormalizeBlocksKinds(t *testing.T) {
	raw := decodeBlocks(t, `[
		{"id":"h","type":"heading_2","heading_2":{"rich_text":[{"plain_text":"Intro"}]}},
		{"id":"c","type":"code","code":{"rich_text":[{"plain_text":"graph TD;"}],"language":"Mermaid"}},
		{"id":"g","type":"code","code":{"rich_text":[{"plain_text":"x := 1","annotations":{"bold":true}}],"language":"go"}},
		{"id":"t","type":"to_do","to_do":{"rich_text":[{"plain_text":"done"}],"checked":true}},
		{"id":"q","type":"callout","callout":{"rich_text":[{"plain_text":"note"}],"icon":{"type":"emoji","emoji":"💡"}}},
		{"id":"x","type":"ai_block","ai_block":{}},
		{"id":"a","type":"paragraph","archived":true,"paragraph":{"rich_text":[]}},
		{"id":"d","type":"divider","divider":{}}
	]`)

	blocks := NormalizeBlocks(raw)
	if len(blocks) != 7 {
		t.Fatalf("expected 7 blocks, got %d", len(blocks))
	}
	tests := []struct {
		i    int
		kind BlockKind
	}{
		{0, KindHeading},
		{1, KindDiagram},
		{2, KindCode},
		{3, KindToDo},
		{4, KindCallout},
		{5, KindUnsupported},
		{6, KindDivider},
	}
	for _, tt := range tests {
		if blocks[tt.i].Kind != tt.kind {
			t.Errorf("blocks[%d].Kind = %v, want %v", tt.i, blocks[tt.i].Kind, tt.kind)
		}
	}
	if blocks[0].Level != 2 {
		t.Errorf("heading level = %d", blocks[0].Level)
	}
	if blocks[2].Language != "go" || len(blocks[2].Text.Spans) != 0 {
		t.Errorf("code block = %+v", blocks[2])
	}
	if !blocks[3].Checked {
		t.Error("to-do should be checked")
	}
	if blocks[4].Icon != "💡" {
		t.Errorf("callout icon = %q", blocks[4].Icon)
	}
	if blocks[5].SourceType != "ai_block" {
		t.Errorf("unsupported source type = %q", blocks[5].SourceType)
	}
}

func TestNormalizeBlocksListDepthAndTables(t *testing.T) {
	raw := decodeBlocks(t, `[
		{"id":"l1","type":"numbered_list_item","has_children":true,"numbered_list_item":{"rich_text":[{"plain_text":"one"}]}},
		{"id":"tb","type":"table","has_children":true,"table":{"table_width":2,"has_column_header":true}}
	]`)
	raw[0].Children = decodeBlocks(t, `[
		{"id":"l2","type":"bulleted_list_item","bulleted_list_item":{"rich_text":[{"plain_text":"nested"}]}}
	]`)
	raw[1].Children = decodeBlocks(t, `[
		{"id":"r1","type":"table_row","table_row":{"cells":[[{"plain_text":"a"}],[{"plain_text":"b"}]]}},
		{"id":"r2","type":"table_row","table_row":{"cells":[[{"plain_text":"1"}],[{"plain_text":"2"}]]}}
	]`)

	blocks := NormalizeBlocks(raw)
	list := blocks[0]
	if list.Kind != KindListItem || !list.Ordered || list.Depth != 0 {
		t.Errorf("list = %+v", list)
	}
	if len(list.Children) != 1 || list.Children[0].Depth != 1 || list.Children[0].Ordered {
		t.Errorf("nested list = %+v", list.Children)
	}
	table := blocks[1]
	if table.Kind != KindTable || !table.HeaderRow || len(table.Rows) != 2 || table.Rows[1][1].Text != "2" {
		t.Errorf("table = %+v", table)
	}
	if table.Children != nil {
		t.Errorf("table rows should not be children: %+v", table.Children)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.22: what's new?  ", "go-1-22-what-s-new"},
		{"Café Crème", "cafe-creme"},
		{"---", ""},
		{"日本語", ""},
		{"Already-a-slug", "already-a-slug"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				if got := Slugify("Crème Brûlée Über"); got != "creme-brulee-uber" {
					t.Errorf("Slugify = %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSlugSetClaim(t *testing.T) {
	s := NewSlugSet()
	got := []string{s.Claim("intro"), s.Claim("intro"), s.Claim("intro-2"), s.Claim("intro")}
	want := []string{"intro", "intro-2", "intro-2-2", "intro-3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Claim sequence = %v, want %v", got, want)
	}
}

func TestNormalizeSiteConfig(t *testing.T) {
	rows := []notion.Page{
		decodePage(t, `{"id":"1","properties":{"Name":{"type":"title","title":[{"plain_text":"Site Title"}]},"Value":{"type":"rich_text","rich_text":[{"plain_text":"My Blog"}]}}}`),
		decodePage(t, `{"id":"2","properties":{"Name":{"type":"title","title":[{"plain_text":"base_url"}]},"Value":{"type":"url","url":"https://blog.example.com/"}}}`),
		decodePage(t, `{"id":"3","properties":{"Name":{"type":"title","title":[{"plain_text":"Enable Analytics"}]},"Value":{"type":"checkbox","checkbox":true}}}`),
		decodePage(t, `{"id":"4","properties":{"Name":{"type":"title","title":[{"plain_text":"Analytics ID"}]},"Value":{"type":"rich_text","rich_text":[{"plain_text":"G-123"}]}}}`),
		decodePage(t, `{"id":"5","properties":{"Name":{"type":"title","title":[{"plain_text":"Unknown"}]},"Value":{"type":"rich_text","rich_text":[{"plain_text":"x"}]}}}`),
		decodePage(t, `{"id":"6","properties":{"Name":{"type":"title","title":[{"plain_text":"Description"}]},"Value":{"type":"rich_text","rich_text":[]}}}`),
	}
	defaults := DefaultSiteConfig()
	defaults.Description = "default description"

	cfg, errs := NormalizeSiteConfig(rows, defaults)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if cfg.Title != "My Blog" || cfg.BaseURL != "https://blog.example.com" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.AnalyticsEnabled() {
		t.Error("analytics should be enabled")
	}
	if cfg.Description != "default description" {
		t.Errorf("empty value should keep default, got %q", cfg.Description)
	}
	if cfg.Language != "en" {
		t.Errorf("Language = %q", cfg.Language)
	}
}
