package pubnotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/eringen/pubnotion/content"
	"github.com/eringen/pubnotion/notion"
)

const settingsDB = "settings-db"

// fakeClient serves canned pages and blocks. A non-nil err fails every call.
type fakeClient struct {
	mu         sync.Mutex
	pages      []notion.Page
	settings   []notion.Page
	standalone map[string]notion.Page
	blocks     map[string][]notion.Block
	err        error
	queries    int
	blockCalls int
	lastQuery  notion.Query
}

func (f *fakeClient) QueryDatabase(_ context.Context, databaseID string, q notion.Query) ([]notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	if databaseID == settingsDB {
		return f.settings, nil
	}
	f.lastQuery = q
	return f.pages, nil
}

func (f *fakeClient) Page(_ context.Context, pageID string) (notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return notion.Page{}, f.err
	}
	p, ok := f.standalone[pageID]
	if !ok {
		return notion.Page{}, fmt.Errorf("page %s: %w", pageID, notion.ErrNotFound)
	}
	return p, nil
}

func (f *fakeClient) BlockTree(_ context.Context, blockID string) ([]notion.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.blocks[blockID], nil
}

func (f *fakeClient) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeClient) counts() (queries, blocks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries, f.blockCalls
}

func testPage(t *testing.T, id, title, date string, tags ...string) notion.Page {
	t.Helper()
	opts := make([]string, len(tags))
	for i, tag := range tags {
		opts[i] = fmt.Sprintf(`{"name":%q}`, tag)
	}
	raw := fmt.Sprintf(`{
		"id": %q,
		"created_time": "2024-01-01T00:00:00Z",
		"last_edited_time": "2024-02-01T00:00:00Z",
		"properties": {
			"Title": {"id":"title","type":"title","title":[{"type":"text","plain_text":%q}]},
			"Status": {"id":"st","type":"select","select":{"name":"Publish"}},
			"Date": {"id":"d","type":"date","date":{"start":%q}},
			"Tags": {"id":"t","type":"multi_select","multi_select":[%s]},
			"Description": {"id":"desc","type":"rich_text","rich_text":[{"type":"text","plain_text":%q}]}
		}
	}`, id, title, date, strings.Join(opts, ","), "About "+title)
	var p notion.Page
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return p
}

func testBlocks(t *testing.T, text string) []notion.Block {
	t.Helper()
	raw := fmt.Sprintf(`[
		{"id":"b1","type":"heading_1","heading_1":{"rich_text":[{"type":"text","plain_text":"Intro"}]}},
		{"id":"b2","type":"paragraph","paragraph":{"rich_text":[{"type":"text","plain_text":%q}]}}
	]`, text)
	var blocks []notion.Block
	if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
		t.Fatalf("decode blocks: %v", err)
	}
	return blocks
}

func newFakeClient(t *testing.T) *fakeClient {
	t.Helper()
	return &fakeClient{
		pages: []notion.Page{
			testPage(t, "11111111-1111-1111-1111-111111111111", "Hello", "2024-01-10", "go"),
			testPage(t, "22222222-2222-2222-2222-222222222222", "Second Post", "2024-01-20", "go", "web"),
		},
		blocks: map[string][]notion.Block{
			"11111111-1111-1111-1111-111111111111": testBlocks(t, "hello body"),
			"22222222-2222-2222-2222-222222222222": testBlocks(t, "second body"),
			"about-page":                           testBlocks(t, "about me"),
		},
		standalone: map[string]notion.Page{
			"about-page": standalonePage(t, "about-page", "About me"),
		},
	}
}

func standalonePage(t *testing.T, id, title string) notion.Page {
	t.Helper()
	raw := fmt.Sprintf(`{"id":%q,"properties":{
		"title":{"id":"title","type":"title","title":[{"type":"text","plain_text":%q}]}
	}}`, id, title)
	var p notion.Page
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	return p
}

func testSourceConfig() SourceConfig {
	site := content.DefaultSiteConfig()
	site.Title = "Field Notes"
	site.BaseURL = "https://blog.example.com"
	return SourceConfig{DatabaseID: "posts-db", AboutPageID: "about-page", SiteDefaults: site}
}

func TestListPublishedPostsCachesAndFilters(t *testing.T) {
	client := newFakeClient(t)
	src := NewSource(client, nil, testSourceConfig())

	for range 3 {
		posts, err := src.ListPublishedPosts(t.Context())
		if err != nil {
			t.Fatalf("ListPublishedPosts: %v", err)
		}
		if len(posts) != 2 || posts[0].Slug != "second-post" || posts[1].Slug != "hello" {
			t.Fatalf("posts = %+v", posts)
		}
	}
	if q, _ := client.counts(); q != 1 {
		t.Errorf("queries = %d, want 1", q)
	}

	f := client.lastQuery.Filter
	if f == nil || f.Property != "Status" || f.Select == nil || f.Select.Equals != "Publish" {
		t.Errorf("filter = %+v", f)
	}
	if len(client.lastQuery.Sorts) == 0 || client.lastQuery.Sorts[0].Property != "Date" || client.lastQuery.Sorts[0].Direction != "descending" {
		t.Errorf("sorts = %+v", client.lastQuery.Sorts)
	}
}

func TestStatusTypeSelectsFilter(t *testing.T) {
	tests := []struct {
		statusType string
		check      func(*notion.Filter) bool
	}{
		{"status", func(f *notion.Filter) bool { return f != nil && f.Status != nil && f.Select == nil }},
		{"select", func(f *notion.Filter) bool { return f != nil && f.Select != nil && f.Status == nil }},
		{"none", func(f *notion.Filter) bool { return f == nil }},
	}
	for _, tt := range tests {
		t.Run(tt.statusType, func(t *testing.T) {
			client := newFakeClient(t)
			cfg := testSourceConfig()
			cfg.StatusType = tt.statusType
			src := NewSource(client, nil, cfg)
			if _, err := src.ListPublishedPosts(t.Context()); err != nil {
				t.Fatalf("ListPublishedPosts: %v", err)
			}
			if !tt.check(client.lastQuery.Filter) {
				t.Errorf("filter = %+v", client.lastQuery.Filter)
			}
		})
	}
}

func TestGetPostBySlug(t *testing.T) {
	client := newFakeClient(t)
	src := NewSource(client, nil, testSourceConfig())

	post, err := src.GetPostBySlug(t.Context(), "hello")
	if err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}
	if post.Title != "Hello" || len(post.Body) != 2 || post.Body[1].Text.Plain() != "hello body" {
		t.Errorf("post = %+v", post)
	}
	if _, err := src.GetPostBySlug(t.Context(), "hello"); err != nil {
		t.Fatalf("second GetPostBySlug: %v", err)
	}
	if _, blocks := client.counts(); blocks != 1 {
		t.Errorf("block fetches = %d, want 1", blocks)
	}

	_, err = src.GetPostBySlug(t.Context(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing slug error = %v, want ErrNotFound", err)
	}
}

func TestSourceErrorsAreNotCached(t *testing.T) {
	client := newFakeClient(t)
	client.fail(fmt.Errorf("query: %w", notion.ErrUnavailable))
	src := NewSource(client, nil, testSourceConfig())

	if _, err := src.ListPublishedPosts(t.Context()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	client.fail(nil)
	posts, err := src.ListPublishedPosts(t.Context())
	if err != nil || len(posts) != 2 {
		t.Errorf("after recovery: posts=%d err=%v", len(posts), err)
	}
}

func TestSourceWritesSnapshot(t *testing.T) {
	client := newFakeClient(t)
	store := setupTestStore(t)
	src := NewSource(client, nil, testSourceConfig(), WithSnapshotStore(store))

	if _, err := src.GetPostBySlug(t.Context(), "hello"); err != nil {
		t.Fatalf("GetPostBySlug: %v", err)
	}
	listed, err := store.ListPosts(t.Context())
	if err != nil || len(listed) != 2 {
		t.Fatalf("snapshot listing = %d, %v", len(listed), err)
	}
	stored, err := store.GetPost(t.Context(), "hello")
	if err != nil || len(stored.Body) != 2 {
		t.Errorf("snapshot post = %+v, %v", stored, err)
	}
}

func TestSiteConfigFallbacks(t *testing.T) {
	settings := []notion.Page{
		settingRow(t, "Site Title", "From Notion"),
		settingRow(t, "Author", "Ada"),
	}

	t.Run("no settings database", func(t *testing.T) {
		src := NewSource(newFakeClient(t), nil, testSourceConfig())
		if got := src.SiteConfig(t.Context()); got.Title != "Field Notes" {
			t.Errorf("title = %q", got.Title)
		}
	})

	t.Run("settings database", func(t *testing.T) {
		client := newFakeClient(t)
		client.settings = settings
		cfg := testSourceConfig()
		cfg.SettingsDatabaseID = settingsDB
		src := NewSource(client, nil, cfg)
		got := src.SiteConfig(t.Context())
		if got.Title != "From Notion" || got.Author != "Ada" || got.BaseURL != "https://blog.example.com" {
			t.Errorf("site = %+v", got)
		}
	})

	t.Run("unavailable uses snapshot then defaults", func(t *testing.T) {
		client := newFakeClient(t)
		client.settings = settings
		store := setupTestStore(t)
		cfg := testSourceConfig()
		cfg.SettingsDatabaseID = settingsDB
		src := NewSource(client, nil, cfg, WithSnapshotStore(store))
		src.SiteConfig(t.Context())

		client.fail(notion.ErrUnavailable)
		src.Invalidate()
		if got := src.SiteConfig(t.Context()); got.Title != "From Notion" {
			t.Errorf("snapshot title = %q", got.Title)
		}

		bare := NewSource(client, nil, cfg)
		if got := bare.SiteConfig(t.Context()); got.Title != "Field Notes" {
			t.Errorf("default title = %q", got.Title)
		}
	})
}

func settingRow(t *testing.T, name, value string) notion.Page {
	t.Helper()
	raw := fmt.Sprintf(`{"id":%q,"properties":{
		"Name":{"id":"title","type":"title","title":[{"type":"text","plain_text":%q}]},
		"Value":{"id":"v","type":"rich_text","rich_text":[{"type":"text","plain_text":%q}]}
	}}`, "row-"+name, name, value)
	var p notion.Page
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode setting: %v", err)
	}
	return p
}

func TestAbout(t *testing.T) {
	src := NewSource(newFakeClient(t), nil, testSourceConfig())
	about, err := src.About(t.Context())
	if err != nil || len(about.Body) != 2 {
		t.Fatalf("About = %d blocks, %v", len(about.Body), err)
	}
	if about.Title != "About me" {
		t.Errorf("title = %q, want page title", about.Title)
	}

	client := newFakeClient(t)
	client.standalone["about-page"] = standalonePage(t, "about-page", "")
	about, err = NewSource(client, nil, testSourceConfig()).About(t.Context())
	if err != nil || about.Title != "About" {
		t.Errorf("untitled About = %q, %v", about.Title, err)
	}

	cfg := testSourceConfig()
	cfg.AboutPageID = ""
	about, err = NewSource(newFakeClient(t), nil, cfg).About(t.Context())
	if err != nil || about.Title != "" || about.Body != nil {
		t.Errorf("unset About = %+v, %v", about, err)
	}
}
