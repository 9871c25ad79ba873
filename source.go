package pubnotion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eringen/pubnotion/content"
	"github.com/eringen/pubnotion/notion"
)

// Error categories surfaced to the page layer. They are the client's
// sentinels so errors.Is works across package boundaries.
var (
	ErrNotFound    = notion.ErrNotFound
	ErrUnavailable = notion.ErrUnavailable
	ErrAuth        = notion.ErrAuth
)

// ContentClient is the part of the Notion client the Source depends on.
type ContentClient interface {
	QueryDatabase(ctx context.Context, databaseID string, q notion.Query) ([]notion.Page, error)
	Page(ctx context.Context, pageID string) (notion.Page, error)
	BlockTree(ctx context.Context, blockID string) ([]notion.Block, error)
}

// SourceConfig selects the databases and cache windows of a Source.
type SourceConfig struct {
	DatabaseID         string
	SettingsDatabaseID string
	AboutPageID        string

	// StatusType is the type of the status property: "select" (default),
	// "status", or "none" to skip server-side filtering.
	StatusType    string
	PublishStatus string

	PostsTTL     time.Duration
	SiteTTL      time.Duration
	SiteDefaults content.SiteConfig
}

func (c *SourceConfig) setDefaults() {
	if c.StatusType == "" {
		c.StatusType = "select"
	}
	if c.PublishStatus == "" {
		c.PublishStatus = string(content.StatusPublish)
	}
	if c.PostsTTL == 0 {
		c.PostsTTL = 5 * time.Minute
	}
	if c.SiteTTL == 0 {
		c.SiteTTL = 30 * time.Minute
	}
	if c.SiteDefaults == (content.SiteConfig{}) {
		c.SiteDefaults = content.DefaultSiteConfig()
	}
}

// Source composes the Notion client, the normalizer and the cache into the
// read operations the site needs. Returned slices are shared with the cache
// and must not be modified.
type Source struct {
	client     ContentClient
	normalizer *content.Normalizer
	cache      *Cache
	store      *Store
	cfg        SourceConfig
	logger     *slog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithSnapshotStore records every successful fetch in s.
func WithSnapshotStore(s *Store) SourceOption {
	return func(src *Source) { src.store = s }
}

// WithSourceLogger sets the logger.
func WithSourceLogger(l *slog.Logger) SourceOption {
	return func(src *Source) { src.logger = l }
}

// WithCache shares c instead of a private cache.
func WithCache(c *Cache) SourceOption {
	return func(src *Source) { src.cache = c }
}

// NewSource returns a Source reading from client.
func NewSource(client ContentClient, normalizer *content.Normalizer, cfg SourceConfig, opts ...SourceOption) *Source {
	cfg.setDefaults()
	if normalizer == nil {
		normalizer = content.NewNormalizer(content.PropertyNames{})
	}
	s := &Source{
		client:     client,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewCache()
	}
	return s
}

// Snapshot returns the snapshot store, or nil when none is configured.
func (s *Source) Snapshot() *Store {
	return s.store
}

// Cache returns the cache backing s.
func (s *Source) Cache() *Cache {
	return s.cache
}

func (s *Source) publishedQuery() notion.Query {
	names := s.normalizer.Properties()
	q := notion.Query{
		Sorts: []notion.Sort{
			{Property: names.Date, Direction: "descending"},
			{Timestamp: "last_edited_time", Direction: "descending"},
		},
	}
	cond := &notion.Condition{Equals: s.cfg.PublishStatus}
	switch s.cfg.StatusType {
	case "status":
		q.Filter = &notion.Filter{Property: names.Status, Status: cond}
	case "none":
	default:
		q.Filter = &notion.Filter{Property: names.Status, Select: cond}
	}
	return q
}

// ListPublishedPosts returns the visible posts, newest first, without bodies.
func (s *Source) ListPublishedPosts(ctx context.Context) ([]content.Post, error) {
	return GetOrCompute(ctx, s.cache, keyPublishedPosts, s.cfg.PostsTTL, func(ctx context.Context) ([]content.Post, error) {
		pages, err := s.client.QueryDatabase(ctx, s.cfg.DatabaseID, s.publishedQuery())
		if err != nil {
			return nil, fmt.Errorf("list published posts: %w", err)
		}
		posts, errs := s.normalizer.NormalizeBatch(pages)
		s.logMalformed(errs)
		s.logger.Info("posts fetched", "pages", len(pages), "published", len(posts))

		if s.store != nil {
			if err := s.store.ReplacePosts(ctx, posts); err != nil {
				s.logger.Error("snapshot posts", "error", err)
			}
		}
		return posts, nil
	})
}

// GetPostBySlug returns one visible post with its body. It returns
// ErrNotFound when no published post has the slug.
func (s *Source) GetPostBySlug(ctx context.Context, slug string) (content.Post, error) {
	return GetOrCompute(ctx, s.cache, postKey(slug), s.cfg.PostsTTL, func(ctx context.Context) (content.Post, error) {
		posts, err := s.ListPublishedPosts(ctx)
		if err != nil {
			return content.Post{}, err
		}
		post, ok := findPost(posts, slug)
		if !ok {
			return content.Post{}, fmt.Errorf("post %q: %w", slug, ErrNotFound)
		}
		blocks, err := s.client.BlockTree(ctx, post.ID)
		if err != nil {
			return content.Post{}, fmt.Errorf("post %q body: %w", slug, err)
		}
		post.Body = content.NormalizeBlocks(blocks)

		if s.store != nil {
			if err := s.store.SavePost(ctx, post); err != nil {
				s.logger.Error("snapshot post", "slug", slug, "error", err)
			}
		}
		return post, nil
	})
}

func findPost(posts []content.Post, slug string) (content.Post, bool) {
	for _, p := range posts {
		if p.Slug == slug {
			return p, true
		}
	}
	return content.Post{}, false
}

// SiteConfig returns the site configuration. It never fails: without a
// settings database the defaults are used, and when the settings cannot be
// fetched the last stored copy (or the defaults) is returned.
func (s *Source) SiteConfig(ctx context.Context) content.SiteConfig {
	cfg, err := GetOrCompute(ctx, s.cache, keySiteConfig, s.cfg.SiteTTL, func(ctx context.Context) (content.SiteConfig, error) {
		if s.cfg.SettingsDatabaseID == "" {
			return s.cfg.SiteDefaults, nil
		}
		rows, err := s.client.QueryDatabase(ctx, s.cfg.SettingsDatabaseID, notion.Query{})
		if err != nil {
			return content.SiteConfig{}, fmt.Errorf("site settings: %w", err)
		}
		cfg, errs := content.NormalizeSiteConfig(rows, s.cfg.SiteDefaults)
		s.logMalformed(errs)
		if s.store != nil {
			if err := s.store.SaveSiteConfig(ctx, cfg); err != nil {
				s.logger.Error("snapshot site config", "error", err)
			}
		}
		return cfg, nil
	})
	if err == nil {
		return cfg
	}

	s.logger.Warn("site settings unavailable, using fallback", "error", err)
	if s.store != nil {
		if stored, serr := s.store.LoadSiteConfig(context.WithoutCancel(ctx)); serr == nil {
			return stored
		}
	}
	return s.cfg.SiteDefaults
}

// About returns the about page, or a zero AboutPage when none is configured.
// An untitled page is titled "About".
func (s *Source) About(ctx context.Context) (content.AboutPage, error) {
	if s.cfg.AboutPageID == "" {
		return content.AboutPage{}, nil
	}
	return GetOrCompute(ctx, s.cache, keyAbout, s.cfg.PostsTTL, func(ctx context.Context) (content.AboutPage, error) {
		page, err := s.client.Page(ctx, s.cfg.AboutPageID)
		if err != nil {
			return content.AboutPage{}, fmt.Errorf("about page: %w", err)
		}
		raw, err := s.client.BlockTree(ctx, s.cfg.AboutPageID)
		if err != nil {
			return content.AboutPage{}, fmt.Errorf("about page body: %w", err)
		}
		about := content.AboutPage{Title: content.PageTitle(page), Body: content.NormalizeBlocks(raw)}
		if about.Title == "" {
			about.Title = "About"
		}
		if s.store != nil {
			if err := s.store.SaveAbout(ctx, about); err != nil {
				s.logger.Error("snapshot about page", "error", err)
			}
		}
		return about, nil
	})
}

// Invalidate drops every cached value so the next read refetches.
func (s *Source) Invalidate() {
	s.cache.Clear()
}

func (s *Source) logMalformed(errs []*content.MalformedError) {
	for _, e := range errs {
		s.logger.Warn("malformed record", "page", e.PageID, "property", e.Property, "error", e.Err)
	}
}
