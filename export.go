package pubnotion

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/pubnotion/content"
	"github.com/eringen/pubnotion/views"
)

// ExportResult summarizes a static export.
type ExportResult struct {
	Posts  int
	Tags   int
	Files  int
	Notice views.Notice
}

type exporter struct {
	dir string

	mu    sync.Mutex
	files int
}

func (x *exporter) write(rel string, data []byte) error {
	path := filepath.Join(x.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("export %s: %w", rel, err)
	}
	x.mu.Lock()
	x.files++
	x.mu.Unlock()
	return nil
}

func (x *exporter) page(ctx context.Context, rel string, cmp templ.Component) error {
	var buf bytes.Buffer
	if err := cmp.Render(ctx, &buf); err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}
	return x.write(rel, buf.Bytes())
}

// Export writes the whole site as static files under dir: the pages, the
// feed, sitemap and robots rules, one preview card per post and the
// stylesheet. An unavailable source degrades the export the same way it
// degrades served pages; only other errors abort it.
func (a *App) Export(ctx context.Context, dir string) (ExportResult, error) {
	x := &exporter{dir: dir}

	l, err := a.loadListing(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	if l.degraded() {
		a.logger.Warn("exporting degraded content", "notice", l.notice)
	}
	base := l.site.BaseURL

	if err := x.page(ctx, "index.html", a.homePage(l)); err != nil {
		return ExportResult{}, err
	}
	if err := x.page(ctx, "404.html", a.notFoundPage(l.site)); err != nil {
		return ExportResult{}, err
	}

	about, notice, err := a.loadAbout(ctx, l)
	if err != nil {
		return ExportResult{}, err
	}
	if err := x.page(ctx, "about.html", a.aboutPage(l, about, notice)); err != nil {
		return ExportResult{}, err
	}

	feed, err := GenerateFeed(l.posts, l.site, base, a.Config.FeedItems)
	if err != nil {
		return ExportResult{}, err
	}
	sitemap, err := GenerateSitemap(l.posts, base)
	if err != nil {
		return ExportResult{}, err
	}
	for rel, data := range map[string][]byte{
		"feed.xml":    feed,
		"sitemap.xml": sitemap,
		"robots.txt":  []byte(GenerateRobots(base).String()),
	} {
		if err := x.write(rel, data); err != nil {
			return ExportResult{}, err
		}
	}

	if err := fs.WalkDir(assetsFS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(assetsFS(), path)
		if err != nil {
			return err
		}
		return x.write("public/"+path, data)
	}); err != nil {
		return ExportResult{}, fmt.Errorf("export assets: %w", err)
	}

	tags := 0
	for _, tag := range ListTags(l.posts) {
		if !safeFileName(tag) {
			a.logger.Warn("skipping tag page", "tag", tag)
			continue
		}
		if err := x.page(ctx, "tags/"+tag+".html", a.tagPage(l, tag)); err != nil {
			return ExportResult{}, err
		}
		tags++
	}

	if err := a.exportPosts(ctx, x, l); err != nil {
		return ExportResult{}, err
	}

	res := ExportResult{Posts: len(l.posts), Tags: tags, Files: x.files, Notice: l.notice}
	a.logger.Info("export complete", "dir", dir, "posts", res.Posts, "tags", res.Tags, "files", res.Files)
	return res, nil
}

// exportPosts renders every post page and preview card, at most
// Config.ExportWorkers at a time.
func (a *App) exportPosts(ctx context.Context, x *exporter, l listing) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Config.ExportWorkers)
	for _, p := range l.posts {
		if !safeFileName(p.Slug) {
			a.logger.Warn("skipping post", "slug", p.Slug)
			continue
		}
		g.Go(func() error {
			post, notice, found, err := a.loadPost(gctx, l, p.Slug)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}
			if err := x.page(gctx, "posts/"+p.Slug+".html", a.postPage(l, post, notice)); err != nil {
				return err
			}
			img, err := a.ogImage(gctx, mergeTitle(post, p), l.site)
			if err != nil {
				return fmt.Errorf("preview card %s: %w", p.Slug, err)
			}
			return x.write("og/"+p.Slug+".png", img)
		})
	}
	return g.Wait()
}

// mergeTitle keeps the listing title for posts that could not be loaded.
func mergeTitle(post, listed content.Post) content.Post {
	if post.Title == "" {
		post.Title = listed.Title
	}
	return post
}

func safeFileName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.ContainsAny(name, `/\`)
}
