package pubnotion

import (
	"context"
	"errors"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/pubnotion/content"
	"github.com/eringen/pubnotion/views"
)

// listing is the site configuration and post list a page is assembled from.
type listing struct {
	site   content.SiteConfig
	posts  []content.Post
	notice views.Notice
}

// degraded reports whether the listing came from a fallback.
func (l listing) degraded() bool {
	return l.notice != views.NoNotice
}

// loadListing fetches the site configuration and the published posts
// concurrently. When the source is unavailable the snapshot listing is
// used, or an empty one when there is no snapshot. Other errors are
// returned.
func (a *App) loadListing(ctx context.Context) (listing, error) {
	var (
		l listing
		g errgroup.Group
	)
	g.Go(func() error {
		l.site = a.Source.SiteConfig(ctx)
		return nil
	})
	g.Go(func() error {
		posts, err := a.Source.ListPublishedPosts(ctx)
		l.posts = posts
		return err
	})
	err := g.Wait()
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return l, err
	}

	if store := a.Source.Snapshot(); store != nil {
		posts, serr := store.ListPosts(context.WithoutCancel(ctx))
		if serr == nil && len(posts) > 0 {
			a.logger.Warn("source unavailable, serving snapshot", "posts", len(posts), "error", err)
			a.fallback("snapshot")
			l.posts = posts
			l.notice = views.NoticeStale
			return l, nil
		}
	}
	a.logger.Warn("source unavailable, no snapshot", "error", err)
	a.fallback("empty")
	l.posts = nil
	l.notice = views.NoticeUnavailable
	return l, nil
}

// loadPost returns the post with its body. found is false when the slug is
// not published. A post that cannot be fetched or restored from the
// snapshot is returned with found set and an Unavailable notice.
func (a *App) loadPost(ctx context.Context, l listing, slug string) (post content.Post, notice views.Notice, found bool, err error) {
	if !l.degraded() {
		post, err = a.Source.GetPostBySlug(ctx, slug)
		switch {
		case err == nil:
			return post, views.NoNotice, true, nil
		case errors.Is(err, ErrNotFound):
			return content.Post{}, views.NoNotice, false, nil
		case !errors.Is(err, ErrUnavailable):
			return content.Post{}, views.NoNotice, false, err
		}
		a.logger.Warn("post unavailable", "slug", slug, "error", err)
	} else if _, ok := findPost(l.posts, slug); !ok && l.notice == views.NoticeStale {
		return content.Post{}, views.NoNotice, false, nil
	}

	if store := a.Source.Snapshot(); store != nil {
		if stored, serr := store.GetPost(context.WithoutCancel(ctx), slug); serr == nil {
			a.fallback("snapshot")
			return stored, views.NoticeStale, true, nil
		}
	}
	a.fallback("empty")
	return content.Post{Slug: slug}, views.NoticeUnavailable, true, nil
}

// loadAbout returns the about page, falling back to the snapshot.
func (a *App) loadAbout(ctx context.Context, l listing) (content.AboutPage, views.Notice, error) {
	if !l.degraded() {
		about, err := a.Source.About(ctx)
		if err == nil {
			return about, views.NoNotice, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return content.AboutPage{}, views.NoNotice, err
		}
		a.logger.Warn("about page unavailable", "error", err)
	}
	if store := a.Source.Snapshot(); store != nil {
		if about, serr := store.LoadAbout(context.WithoutCancel(ctx)); serr == nil {
			a.fallback("snapshot")
			return about, views.NoticeStale, nil
		}
	}
	if l.degraded() && a.Source.cfg.AboutPageID == "" {
		return content.AboutPage{}, l.notice, nil
	}
	a.fallback("empty")
	return content.AboutPage{}, views.NoticeUnavailable, nil
}

func (a *App) homePage(l listing) templ.Component {
	base := l.site.BaseURL
	p := views.Page{
		Site: l.site,
		Meta: views.PageMeta{
			Title:       l.site.Title,
			Description: l.site.Description,
			URL:         BuildURL(base),
			OGType:      "website",
			JSONLD:      []string{WebsiteJSONLD(l.site), BlogJSONLD(l.site, l.posts), PersonJSONLD(l.site)},
		},
		Notice: l.notice,
	}
	return a.views.Home(p, l.posts, ListTags(l.posts), "")
}

// tagPage returns nil when no post carries tag.
func (a *App) tagPage(l listing, tag string) templ.Component {
	posts := FilterByTag(l.posts, tag)
	if len(posts) == 0 && !l.degraded() {
		return nil
	}
	p := views.Page{
		Site: l.site,
		Meta: views.PageMeta{
			Title:       "Posts tagged " + tag,
			Description: l.site.Description,
			URL:         TagURL(l.site.BaseURL, tag),
			OGType:      "website",
		},
		Notice: l.notice,
	}
	return a.views.Home(p, posts, ListTags(l.posts), tag)
}

func (a *App) postPage(l listing, post content.Post, notice views.Notice) templ.Component {
	if notice == views.NoNotice {
		notice = l.notice
	}
	if post.Title == "" {
		return a.views.Unavailable(views.Page{Site: l.site, Notice: notice, Meta: views.PageMeta{NoIndex: true}})
	}
	base := l.site.BaseURL
	image := post.CoverImageURL
	if image == "" {
		image = OGImageURL(base, post.Slug)
	}
	p := views.Page{
		Site: l.site,
		Meta: views.PageMeta{
			Title:       post.Title,
			Description: post.Description,
			URL:         PostURL(base, post.Slug),
			OGType:      "article",
			Image:       image,
			JSONLD:      []string{ArticleJSONLD(post, l.site)},
		},
		Notice: notice,
	}
	return a.views.Post(p, post, views.FilterRelatedPosts(post, l.posts))
}

func (a *App) aboutPage(l listing, about content.AboutPage, notice views.Notice) templ.Component {
	if about.Title == "" {
		about.Title = "About"
	}
	p := views.Page{
		Site: l.site,
		Meta: views.PageMeta{
			Title:       about.Title,
			Description: l.site.Description,
			URL:         BuildURL(l.site.BaseURL, "about"),
			JSONLD:      []string{PersonJSONLD(l.site)},
		},
		Notice: notice,
	}
	return a.views.About(p, about)
}

func (a *App) notFoundPage(site content.SiteConfig) templ.Component {
	return a.views.NotFound(views.Page{Site: site, Meta: views.PageMeta{Title: "Not found", NoIndex: true}})
}

func (a *App) serverErrorPage(site content.SiteConfig) templ.Component {
	return a.views.ServerError(views.Page{Site: site, Meta: views.PageMeta{Title: "Error", NoIndex: true}})
}
