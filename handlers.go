package pubnotion

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pubnotion/views"
)

func (a *App) handleHome(c echo.Context) error {
	l, err := a.loadListing(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderPage(c, l.notice, a.homePage(l))
}

func (a *App) handleTag(c echo.Context) error {
	tag := pathParam(c, "tag")
	l, err := a.loadListing(c.Request().Context())
	if err != nil {
		return err
	}
	page := a.tagPage(l, tag)
	if page == nil {
		return RenderStatus(c, http.StatusNotFound, a.notFoundPage(l.site))
	}
	return a.renderPage(c, l.notice, page)
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := pathParam(c, "slug")
	l, err := a.loadListing(ctx)
	if err != nil {
		return err
	}
	post, notice, found, err := a.loadPost(ctx, l, slug)
	if err != nil {
		return err
	}
	if !found {
		return RenderStatus(c, http.StatusNotFound, a.notFoundPage(l.site))
	}
	if notice == views.NoNotice {
		notice = l.notice
	}
	return a.renderPage(c, notice, a.postPage(l, post, notice))
}

func (a *App) handleAbout(c echo.Context) error {
	ctx := c.Request().Context()
	l, err := a.loadListing(ctx)
	if err != nil {
		return err
	}
	about, notice, err := a.loadAbout(ctx, l)
	if err != nil {
		return err
	}
	return a.renderPage(c, notice, a.aboutPage(l, about, notice))
}

func (a *App) handleSitemap(c echo.Context) error {
	l, err := a.loadListing(c.Request().Context())
	if err != nil {
		return err
	}
	data, err := GenerateSitemap(l.posts, l.site.BaseURL)
	if err != nil {
		return err
	}
	noStoreIfDegraded(c, l.notice)
	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, data)
}

func (a *App) handleFeed(c echo.Context) error {
	l, err := a.loadListing(c.Request().Context())
	if err != nil {
		return err
	}
	data, err := GenerateFeed(l.posts, l.site, l.site.BaseURL, a.Config.FeedItems)
	if err != nil {
		return err
	}
	noStoreIfDegraded(c, l.notice)
	return c.Blob(http.StatusOK, "application/rss+xml; charset=UTF-8", data)
}

func (a *App) handleRobots(c echo.Context) error {
	site := a.Source.SiteConfig(c.Request().Context())
	return c.String(http.StatusOK, GenerateRobots(site.BaseURL).String())
}

func (a *App) handleOGImage(c echo.Context) error {
	slug, ok := strings.CutSuffix(pathParam(c, "file"), ".png")
	if !ok {
		return echo.ErrNotFound
	}
	ctx := c.Request().Context()
	l, err := a.loadListing(ctx)
	if err != nil {
		return err
	}
	post, found := findPost(l.posts, slug)
	if !found {
		return echo.ErrNotFound
	}
	img, err := a.ogImage(ctx, post, l.site)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/png", img)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func handleLegacyPostRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/posts/"+url.PathEscape(pathParam(c, "slug")))
}

// pathParam returns the unescaped route parameter.
func pathParam(c echo.Context, name string) string {
	v := c.Param(name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

// renderPage writes a 200 page. Degraded pages are marked uncacheable.
func (a *App) renderPage(c echo.Context, notice views.Notice, page templ.Component) error {
	noStoreIfDegraded(c, notice)
	return Render(c, page)
}

func noStoreIfDegraded(c echo.Context, notice views.Notice) {
	if notice != views.NoNotice {
		c.Response().Header().Set("Cache-Control", "no-store")
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	}

	if code == http.StatusNotFound {
		site := a.Source.SiteConfig(c.Request().Context())
		_ = RenderStatus(c, http.StatusNotFound, a.notFoundPage(site))
		return
	}
	if code >= 500 {
		a.logger.Error("server error",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"auth", errors.Is(err, ErrAuth),
			"error", err,
		)
		site := a.Source.SiteConfig(c.Request().Context())
		c.Response().Header().Set("Cache-Control", "no-store")
		_ = RenderStatus(c, code, a.serverErrorPage(site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
