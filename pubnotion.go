// Package pubnotion is a blog engine that publishes posts written in Notion.
// It fetches, normalizes and caches content through a Source, serves it
// with Echo and templ, and derives RSS, sitemap, robots rules, JSON-LD and
// OpenGraph images from the same post list. The same pages can be exported
// as a static site.
package pubnotion

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/pubnotion/content"
	"github.com/eringen/pubnotion/metrics"
	"github.com/eringen/pubnotion/views"
)

// ViewFuncs holds the templ components the App renders pages with. Each
// receives a views.Page carrying the site, page metadata and notice, so a
// replacement can reuse views.Layout or render its own document.
type ViewFuncs struct {
	Home        func(p views.Page, posts []content.Post, tags []string, activeTag string) templ.Component
	Post        func(p views.Page, post content.Post, related []content.Post) templ.Component
	About       func(p views.Page, about content.AboutPage) templ.Component
	NotFound    func(p views.Page) templ.Component
	ServerError func(p views.Page) templ.Component
	Unavailable func(p views.Page) templ.Component
}

// DefaultViews returns the built-in pages.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Post:        views.Post,
		About:       views.About,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
		Unavailable: views.Unavailable,
	}
}

func (v ViewFuncs) withDefaults() ViewFuncs {
	d := DefaultViews()
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.Post == nil {
		v.Post = d.Post
	}
	if v.About == nil {
		v.About = d.About
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
	if v.Unavailable == nil {
		v.Unavailable = d.Unavailable
	}
	return v
}

// App wires the Source, the page handlers, middleware and metrics together.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Source  *Source
	Metrics *metrics.Collector

	views        ViewFuncs
	logger       *slog.Logger
	gatherer     prometheus.Gatherer
	customRoutes []func(*App)
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithMetrics records fallback renders in c and, when the config enables
// metrics, serves gatherer at /metrics.
func WithMetrics(c *metrics.Collector, gatherer prometheus.Gatherer) Option {
	return func(a *App) {
		a.Metrics = c
		a.gatherer = gatherer
	}
}

// WithViews replaces some or all pages. Nil fields keep the built-in page.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.views = v.withDefaults()
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// New creates an App serving content from src. Routes and middleware are
// registered immediately, so a.Echo can be used as an http.Handler.
func New(cfg Config, src *Source, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Source: src,
		views:  DefaultViews(),
		logger: discardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.Echo.HideBanner = true
	a.Echo.HidePort = true
	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a
}

// Start serves HTTP on Config.Addr until the server is shut down.
func (a *App) Start() error {
	a.logger.Info("listening", "addr", a.Config.Addr)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/public/*", echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(assetsFS())))))
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/og/:file", a.handleOGImage)

	e.GET("/", a.handleHome)
	e.GET("/tags/:tag", a.handleTag)
	e.GET("/posts/:slug", a.handlePost)
	e.GET("/about", a.handleAbout)

	e.GET("/blog", handleBlogRedirect)
	e.GET("/blog/:slug", handleLegacyPostRedirect)

	if a.Config.MetricsEnabled && a.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(a.gatherer)))
	}
}

// Close releases the snapshot store.
func (a *App) Close() error {
	if a.Source != nil && a.Source.Snapshot() != nil {
		return a.Source.Snapshot().Close()
	}
	return nil
}

func (a *App) fallback(kind string) {
	if a.Metrics != nil {
		a.Metrics.Fallback(kind)
	}
}
