package pubnotion

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/eringen/pubnotion/content"
	"github.com/eringen/pubnotion/notion"
)

// Config holds all configuration for a pubnotion site. Every field can be
// set with a flag or an environment variable.
type Config struct {
	NotionToken        string `long:"notion-token" env:"NOTION_TOKEN" description:"Notion integration token"`
	DatabaseID         string `long:"database-id" env:"NOTION_DATABASE_ID" description:"Notion database holding the posts"`
	SettingsDatabaseID string `long:"settings-database-id" env:"NOTION_SETTINGS_DATABASE_ID" description:"Notion database holding Name/Value site settings (optional)"`
	AboutPageID        string `long:"about-page-id" env:"NOTION_ABOUT_PAGE_ID" description:"Notion page rendered at /about (optional)"`
	NotionBaseURL      string `long:"notion-base-url" env:"NOTION_BASE_URL" description:"Notion API base URL"`
	StatusType         string `long:"status-type" env:"NOTION_STATUS_TYPE" default:"select" choice:"select" choice:"status" choice:"none" description:"Type of the status property"`
	PublishStatus      string `long:"publish-status" env:"NOTION_PUBLISH_STATUS" default:"Publish" description:"Status value of published posts"`

	SiteURL  string `long:"site-url" env:"SITE_URL" description:"Canonical site URL, overrides the site settings"`
	SiteFile string `long:"site-file" env:"SITE_FILE" description:"YAML file with site defaults"`

	Addr         string `long:"addr" env:"ADDR" default:":3000" description:"Listen address"`
	SnapshotPath string `long:"snapshot-path" env:"SNAPSHOT_PATH" default:"data/snapshot.db" description:"SQLite snapshot of the last good content, empty to disable"`
	OutputDir    string `long:"output-dir" env:"OUTPUT_DIR" default:"dist" description:"Directory written by the build command"`

	PostsTTL       time.Duration `long:"posts-ttl" env:"POSTS_TTL" default:"5m" description:"Cache lifetime of posts"`
	SiteTTL        time.Duration `long:"site-ttl" env:"SITE_TTL" default:"30m" description:"Cache lifetime of site settings"`
	RequestTimeout time.Duration `long:"request-timeout" env:"NOTION_TIMEOUT" default:"10s" description:"Timeout of a single Notion request"`
	MaxRetries     int           `long:"max-retries" env:"NOTION_MAX_RETRIES" default:"3" description:"Retries after a throttled or failed request; negative disables retries"`
	RateLimit      float64       `long:"rate-limit" env:"NOTION_RATE_LIMIT" default:"3" description:"Notion requests per second"`
	FeedItems      int           `long:"feed-items" env:"FEED_ITEMS" default:"20" description:"Number of posts in the RSS feed"`
	ExportWorkers  int           `long:"export-workers" env:"EXPORT_WORKERS" default:"4" description:"Posts rendered concurrently by the build command"`

	Properties PropertyFlags `group:"Notion properties" namespace:"prop" env-namespace:"NOTION_PROP"`

	LogLevel       string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
	LogFormat      string `long:"log-format" env:"LOG_FORMAT" default:"json" choice:"json" choice:"text" description:"Log format"`
	MetricsEnabled bool   `long:"metrics" env:"METRICS_ENABLED" description:"Serve Prometheus metrics at /metrics"`
}

// PropertyFlags names the database properties read for each post.
type PropertyFlags struct {
	Title       string `long:"title" env:"TITLE" default:"Title"`
	Slug        string `long:"slug" env:"SLUG" default:"Slug"`
	Status      string `long:"status" env:"STATUS" default:"Status"`
	Date        string `long:"date" env:"DATE" default:"Date"`
	Tags        string `long:"tags" env:"TAGS" default:"Tags"`
	Label       string `long:"label" env:"LABEL" default:"Label"`
	Description string `long:"description" env:"DESCRIPTION" default:"Description"`
	Author      string `long:"author" env:"AUTHOR" default:"Author"`
	Cover       string `long:"cover" env:"COVER" default:"Cover"`
}

// ErrMissingConfig reports a setting required for fetching content.
var ErrMissingConfig = errors.New("missing configuration")

// LoadConfig parses args and the environment. A help request is returned
// as a *flags.Error of type flags.ErrHelp.
func LoadConfig(args []string) (Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return Config{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.OutputDir == "" {
		c.OutputDir = "dist"
	}
	if c.PostsTTL == 0 {
		c.PostsTTL = 5 * time.Minute
	}
	if c.SiteTTL == 0 {
		c.SiteTTL = 30 * time.Minute
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 3
	}
	if c.FeedItems <= 0 {
		c.FeedItems = DefaultFeedItems
	}
	if c.ExportWorkers <= 0 {
		c.ExportWorkers = 4
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
}

// Validate checks the settings needed to fetch content.
func (c Config) Validate() error {
	var errs []error
	if c.NotionToken == "" {
		errs = append(errs, fmt.Errorf("%w: NOTION_TOKEN", ErrMissingConfig))
	}
	if c.DatabaseID == "" {
		errs = append(errs, fmt.Errorf("%w: NOTION_DATABASE_ID", ErrMissingConfig))
	}
	return errors.Join(errs...)
}

// PropertyNames returns the configured post properties.
func (c Config) PropertyNames() content.PropertyNames {
	p := c.Properties
	return content.PropertyNames{
		Title:       p.Title,
		Slug:        p.Slug,
		Status:      p.Status,
		Date:        p.Date,
		Tags:        p.Tags,
		Label:       p.Label,
		Description: p.Description,
		Author:      p.Author,
		Cover:       p.Cover,
	}
}

// RetryPolicy returns the client retry policy. A negative MaxRetries sends
// each request once; zero means the default of 3.
func (c Config) RetryPolicy() notion.RetryPolicy {
	c.setDefaults()
	retry := notion.DefaultRetryPolicy()
	retry.MaxRetries = max(c.MaxRetries, 0)
	return retry
}

// NotionOptions returns the client options derived from c.
func (c Config) NotionOptions() []notion.Option {
	c.setDefaults()
	opts := []notion.Option{
		notion.WithTimeout(c.RequestTimeout),
		notion.WithRetryPolicy(c.RetryPolicy()),
		notion.WithRateLimit(rate.Limit(c.RateLimit), max(1, int(c.RateLimit))),
	}
	if c.NotionBaseURL != "" {
		opts = append(opts, notion.WithBaseURL(c.NotionBaseURL))
	}
	return opts
}

// SiteDefaults returns the site configuration used before (or instead of)
// the settings database: the built-in defaults, overlaid by SITE_FILE and
// then by SITE_URL.
func (c Config) SiteDefaults() (content.SiteConfig, error) {
	site := content.DefaultSiteConfig()
	if c.SiteFile != "" {
		loaded, err := LoadSiteFile(c.SiteFile)
		if err != nil {
			return site, err
		}
		site = loaded
	}
	if c.SiteURL != "" {
		site.BaseURL = c.SiteURL
	}
	return site, nil
}

// SourceConfig returns the Source settings derived from c.
func (c Config) SourceConfig(site content.SiteConfig) SourceConfig {
	return SourceConfig{
		DatabaseID:         c.DatabaseID,
		SettingsDatabaseID: c.SettingsDatabaseID,
		AboutPageID:        c.AboutPageID,
		StatusType:         c.StatusType,
		PublishStatus:      c.PublishStatus,
		PostsTTL:           c.PostsTTL,
		SiteTTL:            c.SiteTTL,
		SiteDefaults:       site,
	}
}

// LoadSiteFile reads YAML site defaults. Keys absent from the file keep
// their built-in values.
func LoadSiteFile(path string) (content.SiteConfig, error) {
	site := content.DefaultSiteConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return site, fmt.Errorf("read site file: %w", err)
	}
	if err := yaml.Unmarshal(data, &site); err != nil {
		return site, fmt.Errorf("parse site file %s: %w", path, err)
	}
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	return site, nil
}
