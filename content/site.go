package content

import (
	"fmt"
	"strings"

	"github.com/eringen/pubnotion/notion"
)

// Settings rows are matched on a lowercased name with spaces, dashes and
// underscores removed.
var siteKeys = map[string]func(*SiteConfig, string){
	"title":             func(s *SiteConfig, v string) { s.Title = v },
	"sitetitle":         func(s *SiteConfig, v string) { s.Title = v },
	"sitename":          func(s *SiteConfig, v string) { s.Title = v },
	"description":       func(s *SiteConfig, v string) { s.Description = v },
	"sitedescription":   func(s *SiteConfig, v string) { s.Description = v },
	"author":            func(s *SiteConfig, v string) { s.Author = v },
	"baseurl":           func(s *SiteConfig, v string) { s.BaseURL = strings.TrimRight(v, "/") },
	"siteurl":           func(s *SiteConfig, v string) { s.BaseURL = strings.TrimRight(v, "/") },
	"language":          func(s *SiteConfig, v string) { s.Language = v },
	"lang":              func(s *SiteConfig, v string) { s.Language = v },
	"analyticsid":       func(s *SiteConfig, v string) { s.AnalyticsID = v },
	"googleanalyticsid": func(s *SiteConfig, v string) { s.AnalyticsID = v },
	"adsenseid":         func(s *SiteConfig, v string) { s.AdsenseID = v },
	"enableanalytics":   func(s *SiteConfig, v string) { s.EnableAnalytics = parseBool(v) },
	"enableadsense":     func(s *SiteConfig, v string) { s.EnableAdsense = parseBool(v) },
}

func settingKey(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "y", "1", "on":
		return true
	}
	return false
}

// NormalizeSiteConfig applies the Name/Value rows of a settings database on
// top of defaults. Unknown names are ignored; empty values keep the default.
func NormalizeSiteConfig(rows []notion.Page, defaults SiteConfig) (SiteConfig, []*MalformedError) {
	cfg := defaults
	var errs []*MalformedError
	for i := range rows {
		r := &recordReader{page: &rows[i]}
		name := r.title("Name")
		set, ok := siteKeys[settingKey(name)]
		if !ok {
			continue
		}
		value, err := settingValue(rows[i], "Value")
		if err != nil {
			r.fail("Value", err)
		}
		errs = append(errs, r.errs...)
		if value != "" {
			set(&cfg, value)
		}
	}
	return cfg, errs
}

func settingValue(row notion.Page, name string) (string, error) {
	p, ok := row.Properties[name]
	if !ok {
		return "", nil
	}
	switch v := p.Value.(type) {
	case notion.RichTextValue:
		return strings.TrimSpace(notion.PlainText(v)), nil
	case notion.TitleValue:
		return strings.TrimSpace(notion.PlainText(v)), nil
	case notion.URLValue:
		if v.URL != nil {
			return *v.URL, nil
		}
		return "", nil
	case notion.CheckboxValue:
		if v {
			return "true", nil
		}
		return "false", nil
	case notion.SelectValue:
		if v.Option != nil {
			return v.Option.Name, nil
		}
		return "", nil
	case notion.NumberValue:
		if v.Number != nil {
			return fmt.Sprint(*v.Number), nil
		}
		return "", nil
	case notion.MalformedValue:
		return "", v.Err
	default:
		return "", fmt.Errorf("unexpected %T for setting value", v)
	}
}
