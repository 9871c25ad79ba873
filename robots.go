package pubnotion

import "strings"

// RobotsGroup is one user-agent group of robots.txt.
type RobotsGroup struct {
	UserAgent string
	Allow     []string
	Disallow  []string
}

// RobotsRules is a robots.txt document.
type RobotsRules struct {
	Groups  []RobotsGroup
	Sitemap string
}

// GenerateRobots allows every crawler everywhere and points at the sitemap.
func GenerateRobots(baseURL string) RobotsRules {
	return RobotsRules{
		Groups:  []RobotsGroup{{UserAgent: "*", Allow: []string{"/"}}},
		Sitemap: BuildURL(baseURL, "sitemap.xml"),
	}
}

func (r RobotsRules) String() string {
	var b strings.Builder
	for i, g := range r.Groups {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("User-agent: " + g.UserAgent + "\n")
		for _, p := range g.Allow {
			b.WriteString("Allow: " + p + "\n")
		}
		for _, p := range g.Disallow {
			b.WriteString("Disallow: " + p + "\n")
		}
	}
	if r.Sitemap != "" {
		b.WriteString("\nSitemap: " + r.Sitemap + "\n")
	}
	return b.String()
}
