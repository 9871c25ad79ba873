package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/pubnotion/notion"
)

// ErrMalformedRecord marks a source record whose properties did not have the
// expected shape. Normalization still produces a post with defaults.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedError describes one property that could not be read.
type MalformedError struct {
	PageID   string
	Property string
	Err      error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed record %s: property %q: %v", e.PageID, e.Property, e.Err)
}

func (e *MalformedError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// DefaultTitle replaces a missing or blank title.
const DefaultTitle = "Untitled"

// PropertyNames maps post fields onto database property names.
type PropertyNames struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Status      string `yaml:"status"`
	Date        string `yaml:"date"`
	Tags        string `yaml:"tags"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Cover       string `yaml:"cover"`
}

// DefaultPropertyNames returns the property names of the stock blog template.
func DefaultPropertyNames() PropertyNames {
	return PropertyNames{
		Title:       "Title",
		Slug:        "Slug",
		Status:      "Status",
		Date:        "Date",
		Tags:        "Tags",
		Label:       "Label",
		Description: "Description",
		Author:      "Author",
		Cover:       "Cover",
	}
}

func (n *PropertyNames) setDefaults() {
	d := DefaultPropertyNames()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&n.Title, d.Title)
	fill(&n.Slug, d.Slug)
	fill(&n.Status, d.Status)
	fill(&n.Date, d.Date)
	fill(&n.Tags, d.Tags)
	fill(&n.Label, d.Label)
	fill(&n.Description, d.Description)
	fill(&n.Author, d.Author)
	fill(&n.Cover, d.Cover)
}

// Normalizer converts raw pages into Posts. The zero value uses the default
// property names.
type Normalizer struct {
	Names PropertyNames
}

// NewNormalizer returns a Normalizer for the given property names; empty names
// fall back to the defaults.
func NewNormalizer(names PropertyNames) *Normalizer {
	names.setDefaults()
	return &Normalizer{Names: names}
}

// Properties returns the effective property names.
func (n *Normalizer) Properties() PropertyNames {
	names := n.Names
	names.setDefaults()
	return names
}

type recordReader struct {
	page *notion.Page
	errs []*MalformedError
}

func (r *recordReader) fail(name string, err error) {
	r.errs = append(r.errs, &MalformedError{PageID: r.page.ID, Property: name, Err: err})
}

func (r *recordReader) prop(name string) (notion.PropertyValue, bool) {
	p, ok := r.page.Properties[name]
	if !ok || p.Value == nil {
		return nil, false
	}
	if m, ok := p.Value.(notion.MalformedValue); ok {
		r.fail(name, m.Err)
		return nil, false
	}
	return p.Value, true
}

// text reads any text-like property as a plain string.
func (r *recordReader) text(name string) string {
	v, ok := r.prop(name)
	if !ok {
		return ""
	}
	switch v := v.(type) {
	case notion.TitleValue:
		return strings.TrimSpace(notion.PlainText(v))
	case notion.RichTextValue:
		return strings.TrimSpace(notion.PlainText(v))
	case notion.SelectValue:
		if v.Option != nil {
			return v.Option.Name
		}
	case notion.StatusValue:
		if v.Option != nil {
			return v.Option.Name
		}
	case notion.URLValue:
		if v.URL != nil {
			return *v.URL
		}
	case notion.PeopleValue:
		names := make([]string, 0, len(v))
		for _, p := range v {
			if p.Name != "" {
				names = append(names, p.Name)
			}
		}
		return strings.Join(names, ", ")
	default:
		r.fail(name, fmt.Errorf("unexpected %T for text field", v))
	}
	return ""
}

func (r *recordReader) title(name string) string {
	if t := r.text(name); t != "" {
		return t
	}
	if _, ok := r.page.Properties[name]; ok {
		return ""
	}
	// Every database has exactly one title property, whatever it is called.
	for _, p := range r.page.Properties {
		if t, ok := p.Value.(notion.TitleValue); ok {
			return strings.TrimSpace(notion.PlainText(t))
		}
	}
	return ""
}

func (r *recordReader) status(name string) Status {
	v, ok := r.prop(name)
	if !ok {
		return StatusDraft
	}
	switch v := v.(type) {
	case notion.SelectValue:
		if v.Option != nil {
			return ParseStatus(v.Option.Name)
		}
	case notion.StatusValue:
		if v.Option != nil {
			return ParseStatus(v.Option.Name)
		}
	case notion.CheckboxValue:
		if v {
			return StatusPublish
		}
	case notion.RichTextValue:
		return ParseStatus(notion.PlainText(v))
	default:
		r.fail(name, fmt.Errorf("unexpected %T for status", v))
	}
	return StatusDraft
}

func (r *recordReader) date(name string) (time.Time, bool) {
	v, ok := r.prop(name)
	if !ok {
		return time.Time{}, false
	}
	d, ok := v.(notion.DateValue)
	if !ok {
		r.fail(name, fmt.Errorf("unexpected %T for date", v))
		return time.Time{}, false
	}
	if d.Date == nil || d.Date.Start == "" {
		return time.Time{}, false
	}
	t, err := ParseDate(d.Date.Start)
	if err != nil {
		r.fail(name, err)
		return time.Time{}, false
	}
	return t, true
}

func (r *recordReader) tags(name string) []string {
	v, ok := r.prop(name)
	if !ok {
		return nil
	}
	var names []string
	switch v := v.(type) {
	case notion.MultiSelectValue:
		for _, o := range v {
			names = append(names, o.Name)
		}
	case notion.SelectValue:
		if v.Option != nil {
			names = append(names, v.Option.Name)
		}
	case notion.RichTextValue:
		names = strings.Split(notion.PlainText(v), ",")
	default:
		r.fail(name, fmt.Errorf("unexpected %T for tags", v))
	}
	return dedupe(names)
}

func (r *recordReader) file(name string) string {
	v, ok := r.prop(name)
	if !ok {
		return ""
	}
	switch v := v.(type) {
	case notion.FilesValue:
		for i := range v {
			if loc := v[i].Location(); loc != "" {
				return loc
			}
		}
	case notion.URLValue:
		if v.URL != nil {
			return *v.URL
		}
	default:
		r.fail(name, fmt.Errorf("unexpected %T for file", v))
	}
	return ""
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseDate accepts the date and date-time layouts Notion emits.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Normalize converts one page and its block tree into a Post. It never fails:
// fields that cannot be read get their default and are reported as
// MalformedErrors.
func (n *Normalizer) Normalize(page notion.Page, blocks []notion.Block) (Post, []*MalformedError) {
	names := n.Properties()
	r := &recordReader{page: &page}

	post := Post{
		ID:           page.ID,
		Title:        r.title(names.Title),
		Status:       r.status(names.Status),
		Tags:         r.tags(names.Tags),
		Label:        r.text(names.Label),
		Description:  r.text(names.Description),
		Author:       r.text(names.Author),
		LastEditedAt: page.LastEditedTime.UTC(),
		Body:         NormalizeBlocks(blocks),
	}
	if page.Archived || page.InTrash {
		post.Status = StatusArchived
	}

	post.Slug = Slugify(r.text(names.Slug))
	if post.Slug == "" {
		post.slugGenerated = true
		post.Slug = Slugify(post.Title)
		if post.Slug == "" {
			post.Slug = fallbackSlug(page.ID)
		}
	}
	if post.Title == "" {
		post.Title = DefaultTitle
	}

	switch d, ok := r.date(names.Date); {
	case ok:
		post.PublishDate = d
	case !page.LastEditedTime.IsZero():
		post.PublishDate = page.LastEditedTime.UTC()
	default:
		post.PublishDate = page.CreatedTime.UTC()
	}

	post.CoverImageURL = r.file(names.Cover)
	if post.CoverImageURL == "" {
		post.CoverImageURL = page.Cover.Location()
	}
	return post, r.errs
}

func fallbackSlug(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return "post-" + strings.ReplaceAll(u.String(), "-", "")[:8]
	}
	if s := Slugify(id); s != "" {
		return "post-" + s
	}
	return "post"
}

// NormalizeBatch normalizes a listing. Only visible posts are returned, with
// slugs unique within the batch and ordered by publish date, newest first.
// Explicit slugs are claimed before generated ones, so a title-derived slug
// never displaces one an author chose.
func (n *Normalizer) NormalizeBatch(pages []notion.Page) ([]Post, []*MalformedError) {
	var (
		posts []Post
		errs  []*MalformedError
	)
	for _, page := range pages {
		p, perrs := n.Normalize(page, nil)
		errs = append(errs, perrs...)
		if p.Visible() {
			posts = append(posts, p)
		}
	}

	set := NewSlugSet()
	for _, generated := range []bool{false, true} {
		for i := range posts {
			if posts[i].slugGenerated == generated {
				posts[i].Slug = set.Claim(posts[i].Slug)
			}
		}
	}

	SortByDate(posts)
	return posts, errs
}

// SortByDate orders posts newest first. Posts with equal dates keep their
// relative order.
func SortByDate(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishDate.After(posts[j].PublishDate)
	})
}
