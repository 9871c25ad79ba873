package notion

import (
	"encoding/json"
	"fmt"
	"time"
)

// Page is a database row or standalone page as returned by the API.
type Page struct {
	ID             string              `json:"id"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	InTrash        bool                `json:"in_trash"`
	URL            string              `json:"url"`
	Cover          *File               `json:"cover"`
	Icon           *Icon               `json:"icon"`
	Properties     map[string]Property `json:"properties"`
}

// File is an uploaded or external file reference.
type File struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	External *struct {
		URL string `json:"url"`
	} `json:"external,omitempty"`
	File *struct {
		URL        string    `json:"url"`
		ExpiryTime time.Time `json:"expiry_time"`
	} `json:"file,omitempty"`
}

// Location returns the file URL regardless of hosting type.
func (f *File) Location() string {
	if f == nil {
		return ""
	}
	switch {
	case f.External != nil:
		return f.External.URL
	case f.File != nil:
		return f.File.URL
	}
	return ""
}

// Icon is a page or callout icon.
type Icon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
	File
}

// Annotations are the formatting flags of one rich text run.
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color"`
}

// RichText is one run of uniformly formatted text.
type RichText struct {
	Type        string      `json:"type"`
	PlainText   string      `json:"plain_text"`
	Href        string      `json:"href,omitempty"`
	Annotations Annotations `json:"annotations"`
	Text        *struct {
		Content string `json:"content"`
		Link    *struct {
			URL string `json:"url"`
		} `json:"link"`
	} `json:"text,omitempty"`
	Equation *struct {
		Expression string `json:"expression"`
	} `json:"equation,omitempty"`
}

// Content returns the displayed text of the run.
func (r RichText) Content() string {
	if r.PlainText != "" {
		return r.PlainText
	}
	if r.Text != nil {
		return r.Text.Content
	}
	if r.Equation != nil {
		return r.Equation.Expression
	}
	return ""
}

// Link returns the run's link target, if any.
func (r RichText) Link() string {
	if r.Href != "" {
		return r.Href
	}
	if r.Text != nil && r.Text.Link != nil {
		return r.Text.Link.URL
	}
	return ""
}

// PlainText concatenates the displayed text of runs.
func PlainText(runs []RichText) string {
	var s string
	for _, r := range runs {
		s += r.Content()
	}
	return s
}

// SelectOption is a select, status or multi-select choice.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateRange is the value of a date property.
type DateRange struct {
	Start    string  `json:"start"`
	End      *string `json:"end"`
	TimeZone *string `json:"time_zone"`
}

// Person is a user referenced by a people property.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PropertyValue is the typed value of one page property. The concrete type
// is selected by the property's declared type name when decoding.
type PropertyValue interface {
	propertyType() string
}

type (
	TitleValue       []RichText
	RichTextValue    []RichText
	SelectValue      struct{ Option *SelectOption }
	StatusValue      struct{ Option *SelectOption }
	MultiSelectValue []SelectOption
	DateValue        struct{ Date *DateRange }
	URLValue         struct{ URL *string }
	FilesValue       []File
	PeopleValue      []Person
	CheckboxValue    bool
	NumberValue      struct{ Number *float64 }
	// UnknownValue holds a property type this package does not model.
	UnknownValue struct {
		Type string
		Raw  json.RawMessage
	}
	// MalformedValue records a known property type whose payload did not
	// match the expected shape.
	MalformedValue struct {
		Type string
		Err  error
	}
)

func (TitleValue) propertyType() string       { return "title" }
func (RichTextValue) propertyType() string    { return "rich_text" }
func (SelectValue) propertyType() string      { return "select" }
func (StatusValue) propertyType() string      { return "status" }
func (MultiSelectValue) propertyType() string { return "multi_select" }
func (DateValue) propertyType() string        { return "date" }
func (URLValue) propertyType() string         { return "url" }
func (FilesValue) propertyType() string       { return "files" }
func (PeopleValue) propertyType() string      { return "people" }
func (CheckboxValue) propertyType() string    { return "checkbox" }
func (NumberValue) propertyType() string      { return "number" }
func (v UnknownValue) propertyType() string   { return v.Type }
func (v MalformedValue) propertyType() string { return v.Type }

// Property is a decoded page property.
type Property struct {
	ID    string
	Type  string
	Value PropertyValue
}

type envelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// UnmarshalJSON selects the value type from the "type" discriminator. A
// payload that fails to decode becomes a MalformedValue instead of an error
// so one bad property never fails a whole listing.
func (p *Property) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	p.ID, p.Type = env.ID, env.Type
	raw := fields[env.Type]

	var (
		v   PropertyValue
		err error
	)
	switch env.Type {
	case "title":
		var runs []RichText
		err = decodeOptional(raw, &runs)
		v = TitleValue(runs)
	case "rich_text":
		var runs []RichText
		err = decodeOptional(raw, &runs)
		v = RichTextValue(runs)
	case "select":
		var opt *SelectOption
		err = decodeOptional(raw, &opt)
		v = SelectValue{Option: opt}
	case "status":
		var opt *SelectOption
		err = decodeOptional(raw, &opt)
		v = StatusValue{Option: opt}
	case "multi_select":
		var opts []SelectOption
		err = decodeOptional(raw, &opts)
		v = MultiSelectValue(opts)
	case "date":
		var d *DateRange
		err = decodeOptional(raw, &d)
		v = DateValue{Date: d}
	case "url":
		var u *string
		err = decodeOptional(raw, &u)
		v = URLValue{URL: u}
	case "files":
		var files []File
		err = decodeOptional(raw, &files)
		v = FilesValue(files)
	case "people":
		var people []Person
		err = decodeOptional(raw, &people)
		v = PeopleValue(people)
	case "checkbox":
		var b bool
		err = decodeOptional(raw, &b)
		v = CheckboxValue(b)
	case "number":
		var n *float64
		err = decodeOptional(raw, &n)
		v = NumberValue{Number: n}
	default:
		v = UnknownValue{Type: env.Type, Raw: raw}
	}
	if err != nil {
		v = MalformedValue{Type: env.Type, Err: fmt.Errorf("decode %s property: %w", env.Type, err)}
	}
	p.Value = v
	return nil
}

func decodeOptional(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// Block is one content block. Children is filled by Client.BlockTree.
type Block struct {
	ID             string       `json:"id"`
	Type           string       `json:"type"`
	HasChildren    bool         `json:"has_children"`
	Archived       bool         `json:"archived"`
	CreatedTime    time.Time    `json:"created_time"`
	LastEditedTime time.Time    `json:"last_edited_time"`
	Payload        BlockPayload `json:"-"`
	Children       []Block      `json:"-"`
}

// BlockPayload is the type-specific body of a block.
type BlockPayload interface {
	blockPayload()
}

// TextPayload covers every block type whose body is a rich text run list:
// paragraphs, headings, list items, to-dos, toggles, quotes, callouts and code.
type TextPayload struct {
	RichText     []RichText `json:"rich_text"`
	Color        string     `json:"color,omitempty"`
	IsToggleable bool       `json:"is_toggleable,omitempty"`
	Checked      bool       `json:"checked,omitempty"`
	Icon         *Icon      `json:"icon,omitempty"`
	Language     string     `json:"language,omitempty"`
	Caption      []RichText `json:"caption,omitempty"`
}

// ImagePayload is an image block body.
type ImagePayload struct {
	File
	Caption []RichText `json:"caption"`
}

// EquationPayload is a block-level equation.
type EquationPayload struct {
	Expression string `json:"expression"`
}

// LinkPayload covers bookmark, embed, link_preview and video blocks.
type LinkPayload struct {
	URL      string     `json:"url"`
	Caption  []RichText `json:"caption,omitempty"`
	External *struct {
		URL string `json:"url"`
	} `json:"external,omitempty"`
}

// Target returns the linked URL.
func (p LinkPayload) Target() string {
	if p.URL != "" {
		return p.URL
	}
	if p.External != nil {
		return p.External.URL
	}
	return ""
}

// TablePayload is a table block body; rows arrive as children.
type TablePayload struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

// TableRowPayload is one table row.
type TableRowPayload struct {
	Cells [][]RichText `json:"cells"`
}

// EmptyPayload is used by structural blocks with no body of interest.
type EmptyPayload struct{}

// UnknownPayload keeps the raw body of an unmodelled block type.
type UnknownPayload struct {
	Raw json.RawMessage
}

func (TextPayload) blockPayload()     {}
func (ImagePayload) blockPayload()    {}
func (EquationPayload) blockPayload() {}
func (LinkPayload) blockPayload()     {}
func (TablePayload) blockPayload()    {}
func (TableRowPayload) blockPayload() {}
func (EmptyPayload) blockPayload()    {}
func (UnknownPayload) blockPayload()  {}

var textBlockTypes = map[string]bool{
	"paragraph":          true,
	"heading_1":          true,
	"heading_2":          true,
	"heading_3":          true,
	"bulleted_list_item": true,
	"numbered_list_item": true,
	"to_do":              true,
	"toggle":             true,
	"quote":              true,
	"callout":            true,
	"code":               true,
}

var linkBlockTypes = map[string]bool{
	"bookmark":     true,
	"embed":        true,
	"link_preview": true,
	"video":        true,
}

var emptyBlockTypes = map[string]bool{
	"divider":      true,
	"column_list":  true,
	"column":       true,
	"synced_block": true,
	"breadcrumb":   true,
}

// UnmarshalJSON decodes the block envelope and its type-specific body.
func (b *Block) UnmarshalJSON(data []byte) error {
	type plain Block
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*b = Block(p)
	raw := fields[b.Type]

	var err error
	switch {
	case textBlockTypes[b.Type]:
		var body TextPayload
		err = decodeOptional(raw, &body)
		b.Payload = body
	case b.Type == "image":
		var body ImagePayload
		err = decodeOptional(raw, &body)
		b.Payload = body
	case b.Type == "equation":
		var body EquationPayload
		err = decodeOptional(raw, &body)
		b.Payload = body
	case linkBlockTypes[b.Type]:
		var body LinkPayload
		err = decodeOptional(raw, &body)
		b.Payload = body
	case b.Type == "table":
		var body TablePayload
		err = decodeOptional(raw, &body)
		b.Payload = body
	case b.Type == "table_row":
		var body TableRowPayload
		err = decodeOptional(raw, &body)
		b.Payload = body
	case emptyBlockTypes[b.Type]:
		b.Payload = EmptyPayload{}
	default:
		b.Payload = UnknownPayload{Raw: raw}
	}
	if err != nil {
		b.Payload = UnknownPayload{Raw: raw}
	}
	return nil
}

// Filter is a database query filter. Only the shapes used for post
// listings are modelled.
type Filter struct {
	Property string     `json:"property,omitempty"`
	Select   *Condition `json:"select,omitempty"`
	Status   *Condition `json:"status,omitempty"`
	And      []Filter   `json:"and,omitempty"`
}

// Condition is an equality condition.
type Condition struct {
	Equals string `json:"equals"`
}

// Sort orders a database query.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// Query describes a database query.
type Query struct {
	Filter *Filter `json:"filter,omitempty"`
	Sorts  []Sort  `json:"sorts,omitempty"`
}

type queryRequest struct {
	Query
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

type list[T any] struct {
	Results    []T     `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

func (l list[T]) cursor() string {
	if !l.HasMore || l.NextCursor == nil {
		return ""
	}
	return *l.NextCursor
}
