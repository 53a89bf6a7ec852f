package notion

import "time"

// Property type discriminators returned by the service.
const (
	PropertyTypeTitle       = "title"
	PropertyTypeRichText    = "rich_text"
	PropertyTypeSelect      = "select"
	PropertyTypeMultiSelect = "multi_select"
	PropertyTypeDate        = "date"
	PropertyTypeCheckbox    = "checkbox"
)

// RichTextItem is one run of text inside a title or rich text property.
type RichTextItem struct {
	PlainText string       `json:"plain_text,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
}

// TextContent carries writable text content for rich text runs.
type TextContent struct {
	Content string `json:"content"`
}

// SelectOption names one select or multi-select choice.
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue carries the start timestamp of a date property.
type DateValue struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// PropertyValue is the union of property variants the sign-in sheet uses.
type PropertyValue struct {
	Type        string         `json:"type,omitempty"`
	Title       []RichTextItem `json:"title,omitempty"`
	RichText    []RichTextItem `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
}

// Page is one record of the remote database.
type Page struct {
	Identifier     string                   `json:"id"`
	LastEditedTime time.Time                `json:"last_edited_time"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// PropertyChanges maps property names to replacement values for a page update.
type PropertyChanges map[string]PropertyValue

// QueryFilter mirrors the service's database query filter object.
type QueryFilter map[string]any

// DateEqualsFilter matches records whose named date property equals dateValue (YYYY-MM-DD).
func DateEqualsFilter(propertyName string, dateValue string) QueryFilter {
	return QueryFilter{
		"property": propertyName,
		"date":     map[string]any{"equals": dateValue},
	}
}

// DateBetweenFilter matches records whose named date property falls inside the inclusive window.
func DateBetweenFilter(propertyName string, startDate string, endDate string) QueryFilter {
	return QueryFilter{
		"and": []QueryFilter{
			{
				"property": propertyName,
				"date":     map[string]any{"on_or_after": startDate},
			},
			{
				"property": propertyName,
				"date":     map[string]any{"on_or_before": endDate},
			},
		},
	}
}

// NewTitleProperty builds a writable title property value.
func NewTitleProperty(content string) PropertyValue {
	return PropertyValue{
		Title: []RichTextItem{{Text: &TextContent{Content: content}, PlainText: content}},
	}
}

// NewRichTextProperty builds a writable rich text property value.
func NewRichTextProperty(content string) PropertyValue {
	return PropertyValue{
		RichText: []RichTextItem{{Text: &TextContent{Content: content}, PlainText: content}},
	}
}

// NewSelectProperty builds a writable select property value.
func NewSelectProperty(optionName string) PropertyValue {
	return PropertyValue{
		Select: &SelectOption{Name: optionName},
	}
}

type databaseQueryRequest struct {
	PageSize    int         `json:"page_size"`
	Filter      QueryFilter `json:"filter,omitempty"`
	StartCursor string      `json:"start_cursor,omitempty"`
}

type databaseQueryResponse struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type pageUpdateRequest struct {
	Properties PropertyChanges `json:"properties"`
}
