package models

import "time"

// ExtractionResult maps field names to the values their selectors produced.
// A value is nil when type conversion failed for a single element. A field
// with zero surviving values is omitted from the map entirely rather than
// kept as an empty slice.
type ExtractionResult map[string][]any

// CaptureRecord is one captured page. Records are keyed uniquely by URL
// with latest-capture-wins upsert semantics.
type CaptureRecord struct {
	URL             string           `json:"url" badgerhold:"key"`
	Domain          string           `json:"domain" badgerhold:"index"`
	Title           string           `json:"title,omitempty"`
	MetaDescription string           `json:"meta_description,omitempty"`
	Headings        []string         `json:"h1_headings,omitempty"`
	Keywords        []string         `json:"keywords,omitempty"`
	HTMLContent     string           `json:"html_content,omitempty"`
	TextContent     string           `json:"text_content,omitempty"`
	Markdown        string           `json:"markdown,omitempty"`
	Fields          ExtractionResult `json:"fields,omitempty"`
	// ProcessedContent holds the JSON-encoded output of the task's
	// transformation plugin, when one ran.
	ProcessedContent string    `json:"processed_content,omitempty"`
	CapturedAt       time.Time `json:"captured_at"`
}
