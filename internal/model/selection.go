package model

// SelectionSource records which rule produced a selection
type SelectionSource string

const (
	SourceSpanOverride    SelectionSource = "span_override"    // Literal character span from the override table
	SourceSectionOverride SelectionSource = "section_override" // Named section from the override table
	SourcePriority        SelectionSource = "priority"         // impression > findings > last_paragraph > comparison
	SourceNone            SelectionSource = "none"             // No qualifying section
)

// Selection is the single section text forwarded downstream for a report
type Selection struct {
	ReportID string          `json:"report_id"`
	Path     string          `json:"path,omitempty"`
	Text     string          `json:"text"`
	Source   SelectionSource `json:"source"`
	Section  string          `json:"section,omitempty"` // Canonical name of the chosen section, if any
}

// Empty reports whether no text was selected
func (s Selection) Empty() bool {
	return s.Text == ""
}

// Row returns the CSV record for this selection
func (s Selection) Row() []string {
	return []string{s.ReportID, s.Text}
}
