package model

// Section header sentinels for spans that have no header of their own
const (
	HeaderPreamble      = "preamble"
	HeaderFullReport    = "full report"
	HeaderLastParagraph = "last_paragraph"
)

// Canonical section names used by the selection policy
const (
	SectionImpression    = "impression"
	SectionFindings      = "findings"
	SectionLastParagraph = "last_paragraph"
	SectionComparison    = "comparison"
	SectionHistory       = "history"
	SectionAddendum      = "addendum"
)

// Report is a single free-text radiology report as read from the corpus
type Report struct {
	ID   string `json:"id"`             // Study identifier (file stem or CSV id column)
	Path string `json:"path,omitempty"` // Where the report was read from, for diagnostics
	Text string `json:"text"`           // Raw, unmodified report text
}

// Section is a contiguous span of a report with an associated header
type Section struct {
	Header string `json:"header"` // Raw lowercase header, or one of the Header* sentinels
	Name   string `json:"name"`   // Canonical name after normalization
	Body   string `json:"body"`   // Section body as it appears in the report
	Offset int    `json:"offset"` // Byte offset of Body in the original report
}

// End returns the offset just past the section body
func (s Section) End() int {
	return s.Offset + len(s.Body)
}
