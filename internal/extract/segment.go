package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/cxrsect/internal/model"
)

var (
	// headerPattern matches an all-caps header on its own line, e.g. "\n IMPRESSION: "
	headerPattern = regexp.MustCompile(`\n ([A-Z ()/,\-]+):\s`)
)

// paragraphBreak separates the closing paragraph of a report
const paragraphBreak = "\n \n"

// Segmentation is the ordered list of sections found in one report
type Segmentation struct {
	Sections []model.Section `json:"sections"`
}

// Names returns the canonical section names in document order
func (s Segmentation) Names() []string {
	names := make([]string, len(s.Sections))
	for i, sec := range s.Sections {
		names[i] = sec.Name
	}
	return names
}

// Has reports whether any section carries the canonical name
func (s Segmentation) Has(name string) bool {
	return s.LastIndex(name) >= 0
}

// LastIndex returns the index of the last section with the canonical name, or -1
func (s Segmentation) LastIndex(name string) int {
	for i := len(s.Sections) - 1; i >= 0; i-- {
		if s.Sections[i].Name == name {
			return i
		}
	}
	return -1
}

// Segmenter splits reports into canonically named sections
type Segmenter struct {
	canon *Canonicalizer
}

// NewSegmenter creates a segmenter that names sections with canon
func NewSegmenter(canon *Canonicalizer) *Segmenter {
	return &Segmenter{canon: canon}
}

// Segment splits text into sections, canonicalizes their names and, when the report
// has neither an impression nor a findings section, carves a last_paragraph section
// out of the final one.
func (s *Segmenter) Segment(text string) Segmentation {
	sections := SplitSections(text)

	for i := range sections {
		sections[i].Name = s.canon.Name(sections[i].Header)
	}

	seg := Segmentation{Sections: sections}
	if !seg.Has(model.SectionImpression) && !seg.Has(model.SectionFindings) {
		seg.Sections = SplitLastParagraph(seg.Sections)
	}

	return seg
}

// SplitSections partitions text at header lines. Section names are left empty.
//
// Without any header the whole text is a single "full report" section. Otherwise the
// text before the first header is the "preamble", followed by one section per header
// whose body runs to the next header. The search for the next header resumes after
// the first line break of the current body, so a header can never start on the same
// line as the previous one.
func SplitSections(text string) []model.Section {
	m := headerPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return []model.Section{{
			Header: model.HeaderFullReport,
			Body:   text,
			Offset: 0,
		}}
	}

	sections := []model.Section{{
		Header: model.HeaderPreamble,
		Body:   text[:m[2]],
		Offset: 0,
	}}

	for m != nil {
		header := strings.ToLower(text[m[2]:m[3]])
		start := m[1]

		skip := strings.IndexByte(text[start:], '\n')
		if skip < 0 {
			skip = 0
		}

		end := len(text)
		m = findHeader(text, start+skip)
		if m != nil {
			end = m[0]
		}

		sections = append(sections, model.Section{
			Header: header,
			Body:   text[start:end],
			Offset: start,
		})
	}

	return sections
}

// findHeader returns the submatch indices of the first header at or after pos,
// relative to the full text
func findHeader(text string, pos int) []int {
	m := headerPattern.FindStringSubmatchIndex(text[pos:])
	if m == nil {
		return nil
	}
	for i := range m {
		if m[i] >= 0 {
			m[i] += pos
		}
	}
	return m
}

// SplitLastParagraph moves the text after the final paragraph break of the last
// section into a new last_paragraph section. The input is returned unchanged when
// the last section has no paragraph break.
func SplitLastParagraph(sections []model.Section) []model.Section {
	if len(sections) == 0 {
		return sections
	}

	last := sections[len(sections)-1]
	idx := strings.LastIndex(last.Body, paragraphBreak)
	if idx < 0 {
		return sections
	}

	out := make([]model.Section, len(sections), len(sections)+1)
	copy(out, sections)

	out[len(out)-1].Body = last.Body[:idx]
	return append(out, model.Section{
		Header: model.HeaderLastParagraph,
		Name:   model.SectionLastParagraph,
		Body:   last.Body[idx+len(paragraphBreak):],
		Offset: last.Offset + idx + len(paragraphBreak),
	})
}
