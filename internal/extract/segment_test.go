package extract

import (
	"strings"
	"testing"

	"github.com/ppiankov/cxrsect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `                                 FINAL REPORT
 EXAMINATION:  CHEST (PA AND LAT)
 
 INDICATION:  ___ year old woman with cough
 
 COMPARISON:  Chest radiograph ___.
 
 FINDINGS: 
 
 The lungs are clear.  No pleural effusion.
 
 IMPRESSION: 
 
 No acute cardiopulmonary process.
`

func newTestSegmenter() *Segmenter {
	return NewSegmenter(NewDefaultCanonicalizer())
}

func assertTiles(t *testing.T, text string, sections []model.Section) {
	t.Helper()
	prev := -1
	for _, sec := range sections {
		assert.Greater(t, sec.Offset, prev, "offsets must increase")
		require.LessOrEqual(t, sec.End(), len(text))
		assert.Equal(t, text[sec.Offset:sec.End()], sec.Body, "body must be a slice of the report")
		prev = sec.Offset
	}
}

func TestSplitSections_NoHeader(t *testing.T) {
	text := "no acute cardiopulmonary process."
	sections := SplitSections(text)

	require.Len(t, sections, 1)
	assert.Equal(t, model.HeaderFullReport, sections[0].Header)
	assert.Equal(t, 0, sections[0].Offset)
	assert.Equal(t, text, sections[0].Body)
}

func TestSplitSections_Basic(t *testing.T) {
	text := "\n HISTORY: cough.\n IMPRESSION: no acute findings.\n"
	sections := SplitSections(text)

	require.Len(t, sections, 3)
	assert.Equal(t, model.HeaderPreamble, sections[0].Header)
	assert.Equal(t, "\n ", sections[0].Body)

	assert.Equal(t, "history", sections[1].Header)
	assert.Equal(t, "cough.", sections[1].Body)

	assert.Equal(t, "impression", sections[2].Header)
	assert.Equal(t, "no acute findings.\n", sections[2].Body)

	assertTiles(t, text, sections)
}

func TestSplitSections_Reconstructs(t *testing.T) {
	sections := SplitSections(sampleReport)
	require.Greater(t, len(sections), 1)
	assertTiles(t, sampleReport, sections)

	// Rebuild the report from bodies and the header text between them
	var buf strings.Builder
	cursor := 0
	for _, sec := range sections {
		buf.WriteString(sampleReport[cursor:sec.Offset])
		buf.WriteString(sec.Body)
		cursor = sec.End()
	}
	buf.WriteString(sampleReport[cursor:])
	assert.Equal(t, sampleReport, buf.String())

	headers := make([]string, len(sections))
	for i, sec := range sections {
		headers[i] = sec.Header
	}
	assert.Equal(t, []string{"preamble", "examination", "indication", "comparison", "findings", "impression"}, headers)
}

func TestSplitSections_AdjacentHeadersKeepEmptyBodies(t *testing.T) {
	text := "x\n COMPARISON: \n IMPRESSION: clear."
	sections := SplitSections(text)

	require.Len(t, sections, 3)
	assert.Equal(t, "comparison", sections[1].Header)
	assert.Equal(t, "", sections[1].Body)
	assert.Equal(t, "impression", sections[2].Header)
	assertTiles(t, text, sections)
}

func TestSplitSections_IgnoresProseColons(t *testing.T) {
	text := "\n Note: this is prose with a colon.\n Lungs: clear."
	sections := SplitSections(text)

	require.Len(t, sections, 1)
	assert.Equal(t, model.HeaderFullReport, sections[0].Header)
}

func TestSegment_CanonicalNames(t *testing.T) {
	seg := newTestSegmenter().Segment(sampleReport)

	assert.Equal(t, []string{"preamble", "examination", "indication", "comparison", "findings", "impression"}, seg.Names())
	assert.Equal(t, 5, seg.LastIndex("impression"))
	assert.Equal(t, -1, seg.LastIndex("last_paragraph"))
}

func TestSegment_LastParagraph(t *testing.T) {
	text := "Chest radiograph.\n \nHeart size normal.\n \nNo pneumothorax."
	seg := newTestSegmenter().Segment(text)

	require.Len(t, seg.Sections, 2)
	assert.Equal(t, model.SectionLastParagraph, seg.Sections[1].Name)
	assert.Equal(t, "No pneumothorax.", seg.Sections[1].Body)
	assert.Equal(t, "Chest radiograph.\n \nHeart size normal.", seg.Sections[0].Body)
	assertTiles(t, text, seg.Sections)
}

func TestSegment_LastParagraphAfterHeaders(t *testing.T) {
	text := "\n COMPARISON: None.\n \n Lungs are clear."
	seg := newTestSegmenter().Segment(text)

	names := seg.Names()
	require.Equal(t, []string{"preamble", "comparison", "last_paragraph"}, names)
	assert.Equal(t, " Lungs are clear.", seg.Sections[2].Body)
	assertTiles(t, text, seg.Sections)
}

func TestSegment_NoLastParagraphWithImpression(t *testing.T) {
	text := "\n IMPRESSION: clear.\n \n Dictated by ___."
	seg := newTestSegmenter().Segment(text)

	assert.False(t, seg.Has(model.SectionLastParagraph))
}

func TestSegment_NoBoundaryNoLastParagraph(t *testing.T) {
	seg := newTestSegmenter().Segment("single paragraph report")

	require.Len(t, seg.Sections, 1)
	assert.Equal(t, "full report", seg.Sections[0].Name)
}

func TestSplitLastParagraph_Empty(t *testing.T) {
	assert.Empty(t, SplitLastParagraph(nil))
}
