package selector

import (
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/cxrsect/internal/extract"
	"github.com/ppiankov/cxrsect/internal/model"
	"go.uber.org/zap"
)

// Priority is the order in which canonical sections are preferred.
// Comparison is last: when nothing else exists the radiologist has usually
// written the report into the comparison section.
var Priority = []string{
	model.SectionImpression,
	model.SectionFindings,
	model.SectionLastParagraph,
	model.SectionComparison,
}

// Selector picks the single section of a report that is forwarded downstream
type Selector struct {
	overrides *Overrides
	priority  []string
	logger    *zap.Logger
}

// New creates a selector. overrides and logger may be nil.
func New(overrides *Overrides, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{
		overrides: overrides,
		priority:  Priority,
		logger:    logger,
	}
}

// SpanOverride returns the selection for a report with a literal span override.
// Callers use it to skip segmentation for such reports.
func (s *Selector) SpanOverride(report model.Report) (model.Selection, bool) {
	span, ok := s.overrides.Span(report.ID)
	if !ok {
		return model.Selection{}, false
	}

	return model.Selection{
		ReportID: report.ID,
		Path:     report.Path,
		Text:     sliceChars(report.Text, span.Start, span.End),
		Source:   model.SourceSpanOverride,
	}, true
}

// Select chooses the section text for a report. It never fails: when no section
// qualifies the selection is empty and a warning is logged.
//
// Later sections with the same name win over earlier ones.
func (s *Selector) Select(report model.Report, seg extract.Segmentation) model.Selection {
	if sel, ok := s.SpanOverride(report); ok {
		return sel
	}

	if name, ok := s.overrides.Section(report.ID); ok {
		if idx := seg.LastIndex(name); idx >= 0 {
			return s.selection(report, seg, idx, model.SourceSectionOverride)
		}
		s.logger.Warn("override section not found",
			zap.String("study_id", report.ID),
			zap.String("path", report.Path),
			zap.String("section", name),
			zap.Strings("sections", seg.Names()),
		)
	}

	for _, name := range s.priority {
		if idx := seg.LastIndex(name); idx >= 0 {
			return s.selection(report, seg, idx, model.SourcePriority)
		}
	}

	s.logger.Warn("no impression/findings",
		zap.String("study_id", report.ID),
		zap.String("path", report.Path),
		zap.Strings("sections", seg.Names()),
	)

	return model.Selection{
		ReportID: report.ID,
		Path:     report.Path,
		Source:   model.SourceNone,
	}
}

func (s *Selector) selection(report model.Report, seg extract.Segmentation, idx int, source model.SelectionSource) model.Selection {
	sec := seg.Sections[idx]
	return model.Selection{
		ReportID: report.ID,
		Path:     report.Path,
		Text:     strings.TrimSpace(sec.Body),
		Source:   source,
		Section:  sec.Name,
	}
}

// sliceChars returns text[start:end] in characters, clamped to the text bounds
func sliceChars(text string, start, end int) string {
	if isASCII(text) {
		return text[clamp(start, len(text)):clamp(max(start, end), len(text))]
	}

	runes := []rune(text)
	return string(runes[clamp(start, len(runes)):clamp(max(start, end), len(runes))])
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
