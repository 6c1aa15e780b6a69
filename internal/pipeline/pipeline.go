package pipeline

import (
	"errors"
	"time"

	"github.com/ppiankov/cxrsect/internal/extract"
	"github.com/ppiankov/cxrsect/internal/metrics"
	"github.com/ppiankov/cxrsect/internal/model"
	"github.com/ppiankov/cxrsect/internal/selector"
	"go.uber.org/zap"
)

// ErrEmptyID is returned for reports without a study id
var ErrEmptyID = errors.New("report has no id")

// Options configures optional pipeline behavior
type Options struct {
	Clean   bool             // Apply extract.Clean to the selected text
	Metrics *metrics.Metrics // Optional
	Logger  *zap.Logger      // Optional
}

// Pipeline turns one report into its selected, cleaned section
type Pipeline struct {
	segmenter *extract.Segmenter
	selector  *selector.Selector
	clean     bool
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// New creates a pipeline from its stages
func New(segmenter *extract.Segmenter, sel *selector.Selector, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		segmenter: segmenter,
		selector:  sel,
		clean:     opts.Clean,
		metrics:   opts.Metrics,
		logger:    logger,
	}
}

// Process sections a report and returns the selected text.
// Reports with a span override are not segmented.
func (p *Pipeline) Process(report model.Report) (*model.Selection, error) {
	if report.ID == "" {
		return nil, ErrEmptyID
	}

	start := time.Now()

	sel, ok := p.selector.SpanOverride(report)
	if !ok {
		sel = p.selector.Select(report, p.segmenter.Segment(report.Text))
	}

	return p.finish(report, sel, start), nil
}

// Section returns the full segmentation alongside the selection, for inspection.
// The report is segmented even when a span override applies.
func (p *Pipeline) Section(report model.Report) (extract.Segmentation, *model.Selection, error) {
	if report.ID == "" {
		return extract.Segmentation{}, nil, ErrEmptyID
	}

	start := time.Now()
	seg := p.segmenter.Segment(report.Text)

	return seg, p.finish(report, p.selector.Select(report, seg), start), nil
}

// finish cleans the selected text and records it
func (p *Pipeline) finish(report model.Report, sel model.Selection, start time.Time) *model.Selection {
	if p.clean && sel.Text != "" {
		sel.Text = extract.Clean(sel.Text)
	}

	p.observe(sel, time.Since(start))

	p.logger.Debug("report selected",
		zap.String("study_id", report.ID),
		zap.String("source", string(sel.Source)),
		zap.String("section", sel.Section),
		zap.Int("chars", len(sel.Text)),
	)

	return &sel
}

func (p *Pipeline) observe(sel model.Selection, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}

	p.metrics.ReportDuration.Observe(elapsed.Seconds())
	p.metrics.ReportsTotal.WithLabelValues(string(sel.Source)).Inc()
	if sel.Section != "" {
		p.metrics.SectionsTotal.WithLabelValues(sel.Section).Inc()
	}
}
