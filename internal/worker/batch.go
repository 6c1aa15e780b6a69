package worker

import (
	"context"
	"fmt"

	"github.com/ppiankov/cxrsect/internal/model"
)

// Processor turns one report into its selection
type Processor interface {
	Process(report model.Report) (*model.Selection, error)
}

// WalkFunc feeds reports to fn in corpus order. A non-nil readErr marks a report
// that could not be read; it is reported as a failed result, not processed.
type WalkFunc func(ctx context.Context, fn func(report model.Report, readErr error) error) error

// EmitFunc receives results in corpus order
type EmitFunc func(result *ReportResult) error

// ReportJob processes a single report
type ReportJob struct {
	Seq       int
	Report    model.Report
	ReadErr   error
	Processor Processor
}

// Execute runs the processor, converting a panic into a per-report error
func (j *ReportJob) Execute(ctx context.Context) (res Result) {
	result := &ReportResult{Seq: j.Seq, Report: j.Report}
	if j.ReadErr != nil {
		result.Error = j.ReadErr
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result.Selection = nil
			result.Error = fmt.Errorf("panic processing %s: %v", j.Report.ID, r)
			res = result
		}
	}()

	result.Selection, result.Error = j.Processor.Process(j.Report)
	return result
}

// ReportResult is the outcome of one ReportJob
type ReportResult struct {
	Seq       int
	Report    model.Report
	Selection *model.Selection
	Error     error
}

// GetError returns the error from the result
func (r *ReportResult) GetError() error {
	return r.Error
}

// Stats summarizes a batch run
type Stats struct {
	Total  int
	Failed int
	Empty  int
}

// BatchProcessor processes a corpus concurrently and emits results in corpus order
type BatchProcessor struct {
	processor   Processor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// Process runs every report produced by walk through the processor.
// Results reach emit in the order walk produced the reports, whatever the worker
// count. A failed report does not stop the batch; an error from walk or emit does.
func (b *BatchProcessor) Process(ctx context.Context, walk WalkFunc, emit EmitFunc) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	walkErr := make(chan error, 1)
	go func() {
		defer pool.Close()
		seq := 0
		walkErr <- walk(ctx, func(report model.Report, readErr error) error {
			job := &ReportJob{Seq: seq, Report: report, ReadErr: readErr, Processor: b.processor}
			seq++
			if !pool.Submit(job) {
				return ctx.Err()
			}
			return nil
		})
	}()

	var (
		stats   Stats
		emitErr error
		next    int
		pending = make(map[int]*ReportResult)
	)

	for res := range pool.Results() {
		if emitErr != nil {
			continue
		}

		r := res.(*ReportResult)
		pending[r.Seq] = r

		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			stats.Total++
			if ready.Error != nil {
				stats.Failed++
			} else if ready.Selection == nil || ready.Selection.Empty() {
				stats.Empty++
			}

			if err := emit(ready); err != nil {
				emitErr = err
				cancel()
				break
			}
		}
	}

	if emitErr != nil {
		<-walkErr
		return stats, emitErr
	}
	if err := <-walkErr; err != nil {
		return stats, fmt.Errorf("read corpus: %w", err)
	}
	return stats, nil
}
