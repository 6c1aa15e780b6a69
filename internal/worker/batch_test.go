package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/ppiankov/cxrsect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProcessor echoes the report text, with a random delay to shuffle completion order
type mockProcessor struct {
	failID  string
	panicID string
}

func (m *mockProcessor) Process(report model.Report) (*model.Selection, error) {
	time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)
	switch report.ID {
	case m.failID:
		return nil, errors.New("process error")
	case m.panicID:
		panic("boom")
	}
	return &model.Selection{ReportID: report.ID, Text: report.Text}, nil
}

func walkN(n int) WalkFunc {
	return func(ctx context.Context, fn func(model.Report, error) error) error {
		for i := 0; i < n; i++ {
			text := "text"
			if i%10 == 0 {
				text = ""
			}
			if err := fn(model.Report{ID: fmt.Sprintf("s%04d", i), Text: text}, nil); err != nil {
				return err
			}
		}
		return nil
	}
}

func TestBatchProcessor_PreservesOrder(t *testing.T) {
	for _, workers := range []int{1, 3, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			processor := NewBatchProcessor(&mockProcessor{}, workers)

			var ids []string
			stats, err := processor.Process(context.Background(), walkN(300), func(r *ReportResult) error {
				ids = append(ids, r.Report.ID)
				return nil
			})
			require.NoError(t, err)

			require.Len(t, ids, 300)
			for i, id := range ids {
				assert.Equal(t, fmt.Sprintf("s%04d", i), id)
			}
			assert.Equal(t, Stats{Total: 300, Empty: 30}, stats)
		})
	}
}

func TestBatchProcessor_FailuresDoNotStopBatch(t *testing.T) {
	processor := NewBatchProcessor(&mockProcessor{failID: "s0003", panicID: "s0007"}, 4)

	failed := map[string]error{}
	stats, err := processor.Process(context.Background(), walkN(20), func(r *ReportResult) error {
		if r.Error != nil {
			failed[r.Report.ID] = r.Error
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 20, stats.Total)
	assert.Equal(t, 2, stats.Failed)
	assert.Contains(t, failed, "s0003")
	require.Contains(t, failed, "s0007")
	assert.Contains(t, failed["s0007"].Error(), "panic")
}

func TestBatchProcessor_ReadErrors(t *testing.T) {
	processor := NewBatchProcessor(&mockProcessor{}, 2)

	walk := func(ctx context.Context, fn func(model.Report, error) error) error {
		if err := fn(model.Report{ID: "ok", Text: "x"}, nil); err != nil {
			return err
		}
		return fn(model.Report{ID: "bad", Path: "/x/bad.txt"}, errors.New("permission denied"))
	}

	var results []*ReportResult
	stats, err := processor.Process(context.Background(), walk, func(r *ReportResult) error {
		results = append(results, r)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Nil(t, results[1].Selection)
	assert.EqualError(t, results[1].Error, "permission denied")
	assert.Equal(t, 1, stats.Failed)
}

func TestBatchProcessor_EmitErrorStops(t *testing.T) {
	processor := NewBatchProcessor(&mockProcessor{}, 4)
	stop := errors.New("sink failed")

	calls := 0
	_, err := processor.Process(context.Background(), walkN(1000), func(r *ReportResult) error {
		calls++
		if calls == 5 {
			return stop
		}
		return nil
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 5, calls)
}

func TestBatchProcessor_WalkError(t *testing.T) {
	processor := NewBatchProcessor(&mockProcessor{}, 2)
	broken := errors.New("corpus gone")

	walk := func(ctx context.Context, fn func(model.Report, error) error) error {
		_ = fn(model.Report{ID: "s1"}, nil)
		return broken
	}

	stats, err := processor.Process(context.Background(), walk, func(*ReportResult) error { return nil })
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 1, stats.Total)
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockProcessor{}, 2)

	stats, err := processor.Process(context.Background(), walkN(0), func(*ReportResult) error {
		t.Fatal("emit called for empty corpus")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestReportJob_Execute(t *testing.T) {
	job := &ReportJob{Seq: 3, Report: model.Report{ID: "s1", Text: "x"}, Processor: &mockProcessor{}}
	res := job.Execute(context.Background()).(*ReportResult)

	assert.NoError(t, res.GetError())
	assert.Equal(t, 3, res.Seq)
	assert.Equal(t, "x", res.Selection.Text)
}
