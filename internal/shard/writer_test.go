package shard

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ppiankov/cxrsect/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySink keeps shards in memory
type memorySink struct {
	mu     sync.Mutex
	names  []string
	shards map[string][]byte
	err    error
	fails  int // Put calls to fail before err applies
}

func newMemorySink() *memorySink {
	return &memorySink{shards: make(map[string][]byte)}
}

func (s *memorySink) Put(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return errors.New("transient")
	}
	if s.err != nil {
		return s.err
	}
	s.names = append(s.names, name)
	s.shards[name] = append([]byte(nil), data...)
	return nil
}

func decode(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriter_Sharding(t *testing.T) {
	sink := newMemorySink()
	var flushed []int
	w := NewWriter(sink, Options{
		Size:    10000,
		Prefix:  "mimic_cxr",
		OnFlush: func(name string, rows int) { flushed = append(flushed, rows) },
	})

	ctx := context.Background()
	for i := 0; i < 25000; i++ {
		require.NoError(t, w.Add(ctx, model.Selection{ReportID: fmt.Sprintf("s%05d", i), Text: "x"}))
	}
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, []string{"mimic_cxr_000.csv", "mimic_cxr_001.csv", "mimic_cxr_002.csv"}, sink.names)
	assert.Equal(t, []int{10000, 10000, 5000}, flushed)
	assert.Equal(t, 25000, w.Rows())
	assert.Equal(t, sink.names, w.Shards())

	// Order is preserved across shard boundaries
	next := 0
	for _, name := range sink.names {
		for _, rec := range decode(t, sink.shards[name]) {
			assert.Equal(t, fmt.Sprintf("s%05d", next), rec[0])
			next++
		}
	}
	assert.Equal(t, 25000, next)
}

func TestWriter_ExactMultipleHasNoEmptyShard(t *testing.T) {
	sink := newMemorySink()
	w := NewWriter(sink, Options{Size: 2})

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, w.Add(ctx, model.Selection{ReportID: fmt.Sprint(i)}))
	}
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, []string{"shard_000.csv", "shard_001.csv"}, sink.names)
}

func TestWriter_EmptyCloseWritesNothing(t *testing.T) {
	sink := newMemorySink()
	w := NewWriter(sink, Options{})

	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))
	assert.Empty(t, sink.names)

	assert.ErrorIs(t, w.Add(context.Background(), model.Selection{}), ErrClosed)
}

func TestWriter_Concurrent(t *testing.T) {
	sink := newMemorySink()
	w := NewWriter(sink, Options{Size: 7})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Add(ctx, model.Selection{ReportID: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Close(ctx))

	seen := make(map[string]bool)
	for _, name := range sink.names {
		for _, rec := range decode(t, sink.shards[name]) {
			assert.False(t, seen[rec[0]], "duplicate %s", rec[0])
			seen[rec[0]] = true
		}
	}
	assert.Len(t, seen, 100)
	assert.Len(t, sink.names, 15)
}

func TestWriter_SinkError(t *testing.T) {
	sink := newMemorySink()
	sink.err = errors.New("disk full")
	w := NewWriter(sink, Options{Size: 1})

	err := w.Add(context.Background(), model.Selection{ReportID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shard_000.csv")
	assert.Equal(t, 0, w.Rows())
}

func TestWriter_SinkErrorIsSticky(t *testing.T) {
	sink := newMemorySink()
	sink.fails = 1
	w := NewWriter(sink, Options{Size: 2})
	ctx := context.Background()

	require.NoError(t, w.Add(ctx, selection("s1")))
	err := w.Add(ctx, selection("s2"))
	require.Error(t, err)

	for _, id := range []string{"s3", "s4", "s5"} {
		assert.ErrorIs(t, w.Add(ctx, selection(id)), err)
	}
	assert.ErrorIs(t, w.Close(ctx), err)

	for _, name := range sink.names {
		assert.LessOrEqual(t, len(decode(t, sink.shards[name])), 2, name)
	}
	assert.Empty(t, w.Shards())
	assert.Equal(t, 0, w.Rows())
}

func TestEncode_Quoting(t *testing.T) {
	rows := []model.Selection{
		{ReportID: "s1", Text: "no acute process, lungs clear."},
		{ReportID: "s2", Text: "line one\nline \"two\""},
		{ReportID: "s3", Text: ""},
	}

	data, err := Encode(rows)
	require.NoError(t, err)

	records := decode(t, data)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, rows[i].Row(), rec)
	}
	assert.Contains(t, string(data), `"no acute process, lungs clear."`)
}

func TestName(t *testing.T) {
	assert.Equal(t, "mimic_cxr_000.csv", Name("mimic_cxr", 0))
	assert.Equal(t, "mimic_cxr_012.csv", Name("mimic_cxr", 12))
	assert.Equal(t, "x_1234.csv", Name("x", 1234))
}

func selection(id string) model.Selection {
	return model.Selection{ReportID: id, Text: "text for " + id}
}
