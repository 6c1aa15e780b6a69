// Package shard accumulates selections and writes them out as fixed-size CSV shards.
package shard

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/cxrsect/internal/model"
)

// DefaultSize is the number of rows per shard
const DefaultSize = 10000

// ErrClosed is returned when adding to a closed writer
var ErrClosed = errors.New("shard writer closed")

// Sink persists one encoded shard under name
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

// Options configure a Writer
type Options struct {
	// Size is the number of rows per shard, DefaultSize when <= 0
	Size int
	// Prefix is the shard file name prefix, "shard" when empty
	Prefix string
	// OnFlush is called after each shard is persisted
	OnFlush func(name string, rows int)
}

// Writer accumulates selections in arrival order and flushes every Size rows.
// It is safe for concurrent use; rows are never dropped or duplicated across shards.
type Writer struct {
	mu      sync.Mutex
	sink    Sink
	size    int
	prefix  string
	onFlush func(name string, rows int)

	buf    []model.Selection
	shards []string
	rows   int
	closed bool
	err    error // First failed flush; the writer is unusable after it
}

// NewWriter creates a writer flushing to sink
func NewWriter(sink Sink, opts Options) *Writer {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "shard"
	}

	return &Writer{
		sink:    sink,
		size:    size,
		prefix:  prefix,
		onFlush: opts.OnFlush,
		buf:     make([]model.Selection, 0, size),
	}
}

// Add appends a selection, flushing a shard when the buffer is full
func (w *Writer) Add(ctx context.Context, sel model.Selection) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}

	w.buf = append(w.buf, sel)
	if len(w.buf) < w.size {
		return nil
	}
	return w.flush(ctx)
}

// Close flushes the final partial shard. Further adds fail with ErrClosed.
// After a failed flush Close returns that error and writes nothing.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}
	if w.closed {
		return nil
	}
	w.closed = true

	if len(w.buf) == 0 {
		return nil
	}
	return w.flush(ctx)
}

// Shards returns the names of the shards written so far
func (w *Writer) Shards() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.shards...)
}

// Rows returns the number of rows written so far
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// flush must be called with mu held. A failure is sticky: the buffered rows
// are not retried, so no later shard can exceed size.
func (w *Writer) flush(ctx context.Context) error {
	data, err := Encode(w.buf)
	if err != nil {
		w.err = fmt.Errorf("encode shard: %w", err)
		return w.err
	}

	name := Name(w.prefix, len(w.shards))
	if err := w.sink.Put(ctx, name, data); err != nil {
		w.err = fmt.Errorf("write shard %s: %w", name, err)
		return w.err
	}

	n := len(w.buf)
	w.shards = append(w.shards, name)
	w.rows += n
	w.buf = w.buf[:0]

	if w.onFlush != nil {
		w.onFlush(name, n)
	}
	return nil
}

// Name returns the file name of shard idx, e.g. mimic_cxr_000.csv
func Name(prefix string, idx int) string {
	return fmt.Sprintf("%s_%03d.csv", prefix, idx)
}

// Encode renders selections as headerless (id, text) CSV rows.
// Line endings inside fields are preserved as-is.
func Encode(rows []model.Selection) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	for _, row := range rows {
		if err := cw.Write(row.Row()); err != nil {
			return nil, err
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
