package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/cxrsect/internal/corpus"
	"github.com/ppiankov/cxrsect/internal/extract"
	"github.com/ppiankov/cxrsect/internal/logging"
	"github.com/ppiankov/cxrsect/internal/metrics"
	"github.com/ppiankov/cxrsect/internal/model"
	"github.com/ppiankov/cxrsect/internal/pipeline"
	"github.com/ppiankov/cxrsect/internal/selector"
	"github.com/ppiankov/cxrsect/internal/shard"
	"github.com/ppiankov/cxrsect/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var prepareTimeout time.Duration

// prepareCmd represents the prepare command
var prepareCmd = &cobra.Command{
	Use:   "prepare <corpus>",
	Short: "Section a report corpus and write CSV shards",
	Long: `Prepare processes a whole corpus of radiology reports:
- Read a MIMIC-CXR tree (p10/p10000032/s50414267.txt), a folder of .txt
  reports, or a one/two column CSV or XLSX table
- Split every report into sections in parallel
- Select impression > findings > last paragraph > comparison, honoring
  per-study overrides
- Clean the selected text and write (study_id, text) rows in corpus order
  to fixed-size shards (mimic_cxr_000.csv, mimic_cxr_001.csv, ...)

Example:
  cxrsect prepare ./mimic-cxr-reports/files
  cxrsect prepare reports.csv --output-dir ./shards --shard-size 5000
  cxrsect prepare ./files --s3-bucket my-bucket --s3-prefix mimic/2024-06`,
	Args: cobra.ExactArgs(1),
	RunE: runPrepareCmd,
}

func init() {
	rootCmd.AddCommand(prepareCmd)

	d := model.DefaultConfig()
	flags := prepareCmd.Flags()

	flags.Int("workers", runtime.NumCPU(), "number of concurrent workers")
	flags.Int("shard-size", d.Shard.Size, "rows per output shard")
	flags.String("prefix", d.Shard.Prefix, "shard file name prefix")
	flags.String("output-dir", d.Output.Dir, "output directory for shards")
	flags.String("error-log", d.Output.ErrorLog, "file listing reports that failed (relative to output dir)")
	flags.Bool("clean", d.Output.Clean, "clean selected text (lower-case, punctuation spacing)")
	flags.String("overrides", "", "override table YAML (default: built-in)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.String("s3-bucket", "", "upload shards to this S3 bucket instead of output dir")
	flags.String("s3-prefix", "", "S3 key prefix for shards")
	flags.Float64("s3-rate", 0, "max shard uploads per second (0 = unlimited)")
	flags.DurationVar(&prepareTimeout, "timeout", 0, "total timeout for the run (0 = none)")

	for key, flag := range map[string]string{
		"concurrency.workers": "workers",
		"shard.size":          "shard-size",
		"shard.prefix":        "prefix",
		"output.dir":          "output-dir",
		"output.error_log":    "error-log",
		"output.clean":        "clean",
		"overrides.file":      "overrides",
		"metrics.addr":        "metrics-addr",
		"output.s3.bucket":    "s3-bucket",
		"output.s3.prefix":    "s3-prefix",
		"output.s3.rate":      "s3-rate",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runPrepareCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if prepareTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, prepareTimeout)
		defer cancel()
	}

	_, err = runPrepare(ctx, cfg, args[0], logger, os.Stderr)
	return err
}

// prepareSummary describes a finished run
type prepareSummary struct {
	RunID    string
	Stats    worker.Stats
	Shards   []string
	Rows     int
	Headers  int    // Distinct raw headers named during the run
	ErrorLog string // Empty when nothing failed
}

// runPrepare sections every report of the corpus at input and writes the shards
func runPrepare(ctx context.Context, cfg *model.Config, input string, logger *zap.Logger, out io.Writer) (*prepareSummary, error) {
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))
	start := time.Now()

	src, err := corpus.Open(input)
	if err != nil {
		return nil, err
	}

	overrides, err := selector.LoadOverrides(cfg.Overrides.File)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Warn("metrics listener stopped", zap.String("addr", cfg.Metrics.Addr), zap.Error(err))
			}
		}()
	}

	sink, dest, err := newSink(ctx, cfg)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "  cxrsect prepare\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "  Corpus:       %s (%d reports)\n", input, src.Len())
	fmt.Fprintf(out, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(out, "  Shard size:   %d\n", cfg.Shard.Size)
	fmt.Fprintf(out, "  Output:       %s\n", dest)
	fmt.Fprintf(out, "  Overrides:    %d studies\n", overrides.Len())
	fmt.Fprintf(out, "  Run id:       %s\n", runID)
	fmt.Fprintf(out, "\n")

	writer := shard.NewWriter(sink, shard.Options{
		Size:   cfg.Shard.Size,
		Prefix: cfg.Shard.Prefix,
		OnFlush: func(name string, rows int) {
			m.ShardsWritten.Inc()
			m.RowsWritten.Add(float64(rows))
			logger.Info("shard written", zap.String("shard", name), zap.Int("rows", rows))
		},
	})

	failures := newFailureLog(errorLogPath(cfg))
	defer func() { _ = failures.Close() }()

	canon := extract.NewDefaultCanonicalizer()
	p := pipeline.New(extract.NewSegmenter(canon), selector.New(overrides, logger), pipeline.Options{
		Clean:   cfg.Output.Clean,
		Metrics: m,
		Logger:  logger,
	})
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)

	stats, err := processor.Process(ctx, src.Walk, func(r *worker.ReportResult) error {
		sel := r.Selection
		if r.Error != nil {
			m.FailuresTotal.Inc()
			logger.Error("report failed",
				zap.String("study_id", r.Report.ID),
				zap.String("path", r.Report.Path),
				zap.Error(r.Error),
			)
			if err := failures.Record(r.Report); err != nil {
				return err
			}
			sel = nil
		}
		if sel == nil {
			// Keep one row per input report
			sel = &model.Selection{ReportID: r.Report.ID, Path: r.Report.Path, Source: model.SourceNone}
		}
		return writer.Add(ctx, *sel)
	})
	if err != nil {
		return nil, fmt.Errorf("process corpus: %w", err)
	}

	if err := writer.Close(ctx); err != nil {
		return nil, fmt.Errorf("flush shards: %w", err)
	}

	summary := &prepareSummary{
		RunID:   runID,
		Stats:   stats,
		Shards:  writer.Shards(),
		Rows:    writer.Rows(),
		Headers: canon.Memoized(),
	}
	if failures.Count() > 0 {
		summary.ErrorLog = failures.Path()
	}

	logger.Info("corpus prepared",
		zap.Int("reports", stats.Total),
		zap.Int("failed", stats.Failed),
		zap.Int("empty", stats.Empty),
		zap.Int("shards", len(summary.Shards)),
		zap.Int("headers", summary.Headers),
		zap.Duration("elapsed", time.Since(start)),
	)

	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "  Prepare Complete\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "  Total:     %d reports\n", stats.Total)
	fmt.Fprintf(out, "  Selected:  %d\n", stats.Total-stats.Failed-stats.Empty)
	fmt.Fprintf(out, "  Empty:     %d\n", stats.Empty)
	fmt.Fprintf(out, "  Failures:  %d\n", stats.Failed)
	fmt.Fprintf(out, "  Shards:    %d (%d rows)\n", len(summary.Shards), summary.Rows)
	fmt.Fprintf(out, "  Headers:   %d distinct\n", summary.Headers)
	fmt.Fprintf(out, "  Output:    %s\n", dest)
	if summary.ErrorLog != "" {
		fmt.Fprintf(out, "  Errors:    %s\n", summary.ErrorLog)
	}
	fmt.Fprintf(out, "  Elapsed:   %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(out, "\n")

	return summary, nil
}

// newSink returns the shard destination and a printable description of it
func newSink(ctx context.Context, cfg *model.Config) (shard.Sink, string, error) {
	if cfg.Output.S3.Enabled() {
		limiter := worker.NewLimiter(cfg.Output.S3.Rate, 1)
		sink, err := shard.NewS3Sink(ctx, cfg.Output.S3, limiter)
		if err != nil {
			return nil, "", err
		}
		return sink, fmt.Sprintf("s3://%s/%s", cfg.Output.S3.Bucket, sink.Key("")), nil
	}

	sink, err := shard.NewFileSink(cfg.Output.Dir)
	if err != nil {
		return nil, "", err
	}
	return sink, sink.Dir(), nil
}

// errorLogPath resolves a relative error log against the output directory
func errorLogPath(cfg *model.Config) string {
	path := cfg.Output.ErrorLog
	if path == "" || filepath.IsAbs(path) || cfg.Output.S3.Enabled() {
		return path
	}
	return filepath.Join(cfg.Output.Dir, path)
}

// failureLog appends failed report ids to a file, opened on first use
type failureLog struct {
	path    string
	logger  *zap.Logger
	closeFn func() error
	count   int
}

func newFailureLog(path string) *failureLog {
	return &failureLog{path: path}
}

// Record appends the report id, or its path when it has none
func (f *failureLog) Record(report model.Report) error {
	f.count++
	if f.path == "" {
		return nil
	}

	if f.logger == nil {
		logger, closeFn, err := logging.NewFile(f.path)
		if err != nil {
			return err
		}
		f.logger, f.closeFn = logger, closeFn
	}

	line := report.ID
	if line == "" {
		line = report.Path
	}
	f.logger.Info(line)
	return nil
}

func (f *failureLog) Count() int {
	return f.count
}

func (f *failureLog) Path() string {
	return f.path
}

func (f *failureLog) Close() error {
	if f.closeFn == nil {
		return nil
	}
	return f.closeFn()
}
