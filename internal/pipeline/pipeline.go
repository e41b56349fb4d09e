// Package pipeline runs the catmaset commands end to end: unpacking the
// corpus, building protocol tables, assembling the corpus and writing it,
// and reporting the outcome through metrics and notifications.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/knesset-annotations/catmaset/internal/archive"
	"github.com/knesset-annotations/catmaset/internal/conf"
	"github.com/knesset-annotations/catmaset/internal/dataset"
	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
	"github.com/knesset-annotations/catmaset/internal/notification"
	"github.com/knesset-annotations/catmaset/internal/observability"
	"github.com/knesset-annotations/catmaset/internal/observability/metrics"
	"github.com/knesset-annotations/catmaset/internal/output"
)

// Command names used in logs, metrics and notifications.
const (
	CommandBuild    = "build"
	CommandProtocol = "protocol"
	CommandValidate = "validate"
)

// Result summarizes a finished run.
type Result struct {
	RunID     string
	Protocols int // protocol directories processed
	Skipped   int // protocol directories without annotations
	Rows      int
	Output    string
	Format    output.Format
	Elapsed   time.Duration
}

// Runner executes pipeline commands with one set of settings.
type Runner struct {
	settings *conf.Settings
	fs       afero.Fs
	metrics  *observability.Metrics
	notifier *notification.Notifier
	builder  *dataset.Builder
	unpacker *archive.Unpacker
	writer   *output.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithFs replaces the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithMetrics sets the registry metrics are recorded in.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithNotifier sets the run summary notifier.
func WithNotifier(n *notification.Notifier) Option {
	return func(r *Runner) {
		r.notifier = n
	}
}

// New creates a Runner. Without WithMetrics a private registry is used.
func New(settings *conf.Settings, opts ...Option) (*Runner, error) {
	r := &Runner{
		settings: settings,
		fs:       afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.metrics == nil {
		m, err := observability.NewMetrics()
		if err != nil {
			return nil, errors.New(err).
				Component("pipeline").
				Category(errors.CategorySystem).
				Build()
		}
		r.metrics = m
	}

	r.builder = dataset.NewBuilder(r.fs,
		dataset.WithContextWindows(settings.Context.Before, settings.Context.After),
		dataset.WithLineBreak(settings.Transcript.LineBreak))
	r.unpacker = archive.NewUnpacker(r.fs)
	r.writer = output.NewWriter(r.fs)

	return r, nil
}

// NewFromSettings creates a Runner on the OS filesystem with a fresh metrics
// registry and the configured notifier.
func NewFromSettings(settings *conf.Settings) (*Runner, error) {
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategorySystem).
			Build()
	}
	notifier, err := notification.NewNotifier(&settings.Notification, m.Notification)
	if err != nil {
		return nil, err
	}
	return New(settings, WithMetrics(m), WithNotifier(notifier))
}

// Build unpacks the corpus, builds the table of every annotated protocol
// directory and writes the assembled corpus to the configured output.
func (r *Runner) Build(ctx context.Context) (*Result, error) {
	return r.run(ctx, CommandBuild, func(ctx context.Context, res *Result) error {
		discovery, err := r.prepare(ctx)
		if err != nil {
			return err
		}
		res.Skipped = len(discovery.Invalid)

		tables, err := r.buildProtocols(ctx, discovery.Valid)
		if err != nil {
			return err
		}
		res.Protocols = len(tables)

		return r.assembleAndWrite(tables, r.settings.Output.Path, res)
	})
}

// Protocol builds the table of a single protocol directory. Deduplication,
// label normalization and filtering apply as they do to the whole corpus.
// An empty outputPath uses the configured output path.
func (r *Runner) Protocol(ctx context.Context, dir, outputPath string) (*Result, error) {
	if outputPath == "" {
		outputPath = r.settings.Output.Path
	}
	return r.run(ctx, CommandProtocol, func(ctx context.Context, res *Result) error {
		tables, err := r.buildProtocols(ctx, []string{dir})
		if err != nil {
			return err
		}
		res.Protocols = len(tables)

		return r.assembleAndWrite(tables, outputPath, res)
	})
}

// run wraps a command with a run id, timing and reporting.
func (r *Runner) run(ctx context.Context, command string, fn func(context.Context, *Result) error) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	ctx = logger.WithTraceID(ctx, res.RunID)
	log := GetLogger().WithContext(ctx)

	log.Info("run started",
		logger.String("command", command),
		logger.String("run_id", res.RunID))

	start := time.Now()
	err := fn(ctx, res)
	res.Elapsed = time.Since(start)

	if err != nil {
		log.Error("run failed",
			logger.String("command", command),
			logger.String("category", string(errors.CategoryOf(err))),
			logger.Error(err),
			logger.Duration("elapsed", res.Elapsed))
	} else {
		log.Info("run completed",
			logger.String("command", command),
			logger.Int("protocols", res.Protocols),
			logger.Int("rows", res.Rows),
			logger.Duration("elapsed", res.Elapsed))
	}

	r.report(ctx, command, res, err)
	return res, err
}

// prepare unpacks the corpus archives and classifies the protocol directories.
func (r *Runner) prepare(ctx context.Context) (*archive.Discovery, error) {
	start := time.Now()
	root, stats, err := r.unpacker.Unpack(ctx, r.settings.Input.DataDir, r.settings.Input.Archive)
	r.observe(metrics.OpUnpack, start, err)
	if err != nil {
		return nil, err
	}
	r.metrics.Pipeline.AddArchiveEntries(stats.Written, stats.Skipped)

	start = time.Now()
	discovery, err := archive.Discover(r.fs, root)
	r.observe(metrics.OpDiscover, start, err)
	if err != nil {
		return nil, err
	}
	r.metrics.Pipeline.SetProtocolDirs(len(discovery.Valid), len(discovery.Invalid))

	return discovery, nil
}

// buildProtocols builds every directory in order. The context is checked
// between directories; cancellation aborts the run.
func (r *Runner) buildProtocols(ctx context.Context, dirs []string) ([][]dataset.Record, error) {
	tables := make([][]dataset.Record, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(err).
				Component("pipeline").
				Category(errors.CategoryCancellation).
				Context("protocol", filepath.Base(dir)).
				Context("completed", len(tables)).
				Build()
		}

		start := time.Now()
		records, err := r.builder.BuildProtocol(dir)
		r.observe(metrics.OpProtocol, start, err)
		if err != nil {
			return nil, err
		}

		r.countProtocol(dir, records)
		tables = append(tables, records)
	}
	return tables, nil
}

func (r *Runner) countProtocol(dir string, records []dataset.Record) {
	if documents, err := r.builder.DocumentPaths(dir); err == nil {
		r.metrics.Pipeline.AddDocuments(len(documents))
	}

	annotated := 0
	for i := range records {
		if records[i].Annotated {
			annotated++
		}
	}
	r.metrics.Pipeline.AddRows(metrics.RowAnnotated, annotated)
	r.metrics.Pipeline.AddRows(metrics.RowUnannotated, len(records)-annotated)
}

func (r *Runner) assembleAndWrite(tables [][]dataset.Record, path string, res *Result) error {
	start := time.Now()
	concatenated := 0
	for _, t := range tables {
		concatenated += len(t)
	}
	rows := dataset.Assemble(tables, dataset.LabelPolicy{
		Rename:  r.settings.Labels.RenameMap(),
		Exclude: r.settings.Labels.Exclude,
	})
	r.observe(metrics.OpAssemble, start, nil)
	r.metrics.Pipeline.SetCorpusRows("concatenated", concatenated)
	r.metrics.Pipeline.SetCorpusRows("final", len(rows))

	start = time.Now()
	format, err := r.writer.WriteFile(path, r.settings.Output.Format, rows)
	r.observe(metrics.OpWrite, start, err)
	if err != nil {
		return err
	}

	res.Rows = len(rows)
	res.Output = path
	res.Format = format
	return nil
}

// observe records the outcome and duration of one operation.
func (r *Runner) observe(operation string, start time.Time, err error) {
	var recorder metrics.Recorder = r.metrics.Pipeline

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		recorder.RecordError(operation, string(errors.CategoryOf(err)))
	}
	recorder.RecordOperation(operation, status)
	recorder.RecordDuration(operation, time.Since(start).Seconds())
}
