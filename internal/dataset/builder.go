package dataset

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
	"github.com/knesset-annotations/catmaset/internal/provenance"
	"github.com/knesset-annotations/catmaset/internal/standoff"
	"github.com/knesset-annotations/catmaset/internal/transcript"
)

// AnnotationDir is the protocol subdirectory holding annotation collections.
const AnnotationDir = "annotationcollections"

const (
	defaultBeforeShift = -100
	defaultAfterShift  = 100
	defaultLineBreak   = "  "
)

// Builder builds the record table of one protocol directory.
type Builder struct {
	fs         afero.Fs
	resolver   provenance.Resolver
	reconciler transcript.Reconciler
	lineBreak  string
}

// Option configures a Builder.
type Option func(*Builder)

// WithResolver replaces the provenance resolver.
func WithResolver(r provenance.Resolver) Option {
	return func(b *Builder) {
		b.resolver = r
	}
}

// WithContextWindows sets the before and after window shifts.
func WithContextWindows(before, after int) Option {
	return func(b *Builder) {
		b.reconciler = transcript.NewReconciler(before, after)
	}
}

// WithLineBreak sets the replacement for newlines and tabs in transcripts.
func WithLineBreak(s string) Option {
	return func(b *Builder) {
		b.lineBreak = s
	}
}

// NewBuilder creates a Builder reading protocols from fs.
func NewBuilder(fs afero.Fs, opts ...Option) *Builder {
	b := &Builder{
		fs:         fs,
		resolver:   provenance.NewPatternResolver(),
		reconciler: transcript.NewReconciler(defaultBeforeShift, defaultAfterShift),
		lineBreak:  defaultLineBreak,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// protocol holds what is shared by every document of one protocol.
type protocol struct {
	file           string
	text           *transcript.Text
	committee      string
	protocolNumber string
}

// BuildProtocol returns the records of every annotation document in dir.
// Each document's rows are sorted by start offset; the concatenation is
// deduplicated.
func (b *Builder) BuildProtocol(dir string) ([]Record, error) {
	start := time.Now()
	log := GetLogger().With(logger.String("protocol", filepath.Base(dir)))

	transcriptPath, err := b.TranscriptPath(dir)
	if err != nil {
		return nil, err
	}
	documents, err := b.DocumentPaths(dir)
	if err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		log.Info("protocol has no annotation documents")
		return nil, nil
	}

	p, err := b.loadProtocol(dir, transcriptPath)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, path := range documents {
		doc, err := standoff.ParseFile(b.fs, path)
		if err != nil {
			return nil, fmt.Errorf("protocol %s: %w", p.file, err)
		}
		records = append(records, b.documentRecords(doc, p)...)
	}

	records = Dedup(records)

	log.Debug("built protocol table",
		logger.Int("documents", len(documents)),
		logger.Int("rows", len(records)),
		logger.String("committee", p.committee),
		logger.String("protocol_number", p.protocolNumber),
		logger.Duration("elapsed", time.Since(start)))

	return records, nil
}

// Validate checks a protocol directory without building rows. Every
// annotation document is parsed even after a failure, and all errors found
// are returned.
func (b *Builder) Validate(dir string) []error {
	var errs []error

	documents, err := b.DocumentPaths(dir)
	if err != nil {
		return []error{err}
	}

	transcriptPath, err := b.TranscriptPath(dir)
	if err != nil {
		errs = append(errs, err)
	} else if len(documents) > 0 {
		if _, err := b.loadProtocol(dir, transcriptPath); err != nil {
			errs = append(errs, err)
		}
	}

	for _, path := range documents {
		if _, err := standoff.ParseFile(b.fs, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// TranscriptPath returns the single *.txt file directly inside dir.
func (b *Builder) TranscriptPath(dir string) (string, error) {
	names, err := b.listFiles(dir, ".txt")
	if err != nil {
		return "", err
	}
	if len(names) != 1 {
		return "", errors.Newf("protocol %s has %d transcript files, expected 1", filepath.Base(dir), len(names)).
			Component("dataset").
			Category(errors.CategoryMissingArtifact).
			Context("protocol_dir", dir).
			Context("transcripts", names).
			Build()
	}
	return filepath.Join(dir, names[0]), nil
}

// DocumentPaths returns the annotation documents of a protocol in lexical order.
func (b *Builder) DocumentPaths(dir string) ([]string, error) {
	annotationDir := filepath.Join(dir, AnnotationDir)
	names, err := b.listFiles(annotationDir, ".xml")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(annotationDir, name))
	}
	return paths, nil
}

// listFiles returns the sorted names of non-hidden regular files in dir with
// the given extension.
func (b *Builder) listFiles(dir, ext string) ([]string, error) {
	entries, err := afero.ReadDir(b.fs, dir)
	if err != nil {
		return nil, errors.New(fmt.Errorf("list %s: %w", dir, err)).
			Component("dataset").
			Category(errors.CategoryMissingArtifact).
			Context("directory", dir).
			Build()
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ext {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (b *Builder) loadProtocol(dir, transcriptPath string) (*protocol, error) {
	text, err := transcript.Load(b.fs, transcriptPath, b.lineBreak)
	if err != nil {
		return nil, err
	}

	file := filepath.Base(dir)
	raw := text.String()

	committee, err := b.resolver.ResolveCommittee(raw)
	if err != nil {
		return nil, fmt.Errorf("protocol %s: %w", file, err)
	}
	number, err := b.resolver.ResolveProtocolNumber(raw, dir)
	if err != nil {
		return nil, fmt.Errorf("protocol %s: %w", file, err)
	}

	return &protocol{
		file:           file,
		text:           text,
		committee:      committee,
		protocolNumber: number,
	}, nil
}

// documentRecords joins assignments with label texts and spans, appends the
// unannotated rows and sorts the result by start offset.
func (b *Builder) documentRecords(doc *standoff.Document, p *protocol) []Record {
	spansBySegment := make(map[string][]standoff.Span, len(doc.Spans))
	for _, s := range doc.Spans {
		spansBySegment[s.SegmentID] = append(spansBySegment[s.SegmentID], s)
	}

	records := make([]Record, 0, len(doc.Spans)+len(doc.Unannotated))
	for _, a := range doc.Assignments {
		label, _ := doc.LabelText(a.LabelID)
		for _, s := range spansBySegment[a.SegmentID] {
			r := b.record(p, s.Start, s.End)
			r.SegmentID = a.SegmentID
			r.LabelID = a.LabelID
			r.Label = label
			r.Annotated = true
			records = append(records, r)
		}
	}

	for _, s := range doc.Unannotated {
		records = append(records, b.record(p, s.Start, s.End))
	}

	slices.SortStableFunc(records, func(x, y Record) int {
		return cmp.Compare(x.Start, y.Start)
	})
	return records
}

func (b *Builder) record(p *protocol, start, end int) Record {
	seg := b.reconciler.Reconcile(p.text, start, end)
	return Record{
		Start:          start,
		End:            end,
		File:           p.file,
		Committee:      p.committee,
		ProtocolNumber: p.protocolNumber,
		Text:           seg.Text,
		Before:         seg.Before,
		After:          seg.After,
	}
}
