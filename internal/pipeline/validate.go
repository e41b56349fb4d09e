package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
	"github.com/knesset-annotations/catmaset/internal/observability/metrics"
)

// Problem is one inconsistency found in a protocol directory.
type Problem struct {
	Dir string
	Err error
}

// Report lists every problem found by a validation run.
type Report struct {
	Checked  int
	Problems []Problem
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

// Validate parses every annotation document of dir, or of every annotated
// protocol in the corpus when dir is empty, and collects all problems instead
// of stopping at the first. The returned error is non-nil when any problem
// was found.
func (r *Runner) Validate(ctx context.Context, dir string) (*Report, error) {
	report := &Report{}
	_, err := r.run(ctx, CommandValidate, func(ctx context.Context, res *Result) error {
		dirs := []string{dir}
		if dir == "" {
			discovery, err := r.prepare(ctx)
			if err != nil {
				return err
			}
			dirs = discovery.Valid
			res.Skipped = len(discovery.Invalid)
		}

		for _, d := range dirs {
			if err := ctx.Err(); err != nil {
				return errors.New(err).
					Component("pipeline").
					Category(errors.CategoryCancellation).
					Context("protocol", filepath.Base(d)).
					Build()
			}
			r.validateDir(d, report)
		}
		res.Protocols = report.Checked

		return report.err()
	})
	return report, err
}

func (r *Runner) validateDir(dir string, report *Report) {
	start := time.Now()
	errs := r.builder.Validate(dir)
	report.Checked++

	var first error
	for _, err := range errs {
		report.Problems = append(report.Problems, Problem{Dir: dir, Err: err})
		GetLogger().Warn("protocol is inconsistent",
			logger.String("protocol", filepath.Base(dir)),
			logger.String("category", string(errors.CategoryOf(err))),
			logger.Error(err))
		if first == nil {
			first = err
		}
	}
	r.observe(metrics.OpValidate, start, first)
}

// err summarizes the problems as one error categorized like the first.
func (r *Report) err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Problems))
	for _, p := range r.Problems {
		errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(p.Dir), p.Err))
	}
	return errors.New(fmt.Errorf("%d problems in %d protocol dirs: %w", len(r.Problems), r.Checked, errors.Join(errs...))).
		Component("pipeline").
		Category(errors.CategoryOf(r.Problems[0].Err)).
		Context("problems", len(r.Problems)).
		Build()
}
