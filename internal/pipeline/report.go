package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/knesset-annotations/catmaset/internal/logger"
	"github.com/knesset-annotations/catmaset/internal/notification"
)

// reportTimeout bounds the metrics push and the notification. Reporting runs
// even when the run itself was cancelled.
const reportTimeout = 15 * time.Second

// report publishes the outcome of a run. Reporting failures are logged and
// never change the outcome.
func (r *Runner) report(ctx context.Context, command string, res *Result, runErr error) {
	log := GetLogger().WithContext(ctx)
	if runErr == nil {
		r.metrics.Pipeline.MarkRunCompleted()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	if s := r.settings.Metrics; s.Enabled && s.PushGateway != "" {
		if err := r.metrics.Push(ctx, s.PushGateway, s.Job, res.RunID); err != nil {
			log.Warn("failed to push run metrics", logger.Error(err))
		}
	}

	summary := &notification.Summary{
		RunID:     res.RunID,
		Command:   command,
		Err:       runErr,
		Protocols: res.Protocols,
		Skipped:   res.Skipped,
		Rows:      res.Rows,
		Output:    res.Output,
		Elapsed:   res.Elapsed,
	}
	if err := r.notifier.Notify(ctx, summary); err != nil {
		log.Warn("failed to send run notification", logger.Error(err))
	}

	logMemoryUsage(log)
}

func logMemoryUsage(log logger.Logger) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		log.Debug("process info unavailable", logger.Error(err))
		return
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		log.Debug("memory info unavailable", logger.Error(err))
		return
	}
	log.Info("memory usage",
		logger.Uint64("rss_bytes", mem.RSS),
		logger.Uint64("vms_bytes", mem.VMS))
}
