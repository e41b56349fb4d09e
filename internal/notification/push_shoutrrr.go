package notification

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/knesset-annotations/catmaset/internal/conf"
	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
	"github.com/knesset-annotations/catmaset/internal/observability/metrics"
	"github.com/knesset-annotations/catmaset/internal/privacy"
)

// DefaultTimeout bounds a single delivery to every service.
const DefaultTimeout = 10 * time.Second

// Sender delivers a message to a set of services, returning one error slot
// per service. *router.ServiceRouter satisfies it.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Notifier sends run summaries through shoutrrr.
type Notifier struct {
	urls      []string
	sender    Sender
	onSuccess bool
	onFailure bool
	metrics   *metrics.NotificationMetrics
}

// NewNotifier builds a Notifier for settings. With no URLs configured it
// returns a Notifier that sends nothing. m may be nil.
func NewNotifier(settings *conf.NotificationSettings, m *metrics.NotificationMetrics) (*Notifier, error) {
	n := &Notifier{
		urls:      slices.Clone(settings.URLs),
		onSuccess: settings.OnSuccess,
		onFailure: settings.OnFailure,
		metrics:   m,
	}
	if len(n.urls) == 0 {
		return n, nil
	}

	sender, err := shoutrrr.CreateSender(n.urls...)
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("services", len(n.urls)).
			Build()
	}
	sender.Timeout = DefaultTimeout
	sender.SetLogger(stdlog.New(io.Discard, "", 0))
	n.sender = sender
	return n, nil
}

// Enabled reports whether any service is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// Notify sends the summary if the run outcome is one the settings ask for.
// Delivery failures are returned but never change the outcome of a run.
func (n *Notifier) Notify(ctx context.Context, s *Summary) error {
	if !n.Enabled() {
		return nil
	}
	if s.Success() && !n.onSuccess || !s.Success() && !n.onFailure {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	params.SetTitle(s.Title())

	var timer *metrics.DeliveryTimer
	if n.metrics != nil {
		timer = n.metrics.StartDeliveryTimer()
	}
	sendErrs := n.sender.Send(s.Message(), &params)

	var failed []error
	for i, url := range n.urls {
		service := privacy.ServiceName(url)
		var err error
		if i < len(sendErrs) {
			err = sendErrs[i]
		}

		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
			failed = append(failed, fmt.Errorf("%s: %w", service, privacy.WrapError(err)))
			if n.metrics != nil {
				n.metrics.RecordDeliveryError(service, string(errors.CategoryNetwork))
			}
		}
		if timer != nil {
			timer.ObserveDuration(service, status)
		}
	}

	if len(failed) > 0 {
		return errors.New(errors.Join(failed...)).
			Component("notification").
			Category(errors.CategoryNetwork).
			Context("failed_services", len(failed)).
			Build()
	}

	GetLogger().Debug("run summary sent",
		logger.Int("services", len(n.urls)),
		logger.String("run_id", s.RunID))
	return nil
}
