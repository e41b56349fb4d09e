package notification

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knesset-annotations/catmaset/internal/conf"
	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/observability/metrics"
)

type fakeSender struct {
	errs    []error
	calls   int
	message string
	title   string
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	f.calls++
	f.message = message
	if params != nil {
		f.title, _ = params.Title()
	}
	return f.errs
}

func newTestNotifier(t *testing.T, sender Sender, urls []string, onSuccess, onFailure bool) (*Notifier, *metrics.NotificationMetrics) {
	t.Helper()
	m, err := metrics.NewNotificationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return &Notifier{
		urls:      urls,
		sender:    sender,
		onSuccess: onSuccess,
		onFailure: onFailure,
		metrics:   m,
	}, m
}

func successSummary() *Summary {
	return &Summary{
		RunID:     "run-1",
		Command:   "build",
		Protocols: 2,
		Skipped:   1,
		Rows:      42,
		Output:    "output/dataset.tsv",
		Elapsed:   1500 * time.Millisecond,
	}
}

func TestSummaryMessage(t *testing.T) {
	t.Parallel()

	s := successSummary()
	assert.True(t, s.Success())
	assert.Equal(t, "catmaset build completed", s.Title())
	msg := s.Message()
	assert.Contains(t, msg, "run: run-1")
	assert.Contains(t, msg, "protocols: 2 processed, 1 without annotation")
	assert.Contains(t, msg, "rows: 42")
	assert.Contains(t, msg, "output: output/dataset.tsv")
	assert.Contains(t, msg, "elapsed: 1.5s")

	failed := &Summary{
		RunID:   "run-2",
		Command: "validate",
		Err:     errors.Newf("bad document").Category(errors.CategoryInconsistentDocument).Build(),
	}
	assert.False(t, failed.Success())
	assert.Equal(t, "catmaset validate failed", failed.Title())
	assert.Contains(t, failed.Message(), "error (inconsistent-document): bad document")
	assert.NotContains(t, failed.Message(), "rows:")
}

func TestNotifyOutcomeFilter(t *testing.T) {
	t.Parallel()

	failure := &Summary{RunID: "r", Command: "build", Err: fmt.Errorf("boom")}

	tests := []struct {
		name      string
		onSuccess bool
		onFailure bool
		summary   *Summary
		wantCalls int
	}{
		{"success sent", true, false, successSummary(), 1},
		{"success suppressed", false, true, successSummary(), 0},
		{"failure sent", false, true, failure, 1},
		{"failure suppressed", true, false, failure, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sender := &fakeSender{errs: []error{nil}}
			n, _ := newTestNotifier(t, sender, []string{"logger://"}, tt.onSuccess, tt.onFailure)

			require.NoError(t, n.Notify(t.Context(), tt.summary))
			assert.Equal(t, tt.wantCalls, sender.calls)
		})
	}
}

func TestNotifySendsTitleAndBody(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{errs: []error{nil}}
	n, m := newTestNotifier(t, sender, []string{"logger://"}, true, true)

	require.NoError(t, n.Notify(t.Context(), successSummary()))
	assert.Equal(t, "catmaset build completed", sender.title)
	assert.Contains(t, sender.message, "rows: 42")
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProviderDeliveriesTotal.WithLabelValues("logger", metrics.StatusSuccess)), 0)
}

func TestNotifyDeliveryErrors(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{errs: []error{
		nil,
		fmt.Errorf("dial tcp: token=abc123 refused"),
	}}
	n, m := newTestNotifier(t, sender, []string{"logger://", "telegram://secret@telegram?chats=1"}, true, true)

	err := n.Notify(t.Context(), successSummary())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Contains(t, err.Error(), "telegram")
	assert.NotContains(t, err.Error(), "abc123")

	assert.InDelta(t, 1, testutil.ToFloat64(m.ProviderDeliveriesTotal.WithLabelValues("logger", metrics.StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProviderDeliveriesTotal.WithLabelValues("telegram", metrics.StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		m.ProviderDeliveryErrors.WithLabelValues("telegram", string(errors.CategoryNetwork))), 0)
}

func TestNotifyCancelled(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n, _ := newTestNotifier(t, sender, []string{"logger://"}, true, true)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.ErrorIs(t, n.Notify(ctx, successSummary()), context.Canceled)
	assert.Zero(t, sender.calls)
}

func TestNewNotifier(t *testing.T) {
	t.Parallel()

	t.Run("no urls", func(t *testing.T) {
		t.Parallel()
		n, err := NewNotifier(&conf.NotificationSettings{OnSuccess: true}, nil)
		require.NoError(t, err)
		assert.False(t, n.Enabled())
		require.NoError(t, n.Notify(t.Context(), successSummary()))
	})

	t.Run("logger service", func(t *testing.T) {
		t.Parallel()
		n, err := NewNotifier(&conf.NotificationSettings{URLs: []string{"logger://"}, OnSuccess: true}, nil)
		require.NoError(t, err)
		assert.True(t, n.Enabled())
	})

	t.Run("unknown scheme", func(t *testing.T) {
		t.Parallel()
		_, err := NewNotifier(&conf.NotificationSettings{URLs: []string{"nosuchservice://host"}}, nil)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		assert.False(t, strings.Contains(err.Error(), "nosuchservice://host"))
	})
}
