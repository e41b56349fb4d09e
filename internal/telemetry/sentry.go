// Package telemetry reports enhanced errors to Sentry when the user opts in.
package telemetry

import (
	"fmt"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/knesset-annotations/catmaset/internal/conf"
	"github.com/knesset-annotations/catmaset/internal/errors"
	"github.com/knesset-annotations/catmaset/internal/logger"
	"github.com/knesset-annotations/catmaset/internal/privacy"
)

// FlushTimeout bounds how long Close waits for queued events.
const FlushTimeout = 2 * time.Second

// Client is an initialized Sentry reporter. nil is a disabled client.
type Client struct {
	enabled bool
}

// Init initializes Sentry under release and routes enhanced errors to it.
// With telemetry disabled it returns a client that does nothing.
func Init(settings *conf.SentrySettings, release string) (*Client, error) {
	if !settings.Enabled {
		GetLogger().Debug("error telemetry is disabled")
		return &Client{}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          release,
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return nil, errors.New(fmt.Errorf("sentry initialization failed: %w", privacy.WrapError(err))).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	GetLogger().Info("error telemetry enabled", logger.String("release", release))
	return &Client{enabled: true}, nil
}

// Enabled reports whether events are sent.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

// Close detaches the reporter and flushes queued events.
func (c *Client) Close() {
	if !c.Enabled() {
		return
	}
	errors.SetTelemetryReporter(nil)
	if !sentry.Flush(FlushTimeout) {
		GetLogger().Warn("timed out flushing telemetry events",
			logger.Duration("timeout", FlushTimeout))
	}
}

// beforeSend strips identifying data from every event.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = privacy.ScrubMessage(event.Message)

	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
