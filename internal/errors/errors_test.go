package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReporter captures reported errors
type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestBuildDefaults(t *testing.T) {
	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.GetTimestamp().IsZero())
}

func TestBuildWithCategoryAndContext(t *testing.T) {
	ee := Newf("duplicate label id %q", "CATMA_1").
		Component("standoff").
		Category(CategoryInconsistentDocument).
		Context("document", "a.xml").
		Timing("parse_document", 1500*time.Millisecond).
		Build()

	assert.Equal(t, `duplicate label id "CATMA_1"`, ee.Error())
	assert.Equal(t, "standoff", ee.GetComponent())
	assert.True(t, IsCategory(ee, CategoryInconsistentDocument))
	assert.False(t, IsCategory(ee, CategoryMalformedPointer))

	ctx := ee.GetContext()
	assert.Equal(t, "a.xml", ctx["document"])
	assert.Equal(t, "parse_document", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])

	// returned context is a copy
	ctx["document"] = "changed"
	assert.Equal(t, "a.xml", ee.GetContext()["document"])
}

func TestCategoryPropagatesThroughWrapping(t *testing.T) {
	inner := New(NewStd("no transcript")).Category(CategoryMissingArtifact).Build()
	wrapped := fmt.Errorf("protocol p1: %w", inner)

	assert.True(t, IsCategory(wrapped, CategoryMissingArtifact))
	assert.Equal(t, CategoryMissingArtifact, CategoryOf(wrapped))
	assert.Equal(t, CategoryGeneric, CategoryOf(NewStd("plain")))

	rebuilt := New(wrapped).Build()
	assert.Equal(t, CategoryMissingArtifact, rebuilt.Category)
	assert.ErrorIs(t, rebuilt, inner)
}

func TestDetectCategoryFromMessage(t *testing.T) {
	ee := New(fmt.Errorf("run aborted: %w", context.Canceled)).Build()
	assert.Equal(t, CategoryCancellation, ee.Category)

	ee = New(NewStd("open x: no such file or directory")).Build()
	assert.Equal(t, CategoryFileIO, ee.Category)
}

func TestPriorityFallsBackToMedium(t *testing.T) {
	assert.Equal(t, PriorityHigh, New(NewStd("x")).Priority(PriorityHigh).Build().GetPriority())
	assert.Equal(t, PriorityMedium, New(NewStd("x")).Priority("urgent").Build().GetPriority())
	assert.Empty(t, New(NewStd("x")).Priority("").Build().GetPriority())
}

func TestFileContext(t *testing.T) {
	ee := FileError(NewStd("read failed"), "/data/p1/annotationcollections/a.XML", 2048)

	require.Equal(t, CategoryFileIO, ee.Category)
	ctx := ee.GetContext()
	assert.Equal(t, "xml", ctx["file_extension"])
	assert.Equal(t, "small", ctx["file_size_category"])
}

// Not parallel: swaps the global reporter.
func TestTelemetryReporterReceivesBuiltErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("bad pointer")).Category(CategoryMalformedPointer).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
	assert.NotEmpty(t, ee.GetComponent())
}

func TestGenerateErrorTitle(t *testing.T) {
	ee := New(NewStd("x")).
		Component("dataset").
		Category(CategoryMissingProvenance).
		Context("operation", "resolve_committee").
		Build()

	assert.Equal(t, "Dataset Missing Provenance Resolve Committee", generateErrorTitle(ee))
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	scrubbed := scrubMessageForPrivacy("push to https://push.example.com/job?token=abc failed")
	assert.Equal(t, "push to https://push.example.com/job?[REDACTED] failed", scrubbed)

	scrubbed = scrubMessageForPrivacy("open /home/alice/data/x.xml: denied")
	assert.Equal(t, "open /home/[USER]/data/x.xml: denied", scrubbed)

	scrubbed = scrubMessageForPrivacy("config api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")
	assert.NotContains(t, scrubbed, "secret123")
}
