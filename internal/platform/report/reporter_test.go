package report

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
)

func TestReporterWithoutDSNIsNoop(t *testing.T) {
	r, err := NewReporter("", "testing", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Enabled() {
		t.Fatalf("reporter without DSN reports enabled")
	}

	r.ReportError(errors.New("boom"))
	r.ReportErrorWithSentryOptions(errors.New("boom"), SentryReportOptions{Level: sentry.LevelWarning})
	r.Flush()
}

func TestNilReporterIsNoop(t *testing.T) {
	var r *Reporter
	if r.Enabled() {
		t.Fatalf("nil reporter reports enabled")
	}
	r.ReportError(errors.New("boom"))
	r.Flush()
}

func TestReporterWithDSN(t *testing.T) {
	r, err := NewReporter("https://public@sentry.example.com/1", "testing", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Enabled() {
		t.Fatalf("reporter with DSN reports disabled")
	}
	r.ReportError(errors.New("boom"))
	r.Flush()
}
