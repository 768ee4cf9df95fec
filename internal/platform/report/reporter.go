// Package report forwards errors to Sentry. A nil *Reporter, or one created
// without a DSN, drops everything, so callers never need to check.
package report

import (
	"log"
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

type Reporter struct {
	enabled bool
}

// SentryReportOptions provides optional data for reporting.
type SentryReportOptions struct {
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
}

// NewReporter initializes the Sentry client when dsn is non-empty.
func NewReporter(dsn, env, version string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     version,
	}); err != nil {
		return nil, err
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("go_version", runtime.Version())
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
		})
	})

	log.Printf("sentry enabled env=%s", env)
	return &Reporter{enabled: true}, nil
}

func (r *Reporter) Enabled() bool { return r != nil && r.enabled }

// ReportError reports err at error level.
func (r *Reporter) ReportError(err error) {
	r.ReportErrorWithSentryOptions(err, SentryReportOptions{Level: sentry.LevelError})
}

// ReportErrorWithSentryOptions reports the error with additional tags, context and level.
func (r *Reporter) ReportErrorWithSentryOptions(err error, opts SentryReportOptions) {
	if err == nil || !r.Enabled() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if opts.ExtraContext != nil {
			scope.SetContext("extra", opts.ExtraContext)
		}
		for k, v := range opts.Tags {
			scope.SetTag(k, v)
		}
		if opts.Level != "" {
			scope.SetLevel(opts.Level)
		}
		sentry.CaptureException(err)
	})
}

func (r *Reporter) Flush() {
	if r.Enabled() {
		sentry.Flush(2 * time.Second)
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
