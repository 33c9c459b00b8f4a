// Package monitoring reports unexpected errors to Sentry. With an empty DSN
// the SDK is initialized as a no-op and reports are dropped.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"
)

func Init(dsn, release string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	})
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

func Message(msg string) {
	sentry.CaptureMessage(msg)
}

// Error captures err, tagged with the request it happened in when requestID
// is set.
func Error(err error, requestID string) {
	if requestID == "" {
		sentry.CaptureException(err)
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("request_id", requestID)
		sentry.CaptureException(err)
	})
}
