package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/storacha/sasurl/pkg/build"
)

const flushTimeout = 2 * time.Second

// SetupErrorReporting configures the Sentry SDK for error reporting. Nothing
// is sent when dsn is empty.
func SetupErrorReporting(dsn string, environment string) error {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     build.Version,
		Transport:   sentry.NewHTTPSyncTransport(),
	})
	if err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	return nil
}

// ReportError reports an error to Sentry
func ReportError(err error) {
	sentry.CaptureException(err)
}

// ReportCommandError reports the failure of a CLI command, tagged with the
// command name, and waits for it to be delivered.
func ReportCommandError(command string, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("command", command)
		ReportError(err)
	})
	sentry.Flush(flushTimeout)
}
