package main

import (
	"os"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"

	"github.com/storacha/sasurl/cmd"
	"github.com/storacha/sasurl/internal/telemetry"
)

var log = logging.Logger("sasurl")

func main() {
	app := &cli.App{
		Name:  "sasurl",
		Usage: "Compose signed read URLs for storage blobs.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level for all subsystems.",
				EnvVars: []string{"SASURL_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "sentry-dsn",
				Usage:   "Report command failures to this Sentry DSN.",
				EnvVars: []string{"SASURL_SENTRY_DSN"},
			},
			&cli.StringFlag{
				Name:    "sentry-environment",
				Value:   "dev",
				Usage:   "Environment failures are reported under.",
				EnvVars: []string{"SASURL_SENTRY_ENVIRONMENT"},
			},
		},
		Before: func(cCtx *cli.Context) error {
			if err := logging.SetLogLevel("*", cCtx.String("log-level")); err != nil {
				return err
			}
			return telemetry.SetupErrorReporting(cCtx.String("sentry-dsn"), cCtx.String("sentry-environment"))
		},
		Commands: cmd.WithErrorReporting([]*cli.Command{
			cmd.SignCmd,
			cmd.PathCmd,
			cmd.OutputsCmd,
			cmd.VerifyCmd,
			cmd.VersionCmd,
		}, telemetry.ReportCommandError),
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
