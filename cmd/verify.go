package cmd

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/storacha/sasurl/pkg/config"
)

var VerifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "Verify the signature of a presigned read URL (s3 backend).",
	ArgsUsage: "<url>",
	Flags:     flagsOf(ConfigFlags),
	Action: func(cCtx *cli.Context) error {
		raw := cCtx.Args().First()
		if raw == "" {
			return errors.New("signed URL is required")
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parsing signed URL: %w", err)
		}

		cfg, err := config.LoadConfig(cCtx)
		if err != nil {
			return err
		}
		if cfg.Issuer.Backend != config.BackendS3 {
			return fmt.Errorf("verify is only supported by the %s backend", config.BackendS3)
		}

		presigner, err := newS3Presigner(cCtx.Context, cfg, SSMSecrets)
		if err != nil {
			return err
		}
		if _, err := presigner.VerifyReadURL(cCtx.Context, *u); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}
