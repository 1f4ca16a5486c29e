package cmd

import (
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/storacha/sasurl/pkg/config"
	"github.com/storacha/sasurl/pkg/deployment"
	"github.com/storacha/sasurl/pkg/output"
)

var SignCmd = &cli.Command{
	Name:  "sign",
	Usage: "Compose a signed read URL for a blob and record the stack outputs.",
	Flags: append(flagsOf(ConfigFlags), &cli.BoolFlag{
		Name:  "no-record",
		Usage: "Print the signed URL without recording outputs.",
	}),
	Action: func(cCtx *cli.Context) error {
		ctx := cCtx.Context
		cfg, err := config.LoadConfig(cCtx)
		if err != nil {
			return err
		}

		composer, err := NewComposer(ctx, cfg, SSMSecrets)
		if err != nil {
			return err
		}

		blobURL, err := BaseBlobURL(cfg)
		if err != nil {
			return err
		}
		opts := []deployment.Option{deployment.WithEndpointSuffix(cfg.Identity.EndpointSuffix)}
		if blobURL != "" {
			opts = append(opts, deployment.WithBlobURL(output.Of(blobURL)))
		}
		outs, err := deployment.Run(ctx, composer, deployment.Resolved(cfg.ResourceIdentity()), opts...)
		if err != nil {
			return err
		}

		if !cCtx.Bool("no-record") {
			store, closeStore, err := OpenOutputStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := deployment.Record(ctx, store, cfg.Stack, outs); err != nil {
				return err
			}
			log.Infow("recorded outputs", "stack", cfg.Stack)
		}

		fmt.Println(outs.SignedURL)
		return nil
	},
}

// BaseBlobURL returns the configured blob URL. For the s3 backend it defaults
// to {endpoint}/{container}/{blob}, otherwise an empty result leaves the URL
// to be derived from the blob endpoint suffix.
func BaseBlobURL(cfg *config.Config) (string, error) {
	if cfg.Identity.BlobURL != "" || cfg.Issuer.Backend != config.BackendS3 {
		return cfg.Identity.BlobURL, nil
	}
	u, err := url.JoinPath(cfg.Issuer.S3.Endpoint, cfg.Identity.ContainerName, cfg.Identity.BlobName)
	if err != nil {
		return "", fmt.Errorf("deriving blob URL from s3 endpoint: %w", err)
	}
	return u, nil
}
