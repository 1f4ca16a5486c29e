package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	leveldb "github.com/ipfs/go-ds-leveldb"
	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/sasurl/pkg/config"
	"github.com/storacha/sasurl/pkg/sas"
	"github.com/storacha/sasurl/pkg/sas/armsas"
	"github.com/storacha/sasurl/pkg/sas/s3sas"
	"github.com/storacha/sasurl/pkg/sas/sharedkey"
	"github.com/storacha/sasurl/pkg/secrets"
	"github.com/storacha/sasurl/pkg/store/outputstore"
)

var log = logging.Logger("cmd")

const envParamPrefix = "env:"

func mkdirp(dirpath ...string) (string, error) {
	dir := path.Join(dirpath...)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return "", fmt.Errorf("creating directory: %s: %w", dir, err)
	}
	return dir, nil
}

// SecretSourceFunc opens the source that secret parameter names are resolved
// against. It is only called when a parameter is configured.
type SecretSourceFunc func(ctx context.Context) (secrets.Source, error)

// SSMSecrets reads secrets from AWS SSM Parameter Store using the default AWS
// configuration of the environment.
func SSMSecrets(ctx context.Context) (secrets.Source, error) {
	return secrets.NewSSMSourceFromEnv(ctx)
}

// resolveSecret returns literal when set, otherwise the value of param.
// Parameters named env:NAME are read from the environment variable NAME.
func resolveSecret(ctx context.Context, literal string, param string, source SecretSourceFunc) (string, error) {
	if literal != "" {
		return literal, nil
	}
	if name, ok := strings.CutPrefix(param, envParamPrefix); ok {
		return secrets.EnvSource{}.Get(ctx, name)
	}
	src, err := source(ctx)
	if err != nil {
		return "", fmt.Errorf("opening secret source: %w", err)
	}
	value, err := src.Get(ctx, param)
	if err != nil {
		return "", fmt.Errorf("reading secret %s: %w", param, err)
	}
	return value, nil
}

// NewIssuer creates the token issuer selected by the configured backend.
func NewIssuer(ctx context.Context, cfg *config.Config, source SecretSourceFunc) (sas.TokenIssuer, error) {
	switch cfg.Issuer.Backend {
	case config.BackendARM:
		log.Debugw("using control plane token issuer", "subscription", cfg.Issuer.ARM.SubscriptionID)
		issuer, err := armsas.NewFromEnvironment(cfg.Issuer.ARM.SubscriptionID)
		if err != nil {
			return nil, err
		}
		return issuer, nil
	case config.BackendSharedKey:
		key, err := resolveSecret(ctx, cfg.Issuer.SharedKey.AccountKey, cfg.Issuer.SharedKey.AccountKeyParam, source)
		if err != nil {
			return nil, err
		}
		issuer, err := sharedkey.New(cfg.Identity.AccountName, key)
		if err != nil {
			return nil, err
		}
		return issuer, nil
	case config.BackendS3:
		presigner, err := newS3Presigner(ctx, cfg, source)
		if err != nil {
			return nil, err
		}
		return presigner, nil
	default:
		return nil, fmt.Errorf("unknown token issuer backend: %q", cfg.Issuer.Backend)
	}
}

func newS3Presigner(ctx context.Context, cfg *config.Config, source SecretSourceFunc) (*s3sas.S3ReadPresigner, error) {
	endpoint, err := url.Parse(cfg.Issuer.S3.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing s3 endpoint: %w", err)
	}
	secret, err := resolveSecret(ctx, cfg.Issuer.S3.SecretAccessKey, cfg.Issuer.S3.SecretAccessKeyParam, source)
	if err != nil {
		return nil, err
	}
	log.Debugw("using s3 presigner", "endpoint", endpoint.String(), "region", cfg.Issuer.S3.Region)
	return s3sas.NewS3ReadPresigner(cfg.Issuer.S3.AccessKeyID, secret, *endpoint, cfg.Issuer.S3.Region)
}

// NewComposer creates a composer that issues tokens for the configured
// access window.
func NewComposer(ctx context.Context, cfg *config.Config, source SecretSourceFunc) (*sas.Composer, error) {
	window, err := cfg.Window.AccessWindow()
	if err != nil {
		return nil, err
	}
	issuer, err := NewIssuer(ctx, cfg, source)
	if err != nil {
		return nil, fmt.Errorf("creating token issuer: %w", err)
	}
	return sas.NewComposer(issuer, sas.WithAccessWindow(window))
}

// OpenOutputStore opens the leveldb backed output store under the data
// directory. The returned close func releases the database.
func OpenOutputStore(cfg *config.Config) (outputstore.OutputStore, func() error, error) {
	outputsDir, err := mkdirp(cfg.Directories.DataDir, "outputs")
	if err != nil {
		return nil, nil, err
	}
	ds, err := leveldb.NewDatastore(outputsDir, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("opening output datastore: %w", err)
	}
	return outputstore.NewDsOutputStore(ds), ds.Close, nil
}
