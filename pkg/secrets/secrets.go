// Package secrets resolves signing keys from the environment or from AWS SSM
// Parameter Store.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ErrMissingSecret means that the value returned from a Source was empty
var ErrMissingSecret = errors.New("missing value for secret")

type Source interface {
	Get(ctx context.Context, name string) (string, error)
}

// EnvSource reads secrets from environment variables.
type EnvSource struct{}

func (EnvSource) Get(ctx context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%w: env var %s", ErrMissingSecret, name)
	}
	return value, nil
}

// ssmAPI is the subset of [ssm.Client] used here.
type ssmAPI interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// SSMSource reads decrypted parameters from AWS SSM Parameter Store.
type SSMSource struct {
	client ssmAPI
}

func NewSSMSource(cfg aws.Config) *SSMSource {
	return &SSMSource{client: ssm.NewFromConfig(cfg)}
}

// NewSSMSourceFromEnv loads the default AWS configuration from the
// environment.
func NewSSMSourceFromEnv(ctx context.Context) (*SSMSource, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws default config: %w", err)
	}
	return NewSSMSource(cfg), nil
}

func (s *SSMSource) Get(ctx context.Context, name string) (string, error) {
	params, err := s.GetParams(ctx, name)
	if err != nil {
		return "", err
	}
	return params[name], nil
}

// GetParams retrieves all of the named parameters in a single request. Every
// name must have a non-empty value.
func (s *SSMSource) GetParams(ctx context.Context, names ...string) (map[string]string, error) {
	response, err := s.client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving SSM parameters: %w", err)
	}
	params := map[string]string{}
	for _, name := range names {
		value := ""
		for _, p := range response.Parameters {
			if p.Name != nil && *p.Name == name && p.Value != nil {
				value = *p.Value
				break
			}
		}
		if value == "" {
			return nil, fmt.Errorf("%w: SSM parameter %s", ErrMissingSecret, name)
		}
		params[name] = value
	}
	return params, nil
}
