// Package deployment wires a signed blob URL into the outputs of a stack: the
// base blob URL, the signed URL and the app settings of a web app that runs
// from the signed package.
package deployment

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/sasurl/pkg/output"
	"github.com/storacha/sasurl/pkg/sas"
	"github.com/storacha/sasurl/pkg/store/outputstore"
)

var log = logging.Logger("deployment")

// DefaultBlobEndpointSuffix is the public Azure cloud blob endpoint domain.
const DefaultBlobEndpointSuffix = "blob.core.windows.net"

// RunFromPackageSetting tells an App Service web app to mount the zip package
// at the given URL as its application root.
const RunFromPackageSetting = "WEBSITE_RUN_FROM_PACKAGE"

// Names of the stack outputs produced by Run.
const (
	OutputBlobURL               = "blobUrl"
	OutputBlobSasURL            = "blobSasUrl"
	OutputCanonicalizedResource = "canonicalizedResource"

	// AppSettingOutputPrefix prefixes the names app settings are recorded
	// under, e.g. appSettings.WEBSITE_RUN_FROM_PACKAGE.
	AppSettingOutputPrefix = "appSettings."
)

// Identity holds the outputs that name a blob once its storage account,
// container and blob exist.
type Identity struct {
	AccountName       *output.Output[string]
	ResourceGroupName *output.Output[string]
	ContainerName     *output.Output[string]
	BlobName          *output.Output[string]
}

// Resolved wraps an already known resource identity in resolved outputs.
func Resolved(id sas.ResourceIdentity) Identity {
	return Identity{
		AccountName:       output.Of(id.AccountName),
		ResourceGroupName: output.Of(id.ResourceGroupName),
		ContainerName:     output.Of(id.ContainerName),
		BlobName:          output.Of(id.BlobName),
	}
}

type Outputs struct {
	BlobURL               string
	SignedURL             string
	CanonicalizedResource string
	AppSettings           map[string]string
}

// Named returns the outputs keyed by their stack output names, including one
// entry per app setting.
func (o Outputs) Named() map[string]string {
	named := map[string]string{
		OutputBlobURL:               o.BlobURL,
		OutputBlobSasURL:            o.SignedURL,
		OutputCanonicalizedResource: o.CanonicalizedResource,
	}
	for k, v := range o.AppSettings {
		named[AppSettingOutputPrefix+k] = v
	}
	return named
}

type options struct {
	endpointSuffix string
	blobURL        *output.Output[string]
}

type Option func(*options) error

// WithEndpointSuffix sets the blob endpoint domain used to derive the base
// blob URL, e.g. blob.core.chinacloudapi.cn.
func WithEndpointSuffix(suffix string) Option {
	return func(o *options) error {
		if suffix == "" {
			return errors.New("endpoint suffix must not be empty")
		}
		o.endpointSuffix = suffix
		return nil
	}
}

// WithBlobURL uses the given base blob URL instead of deriving one from the
// identity.
func WithBlobURL(u *output.Output[string]) Option {
	return func(o *options) error {
		o.blobURL = u
		return nil
	}
}

// BlobURL derives https://{account}.{suffix}/{container}/{blob} once the
// account, container and blob names resolve.
func BlobURL(ctx context.Context, suffix string, account, container, blob *output.Output[string]) *output.Output[string] {
	parts := output.All(ctx, account, container, blob)
	return output.Apply(ctx, parts, func(ctx context.Context, p []string) (string, error) {
		return fmt.Sprintf("https://%s.%s/%s/%s", p[0], suffix, p[1], p[2]), nil
	})
}

// Run derives the base blob URL, asks the composer for a signed read URL and
// collects the stack outputs. It fails if any of them fail.
func Run(ctx context.Context, composer *sas.Composer, id Identity, opts ...Option) (Outputs, error) {
	if id.AccountName == nil || id.ResourceGroupName == nil || id.ContainerName == nil || id.BlobName == nil {
		return Outputs{}, errors.New("all identity outputs are required")
	}
	o := &options{endpointSuffix: DefaultBlobEndpointSuffix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return Outputs{}, err
		}
	}

	blobURL := o.blobURL
	if blobURL == nil {
		blobURL = BlobURL(ctx, o.endpointSuffix, id.AccountName, id.ContainerName, id.BlobName)
	}

	signed := composer.SignedBlobReadURL(ctx, sas.Inputs{
		BlobURL:           blobURL,
		AccountName:       id.AccountName,
		ResourceGroupName: id.ResourceGroupName,
		ContainerName:     id.ContainerName,
		BlobName:          id.BlobName,
	})

	signedURL, err := signed.Await(ctx)
	if err != nil {
		return Outputs{}, fmt.Errorf("composing signed blob URL: %w", err)
	}
	// the composer only resolves after every input has, so these do not block
	base, err := blobURL.Await(ctx)
	if err != nil {
		return Outputs{}, err
	}
	parts, err := output.AwaitAll(ctx, id.AccountName, id.ResourceGroupName, id.ContainerName, id.BlobName)
	if err != nil {
		return Outputs{}, err
	}
	canonical := sas.CanonicalizedResourcePath(sas.ResourceIdentity{
		AccountName:       parts[0],
		ResourceGroupName: parts[1],
		ContainerName:     parts[2],
		BlobName:          parts[3],
	})

	log.Infow("composed signed blob URL", "blobUrl", base, "resource", canonical)
	return Outputs{
		BlobURL:               base,
		SignedURL:             signedURL,
		CanonicalizedResource: canonical,
		AppSettings:           map[string]string{RunFromPackageSetting: signedURL},
	}, nil
}

// Record writes the named outputs of stack to s.
func Record(ctx context.Context, s outputstore.OutputStore, stack string, o Outputs) error {
	named := o.Named()
	for _, name := range slices.Sorted(maps.Keys(named)) {
		if err := s.Put(ctx, stack, name, named[name]); err != nil {
			return fmt.Errorf("recording output %s: %w", name, err)
		}
	}
	return nil
}
