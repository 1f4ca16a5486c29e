// Package sas composes signed, read-only, expiring URLs for single blobs.
//
// A [Composer] waits for the identity of a blob to become known, asks a
// [TokenIssuer] for a service SAS bound to the blob's canonicalized resource
// path and appends the token to the blob's base URL.
package sas

import (
	"context"
	"errors"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"

	"github.com/storacha/sasurl/pkg/output"
)

var log = logging.Logger("sas")

// Inputs are the asynchronously produced values a signed URL is built from.
type Inputs struct {
	BlobURL           *output.Output[string]
	AccountName       *output.Output[string]
	ResourceGroupName *output.Output[string]
	ContainerName     *output.Output[string]
	BlobName          *output.Output[string]
}

func (in Inputs) check() error {
	named := []struct {
		name string
		o    *output.Output[string]
	}{
		{"blobUrl", in.BlobURL},
		{"accountName", in.AccountName},
		{"resourceGroupName", in.ResourceGroupName},
		{"containerName", in.ContainerName},
		{"blobName", in.BlobName},
	}
	for _, n := range named {
		if n.o == nil {
			return &InputResolutionError{Input: n.name, Err: errors.New("input not provided")}
		}
	}
	return nil
}

type Composer struct {
	issuer           TokenIssuer
	window           AccessWindow
	validateIdentity bool
}

// NewComposer creates a composer that requests tokens from issuer.
func NewComposer(issuer TokenIssuer, opts ...Option) (*Composer, error) {
	if issuer == nil {
		return nil, errors.New("token issuer is required")
	}
	o := &options{
		window:           DefaultAccessWindow,
		validateIdentity: true,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return &Composer{
		issuer:           issuer,
		window:           o.window,
		validateIdentity: o.validateIdentity,
	}, nil
}

// Window is the access window requested for every token.
func (c *Composer) Window() AccessWindow {
	return c.window
}

// TokenRequest builds the read-only, HTTPS-only, single blob request sent to
// the issuer for id.
func (c *Composer) TokenRequest(id ResourceIdentity) TokenRequest {
	return TokenRequest{
		AccountName:           id.AccountName,
		Protocol:              ProtocolHTTPS,
		Window:                c.window,
		Resource:              ResourceBlob,
		ResourceGroupName:     id.ResourceGroupName,
		Permissions:           PermissionRead,
		CanonicalizedResource: CanonicalizedResourcePath(id),
	}
}

// SignedBlobReadURL returns an output that resolves to {blobUrl}?{token} once
// all five inputs have resolved and the issuer has signed the request. The
// base URL is awaited concurrently with token issuance. Any input failure or
// issuer error fails the output; nothing is retried.
func (c *Composer) SignedBlobReadURL(ctx context.Context, in Inputs) *output.Output[string] {
	return output.Go(ctx, func(ctx context.Context) (string, error) {
		if err := in.check(); err != nil {
			return "", err
		}

		var blobURL, token string
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			id, err := awaitIdentity(gctx, in)
			if err != nil {
				return err
			}
			token, err = c.issue(gctx, id)
			return err
		})
		g.Go(func() error {
			v, err := in.BlobURL.Await(gctx)
			if err != nil {
				return &InputResolutionError{Input: "blobUrl", Err: err}
			}
			blobURL = v
			return nil
		})
		if err := g.Wait(); err != nil {
			log.Debugw("signed URL composition failed", "error", err)
			return "", err
		}
		return SignedURL(blobURL, token), nil
	})
}

// Compose is the synchronous form of SignedBlobReadURL for values that are
// already known.
func (c *Composer) Compose(ctx context.Context, blobURL string, id ResourceIdentity) (string, error) {
	token, err := c.issue(ctx, id)
	if err != nil {
		return "", err
	}
	return SignedURL(blobURL, token), nil
}

func (c *Composer) issue(ctx context.Context, id ResourceIdentity) (string, error) {
	if c.validateIdentity {
		if err := id.Validate(); err != nil {
			return "", err
		}
	}
	req := c.TokenRequest(id)
	log.Debugw("requesting service SAS", "account", req.AccountName, "resourceGroup", req.ResourceGroupName, "resource", req.CanonicalizedResource)

	res, err := c.issuer.IssueServiceSAS(ctx, req)
	if err != nil {
		return "", &TokenIssuanceError{Resource: req.CanonicalizedResource, Err: err}
	}
	if res.ServiceSasToken == "" {
		return "", &TokenIssuanceError{Resource: req.CanonicalizedResource, Err: ErrEmptyToken}
	}
	return res.ServiceSasToken, nil
}

// awaitIdentity joins the four identity inputs into a single record, failing
// on the first input that fails.
func awaitIdentity(ctx context.Context, in Inputs) (ResourceIdentity, error) {
	var id ResourceIdentity
	fields := []struct {
		name string
		o    *output.Output[string]
		dst  *string
	}{
		{"accountName", in.AccountName, &id.AccountName},
		{"resourceGroupName", in.ResourceGroupName, &id.ResourceGroupName},
		{"containerName", in.ContainerName, &id.ContainerName},
		{"blobName", in.BlobName, &id.BlobName},
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range fields {
		g.Go(func() error {
			v, err := f.o.Await(gctx)
			if err != nil {
				return &InputResolutionError{Input: f.name, Err: err}
			}
			*f.dst = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ResourceIdentity{}, err
	}
	return id, nil
}
