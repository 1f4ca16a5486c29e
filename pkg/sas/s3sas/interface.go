package s3sas

import (
	"context"
	"net/url"

	"github.com/storacha/sasurl/pkg/sas"
)

type ReadPresigner interface {
	sas.TokenIssuer
	// SignReadURL creates and signs a URL that allows a GET request for the
	// blob named by the request's canonicalized resource path. The URL is
	// signed at the start of the request's access window and expires at its
	// end.
	SignReadURL(ctx context.Context, req sas.TokenRequest) (url.URL, error)
	// VerifyReadURL ensures the read URL was signed by this service. It
	// returns the _signed_ URL or error if the signature is invalid.
	VerifyReadURL(ctx context.Context, u url.URL) (url.URL, error)
}
