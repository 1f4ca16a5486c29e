package sas

import "context"

// TokenRequest asks a token issuer to sign access to a single resource.
type TokenRequest struct {
	AccountName           string
	Protocol              Protocol
	Window                AccessWindow
	Resource              SignedResource
	ResourceGroupName     string
	Permissions           Permission
	CanonicalizedResource string
}

type TokenResponse struct {
	ServiceSasToken string
}

// TokenIssuer signs service SAS requests. Implementations talk to the storage
// control plane or sign locally with account credentials.
type TokenIssuer interface {
	IssueServiceSAS(ctx context.Context, req TokenRequest) (TokenResponse, error)
}

// TokenIssuerFunc adapts a function to the [TokenIssuer] interface.
type TokenIssuerFunc func(ctx context.Context, req TokenRequest) (TokenResponse, error)

func (f TokenIssuerFunc) IssueServiceSAS(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	return f(ctx, req)
}
