// Package sharedkey issues service SAS tokens locally by signing with a
// storage account's shared key. No control plane request is made.
package sharedkey

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/storacha/sasurl/pkg/sas"
)

// ErrAccountMismatch is returned when a request names a different account
// than the one the key belongs to.
var ErrAccountMismatch = errors.New("request account does not match signing key")

type Issuer struct {
	credential *azblob.SharedKeyCredential
}

var _ sas.TokenIssuer = (*Issuer)(nil)

// New creates an issuer for accountName. The accountKey is the base64 encoded
// key shown for the storage account.
func New(accountName string, accountKey string) (*Issuer, error) {
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("parsing account key: %w", err)
	}
	return &Issuer{credential: cred}, nil
}

// IssueServiceSAS implements sas.TokenIssuer.
func (i *Issuer) IssueServiceSAS(ctx context.Context, req sas.TokenRequest) (sas.TokenResponse, error) {
	if req.AccountName != i.credential.AccountName() {
		return sas.TokenResponse{}, fmt.Errorf("%w: %s", ErrAccountMismatch, req.AccountName)
	}

	id, err := sas.ParseCanonicalizedResourcePath(req.CanonicalizedResource)
	if err != nil {
		return sas.TokenResponse{}, err
	}
	if id.AccountName != req.AccountName {
		return sas.TokenResponse{}, fmt.Errorf("%w: resource path names account %s", ErrAccountMismatch, id.AccountName)
	}

	var perms azblob.BlobSASPermissions
	if err := perms.Parse(string(req.Permissions)); err != nil {
		return sas.TokenResponse{}, fmt.Errorf("parsing permissions: %w", err)
	}

	values := azblob.BlobSASSignatureValues{
		Protocol:      azblob.SASProtocol(req.Protocol),
		StartTime:     req.Window.Start,
		ExpiryTime:    req.Window.End,
		Permissions:   perms.String(),
		ContainerName: id.ContainerName,
	}
	switch req.Resource {
	case sas.ResourceBlob:
		values.BlobName = id.BlobName
	case sas.ResourceContainer:
	default:
		return sas.TokenResponse{}, fmt.Errorf("unsupported signed resource: %q", req.Resource)
	}

	params, err := values.NewSASQueryParameters(i.credential)
	if err != nil {
		return sas.TokenResponse{}, fmt.Errorf("signing request: %w", err)
	}
	return sas.TokenResponse{ServiceSasToken: params.Encode()}, nil
}
