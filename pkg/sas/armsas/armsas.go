// Package armsas issues service SAS tokens through the Azure storage control
// plane (the ListServiceSAS operation on a storage account).
package armsas

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	logging "github.com/ipfs/go-log/v2"

	"github.com/storacha/sasurl/pkg/sas"
)

var log = logging.Logger("sas/arm")

// accountsClient is the subset of [armstorage.AccountsClient] used here.
type accountsClient interface {
	ListServiceSAS(ctx context.Context, resourceGroupName string, accountName string, parameters armstorage.ServiceSasParameters, options *armstorage.AccountsClientListServiceSASOptions) (armstorage.AccountsClientListServiceSASResponse, error)
}

type Issuer struct {
	accounts accountsClient
}

var _ sas.TokenIssuer = (*Issuer)(nil)

// New creates an issuer for storage accounts in the given subscription.
func New(subscriptionID string, cred azcore.TokenCredential, opts *arm.ClientOptions) (*Issuer, error) {
	if subscriptionID == "" {
		return nil, errors.New("subscription ID is required")
	}
	client, err := armstorage.NewAccountsClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("creating storage accounts client: %w", err)
	}
	return &Issuer{accounts: client}, nil
}

// NewFromEnvironment creates an issuer authenticated with the default Azure
// credential chain (environment, workload identity, managed identity, CLI).
func NewFromEnvironment(subscriptionID string) (*Issuer, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("loading azure credential: %w", err)
	}
	return New(subscriptionID, cred, nil)
}

// IssueServiceSAS implements sas.TokenIssuer.
func (i *Issuer) IssueServiceSAS(ctx context.Context, req sas.TokenRequest) (sas.TokenResponse, error) {
	params, err := serviceSasParameters(req)
	if err != nil {
		return sas.TokenResponse{}, err
	}

	log.Debugw("listing service SAS", "account", req.AccountName, "resourceGroup", req.ResourceGroupName)
	res, err := i.accounts.ListServiceSAS(ctx, req.ResourceGroupName, req.AccountName, params, nil)
	if err != nil {
		return sas.TokenResponse{}, fmt.Errorf("listing service SAS: %w", err)
	}
	if res.ServiceSasToken == nil {
		return sas.TokenResponse{}, sas.ErrEmptyToken
	}
	return sas.TokenResponse{ServiceSasToken: *res.ServiceSasToken}, nil
}

func serviceSasParameters(req sas.TokenRequest) (armstorage.ServiceSasParameters, error) {
	var protocol armstorage.HTTPProtocol
	switch req.Protocol {
	case sas.ProtocolHTTPS:
		protocol = armstorage.HTTPProtocolHTTPS
	case sas.ProtocolHTTPSAndHTTP:
		protocol = armstorage.HTTPProtocolHTTPSHTTP
	default:
		return armstorage.ServiceSasParameters{}, fmt.Errorf("unsupported protocol: %q", req.Protocol)
	}

	var resource armstorage.SignedResource
	switch req.Resource {
	case sas.ResourceBlob:
		resource = armstorage.SignedResourceB
	case sas.ResourceContainer:
		resource = armstorage.SignedResourceC
	default:
		return armstorage.ServiceSasParameters{}, fmt.Errorf("unsupported signed resource: %q", req.Resource)
	}

	return armstorage.ServiceSasParameters{
		CanonicalizedResource:  to.Ptr(req.CanonicalizedResource),
		Resource:               to.Ptr(resource),
		Permissions:            to.Ptr(armstorage.Permissions(req.Permissions)),
		Protocols:              to.Ptr(protocol),
		SharedAccessStartTime:  to.Ptr(req.Window.Start),
		SharedAccessExpiryTime: to.Ptr(req.Window.End),
	}, nil
}
