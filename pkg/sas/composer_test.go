package sas

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storacha/sasurl/pkg/output"
)

const (
	testAccount   = "a4sa"
	testGroup     = "a4_resourceGroup"
	testContainer = "a4container"
	testBlob      = "index.zip"
	testBlobURL   = "https://a4sa.blob.core.windows.net/a4container/index.zip"
	testToken     = "sv=2020-01-01&ss=b&srt=o&sp=r&se=2030-01-01&sig=ABC"
)

type mockIssuer struct {
	mock.Mock
}

func (m *mockIssuer) IssueServiceSAS(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(TokenResponse), args.Error(1)
}

func testIdentity() ResourceIdentity {
	return ResourceIdentity{
		AccountName:       testAccount,
		ResourceGroupName: testGroup,
		ContainerName:     testContainer,
		BlobName:          testBlob,
	}
}

func resolvedInputs() Inputs {
	return Inputs{
		BlobURL:           output.Of(testBlobURL),
		AccountName:       output.Of(testAccount),
		ResourceGroupName: output.Of(testGroup),
		ContainerName:     output.Of(testContainer),
		BlobName:          output.Of(testBlob),
	}
}

func expectedRequest() TokenRequest {
	return TokenRequest{
		AccountName:           testAccount,
		Protocol:              ProtocolHTTPS,
		Window:                DefaultAccessWindow,
		Resource:              ResourceBlob,
		ResourceGroupName:     testGroup,
		Permissions:           PermissionRead,
		CanonicalizedResource: "/blob/a4sa/a4container/index.zip",
	}
}

func TestSignedBlobReadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("composes signed URL", func(t *testing.T) {
		issuer := &mockIssuer{}
		issuer.On("IssueServiceSAS", mock.Anything, expectedRequest()).
			Return(TokenResponse{ServiceSasToken: testToken}, nil).Once()

		c, err := NewComposer(issuer)
		require.NoError(t, err)

		url, err := c.SignedBlobReadURL(ctx, resolvedInputs()).Await(ctx)
		require.NoError(t, err)
		require.Equal(t, "https://a4sa.blob.core.windows.net/a4container/index.zip?sv=2020-01-01&ss=b&srt=o&sp=r&se=2030-01-01&sig=ABC", url)
		require.Equal(t, 1, strings.Count(url, "?"))
		issuer.AssertExpectations(t)
	})

	t.Run("idempotent", func(t *testing.T) {
		issuer := &mockIssuer{}
		issuer.On("IssueServiceSAS", mock.Anything, expectedRequest()).
			Return(TokenResponse{ServiceSasToken: testToken}, nil).Twice()

		c, err := NewComposer(issuer)
		require.NoError(t, err)

		first, err := c.SignedBlobReadURL(ctx, resolvedInputs()).Await(ctx)
		require.NoError(t, err)
		second, err := c.SignedBlobReadURL(ctx, resolvedInputs()).Await(ctx)
		require.NoError(t, err)
		require.Equal(t, first, second)
		issuer.AssertNumberOfCalls(t, "IssueServiceSAS", 2)
	})

	t.Run("issuer error fails output", func(t *testing.T) {
		denied := errors.New("AuthorizationFailed")
		issuer := &mockIssuer{}
		issuer.On("IssueServiceSAS", mock.Anything, mock.Anything).
			Return(TokenResponse{}, denied).Once()

		c, err := NewComposer(issuer)
		require.NoError(t, err)

		o := c.SignedBlobReadURL(ctx, resolvedInputs())
		url, err := o.Await(ctx)
		require.ErrorIs(t, err, denied)
		var tie *TokenIssuanceError
		require.ErrorAs(t, err, &tie)
		require.Equal(t, "/blob/a4sa/a4container/index.zip", tie.Resource)
		require.Empty(t, url)
		require.Equal(t, output.Failed, o.State())
	})

	t.Run("empty token fails output", func(t *testing.T) {
		issuer := &mockIssuer{}
		issuer.On("IssueServiceSAS", mock.Anything, mock.Anything).
			Return(TokenResponse{}, nil).Once()

		c, err := NewComposer(issuer)
		require.NoError(t, err)

		url, err := c.SignedBlobReadURL(ctx, resolvedInputs()).Await(ctx)
		require.ErrorIs(t, err, ErrEmptyToken)
		require.Empty(t, url)
	})

	t.Run("input failure propagates", func(t *testing.T) {
		producerErr := errors.New("container creation failed")
		issuer := &mockIssuer{}

		c, err := NewComposer(issuer)
		require.NoError(t, err)

		in := resolvedInputs()
		in.ContainerName = output.Rejected[string](producerErr)

		_, err = c.SignedBlobReadURL(ctx, in).Await(ctx)
		require.ErrorIs(t, err, producerErr)
		var ire *InputResolutionError
		require.ErrorAs(t, err, &ire)
		require.Equal(t, "containerName", ire.Input)
		issuer.AssertNotCalled(t, "IssueServiceSAS", mock.Anything, mock.Anything)
	})

	t.Run("blob URL failure propagates", func(t *testing.T) {
		producerErr := errors.New("blob upload failed")
		issuer := &mockIssuer{}
		issuer.On("IssueServiceSAS", mock.Anything, mock.Anything).
			Return(TokenResponse{ServiceSasToken: testToken}, nil).Maybe()

		c, err := NewComposer(issuer)
		require.NoError(t, err)

		in := resolvedInputs()
		in.BlobURL = output.Rejected[string](producerErr)

		_, err = c.SignedBlobReadURL(ctx, in).Await(ctx)
		require.ErrorIs(t, err, producerErr)
		var ire *InputResolutionError
		require.ErrorAs(t, err, &ire)
		require.Equal(t, "blobUrl", ire.Input)
	})

	t.Run("missing input", func(t *testing.T) {
		c, err := NewComposer(&mockIssuer{})
		require.NoError(t, err)

		in := resolvedInputs()
		in.BlobName = nil

		_, err = c.SignedBlobReadURL(ctx, in).Await(ctx)
		var ire *InputResolutionError
		require.ErrorAs(t, err, &ire)
		require.Equal(t, "blobName", ire.Input)
	})

	t.Run("malformed identity is not sent", func(t *testing.T) {
		issuer := &mockIssuer{}
		c, err := NewComposer(issuer)
		require.NoError(t, err)

		in := resolvedInputs()
		in.ContainerName = output.Of("")

		_, err = c.SignedBlobReadURL(ctx, in).Await(ctx)
		require.ErrorIs(t, err, ErrMalformedIdentity)
		issuer.AssertNotCalled(t, "IssueServiceSAS", mock.Anything, mock.Anything)
	})

	t.Run("blob name with spaces", func(t *testing.T) {
		issuer := &mockIssuer{}
		issuer.On("IssueServiceSAS", mock.Anything, mock.MatchedBy(func(req TokenRequest) bool {
			return req.CanonicalizedResource == "/blob/a4sa/a4container/my site.zip"
		})).Return(TokenResponse{ServiceSasToken: testToken}, nil).Once()

		c, err := NewComposer(issuer)
		require.NoError(t, err)

		in := resolvedInputs()
		in.BlobURL = output.Of("https://a4sa.blob.core.windows.net/a4container/my%20site.zip")
		in.BlobName = output.Of("my site.zip")

		url, err := c.SignedBlobReadURL(ctx, in).Await(ctx)
		require.NoError(t, err)
		require.Equal(t, "https://a4sa.blob.core.windows.net/a4container/my%20site.zip?"+testToken, url)
		issuer.AssertExpectations(t)
	})

	t.Run("identity validation disabled", func(t *testing.T) {
		issuer := &mockIssuer{}
		issuer.On("IssueServiceSAS", mock.Anything, mock.MatchedBy(func(req TokenRequest) bool {
			return req.CanonicalizedResource == "/blob/a4sa//index.zip"
		})).Return(TokenResponse{}, errors.New("InvalidResourceName")).Once()

		c, err := NewComposer(issuer, WithIdentityValidation(false))
		require.NoError(t, err)

		in := resolvedInputs()
		in.ContainerName = output.Of("")

		_, err = c.SignedBlobReadURL(ctx, in).Await(ctx)
		var tie *TokenIssuanceError
		require.ErrorAs(t, err, &tie)
		issuer.AssertExpectations(t)
	})

	t.Run("custom access window", func(t *testing.T) {
		window := AccessWindow{
			Start: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
		}
		req := expectedRequest()
		req.Window = window

		issuer := &mockIssuer{}
		issuer.On("IssueServiceSAS", mock.Anything, req).
			Return(TokenResponse{ServiceSasToken: testToken}, nil).Once()

		c, err := NewComposer(issuer, WithAccessWindow(window))
		require.NoError(t, err)
		require.Equal(t, window, c.Window())

		_, err = c.SignedBlobReadURL(ctx, resolvedInputs()).Await(ctx)
		require.NoError(t, err)
		issuer.AssertExpectations(t)
	})
}

func TestSignedBlobReadURLJoin(t *testing.T) {
	ctx := context.Background()

	// Input indexes: 0 blobUrl, 1 account, 2 resource group, 3 container, 4 blob.
	values := []string{testBlobURL, testAccount, testGroup, testContainer, testBlob}
	orders := map[string][]int{
		"identity first":  {1, 2, 3, 4, 0},
		"blob URL first":  {0, 4, 3, 2, 1},
		"interleaved":     {3, 0, 1, 4, 2},
		"account is last": {0, 2, 3, 4, 1},
	}

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			issuer := TokenIssuerFunc(func(ctx context.Context, req TokenRequest) (TokenResponse, error) {
				calls.Add(1)
				assert.Equal(t, expectedRequest(), req)
				return TokenResponse{ServiceSasToken: testToken}, nil
			})
			c, err := NewComposer(issuer)
			require.NoError(t, err)

			outs := []*output.Output[string]{
				output.New[string](), output.New[string](), output.New[string](),
				output.New[string](), output.New[string](),
			}
			signed := c.SignedBlobReadURL(ctx, Inputs{
				BlobURL:           outs[0],
				AccountName:       outs[1],
				ResourceGroupName: outs[2],
				ContainerName:     outs[3],
				BlobName:          outs[4],
			})

			identityResolved := 0
			for i, idx := range order {
				require.Equal(t, output.Pending, signed.State(), "resolved after %d of 5 inputs", i)
				if identityResolved < 4 {
					require.Zero(t, calls.Load(), "issuer called before identity was complete")
				}
				outs[idx].Resolve(values[idx])
				if idx != 0 {
					identityResolved++
				}
			}

			url, err := signed.Await(ctx)
			require.NoError(t, err)
			require.Equal(t, testBlobURL+"?"+testToken, url)
			require.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestCompose(t *testing.T) {
	issuer := &mockIssuer{}
	issuer.On("IssueServiceSAS", mock.Anything, expectedRequest()).
		Return(TokenResponse{ServiceSasToken: testToken}, nil).Once()

	c, err := NewComposer(issuer)
	require.NoError(t, err)

	url, err := c.Compose(context.Background(), testBlobURL, testIdentity())
	require.NoError(t, err)
	require.Equal(t, testBlobURL+"?"+testToken, url)
}

func TestNewComposer(t *testing.T) {
	t.Run("requires issuer", func(t *testing.T) {
		_, err := NewComposer(nil)
		require.Error(t, err)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		_, err := NewComposer(&mockIssuer{}, WithAccessWindow(AccessWindow{
			Start: DefaultAccessWindow.End,
			End:   DefaultAccessWindow.Start,
		}))
		require.ErrorIs(t, err, ErrInvalidAccessWindow)
	})
}
