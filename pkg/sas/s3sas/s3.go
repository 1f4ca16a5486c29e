// Package s3sas issues read tokens for blobs held in S3 compatible object
// storage. The container name is used as the bucket and the blob name as the
// object key; the token is the query string of a presigned GET request.
package s3sas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/storacha/sasurl/pkg/sas"
)

const ISO8601BasicFormat = "20060102T150405Z"

// MaxExpiry is the longest validity SigV4 presigned URLs support.
const MaxExpiry = 7 * 24 * time.Hour

// ErrWindowTooLong is returned when the requested access window exceeds
// [MaxExpiry].
var ErrWindowTooLong = errors.New("access window exceeds presigned URL maximum expiry")

// ErrSignatureMismatch is returned by VerifyReadURL when the URL was not
// signed by this presigner.
var ErrSignatureMismatch = errors.New("signature verification failed")

type S3ReadPresigner struct {
	endpoint      url.URL
	presignClient *s3.PresignClient
}

var _ ReadPresigner = (*S3ReadPresigner)(nil)

// IssueServiceSAS implements sas.TokenIssuer. The token is the presigned URL's
// query string.
func (ss *S3ReadPresigner) IssueServiceSAS(ctx context.Context, req sas.TokenRequest) (sas.TokenResponse, error) {
	u, err := ss.SignReadURL(ctx, req)
	if err != nil {
		return sas.TokenResponse{}, err
	}
	return sas.TokenResponse{ServiceSasToken: u.RawQuery}, nil
}

func (ss *S3ReadPresigner) SignReadURL(ctx context.Context, req sas.TokenRequest) (url.URL, error) {
	if req.Resource != sas.ResourceBlob {
		return url.URL{}, fmt.Errorf("unsupported signed resource: %q", req.Resource)
	}
	if req.Permissions != sas.PermissionRead {
		return url.URL{}, fmt.Errorf("unsupported permissions: %q", req.Permissions)
	}
	if req.Protocol == sas.ProtocolHTTPS && ss.endpoint.Scheme != "https" {
		return url.URL{}, fmt.Errorf("endpoint %s does not satisfy https only protocol", ss.endpoint.String())
	}
	if err := req.Window.Validate(); err != nil {
		return url.URL{}, err
	}
	if req.Window.Duration() > MaxExpiry {
		return url.URL{}, fmt.Errorf("%w: %s", ErrWindowTooLong, req.Window.Duration())
	}

	id, err := sas.ParseCanonicalizedResourcePath(req.CanonicalizedResource)
	if err != nil {
		return url.URL{}, err
	}

	signedReq, err := ss.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(id.ContainerName),
		Key:    aws.String(id.BlobName),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = req.Window.Duration()
		opts.Presigner = pointInTimePresigner{req.Window.Start, opts.Presigner}
	})
	if err != nil {
		return url.URL{}, fmt.Errorf("signing request: %w", err)
	}

	reqURL, err := url.Parse(signedReq.URL)
	if err != nil {
		return url.URL{}, fmt.Errorf("parsing signed URL: %w", err)
	}

	return *reqURL, nil
}

// pointInTimePresigner is a [s3.HTTPPresignerV4] whose signing time is frozen
// to the preconfigured value.
type pointInTimePresigner struct {
	signingTime time.Time
	presigner   s3.HTTPPresignerV4
}

func (pps pointInTimePresigner) PresignHTTP(
	ctx context.Context, credentials aws.Credentials, r *http.Request,
	payloadHash string, service string, region string, signingTime time.Time,
	optFns ...func(*v4.SignerOptions),
) (url string, signedHeader http.Header, err error) {
	return pps.presigner.PresignHTTP(ctx, credentials, r, payloadHash, service,
		region, pps.signingTime, optFns...)
}

func (ss *S3ReadPresigner) VerifyReadURL(ctx context.Context, requestURL url.URL) (url.URL, error) {
	requestURL = *ss.endpoint.ResolveReference(&requestURL)
	segments := strings.Split(requestURL.Path, "/")
	if len(segments) < 3 || segments[1] == "" {
		return url.URL{}, fmt.Errorf("parsing bucket and key from path: %s", requestURL.Path)
	}
	bucket := segments[1]
	key := strings.Join(segments[2:], "/")

	expires, err := strconv.ParseInt(requestURL.Query().Get("X-Amz-Expires"), 10, 64)
	if err != nil {
		return url.URL{}, fmt.Errorf("parsing X-Amz-Expires parameter: %w", err)
	}

	signingTime, err := time.Parse(ISO8601BasicFormat, requestURL.Query().Get("X-Amz-Date"))
	if err != nil {
		return url.URL{}, fmt.Errorf("parsing X-Amz-Date parameter: %w", err)
	}

	signedReq, err := ss.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = time.Duration(expires * int64(time.Second))
		// configure the presigner for the time the original signing took place.
		opts.Presigner = pointInTimePresigner{signingTime, opts.Presigner}
	})
	if err != nil {
		return url.URL{}, fmt.Errorf("signing request: %w", err)
	}

	if requestURL.String() != signedReq.URL {
		return url.URL{}, ErrSignatureMismatch
	}

	u, err := url.Parse(signedReq.URL)
	if err != nil {
		return url.URL{}, fmt.Errorf("parsing signed URL: %w", err)
	}

	return *u, nil
}

// NewS3ReadPresigner creates a presigner that uses the S3 SDK to sign and
// verify read requests. An empty region defaults to "auto".
//
// Signed read URLs take the form {endpoint}/{container}/{blob}?{token}
func NewS3ReadPresigner(accessKeyID string, secretAccessKey string, endpoint url.URL, region string) (*S3ReadPresigner, error) {
	if accessKeyID == "" || secretAccessKey == "" {
		return nil, errors.New("access key ID and secret access key are required")
	}
	endpointstr := endpoint.String()
	if region == "" {
		region = "auto"
	}

	cfg := aws.Config{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		BaseEndpoint: &endpointstr,
	}

	s3client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		opts.UsePathStyle = true
	})
	presign := s3.NewPresignClient(s3client)

	return &S3ReadPresigner{endpoint, presign}, nil
}
