package sas

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Protocol restricts the scheme a signed URL may be used over.
type Protocol string

const (
	ProtocolHTTPS        Protocol = "https"
	ProtocolHTTPSAndHTTP Protocol = "https,http"
)

// SignedResource is the kind of storage object a token grants access to.
type SignedResource string

const (
	ResourceBlob      SignedResource = "b"
	ResourceContainer SignedResource = "c"
)

// Permission is the set of operations a token allows, in the storage service's
// single letter notation.
type Permission string

const PermissionRead Permission = "r"

// DefaultAccessWindow is the validity period requested for every signed URL
// unless configured otherwise. It is a fixed range, not relative to the
// current time, so that signed URLs are reproducible.
var DefaultAccessWindow = AccessWindow{
	Start: time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC),
}

// ResourceIdentity names a single blob within a storage account.
type ResourceIdentity struct {
	AccountName       string
	ResourceGroupName string
	ContainerName     string
	BlobName          string
}

// Validate checks the identity can be turned into a canonicalized resource
// path. Account, resource group and container names must not contain
// whitespace, control characters or '/'. Blob names may contain spaces and
// '/' but no control characters, and must not start with '/'. Failures wrap
// [ErrMalformedIdentity].
func (id ResourceIdentity) Validate() error {
	fields := []struct {
		name   string
		value  string
		isBlob bool
	}{
		{"account name", id.AccountName, false},
		{"resource group name", id.ResourceGroupName, false},
		{"container name", id.ContainerName, false},
		{"blob name", id.BlobName, true},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: %s is empty", ErrMalformedIdentity, f.name)
		}
		if strings.IndexFunc(f.value, unicode.IsControl) >= 0 {
			return fmt.Errorf("%w: %s %q contains control characters", ErrMalformedIdentity, f.name, f.value)
		}
		if f.isBlob {
			continue
		}
		if strings.IndexFunc(f.value, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%w: %s %q contains whitespace", ErrMalformedIdentity, f.name, f.value)
		}
		if strings.Contains(f.value, "/") {
			return fmt.Errorf("%w: %s %q contains a path separator", ErrMalformedIdentity, f.name, f.value)
		}
	}
	if strings.HasPrefix(id.BlobName, "/") {
		return fmt.Errorf("%w: blob name %q starts with a path separator", ErrMalformedIdentity, id.BlobName)
	}
	return nil
}

// AccessWindow is the period a token is valid for.
type AccessWindow struct {
	Start time.Time
	End   time.Time
}

func (w AccessWindow) Validate() error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidAccessWindow,
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Duration is the length of the window.
func (w AccessWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// CanonicalizedResourcePath returns the path a blob signature is bound to:
// /blob/{account}/{container}/{blob}. Values are interpolated verbatim.
func CanonicalizedResourcePath(id ResourceIdentity) string {
	return "/blob/" + id.AccountName + "/" + id.ContainerName + "/" + id.BlobName
}

// ParseCanonicalizedResourcePath splits a canonicalized blob path into its
// account, container and blob names. The resource group is not part of the
// path and is left empty.
func ParseCanonicalizedResourcePath(path string) (ResourceIdentity, error) {
	rest, ok := strings.CutPrefix(path, "/blob/")
	if !ok {
		return ResourceIdentity{}, fmt.Errorf("%w: %q is not a blob resource path", ErrMalformedIdentity, path)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ResourceIdentity{}, fmt.Errorf("%w: %q must have the form /blob/{account}/{container}/{blob}", ErrMalformedIdentity, path)
	}
	return ResourceIdentity{
		AccountName:   parts[0],
		ContainerName: parts[1],
		BlobName:      parts[2],
	}, nil
}

// SignedURL appends a token to a base blob URL as its query string.
func SignedURL(blobURL string, token string) string {
	return blobURL + "?" + token
}
