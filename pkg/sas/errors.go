package sas

import (
	"errors"
	"fmt"
)

// ErrMalformedIdentity is returned when a resource identity cannot form a
// canonicalized resource path.
var ErrMalformedIdentity = errors.New("malformed resource identity")

// ErrInvalidAccessWindow is returned when an access window does not start
// before it ends.
var ErrInvalidAccessWindow = errors.New("invalid access window")

// ErrEmptyToken is returned when the token issuer succeeds but hands back an
// empty token.
var ErrEmptyToken = errors.New("token issuer returned an empty token")

// InputResolutionError means one of the composer's asynchronous inputs failed
// to resolve.
type InputResolutionError struct {
	Input string
	Err   error
}

func (e *InputResolutionError) Error() string {
	return fmt.Sprintf("resolving %s: %s", e.Input, e.Err)
}

func (e *InputResolutionError) Unwrap() error {
	return e.Err
}

// TokenIssuanceError means the token issuer rejected a signing request.
type TokenIssuanceError struct {
	Resource string
	Err      error
}

func (e *TokenIssuanceError) Error() string {
	return fmt.Sprintf("issuing service SAS for %s: %s", e.Resource, e.Err)
}

func (e *TokenIssuanceError) Unwrap() error {
	return e.Err
}
