package sas

import (
	logging "github.com/ipfs/go-log/v2"
)

type options struct {
	window           AccessWindow
	validateIdentity bool
}

type Option func(*options) error

// WithLogLevel changes the log level for the sas subsystem.
func WithLogLevel(level string) Option {
	return func(o *options) error {
		return logging.SetLogLevel("sas", level)
	}
}

// WithAccessWindow overrides [DefaultAccessWindow].
func WithAccessWindow(w AccessWindow) Option {
	return func(o *options) error {
		if err := w.Validate(); err != nil {
			return err
		}
		o.window = w
		return nil
	}
}

// WithIdentityValidation enables or disables the check that resource
// identities are well formed before a token is requested. It is enabled by
// default.
func WithIdentityValidation(enabled bool) Option {
	return func(o *options) error {
		o.validateIdentity = enabled
		return nil
	}
}
