package tapp

import (
	"errors"

	"github.com/tapp-so/tapp-go/internal/engine"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

// Errors returned by the client. Match them with errors.Is.
var (
	ErrMissingConfiguration = engine.ErrMissingConfiguration
	ErrEventActionMissing   = engine.ErrEventActionMissing
	ErrClosed               = engine.ErrClosed

	ErrInvalidData    = tappapi.ErrInvalidData
	ErrInvalidRequest = tappapi.ErrInvalidRequest
	ErrInvalidURL     = tappapi.ErrInvalidURL
	ErrUnprocessable  = tappapi.ErrUnprocessable
	ErrNotFound       = tappapi.ErrNotFound

	// ErrCannotResolveURL is returned by HandleCallback for input that is
	// not an absolute URL.
	ErrCannotResolveURL = errors.New("cannot resolve url")
)

// AffiliateServiceError attaches the affiliate to a failed secret exchange.
type AffiliateServiceError = engine.AffiliateServiceError

// MissingParametersError reports an affiliate without a service.
type MissingParametersError = engine.MissingParametersError

// APIError describes a failed exchange with the attribution API.
type APIError = tappapi.APIError

// IsDecodingError reports whether err is a malformed API response.
func IsDecodingError(err error) bool {
	return tappapi.IsDecodingError(err)
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	return tappapi.IsNetworkError(err)
}
