package engine

import (
	"errors"
	"fmt"

	"github.com/tapp-so/tapp-go/internal/config"
)

var (
	// ErrMissingConfiguration means nothing has been persisted yet, so no
	// bootstrap is possible.
	ErrMissingConfiguration = errors.New("missing configuration: call Start first")
	// ErrEventActionMissing means an event was reported without a name.
	ErrEventActionMissing = errors.New("event action is missing")
	// ErrClosed is delivered to callers after the engine has been closed.
	ErrClosed = errors.New("engine closed")
)

// LoadConfiguration reads the stored record. An absent record is
// ErrMissingConfiguration; a store failure is reported as
// ErrMissingConfiguration wrapping the cause.
func LoadConfiguration(store config.Store) (*config.Configuration, error) {
	cfg, err := store.Load()
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, config.ErrNoConfiguration):
		return nil, ErrMissingConfiguration
	default:
		return nil, fmt.Errorf("%w: %w", ErrMissingConfiguration, err)
	}
}

// AffiliateServiceError attaches the affiliate to a failed secret exchange.
type AffiliateServiceError struct {
	Affiliate config.Affiliate
	Err       error
}

// Error implements the error interface
func (e *AffiliateServiceError) Error() string {
	return fmt.Sprintf("affiliate service %s: %v", e.Affiliate, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *AffiliateServiceError) Unwrap() error {
	return e.Err
}

// MissingParametersError reports an affiliate that has no service.
type MissingParametersError struct {
	Details string
}

// Error implements the error interface
func (e *MissingParametersError) Error() string {
	return "missing parameters: " + e.Details
}

// IsMissingParameters reports whether err is a *MissingParametersError.
func IsMissingParameters(err error) bool {
	var target *MissingParametersError
	return errors.As(err, &target)
}

// IsAffiliateServiceError reports whether err is an *AffiliateServiceError.
func IsAffiliateServiceError(err error) bool {
	var target *AffiliateServiceError
	return errors.As(err, &target)
}
