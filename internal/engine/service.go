package engine

import (
	"context"
	"net/url"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

// Backend is the attribution API the engine drives. *tappapi.Client
// implements it.
type Backend interface {
	Secrets(ctx context.Context, req tappapi.SecretsRequest) (*tappapi.SecretsResponse, error)
	Device(ctx context.Context, req tappapi.DeviceRequest) (*tappapi.DeviceResponse, error)
	Fingerprint(ctx context.Context, req tappapi.FingerprintRequest) (*tappapi.FingerprintResponse, error)
	Impression(ctx context.Context, req tappapi.ImpressionRequest) error
	Event(ctx context.Context, req tappapi.EventRequest) error
	GenerateURL(ctx context.Context, req tappapi.GenerateURLRequest) (*tappapi.GeneratedURLResponse, error)
	LinkData(ctx context.Context, req tappapi.LinkDataRequest) (*tappapi.LinkDataResponse, error)
}

// AffiliateService is the per-affiliate part of the bootstrap.
//
// The tapp affiliate is served natively by TappService. Other affiliates
// are served by implementations the host registers with
// Options.AffiliateServices.
type AffiliateService interface {
	// IsInitialized reports whether Initialize already succeeded.
	IsInitialized() bool
	// Initialize verifies the device. brandedURL may be nil.
	Initialize(ctx context.Context, env config.Environment, brandedURL *url.URL) error
	// HandleEvent forwards an affiliate-specific event token.
	HandleEvent(eventID, authToken string)
}

// resolveService picks the service for the affiliate named in cfg.
// Host-provided services take precedence over the native one.
func resolveService(cfg *config.Configuration, native AffiliateService, external map[config.Affiliate]AffiliateService) (AffiliateService, error) {
	if svc, ok := external[cfg.Affiliate]; ok && svc != nil {
		return svc, nil
	}
	if cfg.Affiliate == config.AffiliateTapp && native != nil {
		return native, nil
	}
	return nil, &MissingParametersError{Details: "affiliate service not configured for " + string(cfg.Affiliate)}
}
