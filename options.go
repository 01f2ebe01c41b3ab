package tapp

import (
	"net/http"

	"github.com/tapp-so/tapp-go/internal/config"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	store      config.Store
	httpClient *http.Client
	baseURL    string
	surfaces   SurfaceProvider
	noSurfaces bool
	affiliates map[Affiliate]AffiliateService
	tokenParam string
	linkDomain string
	phaseHook  func(phase string, done bool, err error)
}

// WithStore persists the configuration in s. The default keeps it in
// memory.
func WithStore(s Store) Option {
	return func(o *options) { o.store = s }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBaseURL pins the API root. By default it follows the environment of
// the stored configuration.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithSurfaceProvider sets how fingerprint surfaces are made. A nil
// provider disables fingerprinting. The default dials the branded URL over
// WebSocket.
func WithSurfaceProvider(p SurfaceProvider) Option {
	return func(o *options) {
		o.surfaces = p
		o.noSurfaces = p == nil
	}
}

// WithAffiliateOverride serves affiliate with svc instead of the built-in
// service.
func WithAffiliateOverride(affiliate Affiliate, svc AffiliateService) Option {
	return func(o *options) {
		if o.affiliates == nil {
			o.affiliates = make(map[Affiliate]AffiliateService)
		}
		o.affiliates[affiliate] = svc
	}
}

// WithLinkTokenParam sets the query parameter that carries link tokens.
func WithLinkTokenParam(name string) Option {
	return func(o *options) { o.tokenParam = name }
}

// WithLinkDomain sets the registrable domain of processable links.
func WithLinkDomain(domain string) Option {
	return func(o *options) { o.linkDomain = domain }
}

// WithPhaseHook observes bootstrap phases as they start and finish.
func WithPhaseHook(hook func(phase string, done bool, err error)) Option {
	return func(o *options) { o.phaseHook = hook }
}
