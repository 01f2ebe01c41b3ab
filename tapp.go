package tapp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/deeplink"
	"github.com/tapp-so/tapp-go/internal/engine"
	"github.com/tapp-so/tapp-go/internal/fingerprint"
	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/tappapi"
	"github.com/tapp-so/tapp-go/internal/urls"
)

// Client is the entry point for an application. Create one at startup with
// New, call Start, and share it.
type Client struct {
	store    config.Store
	api      *tappapi.Client
	engine   *engine.Engine
	resolver *deeplink.Resolver

	mu       sync.Mutex
	delegate Delegate

	background sync.WaitGroup
}

// New creates a client. Nothing is sent until Start is called.
func New(opts ...Option) *Client {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = config.NewMemoryStore(nil)
	}
	if o.surfaces == nil && !o.noSurfaces {
		o.surfaces = fingerprint.WebSocketProvider
	}

	c := &Client{store: o.store}

	c.api = tappapi.NewClient(urls.SandboxAPI, c.credentials)
	if o.baseURL != "" {
		c.api = tappapi.NewClient(o.baseURL, c.credentials)
	} else {
		c.api.BaseURLFunc = c.environmentBaseURL
	}
	if o.httpClient != nil {
		c.api.HTTPClient = o.httpClient
	}

	c.engine = engine.New(engine.Options{
		Store:             o.store,
		Backend:           c.api,
		Surfaces:          o.surfaces,
		AffiliateServices: o.affiliates,
		PhaseHook:         o.phaseHook,
	})
	c.resolver = deeplink.NewResolver(c.engine, deeplink.Options{
		Domain:     o.linkDomain,
		TokenParam: o.tokenParam,
	})
	return c
}

func (c *Client) credentials() tappapi.Credentials {
	cfg, err := c.store.Load()
	if err != nil {
		return tappapi.Credentials{}
	}
	return tappapi.Credentials{AuthToken: cfg.AuthToken, AppToken: cfg.AppToken}
}

func (c *Client) environmentBaseURL() string {
	cfg, err := c.store.Load()
	if err != nil {
		return urls.SandboxAPI
	}
	return urls.APIBase(string(cfg.Environment))
}

// Start persists cfg, sets the delegate and warms up the install in the
// background.
//
// Environment and bundle id are always taken from cfg. The stored record is
// replaced as a whole only when the tokens or the affiliate differ, so a
// restart keeps the app token, device and origin link.
func (c *Client) Start(cfg Config, delegate Delegate) error {
	next := cfg.record()
	if missing := next.MissingFields(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidData, strings.Join(missing, ", "))
	}

	stored, err := c.store.Load()
	switch {
	case err != nil:
		err = c.store.Save(next)
	case !stored.SameCredentials(next) || stored.Affiliate != next.Affiliate:
		logging.Info("Credentials changed; replacing stored configuration")
		err = c.store.Save(next)
	case stored.Environment != next.Environment || stored.BundleID != next.BundleID:
		stored.Environment = next.Environment
		stored.BundleID = next.BundleID
		err = c.store.Save(stored)
	}
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.SetDelegate(delegate)
	c.engine.Native().Subscribe(fingerprintRelay{c})
	c.engine.EnsureReady(nil)
	return nil
}

// EnsureReady bootstraps the install and calls done with the outcome.
func (c *Client) EnsureReady(done func(error)) {
	c.engine.EnsureReady(done)
}

// Ready blocks until the install is ready.
func (c *Client) Ready(ctx context.Context) error {
	return c.engine.Ready(ctx)
}

// GenerateURL creates an affiliate URL.
func (c *Client) GenerateURL(ctx context.Context, uc URLConfig) (*GeneratedURL, error) {
	if err := c.engine.Ready(ctx); err != nil {
		return nil, err
	}
	cfg, err := c.store.Load()
	if err != nil {
		return nil, ErrInvalidData
	}
	resp, err := c.api.GenerateURL(ctx, tappapi.GenerateURLRequest{
		Identity:   identity(cfg),
		MMP:        cfg.Affiliate.Code(),
		Influencer: uc.Influencer,
		AdGroup:    uc.AdGroup,
		Creative:   uc.Creative,
		Data:       tappapi.Data(uc.Data),
	})
	if err != nil {
		return nil, err
	}
	return &GeneratedURL{URL: resp.URL}, nil
}

// ReportEvent forwards an affiliate event token to the configured
// affiliate service.
func (c *Client) ReportEvent(eventToken string) {
	cfg, err := c.store.Load()
	if err != nil {
		logging.Warn("Event dropped: no configuration", zap.String("event", eventToken))
		return
	}
	svc, err := c.engine.Service()
	if err != nil {
		logging.Warn("Event dropped", zap.String("event", eventToken), zap.Error(err))
		return
	}
	svc.HandleEvent(eventToken, cfg.AuthToken)
}

// ReportTappEvent sends ev in the background. An event without an action
// name is rejected with ErrEventActionMissing and nothing is sent.
func (c *Client) ReportTappEvent(ev Event) error {
	if !ev.Action.IsValid() {
		logging.Error("Tapp event rejected", zap.Error(ErrEventActionMissing))
		return ErrEventActionMissing
	}

	c.background.Add(1)
	go func() {
		defer c.background.Done()

		cfg, err := c.store.Load()
		if err != nil {
			logging.Warn("Tapp event dropped: no configuration", zap.String("event", ev.Action.Name()))
			return
		}
		err = c.api.Event(c.engine.Context(), tappapi.EventRequest{
			Identity:  identity(cfg),
			EventName: ev.Action.Name(),
			EventURL:  cfg.OriginURL,
		})
		if err != nil {
			logging.Warn("Tapp event failed", zap.String("event", ev.Action.Name()), zap.Error(err))
		}
	}()
	return nil
}

// ShouldProcess reports whether u is a link this client resolves.
func (c *Client) ShouldProcess(u *url.URL) bool {
	return c.resolver.ShouldProcess(u)
}

// FetchLinkData resolves u into link data.
func (c *Client) FetchLinkData(ctx context.Context, u *url.URL) (*LinkData, error) {
	if !c.ShouldProcess(u) {
		return nil, ErrUnprocessable
	}
	return c.resolver.ResolveContext(ctx, u)
}

// FetchOriginLinkData returns the cached origin link without touching the
// network.
func (c *Client) FetchOriginLinkData() (*LinkData, error) {
	return c.resolver.OriginLinkData()
}

// HandleDeferredLink reports an impression for u and, if a delegate is
// set, resolves u and notifies it.
func (c *Client) HandleDeferredLink(u *url.URL) {
	var sink deeplink.Sink
	if d := c.currentDelegate(); d != nil {
		sink = d
	}
	c.resolver.HandleDeferredLink(u, sink)
}

// HandleCallback parses a callback URL handed to the app.
func (c *Client) HandleCallback(raw string) (*url.URL, error) {
	logging.Info("Handling callback", zap.String("url", raw))
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return nil, ErrCannotResolveURL
	}
	return u, nil
}

// Configuration returns a copy of the stored record.
func (c *Client) Configuration() (*config.Configuration, error) {
	return engine.LoadConfiguration(c.store)
}

// IsFirstSession reports whether the install had no configuration when the
// client was created and no link has been resolved since.
func (c *Client) IsFirstSession() bool {
	return c.resolver.IsFirstSession()
}

// Close waits for events in flight, then stops background work. Pending
// completions receive ErrClosed or the outcome of the attempt in flight.
func (c *Client) Close() error {
	c.background.Wait()
	return c.engine.Close()
}

func identity(cfg *config.Configuration) tappapi.Identity {
	return tappapi.Identity{TappToken: cfg.TappToken, BundleID: cfg.BundleID}
}
