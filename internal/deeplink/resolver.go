package deeplink

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/engine"
	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/tappapi"
	"github.com/tapp-so/tapp-go/internal/urls"
)

// LinkData is a resolved link.
type LinkData struct {
	TappURL           string      `json:"tapp_url"`
	AttributedTappURL string      `json:"attr_tapp_url"`
	Influencer        string      `json:"influencer"`
	Data              config.Data `json:"data,omitempty"`
	IsFirstSession    bool        `json:"is_first_session"`
}

// Sink receives the outcome of a deferred link.
type Sink interface {
	DidOpenApplication(data *LinkData)
	DidFailResolvingURL(u *url.URL, err error)
}

// Options configure a Resolver. Zero values select the defaults in urls.
type Options struct {
	Domain     string
	TokenParam string
}

// Resolver classifies URLs and resolves them into link data.
type Resolver struct {
	engine     *engine.Engine
	domain     string
	tokenParam string

	firstSession atomic.Bool
}

// NewResolver returns a resolver backed by e. The first-session flag is
// taken from whether a configuration exists right now.
func NewResolver(e *engine.Engine, opts Options) *Resolver {
	if opts.Domain == "" {
		opts.Domain = urls.LinkDomain
	}
	if opts.TokenParam == "" {
		opts.TokenParam = urls.LinkTokenParam
	}
	r := &Resolver{
		engine:     e,
		domain:     strings.ToLower(opts.Domain),
		tokenParam: opts.TokenParam,
	}
	r.firstSession.Store(!config.HasConfig(e.Store()))
	return r
}

// IsFirstSession reports whether no configuration existed when the
// resolver was built and nothing has been resolved since.
func (r *Resolver) IsFirstSession() bool {
	return r.firstSession.Load()
}

// ShouldProcess reports whether u belongs to the link domain, comparing the
// last two labels of its host.
func (r *Resolver) ShouldProcess(u *url.URL) bool {
	if u == nil {
		return false
	}
	labels := strings.Split(strings.TrimSuffix(strings.ToLower(u.Hostname()), "."), ".")
	if len(labels) < 2 {
		return false
	}
	return strings.Join(labels[len(labels)-2:], ".") == r.domain
}

// Token extracts the link token from u.
func (r *Resolver) Token(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}
	token := u.Query().Get(r.tokenParam)
	return token, token != ""
}

// Resolve makes the install ready and resolves u. A cached origin link, if
// complete, answers any URL without a lookup. done runs on a background
// goroutine.
func (r *Resolver) Resolve(u *url.URL, done func(*LinkData, error)) {
	r.engine.EnsureReady(func(err error) {
		if err != nil {
			done(nil, err)
			return
		}
		go func() {
			done(r.resolve(r.engine.Context(), u, true))
		}()
	})
}

// ResolveContext is the blocking form of Resolve.
func (r *Resolver) ResolveContext(ctx context.Context, u *url.URL) (*LinkData, error) {
	type result struct {
		data *LinkData
		err  error
	}
	ch := make(chan result, 1)
	r.Resolve(u, func(data *LinkData, err error) { ch <- result{data, err} })
	select {
	case res := <-ch:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OriginLinkData returns the cached origin link. It never touches the
// network; a missing or partial group is ErrNotFound.
func (r *Resolver) OriginLinkData() (*LinkData, error) {
	cfg, err := r.engine.Store().Load()
	if err != nil {
		return nil, tappapi.ErrNotFound
	}
	origin, ok := cfg.Origin()
	if !ok {
		return nil, tappapi.ErrNotFound
	}
	return r.fromOrigin(origin), nil
}

// HandleDeferredLink reports an impression for u and, when sink is non-nil,
// resolves it remotely and hands the outcome to sink.
func (r *Resolver) HandleDeferredLink(u *url.URL, sink Sink) {
	r.engine.EnsureReady(func(err error) {
		if err != nil {
			logging.Error("Deferred link dropped", zap.String("url", u.String()), zap.Error(err))
			return
		}
		go r.deferred(u, sink)
	})
}

func (r *Resolver) deferred(u *url.URL, sink Sink) {
	ctx := r.engine.Context()
	cfg, err := r.engine.Store().Load()
	if err != nil {
		logging.Error("Deferred link dropped", zap.Error(err))
		return
	}

	err = r.engine.Backend().Impression(ctx, tappapi.ImpressionRequest{
		Identity: identity(cfg),
		Deeplink: u.String(),
	})
	if err != nil {
		logging.Warn("Impression report failed", zap.String("url", u.String()), zap.Error(err))
	}

	if sink == nil {
		return
	}
	data, err := r.resolve(ctx, u, false)
	if err != nil {
		sink.DidFailResolvingURL(u, err)
		r.firstSession.Store(false)
		return
	}
	sink.DidOpenApplication(data)
}

// resolve runs after the engine is ready.
func (r *Resolver) resolve(ctx context.Context, u *url.URL, useCache bool) (*LinkData, error) {
	cfg, err := engine.LoadConfiguration(r.engine.Store())
	if err != nil {
		return nil, err
	}

	if useCache {
		if origin, ok := cfg.Origin(); ok {
			logging.Debug("Link answered from cached origin", zap.String("url", u.String()))
			data := r.fromOrigin(origin)
			data.IsFirstSession = r.firstSession.Swap(false)
			return data, nil
		}
	}

	token, ok := r.Token(u)
	if !ok {
		return nil, tappapi.ErrInvalidURL
	}

	resp, err := r.engine.Backend().LinkData(ctx, tappapi.LinkDataRequest{
		Identity:  identity(cfg),
		LinkToken: token,
	})
	if err != nil {
		return nil, err
	}
	if resp.TappURL == "" || resp.AttributedTappURL == "" || resp.Influencer == "" {
		return nil, tappapi.NewDecodingError(tappapi.PathLinkData, errIncomplete)
	}

	origin := config.OriginLink{
		URL:           resp.TappURL,
		AttributedURL: resp.AttributedTappURL,
		Influencer:    resp.Influencer,
		Data:          config.Data(resp.Data),
	}
	if origin.Data == nil {
		origin.Data = config.Data{}
	}
	if _, err := config.Update(r.engine.Store(), func(c *config.Configuration) {
		c.SetOrigin(origin)
	}); err != nil {
		logging.Warn("Failed to cache origin link", zap.Error(err))
	}

	data := &LinkData{
		TappURL:           origin.URL,
		AttributedTappURL: origin.AttributedURL,
		Influencer:        origin.Influencer,
		Data:              origin.Data.Clone(),
		IsFirstSession:    r.firstSession.Swap(false),
	}
	return data, nil
}

var errIncomplete = errors.New("link data is missing tapp_url, attr_tapp_url or influencer")

func (r *Resolver) fromOrigin(origin config.OriginLink) *LinkData {
	return &LinkData{
		TappURL:           origin.URL,
		AttributedTappURL: origin.AttributedURL,
		Influencer:        origin.Influencer,
		Data:              origin.Data,
		IsFirstSession:    r.firstSession.Load(),
	}
}

func identity(cfg *config.Configuration) tappapi.Identity {
	return tappapi.Identity{TappToken: cfg.TappToken, BundleID: cfg.BundleID}
}
