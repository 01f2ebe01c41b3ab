package engine

import (
	"context"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/fingerprint"
	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

// Phase names used in logs and progress reporting.
const (
	PhaseSecrets = "secrets"
	PhaseService = "service"
)

// Options configure an Engine.
type Options struct {
	Store   config.Store
	Backend Backend

	// Surfaces makes fingerprint surfaces for the native service.
	// nil disables fingerprinting.
	Surfaces fingerprint.Provider

	// AffiliateServices are host-provided services keyed by affiliate.
	AffiliateServices map[config.Affiliate]AffiliateService

	// PhaseHook, if set, is called from the bootstrap goroutine as each
	// phase starts and ends (err is nil on start and on success).
	PhaseHook func(phase string, done bool, err error)
}

// Engine turns a stored configuration into a ready install.
//
// EnsureReady runs at most one bootstrap at a time: callers that arrive
// while one is in flight are queued and all receive its result, in the
// order they called.
type Engine struct {
	store    config.Store
	backend  Backend
	native   *TappService
	external map[config.Affiliate]AffiliateService
	hook     func(string, bool, error)

	ctx    context.Context
	cancel context.CancelFunc

	// work serializes bootstrap state; delivery runs completions in order.
	work     *serialQueue
	delivery *serialQueue

	// Owned by the work queue goroutine.
	pending  []func(error)
	inFlight bool

	closeOnce sync.Once
}

// New creates an engine. Call Close to release it.
func New(opts Options) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	external := make(map[config.Affiliate]AffiliateService, len(opts.AffiliateServices))
	for k, v := range opts.AffiliateServices {
		external[k] = v
	}
	return &Engine{
		store:    opts.Store,
		backend:  opts.Backend,
		native:   NewTappService(ctx, opts.Store, opts.Backend, opts.Surfaces),
		external: external,
		hook:     opts.PhaseHook,
		ctx:      ctx,
		cancel:   cancel,
		work:     newSerialQueue(),
		delivery: newSerialQueue(),
	}
}

// Store returns the configuration store.
func (e *Engine) Store() config.Store {
	return e.store
}

// Backend returns the attribution API.
func (e *Engine) Backend() Backend {
	return e.backend
}

// Native returns the native affiliate service.
func (e *Engine) Native() *TappService {
	return e.native
}

// Context is cancelled when the engine closes.
func (e *Engine) Context() context.Context {
	return e.ctx
}

// Service resolves the affiliate service for the stored configuration.
func (e *Engine) Service() (AffiliateService, error) {
	cfg, err := LoadConfiguration(e.store)
	if err != nil {
		return nil, err
	}
	return resolveService(cfg, e.native, e.external)
}

// EnsureReady makes the install ready and calls done with the outcome.
// done may be nil. It never blocks; done runs on the engine's delivery
// goroutine.
func (e *Engine) EnsureReady(done func(error)) {
	queued := e.work.Enqueue(func() {
		cfg, err := LoadConfiguration(e.store)
		if err != nil {
			if err != ErrMissingConfiguration {
				logging.Error("Failed to read configuration", zap.Error(err))
			}
			e.deliver([]func(error){done}, err)
			return
		}

		if done != nil {
			e.pending = append(e.pending, done)
		}
		if e.inFlight {
			return
		}
		e.inFlight = true
		go e.bootstrap(cfg)
	})
	if !queued {
		e.deliver([]func(error){done}, ErrClosed)
	}
}

// Ready blocks until the install is ready or ctx is done.
func (e *Engine) Ready(ctx context.Context) error {
	result := make(chan error, 1)
	e.EnsureReady(func(err error) { result <- err })
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bootstrap runs both phases off the work queue and posts the outcome back.
func (e *Engine) bootstrap(cfg *config.Configuration) {
	brandedURL, err := e.secrets(cfg)
	if err == nil {
		err = e.initializeService(brandedURL)
	}

	if !e.work.Enqueue(func() { e.finish(err) }) {
		// Closed: take over once the queue goroutine has exited.
		e.work.Wait()
		e.finish(err)
	}
}

// finish flushes every queued completion with the attempt's result.
func (e *Engine) finish(err error) {
	batch := e.pending
	e.pending = nil
	e.inFlight = false

	if err != nil {
		logging.Error("Bootstrap failed", zap.Error(err), zap.Int("waiting", len(batch)))
	} else {
		logging.LogPhase("bootstrap", "ready", zap.Int("waiting", len(batch)))
	}
	e.deliver(batch, err)
}

func (e *Engine) deliver(batch []func(error), err error) {
	run := func() {
		for _, done := range batch {
			if done != nil {
				done(err)
			}
		}
	}
	if !e.delivery.Enqueue(run) {
		run()
	}
}

// secrets exchanges the tapp token for the app token unless one is stored.
func (e *Engine) secrets(cfg *config.Configuration) (*url.URL, error) {
	if cfg.HasAppToken() {
		logging.LogPhase(PhaseSecrets, "skipped")
		return nil, nil
	}

	e.phase(PhaseSecrets, false, nil)
	resp, err := e.backend.Secrets(e.ctx, tappapi.SecretsRequest{
		Identity: tappapi.Identity{TappToken: cfg.TappToken, BundleID: cfg.BundleID},
		MMP:      cfg.Affiliate.Code(),
	})
	if err == nil {
		_, err = config.Update(e.store, func(c *config.Configuration) {
			c.AppToken = resp.Secret
		})
	}
	if err != nil {
		err = &AffiliateServiceError{Affiliate: cfg.Affiliate, Err: err}
		e.phase(PhaseSecrets, true, err)
		return nil, err
	}

	e.phase(PhaseSecrets, true, nil)
	return resp.Branded(), nil
}

// initializeService runs the affiliate service for the stored configuration.
func (e *Engine) initializeService(brandedURL *url.URL) error {
	cfg, err := LoadConfiguration(e.store)
	if err != nil {
		return err
	}

	svc, err := resolveService(cfg, e.native, e.external)
	if err != nil {
		return err
	}
	if svc.IsInitialized() {
		logging.LogPhase(PhaseService, "skipped")
		return nil
	}

	e.phase(PhaseService, false, nil)
	if err := svc.Initialize(e.ctx, cfg.Environment, brandedURL); err != nil {
		e.phase(PhaseService, true, err)
		return err
	}

	if _, err := config.Update(e.store, func(c *config.Configuration) {
		c.HasProcessedReferralEngine = true
	}); err != nil {
		e.phase(PhaseService, true, err)
		return err
	}

	e.phase(PhaseService, true, nil)
	return nil
}

func (e *Engine) phase(name string, done bool, err error) {
	event := "started"
	switch {
	case done && err != nil:
		event = "failed"
	case done:
		event = "completed"
	}
	logging.LogPhase(name, event)
	if e.hook != nil {
		e.hook(name, done, err)
	}
}

// Close cancels in-flight work, runs queued completions and stops the
// engine's goroutines.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.cancel()
		_ = e.native.Close()
		e.work.Close()
		e.work.Wait()
		e.delivery.Close()
		e.delivery.Wait()
	})
	return nil
}
