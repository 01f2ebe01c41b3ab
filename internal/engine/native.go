package engine

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/fingerprint"
	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

// FingerprintObserver receives the backend's answer to a fingerprint.
type FingerprintObserver interface {
	DidReceiveFingerprint(resp *tappapi.FingerprintResponse)
}

// TappService is the native affiliate service. It verifies the device and,
// when needed, runs the fingerprint surface and submits its result.
type TappService struct {
	store     config.Store
	backend   Backend
	surfaces  fingerprint.Provider
	collector fingerprint.Collector

	// ctx bounds surface loads and fingerprint submissions
	ctx context.Context

	initialized atomic.Bool

	mu       sync.Mutex
	observer FingerprintObserver
	surface  fingerprint.Surface
	handlers sync.WaitGroup
}

// NewTappService returns the native service. surfaces may be nil, in which
// case fingerprinting is skipped.
func NewTappService(ctx context.Context, store config.Store, backend Backend, surfaces fingerprint.Provider) *TappService {
	return &TappService{
		store:     store,
		backend:   backend,
		surfaces:  surfaces,
		collector: fingerprint.DefaultCollector,
		ctx:       ctx,
	}
}

// SetCollector replaces the signal collector used for fingerprints.
func (s *TappService) SetCollector(c fingerprint.Collector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collector = c
}

// Subscribe sets the single fingerprint observer. nil unsubscribes.
func (s *TappService) Subscribe(o FingerprintObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// HasSubscriber reports whether an observer is set.
func (s *TappService) HasSubscriber() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observer != nil
}

// IsInitialized implements AffiliateService.
func (s *TappService) IsInitialized() bool {
	return s.initialized.Load()
}

// HandleEvent implements AffiliateService. The native backend takes events
// through ReportTappEvent instead of event tokens.
func (s *TappService) HandleEvent(eventID, _ string) {
	logging.Info("Event tokens are not used by the tapp affiliate; report a tapp event instead",
		zap.String("event_id", eventID),
	)
}

// Initialize implements AffiliateService by verifying the device.
//
// The fingerprint surface, if started, reports later; Initialize returns as
// soon as the load has been triggered.
func (s *TappService) Initialize(ctx context.Context, env config.Environment, brandedURL *url.URL) error {
	device, err := s.fetchDevice(ctx, env)
	if err != nil {
		return err
	}

	cfg, err := s.store.Load()
	if err != nil {
		return err
	}
	clearVerified := env == config.Sandbox && !device.Active && cfg.IsAlreadyVerified
	if cfg.DeviceID != device.ID || clearVerified {
		cfg, err = config.Update(s.store, func(c *config.Configuration) {
			c.DeviceID = device.ID
			if clearVerified {
				c.IsAlreadyVerified = false
			}
		})
		if err != nil {
			return err
		}
	}

	if cfg.IsAlreadyVerified {
		logging.Debug("Device already verified", zap.String("device_id", device.ID))
		s.initialized.Store(true)
		return nil
	}

	if brandedURL != nil && !cfg.HasOriginLink() {
		s.startSurface(brandedURL)
	}

	s.initialized.Store(true)
	return nil
}

// fetchDevice returns the device record. Production trusts a cached id;
// sandbox always asks the backend.
func (s *TappService) fetchDevice(ctx context.Context, env config.Environment) (*tappapi.Device, error) {
	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	if env == config.Production && cfg.DeviceID != "" {
		return &tappapi.Device{ID: cfg.DeviceID, Active: true}, nil
	}

	resp, err := s.backend.Device(ctx, tappapi.DeviceRequest{
		Identity: tappapi.Identity{TappToken: cfg.TappToken, BundleID: cfg.BundleID},
		MMP:      cfg.Affiliate.Code(),
		DeviceID: cfg.DeviceID,
	})
	if err != nil {
		return nil, err
	}
	if resp.Message != nil {
		logging.Debug("Device lookup message", zap.String("message", *resp.Message))
	}
	return &resp.Device, nil
}

// startSurface loads the fingerprint surface once per service and hands its
// message to a single consumer goroutine.
func (s *TappService) startSurface(brandedURL *url.URL) {
	s.mu.Lock()
	if s.surface != nil || s.surfaces == nil {
		s.mu.Unlock()
		return
	}
	surface := s.surfaces.Make(brandedURL)
	s.surface = surface
	s.mu.Unlock()

	if err := surface.Load(s.ctx); err != nil {
		logging.Warn("Failed to load fingerprint surface", zap.Error(err))
		surface.Close()
		s.mu.Lock()
		if s.surface == surface {
			s.surface = nil
		}
		s.mu.Unlock()
		return
	}
	logging.LogPhase("fingerprint", "surface loading", zap.String("url", brandedURL.String()))

	s.handlers.Add(1)
	go func() {
		defer s.handlers.Done()
		defer surface.Close()

		msg, ok := <-surface.Messages()
		if !ok {
			return
		}
		s.HandleMessage(s.ctx, msg)
	}()
}

// HandleMessage submits a surface message and applies the backend's answer.
// Failures are logged and dropped.
func (s *TappService) HandleMessage(ctx context.Context, msg fingerprint.Message) {
	cfg, err := s.store.Load()
	if err != nil {
		logging.Warn("Dropping fingerprint: no configuration", zap.Error(err))
		return
	}

	s.mu.Lock()
	collector := s.collector
	s.mu.Unlock()

	body := msg.Body
	req := collector.Collect(cfg.TappToken, cfg.BundleID, &body, cfg.DeviceID)

	resp, err := s.backend.Fingerprint(ctx, req)
	if err != nil {
		logging.Warn("Fingerprint submission failed", zap.Error(err))
		return
	}

	_, err = config.Update(s.store, func(c *config.Configuration) {
		// Fields merge one at a time; the origin group may stay partial.
		if resp.TappURL != "" {
			c.OriginURL = resp.TappURL
		}
		if resp.AttributedTappURL != "" {
			c.OriginAttributedURL = resp.AttributedTappURL
		}
		if resp.Influencer != "" {
			c.OriginInfluencer = resp.Influencer
		}
		if resp.Data != nil {
			c.OriginData = config.Data(resp.Data).Clone()
		} else if resp.TappURL != "" && resp.AttributedTappURL != "" && resp.Influencer != "" {
			c.OriginData = config.Data{}
		}
		if resp.Device != nil && resp.Device.ID != "" {
			c.DeviceID = resp.Device.ID
		}
		c.IsAlreadyVerified = resp.IsAlreadyVerified()
	})
	if err != nil {
		logging.Warn("Failed to persist fingerprint result", zap.Error(err))
	}

	s.mu.Lock()
	observer := s.observer
	s.mu.Unlock()
	if observer != nil {
		observer.DidReceiveFingerprint(resp)
	}

	if resp.Deeplink == "" {
		return
	}
	err = s.backend.Impression(ctx, tappapi.ImpressionRequest{
		Identity: tappapi.Identity{TappToken: cfg.TappToken, BundleID: cfg.BundleID},
		Deeplink: resp.Deeplink,
	})
	if err != nil {
		logging.Warn("Impression report failed", zap.Error(err))
	}
}

// Close aborts a pending surface and waits for its consumer.
func (s *TappService) Close() error {
	s.mu.Lock()
	surface := s.surface
	s.mu.Unlock()

	if surface != nil {
		_ = surface.Close()
	}
	s.handlers.Wait()
	return nil
}
