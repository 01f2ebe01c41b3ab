package engine

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/fingerprint"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

// fakeBackend is a scripted attribution API that counts calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int

	secretsGate chan struct{}
	secretsResp *tappapi.SecretsResponse
	secretsErr  error

	deviceResp *tappapi.DeviceResponse
	deviceErr  error

	fingerprintResp *tappapi.FingerprintResponse
	fingerprintErr  error
	fingerprints    []tappapi.FingerprintRequest

	impressions []string
	events      []tappapi.EventRequest

	generateResp *tappapi.GeneratedURLResponse
	generateErr  error

	linkResp *tappapi.LinkDataResponse
	linkErr  error
	links    []tappapi.LinkDataRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		calls:       make(map[string]int),
		secretsResp: &tappapi.SecretsResponse{Secret: "app-secret"},
		deviceResp:  &tappapi.DeviceResponse{Device: tappapi.Device{ID: "device-remote", Active: true}},
	}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeBackend) Secrets(ctx context.Context, req tappapi.SecretsRequest) (*tappapi.SecretsResponse, error) {
	f.hit(tappapi.PathSecrets)
	if f.secretsGate != nil {
		select {
		case <-f.secretsGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.secretsErr != nil {
		return nil, f.secretsErr
	}
	return f.secretsResp, nil
}

func (f *fakeBackend) Device(ctx context.Context, req tappapi.DeviceRequest) (*tappapi.DeviceResponse, error) {
	f.hit(tappapi.PathDevice)
	if f.deviceErr != nil {
		return nil, f.deviceErr
	}
	return f.deviceResp, nil
}

func (f *fakeBackend) Fingerprint(ctx context.Context, req tappapi.FingerprintRequest) (*tappapi.FingerprintResponse, error) {
	f.hit(tappapi.PathFingerprint)
	f.mu.Lock()
	f.fingerprints = append(f.fingerprints, req)
	f.mu.Unlock()
	if f.fingerprintErr != nil {
		return nil, f.fingerprintErr
	}
	return f.fingerprintResp, nil
}

func (f *fakeBackend) Impression(ctx context.Context, req tappapi.ImpressionRequest) error {
	f.hit(tappapi.PathImpression)
	f.mu.Lock()
	f.impressions = append(f.impressions, req.Deeplink)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Event(ctx context.Context, req tappapi.EventRequest) error {
	f.hit(tappapi.PathEvent)
	f.mu.Lock()
	f.events = append(f.events, req)
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) GenerateURL(ctx context.Context, req tappapi.GenerateURLRequest) (*tappapi.GeneratedURLResponse, error) {
	f.hit(tappapi.PathGenerateURL)
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.generateResp, nil
}

func (f *fakeBackend) LinkData(ctx context.Context, req tappapi.LinkDataRequest) (*tappapi.LinkDataResponse, error) {
	f.hit(tappapi.PathLinkData)
	f.mu.Lock()
	f.links = append(f.links, req)
	f.mu.Unlock()
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	return f.linkResp, nil
}

// fakeSurface emits whatever is pushed into it.
type fakeSurface struct {
	url      *url.URL
	messages chan fingerprint.Message
	loaded   chan struct{}
	loadErr  error
	once     sync.Once
	closed   atomic.Bool
}

func (s *fakeSurface) Load(ctx context.Context) error {
	close(s.loaded)
	return s.loadErr
}

func (s *fakeSurface) Messages() <-chan fingerprint.Message {
	return s.messages
}

func (s *fakeSurface) Close() error {
	s.once.Do(func() { close(s.messages) })
	s.closed.Store(true)
	return nil
}

func (s *fakeSurface) isClosed() bool {
	return s.closed.Load()
}

func (s *fakeSurface) emit(body string) {
	s.messages <- fingerprint.Message{Name: fingerprint.MessageName, Body: body}
}

type fakeSurfaces struct {
	mu      sync.Mutex
	made    []*fakeSurface
	loadErr error
}

func (p *fakeSurfaces) Make(u *url.URL) fingerprint.Surface {
	s := &fakeSurface{url: u, messages: make(chan fingerprint.Message, 1), loaded: make(chan struct{}), loadErr: p.loadErr}
	p.mu.Lock()
	p.made = append(p.made, s)
	p.mu.Unlock()
	return s
}

func (p *fakeSurfaces) surfaces() []*fakeSurface {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*fakeSurface(nil), p.made...)
}

type recordingObserver struct {
	got chan *tappapi.FingerprintResponse
}

func (o *recordingObserver) DidReceiveFingerprint(resp *tappapi.FingerprintResponse) {
	o.got <- resp
}

// fakeService is a host-provided affiliate service.
type fakeService struct {
	mu          sync.Mutex
	initialized bool
	initCalls   int
	initErr     error
	branded     *url.URL
	events      []string
}

func (s *fakeService) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

func (s *fakeService) Initialize(ctx context.Context, env config.Environment, brandedURL *url.URL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initCalls++
	s.branded = brandedURL
	if s.initErr != nil {
		return s.initErr
	}
	s.initialized = true
	return nil
}

func (s *fakeService) HandleEvent(eventID, authToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventID+":"+authToken)
}

// brokenStore fails every operation with err.
type brokenStore struct {
	err error
}

func (s brokenStore) Load() (*config.Configuration, error) { return nil, s.err }
func (s brokenStore) Save(*config.Configuration) error     { return s.err }
func (s brokenStore) Clear() error                         { return s.err }

func baseConfig(env config.Environment) *config.Configuration {
	return config.New("auth-token", "tapp-token", "com.example.app", env, config.AffiliateTapp)
}

func newTestEngine(t *testing.T, store config.Store, backend Backend, mutate func(*Options)) *Engine {
	t.Helper()
	opts := Options{Store: store, Backend: backend}
	if mutate != nil {
		mutate(&opts)
	}
	e := New(opts)
	t.Cleanup(func() { e.Close() })
	return e
}

func ready(t *testing.T, e *Engine) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Ready(ctx)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
