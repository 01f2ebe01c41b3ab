package deeplink

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/engine"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

// apiRecorder serves canned bodies per path and counts requests.
type apiRecorder struct {
	mu     sync.Mutex
	hits   map[string]int
	bodies map[string][]string
	replay map[string]string
}

func (a *apiRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	a.hits[path]++
	a.bodies[path] = append(a.bodies[path], string(body))
	reply, ok := a.replay[path]
	a.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Write([]byte(reply))
}

func (a *apiRecorder) count(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path]
}

func (a *apiRecorder) body(path string, i int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bodies[path][i]
}

func (a *apiRecorder) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.hits {
		n += c
	}
	return n
}

const linkReply = `{"tapp_url":"https://tapp.so/x","attr_tapp_url":"https://tapp.so/x?a=1","influencer":"alice","data":{"param1":"one","param2":"two","param3":null,"param4":null}}`

// readyConfig needs no network to bootstrap.
func readyConfig() *config.Configuration {
	cfg := config.New("auth-token", "tapp-token", "com.example.app", config.Production, config.AffiliateTapp)
	cfg.AppToken = "app-token"
	cfg.DeviceID = "device-1"
	cfg.IsAlreadyVerified = true
	return cfg
}

func newTestResolver(t *testing.T, store config.Store, replay map[string]string, opts Options) (*Resolver, *apiRecorder) {
	t.Helper()
	rec := &apiRecorder{hits: map[string]int{}, bodies: map[string][]string{}, replay: replay}
	server := httptest.NewServer(rec)
	t.Cleanup(server.Close)

	client := tappapi.NewClient(server.URL, func() tappapi.Credentials {
		return tappapi.Credentials{AuthToken: "auth-token", AppToken: "app-token"}
	})
	e := engine.New(engine.Options{Store: store, Backend: client})
	t.Cleanup(func() { e.Close() })
	return NewResolver(e, opts), rec
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func resolve(t *testing.T, r *Resolver, raw string) (*LinkData, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.ResolveContext(ctx, mustParse(t, raw))
}

func TestShouldProcess(t *testing.T) {
	r, _ := newTestResolver(t, config.NewMemoryStore(nil), nil, Options{})

	tests := []struct {
		raw  string
		want bool
	}{
		{"https://tapp.so/x", true},
		{"https://links.tapp.so/x?adj_t=abc", true},
		{"https://TAPP.SO/x", true},
		{"https://google.com/x", false},
		{"https://tapp.so.evil.com/x", false},
		{"https://notapp.so/x", false},
		{"myapp://open", false},
	}
	for _, tt := range tests {
		if got := r.ShouldProcess(mustParse(t, tt.raw)); got != tt.want {
			t.Errorf("ShouldProcess(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}
	if r.ShouldProcess(nil) {
		t.Error("ShouldProcess(nil) = true, want false")
	}
}

func TestShouldProcess_CustomDomain(t *testing.T) {
	r, _ := newTestResolver(t, config.NewMemoryStore(nil), nil, Options{Domain: "example.org"})

	assert.True(t, r.ShouldProcess(mustParse(t, "https://go.example.org/x")))
	assert.False(t, r.ShouldProcess(mustParse(t, "https://tapp.so/x")))
}

func TestResolve_RemoteLookup(t *testing.T) {
	store := config.NewMemoryStore(readyConfig())
	r, rec := newTestResolver(t, store, map[string]string{tappapi.PathLinkData: linkReply}, Options{})

	data, err := resolve(t, r, "https://tapp.so/x?adj_t=token-1")
	require.NoError(t, err)

	assert.Equal(t, "https://tapp.so/x", data.TappURL)
	assert.Equal(t, "alice", data.Influencer)
	assert.Equal(t, config.Data{"param1": "one", "param2": "two"}, data.Data, "null values are dropped")
	assert.False(t, data.IsFirstSession, "a configuration already existed")
	assert.Equal(t, 1, rec.count(tappapi.PathLinkData))
	assert.Contains(t, rec.body(tappapi.PathLinkData, 0), `"link_token":"token-1"`)

	stored, _ := store.Load()
	origin, ok := stored.Origin()
	require.True(t, ok, "lookup caches the whole origin group")
	assert.Equal(t, "https://tapp.so/x?a=1", origin.AttributedURL)
}

func TestResolve_CachedOriginShortCircuits(t *testing.T) {
	cfg := readyConfig()
	cfg.SetOrigin(config.OriginLink{URL: "https://tapp.so/cached", AttributedURL: "https://tapp.so/cached?a=1", Influencer: "bob", Data: config.Data{}})
	r, rec := newTestResolver(t, config.NewMemoryStore(cfg), map[string]string{tappapi.PathLinkData: linkReply}, Options{})

	data, err := resolve(t, r, "https://tapp.so/other?adj_t=token-2")
	require.NoError(t, err)

	assert.Equal(t, "https://tapp.so/cached", data.TappURL)
	assert.Zero(t, rec.total())
}

func TestResolve_MissingToken(t *testing.T) {
	r, rec := newTestResolver(t, config.NewMemoryStore(readyConfig()), nil, Options{})

	_, err := resolve(t, r, "https://tapp.so/x?other=1")

	assert.ErrorIs(t, err, tappapi.ErrInvalidURL)
	assert.Zero(t, rec.total())
}

func TestResolve_CustomTokenParam(t *testing.T) {
	r, rec := newTestResolver(t, config.NewMemoryStore(readyConfig()), map[string]string{tappapi.PathLinkData: linkReply}, Options{TokenParam: "t"})

	_, err := resolve(t, r, "https://tapp.so/x?t=abc")

	require.NoError(t, err)
	assert.Equal(t, 1, rec.count(tappapi.PathLinkData))
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply map[string]string
		check func(t *testing.T, err error)
	}{
		{
			name:  "malformed body",
			reply: map[string]string{tappapi.PathLinkData: `{"tapp_url":`},
			check: func(t *testing.T, err error) { assert.True(t, tappapi.IsDecodingError(err), "got %v", err) },
		},
		{
			name:  "incomplete body",
			reply: map[string]string{tappapi.PathLinkData: `{"tapp_url":"https://tapp.so/x"}`},
			check: func(t *testing.T, err error) { assert.True(t, tappapi.IsDecodingError(err), "got %v", err) },
		},
		{
			name:  "http failure",
			reply: map[string]string{},
			check: func(t *testing.T, err error) { assert.Equal(t, http.StatusNotFound, tappapi.StatusCode(err)) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := config.NewMemoryStore(readyConfig())
			r, _ := newTestResolver(t, store, tt.reply, Options{})

			_, err := resolve(t, r, "https://tapp.so/x?adj_t=abc")

			require.Error(t, err)
			tt.check(t, err)
			stored, _ := store.Load()
			assert.False(t, stored.HasOriginLink())
		})
	}
}

func TestResolve_MissingConfiguration(t *testing.T) {
	r, rec := newTestResolver(t, config.NewMemoryStore(nil), nil, Options{})

	_, err := resolve(t, r, "https://tapp.so/x?adj_t=abc")

	assert.ErrorIs(t, err, engine.ErrMissingConfiguration)
	assert.Zero(t, rec.total())
}

func TestResolve_FirstSessionFlipsAfterSuccess(t *testing.T) {
	store := config.NewMemoryStore(nil)
	r, _ := newTestResolver(t, store, map[string]string{tappapi.PathLinkData: linkReply}, Options{})
	require.True(t, r.IsFirstSession())

	require.NoError(t, store.Save(readyConfig()))
	data, err := resolve(t, r, "https://tapp.so/x?adj_t=abc")
	require.NoError(t, err)
	assert.True(t, data.IsFirstSession)
	assert.False(t, r.IsFirstSession())

	again, err := resolve(t, r, "https://tapp.so/x?adj_t=abc")
	require.NoError(t, err)
	assert.False(t, again.IsFirstSession)
}

func TestResolve_FirstSessionFlipsOnCachedOrigin(t *testing.T) {
	store := config.NewMemoryStore(nil)
	r, rec := newTestResolver(t, store, nil, Options{})

	cfg := readyConfig()
	cfg.SetOrigin(config.OriginLink{URL: "https://tapp.so/cached", AttributedURL: "https://tapp.so/cached?a=1", Influencer: "bob", Data: config.Data{}})
	require.NoError(t, store.Save(cfg))

	data, err := resolve(t, r, "https://tapp.so/x?adj_t=abc")
	require.NoError(t, err)
	assert.True(t, data.IsFirstSession)
	assert.False(t, r.IsFirstSession())

	again, err := resolve(t, r, "https://tapp.so/x?adj_t=abc")
	require.NoError(t, err)
	assert.False(t, again.IsFirstSession)
	assert.Zero(t, rec.total())
}

func TestOriginLinkData(t *testing.T) {
	full := config.OriginLink{URL: "https://tapp.so/x", AttributedURL: "https://tapp.so/x?a=1", Influencer: "alice", Data: config.Data{"k": "v"}}

	tests := []struct {
		name    string
		mutate  func(c *config.Configuration)
		wantErr error
	}{
		{name: "complete", mutate: func(c *config.Configuration) { c.SetOrigin(full) }},
		{
			name: "missing attributed url",
			mutate: func(c *config.Configuration) {
				c.SetOrigin(full)
				c.OriginAttributedURL = ""
			},
			wantErr: tappapi.ErrNotFound,
		},
		{
			name: "missing data",
			mutate: func(c *config.Configuration) {
				c.SetOrigin(full)
				c.OriginData = nil
			},
			wantErr: tappapi.ErrNotFound,
		},
		{name: "nothing cached", mutate: func(c *config.Configuration) {}, wantErr: tappapi.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := readyConfig()
			tt.mutate(cfg)
			r, rec := newTestResolver(t, config.NewMemoryStore(cfg), nil, Options{})

			data, err := r.OriginLinkData()

			assert.Zero(t, rec.total())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", data.Influencer)
			assert.Equal(t, config.Data{"k": "v"}, data.Data)
		})
	}
}

type recordingSink struct {
	opened chan *LinkData
	failed chan error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{opened: make(chan *LinkData, 1), failed: make(chan error, 1)}
}

func (s *recordingSink) DidOpenApplication(data *LinkData) { s.opened <- data }

func (s *recordingSink) DidFailResolvingURL(_ *url.URL, err error) { s.failed <- err }

func TestHandleDeferredLink(t *testing.T) {
	store := config.NewMemoryStore(readyConfig())
	r, rec := newTestResolver(t, store, map[string]string{
		tappapi.PathLinkData:   linkReply,
		tappapi.PathImpression: `{}`,
	}, Options{})
	sink := newRecordingSink()

	r.HandleDeferredLink(mustParse(t, "https://tapp.so/x?adj_t=abc"), sink)

	select {
	case data := <-sink.opened:
		assert.Equal(t, "alice", data.Influencer)
	case err := <-sink.failed:
		t.Fatalf("DidFailResolvingURL(%v)", err)
	case <-time.After(5 * time.Second):
		t.Fatal("sink not notified")
	}
	assert.Equal(t, 1, rec.count(tappapi.PathImpression))
	stored, _ := store.Load()
	assert.True(t, stored.HasOriginLink())
}

func TestHandleDeferredLink_Failure(t *testing.T) {
	r, _ := newTestResolver(t, config.NewMemoryStore(readyConfig()), map[string]string{tappapi.PathImpression: `{}`}, Options{})
	sink := newRecordingSink()

	r.HandleDeferredLink(mustParse(t, "https://tapp.so/x"), sink)

	select {
	case err := <-sink.failed:
		assert.True(t, errors.Is(err, tappapi.ErrInvalidURL))
	case <-time.After(5 * time.Second):
		t.Fatal("sink not notified")
	}
}

func TestHandleDeferredLink_NoSinkOnlyReportsImpression(t *testing.T) {
	r, rec := newTestResolver(t, config.NewMemoryStore(readyConfig()), map[string]string{tappapi.PathImpression: `{}`}, Options{})

	r.HandleDeferredLink(mustParse(t, "https://tapp.so/x?adj_t=abc"), nil)

	deadline := time.Now().Add(5 * time.Second)
	for rec.count(tappapi.PathImpression) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, rec.count(tappapi.PathImpression))
	assert.Zero(t, rec.count(tappapi.PathLinkData))
}
