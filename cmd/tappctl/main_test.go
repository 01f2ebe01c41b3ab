package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tapp "github.com/tapp-so/tapp-go"
	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/sandbox"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

func execute(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(in), &out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type env struct {
	srv   *sandbox.Server
	base  string
	store string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	srv := sandbox.New(&sandbox.Config{AuthToken: "auth-token", Secret: "sandbox-secret"})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &env{
		srv:   srv,
		base:  ts.URL + sandbox.APIPath,
		store: filepath.Join(t.TempDir(), "config.yaml"),
	}
}

// args prefixes the store and API flags.
func (e *env) args(args ...string) []string {
	return append([]string{"--store-path", e.store, "--base-url", e.base}, args...)
}

func (e *env) start(t *testing.T, extra ...string) startResult {
	t.Helper()
	out, err := execute(t, "", e.args(append([]string{
		"start", "--format", "json",
		"--auth-token", "auth-token",
		"--tapp-token", "tapp-token",
		"--bundle-id", "com.example.app",
		"--wait", "5s",
	}, extra...)...)...)
	require.NoError(t, err, out)

	var result startResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return result
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "tappctl "), out)
	assert.Contains(t, out, "commit:")
}

func TestStart_VerifiesDevice(t *testing.T) {
	e := newEnv(t)

	result := e.start(t)
	assert.Equal(t, "sandbox", result.Environment)
	assert.NotEmpty(t, result.DeviceID)
	assert.True(t, result.Verified)
	assert.Nil(t, result.Link)
	assert.Equal(t, 1, e.srv.State().Requests(tappapi.PathSecrets))

	store, err := config.NewFileStore(e.store)
	require.NoError(t, err)
	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "sandbox-secret", cfg.AppToken)
	assert.True(t, cfg.HasProcessedReferralEngine)
}

func TestStart_DeferredLink(t *testing.T) {
	e := newEnv(t)
	link := e.srv.CreateLink("alice", "spring", "", map[string]string{"campaign": "launch"})
	e.srv.State().ArmDeferred(link)

	result := e.start(t)
	require.NotNil(t, result.Link)
	assert.Equal(t, "alice", result.Link.Influencer)
	assert.Equal(t, link.TappURL, result.Link.TappURL)

	out, err := execute(t, "", e.args("origin", "--format", "json")...)
	require.NoError(t, err, out)
	var origin tapp.LinkData
	require.NoError(t, json.Unmarshal([]byte(out), &origin))
	assert.Equal(t, link.TappURL, origin.TappURL)
	assert.Equal(t, tapp.Data{"campaign": "launch"}, origin.Data)
}

func TestStart_Styled(t *testing.T) {
	e := newEnv(t)

	out, err := execute(t, "", e.args(
		"start",
		"--auth-token", "auth-token",
		"--tapp-token", "tapp-token",
		"--bundle-id", "com.example.app",
		"--wait", "0",
	)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Start complete")
	assert.Contains(t, out, "Fetch app secrets")
	assert.Contains(t, out, "sand****")
}

func TestStart_RequiresCredentials(t *testing.T) {
	e := newEnv(t)

	_, err := execute(t, "", e.args("start", "--format", "json", "--auth-token", "auth-token")...)
	assert.ErrorIs(t, err, tapp.ErrInvalidData)
}

func TestStart_RejectsUnknownEnvironment(t *testing.T) {
	e := newEnv(t)

	_, err := execute(t, "", e.args("start", "--env", "staging")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown environment")
}

func TestStart_EnvironmentFallbacks(t *testing.T) {
	e := newEnv(t)
	t.Setenv("TAPP_AUTH_TOKEN", "auth-token")
	t.Setenv("TAPP_TOKEN", "tapp-token")
	t.Setenv("TAPP_BUNDLE_ID", "com.example.app")
	t.Setenv("TAPP_BASE_URL", e.base)
	t.Setenv("TAPP_STORE_PATH", e.store)

	out, err := execute(t, "", "start", "--format", "json", "--wait", "0")
	require.NoError(t, err, out)

	store, err := config.NewFileStore(e.store)
	require.NoError(t, err)
	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", cfg.BundleID)
	assert.Equal(t, "tapp-token", cfg.TappToken)
}

func TestGenerateResolveAndReport(t *testing.T) {
	e := newEnv(t)
	e.start(t)

	out, err := execute(t, "", e.args("url", "--format", "json", "--influencer", "bob", "--adgroup", "spring", "--data", "k=v")...)
	require.NoError(t, err, out)
	var generated map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &generated))
	require.NotEmpty(t, generated["url"])

	out, err = execute(t, "", e.args("link", "--format", "json", generated["url"])...)
	require.NoError(t, err, out)
	var data tapp.LinkData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "bob", data.Influencer)
	assert.Equal(t, tapp.Data{"k": "v"}, data.Data)
	assert.Contains(t, data.AttributedTappURL, "adgroup=spring")
	assert.Equal(t, 1, e.srv.State().Requests(tappapi.PathLinkData))

	out, err = execute(t, "", e.args("event", "--format", "json", "Purchase")...)
	require.NoError(t, err, out)
	var ev eventResult
	require.NoError(t, json.Unmarshal([]byte(out), &ev))
	assert.Equal(t, tapp.EventPurchase.Name(), ev.Event)
	assert.False(t, ev.Custom)

	events := e.srv.State().Events()
	require.Len(t, events, 1)
	assert.Equal(t, generated["url"], events[0].URL)
}

func TestLink_Deferred(t *testing.T) {
	e := newEnv(t)
	e.start(t)
	link := e.srv.CreateLink("carol", "", "", map[string]string{"k": "v"})

	out, err := execute(t, "", e.args("link", "--deferred", "--format", "json", link.TappURL)...)
	require.NoError(t, err, out)
	var data tapp.LinkData
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, "carol", data.Influencer)
	assert.Contains(t, e.srv.State().Impressions(), link.TappURL)
}

func TestLink_Errors(t *testing.T) {
	e := newEnv(t)

	_, err := execute(t, "", e.args("link", "not a url")...)
	assert.ErrorContains(t, err, "invalid link")

	_, err = execute(t, "", e.args("link", "--format", "json", "https://tapp.so/alice?adj_t=abc")...)
	assert.ErrorIs(t, err, tapp.ErrMissingConfiguration)

	e.start(t)
	_, err = execute(t, "", e.args("link", "--format", "json", "https://example.com/alice?adj_t=abc")...)
	assert.ErrorIs(t, err, tapp.ErrUnprocessable)
}

func TestOrigin_NotFound(t *testing.T) {
	e := newEnv(t)
	e.start(t)

	_, err := execute(t, "", e.args("origin", "--format", "json")...)
	assert.ErrorIs(t, err, tapp.ErrNotFound)
}

func TestEvent_WithoutConfiguration(t *testing.T) {
	e := newEnv(t)

	_, err := execute(t, "", e.args("event", "purchase")...)
	assert.ErrorIs(t, err, tapp.ErrMissingConfiguration)
	assert.Empty(t, e.srv.State().Events())
}

func TestConfigShowRedacts(t *testing.T) {
	e := newEnv(t)
	e.start(t)

	out, err := execute(t, "", e.args("config", "show", "--format", "json")...)
	require.NoError(t, err, out)
	var cfg config.Configuration
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "auth****", cfg.AuthToken)
	assert.Equal(t, "sand****", cfg.AppToken)
	assert.Equal(t, "com.example.app", cfg.BundleID)
	assert.NotContains(t, out, "sandbox-secret")
}

func TestConfigPath(t *testing.T) {
	e := newEnv(t)

	out, err := execute(t, "", e.args("config", "path")...)
	require.NoError(t, err)
	assert.Equal(t, e.store, strings.TrimSpace(out))

	dbPath := filepath.Join(t.TempDir(), "tapp.db")
	out, err = execute(t, "", "--store", "sqlite", "--store-path", dbPath, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, dbPath, strings.TrimSpace(out))
}

func TestConfigReset(t *testing.T) {
	e := newEnv(t)
	e.start(t)

	_, err := execute(t, "no\n", e.args("config", "reset")...)
	assert.ErrorIs(t, err, errResetCancelled)
	_, err = execute(t, "", e.args("config", "show", "--format", "json")...)
	require.NoError(t, err)

	out, err := execute(t, "yes\n", e.args("config", "reset")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Configuration reset")

	_, err = execute(t, "", e.args("config", "show", "--format", "json")...)
	assert.ErrorIs(t, err, config.ErrNoConfiguration)
}

func TestSQLiteStore(t *testing.T) {
	e := newEnv(t)
	dbPath := filepath.Join(t.TempDir(), "tapp.db")

	out, err := execute(t, "", "--store", "sqlite", "--store-path", dbPath, "--base-url", e.base,
		"start", "--format", "json", "--wait", "0",
		"--auth-token", "auth-token", "--tapp-token", "tapp-token", "--bundle-id", "com.example.app")
	require.NoError(t, err, out)

	out, err = execute(t, "", "--store", "sqlite", "--store-path", dbPath, "config", "show", "--format", "json")
	require.NoError(t, err, out)
	assert.Contains(t, out, "com.example.app")
}

func TestGlobalFlagValidation(t *testing.T) {
	_, err := execute(t, "", "--format", "xml", "version")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "", "--store", "redis", "config", "path")
	assert.ErrorContains(t, err, "unknown store")
}

func TestSandboxServe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out)
	cmd.SetArgs([]string{"sandbox", "serve", "--host", "127.0.0.1", "--port", "0", "--format", "json", "--arm", "alice", "--secret", "s3cret"})
	require.NoError(t, cmd.ExecuteContext(ctx))

	var params map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &params), out.String())
	assert.Contains(t, params["API"], "http://127.0.0.1:")
	assert.Equal(t, "s3cret", params["Secret"])
	assert.Contains(t, params["Armed link"], "https://"+sandbox.DefaultLinkHost+"/alice?")
}
