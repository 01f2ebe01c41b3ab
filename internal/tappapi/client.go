package tappapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/tapp-so/tapp-go/internal/logging"
	"github.com/tapp-so/tapp-go/internal/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 15 * time.Second

	// maxResponseSize caps how much of a response body is read
	maxResponseSize = 1 << 20
)

// Credentials authenticate requests. AppToken is empty until the secret
// exchange has happened.
type Credentials struct {
	AuthToken string
	AppToken  string
}

// CredentialsFunc supplies the current credentials for each request.
type CredentialsFunc func() Credentials

// Client performs authenticated exchanges with the attribution API
type Client struct {
	// BaseURL is the API root (e.g., "https://api.tapp.so/v1/")
	BaseURL string

	// BaseURLFunc, if set, is consulted per request instead of BaseURL
	BaseURLFunc func() string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Credentials is consulted on every request
	Credentials CredentialsFunc

	// UserAgent is sent with every request
	UserAgent string
}

// NewClient creates a client for the API at baseURL
func NewClient(baseURL string, creds CredentialsFunc) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if creds == nil {
		creds = func() Credentials { return Credentials{} }
	}
	return &Client{
		BaseURL:     baseURL,
		HTTPClient:  &http.Client{Timeout: DefaultTimeout},
		Credentials: creds,
		UserAgent:   version.UserAgent(),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Secrets exchanges the tapp token for the app secret
func (c *Client) Secrets(ctx context.Context, req SecretsRequest) (*SecretsResponse, error) {
	if !req.valid() {
		return nil, ErrInvalidData
	}
	var resp SecretsResponse
	if err := c.post(ctx, PathSecrets, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Device looks up the device record
func (c *Client) Device(ctx context.Context, req DeviceRequest) (*DeviceResponse, error) {
	if !req.valid() {
		return nil, ErrInvalidData
	}
	var resp DeviceResponse
	if err := c.post(ctx, PathDevice, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Fingerprint submits a fingerprint payload
func (c *Client) Fingerprint(ctx context.Context, req FingerprintRequest) (*FingerprintResponse, error) {
	if req.TappToken == "" {
		return nil, ErrInvalidData
	}
	var resp FingerprintResponse
	if err := c.post(ctx, PathFingerprint, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Impression reports that a deep link was seen
func (c *Client) Impression(ctx context.Context, req ImpressionRequest) error {
	if !req.valid() || req.Deeplink == "" {
		return ErrInvalidData
	}
	return c.post(ctx, PathImpression, req, nil)
}

// Event reports an in-app event
func (c *Client) Event(ctx context.Context, req EventRequest) error {
	if !req.valid() {
		return ErrInvalidData
	}
	return c.post(ctx, PathEvent, req, nil)
}

// GenerateURL creates an affiliate URL
func (c *Client) GenerateURL(ctx context.Context, req GenerateURLRequest) (*GeneratedURLResponse, error) {
	if !req.valid() {
		return nil, ErrInvalidData
	}
	var resp GeneratedURLResponse
	if err := c.post(ctx, PathGenerateURL, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LinkData resolves a link token into link data
func (c *Client) LinkData(ctx context.Context, req LinkDataRequest) (*LinkDataResponse, error) {
	if !req.valid() {
		return nil, ErrInvalidData
	}
	var resp LinkDataResponse
	if err := c.post(ctx, PathLinkData, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) baseURL() string {
	if c.BaseURLFunc == nil {
		return c.BaseURL
	}
	base := c.BaseURLFunc()
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// post sends body as JSON and decodes the response into out (if non-nil)
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return NewEncodingError(path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(payload))
	if err != nil {
		return NewEncodingError(path, err)
	}

	requestID := uuid.NewString()
	creds := c.Credentials()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if creds.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.AuthToken)
	}
	if creds.AppToken != "" {
		req.Header.Set("X-App-Token", creds.AppToken)
	}

	logging.LogRequest(http.MethodPost, path, requestID)
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewNetworkError(path, fmt.Sprintf("POST %s failed", path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	logging.LogResponse(path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return NewHTTPError(path, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return NewNetworkError(path, "failed to read response body", err)
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		logging.Debug("Undecodable response",
			zap.String("endpoint", path),
			zap.String("request_id", requestID),
			zap.Int("length", len(data)),
		)
		return NewDecodingError(path, err)
	}

	return nil
}
