package tappapi

import (
	"bytes"
	"net/url"
)

// API paths, relative to the client's base URL.
const (
	PathSecrets     = "secrets"
	PathDevice      = "device"
	PathFingerprint = "fingerprint"
	PathImpression  = "deeplink"
	PathEvent       = "event"
	PathGenerateURL = "influencer/add"
	PathLinkData    = "linkData"
)

// Data is an opaque string map. Null values in a response are dropped on
// decode, and a null or missing map decodes to nil.
type Data map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (d *Data) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = nil
		return nil
	}
	var raw map[string]*string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Data, len(raw))
	for k, v := range raw {
		if v != nil {
			out[k] = *v
		}
	}
	*d = out
	return nil
}

// Identity is the part of every request that names the install.
type Identity struct {
	TappToken string `json:"tapp_token"`
	BundleID  string `json:"bundle_id"`
}

func (i Identity) valid() bool {
	return i.TappToken != "" && i.BundleID != ""
}

// SecretsRequest exchanges the tapp token for an app secret.
type SecretsRequest struct {
	Identity
	MMP int `json:"mmp"`
}

// SecretsResponse carries the app secret and, optionally, the branded URL
// that hosts the fingerprint surface.
type SecretsResponse struct {
	Secret     string `json:"secret"`
	BrandedURL string `json:"branded_url,omitempty"`
}

// Branded parses BrandedURL. It returns nil when absent or malformed.
func (r *SecretsResponse) Branded() *url.URL {
	return parseURL(r.BrandedURL)
}

// DeviceRequest looks up the device record of the install.
type DeviceRequest struct {
	Identity
	MMP      int    `json:"mmp"`
	DeviceID string `json:"device_id,omitempty"`
}

// Device is the backend's view of this device.
type Device struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// DeviceResponse is the result of a device lookup.
type DeviceResponse struct {
	Error   bool    `json:"error"`
	Device  Device  `json:"device_id"`
	Message *string `json:"message,omitempty"`
}

// FingerprintRequest is the payload submitted after the fingerprint surface
// reports. WebView holds the opaque body emitted by the surface.
type FingerprintRequest struct {
	TappToken         string  `json:"tapp_token"`
	WebView           *string `json:"webview"`
	ScreenResolution  string  `json:"screenResolution"`
	DeviceName        string  `json:"deviceName"`
	Language          string  `json:"language"`
	Region            string  `json:"region"`
	Locale            string  `json:"locale"`
	Calendar          string  `json:"calendar"`
	NumberingSystem   string  `json:"numberingSystem,omitempty"`
	DefaultDateFormat string  `json:"defaultDateFormat"`
	Timezone          string  `json:"timezone"`
	Platform          string  `json:"platform"`
	UserAgent         string  `json:"userAgent"`
	Timestamp         int64   `json:"timestamp"`
	BundleID          string  `json:"bundle_id,omitempty"`
	DeviceID          string  `json:"device_id,omitempty"`
}

// FingerprintResponse is the backend's match result for a fingerprint.
type FingerprintResponse struct {
	Deeplink          string  `json:"deeplink,omitempty"`
	TappURL           string  `json:"tapp_url,omitempty"`
	AttributedTappURL string  `json:"attr_tapp_url,omitempty"`
	Influencer        string  `json:"influencer,omitempty"`
	Data              Data    `json:"data,omitempty"`
	Device            *Device `json:"device_id,omitempty"`
	Error             *bool   `json:"error,omitempty"`
	Message           *string `json:"message,omitempty"`
}

// IsAlreadyVerified is true only for an explicit non-error status without
// a message. A missing status, an error or any message yields false.
func (r *FingerprintResponse) IsAlreadyVerified() bool {
	return r.Error != nil && !*r.Error && r.Message == nil
}

// ImpressionRequest reports that a deep link was seen.
type ImpressionRequest struct {
	Identity
	Deeplink string `json:"deeplink"`
}

// EventRequest reports an in-app event.
type EventRequest struct {
	Identity
	EventName string `json:"event_name"`
	EventURL  string `json:"event_url,omitempty"`
}

// GenerateURLRequest asks for a new affiliate URL.
type GenerateURLRequest struct {
	Identity
	MMP        int    `json:"mmp"`
	Influencer string `json:"influencer"`
	AdGroup    string `json:"adgroup,omitempty"`
	Creative   string `json:"creative,omitempty"`
	Data       Data   `json:"data,omitempty"`
}

// GeneratedURLResponse carries the generated affiliate URL.
type GeneratedURLResponse struct {
	URL string `json:"influencer_url"`
}

// LinkDataRequest resolves a link token.
type LinkDataRequest struct {
	Identity
	LinkToken string `json:"link_token"`
}

// LinkDataResponse is the resolved data behind a link token.
type LinkDataResponse struct {
	TappURL           string `json:"tapp_url"`
	AttributedTappURL string `json:"attr_tapp_url"`
	Influencer        string `json:"influencer"`
	Data              Data   `json:"data"`
}

func parseURL(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	return u
}
