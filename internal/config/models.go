package config

import (
	"fmt"
	"strings"
)

// CurrentVersion is the schema version written with every saved record.
const CurrentVersion = 1

// Environment selects the attribution backend an install talks to.
type Environment string

const (
	// Sandbox always re-checks the device with the backend.
	Sandbox Environment = "sandbox"
	// Production trusts a cached device identifier.
	Production Environment = "production"
)

// ParseEnvironment maps a user-supplied name to an Environment.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case Sandbox:
		return Sandbox, nil
	case Production:
		return Production, nil
	default:
		return "", fmt.Errorf("unknown environment %q (expected sandbox or production)", s)
	}
}

// Affiliate identifies the attribution platform an install reports through.
type Affiliate string

const (
	AffiliateAdjust    Affiliate = "adjust"
	AffiliateAppsflyer Affiliate = "appsflyer"
	AffiliateTapp      Affiliate = "tapp"
)

// Code returns the numeric identifier the API expects in the "mmp" field.
func (a Affiliate) Code() int {
	switch a {
	case AffiliateAdjust:
		return 1
	case AffiliateAppsflyer:
		return 2
	case AffiliateTapp:
		return 3
	default:
		return 0
	}
}

// ParseAffiliate maps a user-supplied name to an Affiliate.
func ParseAffiliate(s string) (Affiliate, error) {
	switch Affiliate(strings.ToLower(strings.TrimSpace(s))) {
	case AffiliateAdjust:
		return AffiliateAdjust, nil
	case AffiliateAppsflyer:
		return AffiliateAppsflyer, nil
	case AffiliateTapp:
		return AffiliateTapp, nil
	default:
		return "", fmt.Errorf("unknown affiliate %q", s)
	}
}

// Data is an opaque string map attached to links.
// A nil Data means "absent" and survives a YAML round trip as null.
type Data map[string]string

// MarshalYAML keeps nil and empty maps distinct on disk.
func (d Data) MarshalYAML() (interface{}, error) {
	if d == nil {
		return nil, nil
	}
	return map[string]string(d), nil
}

// Clone returns a copy of d, preserving nil.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Configuration is the single persisted record for an installation.
type Configuration struct {
	Version int `yaml:"version" json:"version"`

	// Identity
	AuthToken   string      `yaml:"auth_token" json:"auth_token"`
	TappToken   string      `yaml:"tapp_token" json:"tapp_token"`
	AppToken    string      `yaml:"app_token,omitempty" json:"app_token,omitempty"` // set by the secret exchange
	BundleID    string      `yaml:"bundle_id" json:"bundle_id"`
	Environment Environment `yaml:"environment" json:"environment"`
	Affiliate   Affiliate   `yaml:"affiliate" json:"affiliate"`

	// Verification state
	DeviceID          string `yaml:"device_id,omitempty" json:"device_id,omitempty"`
	IsAlreadyVerified bool   `yaml:"is_already_verified" json:"is_already_verified"`

	HasProcessedReferralEngine bool `yaml:"has_processed_referral_engine" json:"has_processed_referral_engine"`

	// Cached origin link. Only usable when all four fields are set.
	OriginURL           string `yaml:"origin_url,omitempty" json:"origin_url,omitempty"`
	OriginAttributedURL string `yaml:"origin_attributed_url,omitempty" json:"origin_attributed_url,omitempty"`
	OriginInfluencer    string `yaml:"origin_influencer,omitempty" json:"origin_influencer,omitempty"`
	OriginData          Data   `yaml:"origin_data" json:"origin_data"`
}

// New returns a configuration for a fresh install.
func New(authToken, tappToken, bundleID string, env Environment, affiliate Affiliate) *Configuration {
	return &Configuration{
		Version:     CurrentVersion,
		AuthToken:   authToken,
		TappToken:   tappToken,
		BundleID:    bundleID,
		Environment: env,
		Affiliate:   affiliate,
	}
}

// Clone returns a deep copy so callers can read-modify-write safely.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := *c
	out.OriginData = c.OriginData.Clone()
	return &out
}

// HasAppToken reports whether the secret exchange already happened.
func (c *Configuration) HasAppToken() bool {
	return c.AppToken != ""
}

// OriginLink is the cached origin link group.
type OriginLink struct {
	URL           string
	AttributedURL string
	Influencer    string
	Data          Data
}

// Origin returns the cached origin link if, and only if, the whole group is
// present. A partially populated group is reported as absent.
func (c *Configuration) Origin() (OriginLink, bool) {
	if c.OriginURL == "" || c.OriginAttributedURL == "" || c.OriginInfluencer == "" || c.OriginData == nil {
		return OriginLink{}, false
	}
	return OriginLink{
		URL:           c.OriginURL,
		AttributedURL: c.OriginAttributedURL,
		Influencer:    c.OriginInfluencer,
		Data:          c.OriginData.Clone(),
	}, true
}

// SetOrigin replaces the whole origin link group.
func (c *Configuration) SetOrigin(link OriginLink) {
	c.OriginURL = link.URL
	c.OriginAttributedURL = link.AttributedURL
	c.OriginInfluencer = link.Influencer
	c.OriginData = link.Data.Clone()
}

// HasOriginLink reports whether a fully populated origin link is cached.
func (c *Configuration) HasOriginLink() bool {
	_, ok := c.Origin()
	return ok
}

// SameCredentials reports whether c and other carry the same tokens.
func (c *Configuration) SameCredentials(other *Configuration) bool {
	return c.AuthToken == other.AuthToken && c.TappToken == other.TappToken
}

// MissingFields lists required identity fields that are empty.
func (c *Configuration) MissingFields() []string {
	var missing []string
	if c.AuthToken == "" {
		missing = append(missing, "auth_token")
	}
	if c.TappToken == "" {
		missing = append(missing, "tapp_token")
	}
	if c.BundleID == "" {
		missing = append(missing, "bundle_id")
	}
	return missing
}
