package tapp

import (
	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/deeplink"
	"github.com/tapp-so/tapp-go/internal/engine"
	"github.com/tapp-so/tapp-go/internal/fingerprint"
)

// Environment selects the attribution backend.
type Environment = config.Environment

const (
	Sandbox    = config.Sandbox
	Production = config.Production
)

// Affiliate selects the attribution platform.
type Affiliate = config.Affiliate

const (
	AffiliateAdjust    = config.AffiliateAdjust
	AffiliateAppsflyer = config.AffiliateAppsflyer
	AffiliateTapp      = config.AffiliateTapp
)

// Data is an opaque string map attached to links.
type Data = config.Data

// Store persists the configuration record.
type Store = config.Store

// LinkData is a resolved link.
type LinkData = deeplink.LinkData

// AffiliateService serves an affiliate other than tapp.
type AffiliateService = engine.AffiliateService

// Surface, SurfaceProvider and SurfaceMessage let hosts supply their own
// fingerprint surface.
type (
	Surface             = fingerprint.Surface
	SurfaceProvider     = fingerprint.Provider
	SurfaceProviderFunc = fingerprint.ProviderFunc
	SurfaceMessage      = fingerprint.Message
)

// Config identifies the install to the attribution service.
type Config struct {
	AuthToken   string
	TappToken   string
	BundleID    string
	Environment Environment
	Affiliate   Affiliate
}

func (c Config) record() *config.Configuration {
	affiliate := c.Affiliate
	if affiliate == "" {
		affiliate = AffiliateTapp
	}
	env := c.Environment
	if env == "" {
		env = Sandbox
	}
	return config.New(c.AuthToken, c.TappToken, c.BundleID, env, affiliate)
}

// URLConfig describes an affiliate URL to generate.
type URLConfig struct {
	Influencer string
	AdGroup    string
	Creative   string
	Data       Data
}

// GeneratedURL is an affiliate URL created by the service.
type GeneratedURL struct {
	URL string
}
