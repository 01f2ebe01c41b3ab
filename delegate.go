package tapp

import (
	"net/url"

	"github.com/tapp-so/tapp-go/internal/config"
	"github.com/tapp-so/tapp-go/internal/tappapi"
)

// Delegate receives links resolved outside of a direct call.
type Delegate interface {
	// DidOpenApplication is called with a deferred or fingerprinted link.
	DidOpenApplication(data *LinkData)
	// DidFailResolvingURL is called when a deferred link cannot be resolved.
	DidFailResolvingURL(u *url.URL, err error)
}

// SetDelegate replaces the delegate. nil removes it.
func (c *Client) SetDelegate(d Delegate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delegate = d
}

// HasDelegate reports whether a delegate is set.
func (c *Client) HasDelegate() bool {
	return c.currentDelegate() != nil
}

func (c *Client) currentDelegate() Delegate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delegate
}

// fingerprintRelay turns fingerprint answers into delegate calls.
type fingerprintRelay struct {
	c *Client
}

func (r fingerprintRelay) DidReceiveFingerprint(resp *tappapi.FingerprintResponse) {
	d := r.c.currentDelegate()
	if d == nil {
		return
	}
	if resp.Deeplink == "" || resp.TappURL == "" || resp.AttributedTappURL == "" || resp.Influencer == "" {
		return
	}
	d.DidOpenApplication(&LinkData{
		TappURL:           resp.TappURL,
		AttributedTappURL: resp.AttributedTappURL,
		Influencer:        resp.Influencer,
		Data:              config.Data(resp.Data).Clone(),
		IsFirstSession:    r.c.resolver.IsFirstSession(),
	})
}
