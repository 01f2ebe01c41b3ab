package fingerprint

import (
	"context"
	"errors"
	"net/url"
)

// MessageName is the name of the message carrying the fingerprint body.
const MessageName = "deviceInfo"

// ErrAlreadyLoaded is returned when Load is called on a surface twice.
var ErrAlreadyLoaded = errors.New("fingerprint surface already loaded")

// Message is what a surface emits once it has fingerprinted the device.
type Message struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

// Surface runs a vendor-hosted fingerprinting page.
//
// Load starts loading and returns without waiting for the result. Messages
// delivers at most one message and is then closed, whether or not the page
// ever reported. Close aborts a pending load.
type Surface interface {
	Load(ctx context.Context) error
	Messages() <-chan Message
	Close() error
}

// Provider creates a surface for a branded URL.
type Provider interface {
	Make(brandedURL *url.URL) Surface
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(brandedURL *url.URL) Surface

// Make calls f.
func (f ProviderFunc) Make(brandedURL *url.URL) Surface {
	return f(brandedURL)
}
