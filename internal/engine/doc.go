// Package engine runs the install bootstrap: the secret exchange followed by
// affiliate service initialization.
//
// Callers ask for readiness with EnsureReady. At most one bootstrap runs at a
// time; callers that arrive while it is in flight wait for the same result.
// Completions are delivered in call order on a dedicated goroutine.
//
// The tapp affiliate is served by TappService, which verifies the device and
// may drive a fingerprint surface. Other affiliates need a host-provided
// AffiliateService.
package engine
