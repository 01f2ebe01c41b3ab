// Package tappapi is the HTTP client for the tapp attribution API.
//
// Every operation is a JSON POST to a path under the client's base URL:
//
//	secrets          exchange the tapp token for the app secret
//	device           look up the device record
//	fingerprint      submit a fingerprint payload
//	deeplink         report a deep link impression
//	event            report an in-app event
//	influencer/add   generate an affiliate URL
//	linkData         resolve a link token
//
// Requests carry the auth token as a bearer token, the app secret (once
// known) in X-App-Token and a fresh X-Request-ID. Each call takes a
// context.Context, which is the only way to cancel it.
//
// # Errors
//
// Transport failures are classified into *APIError values (timeout,
// connection refused, DNS, generic network). Non-2xx responses become
// ErrTypeHTTP or ErrTypeAuth, undecodable bodies ErrTypeDecoding. Requests
// built without a tapp token or bundle id fail with ErrInvalidData before
// anything is sent.
//
// Response data maps drop null values:
//
//	{"data": {"param1": "a", "param2": null}}  ->  Data{"param1": "a"}
package tappapi
