// Package fingerprint drives the vendor-hosted fingerprinting page and
// builds the payload submitted with its result.
//
// A Surface is a one-shot event source: Load starts it, Messages yields at
// most one Message and is then closed. The engine consumes that channel from
// a single goroutine, so nothing here depends on a rendering engine.
//
// WebSocketSurface is the shipped implementation. It connects to the
// branded URL over a WebSocket and waits for a message of the form
//
//	{"name": "deviceInfo", "body": "<opaque fingerprint>"}
//
// Collect combines that body with local signals (locale from LC_ALL,
// LC_MESSAGES or LANG, time zone, platform) into a tappapi.FingerprintRequest.
package fingerprint
