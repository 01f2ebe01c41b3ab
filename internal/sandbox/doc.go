// Package sandbox implements a local, in-memory attribution service.
//
// It answers every endpoint the client uses so the whole flow runs without
// the hosted backend:
//
//	secrets -> device -> fingerprint page -> fingerprint -> impression
//	influencer/add -> linkData
//
// The fingerprint page is a WebSocket endpoint that reports a single
// deviceInfo message, standing in for the vendor's fingerprinting page.
// A deferred link armed with State.ArmDeferred is returned by the next
// fingerprint submission.
//
// # Usage Example
//
//	srv := sandbox.New(&sandbox.Config{Port: 8080, Advertise: true})
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// With Advertise set the sandbox registers "_tapp-sandbox._tcp" over mDNS
// so "tappctl sandbox discover" can find it.
package sandbox
