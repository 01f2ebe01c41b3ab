// Package tapp is a client for the tapp attribution service.
//
// A Client bootstraps the install (secret exchange, device verification and
// fingerprinting), resolves tapp links into link data, reports events and
// generates affiliate URLs.
//
//	client := tapp.New(tapp.WithStore(store))
//	defer client.Close()
//
//	err := client.Start(tapp.Config{
//		AuthToken:   authToken,
//		TappToken:   tappToken,
//		BundleID:    "com.example.app",
//		Environment: tapp.Production,
//	}, delegate)
//
//	if client.ShouldProcess(u) {
//		data, err := client.FetchLinkData(ctx, u)
//		...
//	}
//
// Bootstrap runs at most once at a time; concurrent callers share its
// outcome. The configuration record persists through a Store: in memory by
// default, or in a YAML file or SQLite database.
package tapp
