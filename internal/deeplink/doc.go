// Package deeplink resolves links on the tapp domain into link data.
//
// Resolution waits for the install to be ready, then answers from the
// cached origin link when one is complete. Otherwise the link token is read
// from the URL and looked up remotely, and the answer becomes the new origin
// link.
package deeplink
