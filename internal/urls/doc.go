// Package urls provides centralized constants for every URL the client talks
// to or prints: attribution API base URLs per environment, the link domain
// recognized by the resolver, and documentation links shown by tappctl.
package urls
