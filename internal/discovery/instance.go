package discovery

import (
	"fmt"
	"time"
)

// Instance is a sandbox attribution service found on the network
type Instance struct {
	// Name is the advertised instance name (e.g., "tapp-sandbox-laptop")
	Name string

	// Hostname is the mDNS hostname (e.g., "laptop.local.")
	Hostname string

	// IP is the address to connect to, IPv4 preferred
	IP string

	// Port is the HTTP port
	Port int

	// Metadata contains the TXT record data
	// Common fields: "path=/v1/", "version=dev-20260301"
	Metadata map[string]string

	// DiscoveredAt is when the instance was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the instance
func (i *Instance) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", i.Name, i.Hostname, i.IP, i.Port)
}

// BaseURL returns the API root advertised by the instance
func (i *Instance) BaseURL() string {
	path := i.GetMetadata("path")
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("http://%s%s", hostPort(i.IP, i.Port), path)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (i *Instance) GetMetadata(key string) string {
	if i.Metadata == nil {
		return ""
	}
	return i.Metadata[key]
}
