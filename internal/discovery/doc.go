// Package discovery finds and advertises sandbox attribution services over
// mDNS.
//
// A sandbox started with "tappctl sandbox serve" registers itself as a
// "_tapp-sandbox._tcp" service. Clients on the same network segment can
// locate it without knowing its address.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	instances, err := scanner.Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, instance := range instances {
//	    fmt.Printf("Found: %s -> %s\n", instance.Name, instance.BaseURL())
//	}
//
// Scanner.First stops at the first answer instead of waiting out the
// timeout.
//
// # Instance Information
//
// Each discovered instance includes:
//   - Name: advertised instance name
//   - Hostname: mDNS hostname
//   - IP: IPv4 address when available, otherwise IPv6
//   - Port: HTTP port
//   - Metadata: TXT records; "path" holds the API root
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Instances must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
