package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type sandbox instances advertise
	ServiceType = "_tapp-sandbox._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an entry carries no port
	DefaultPort = 8080
)

// ErrNoInstance is returned by First when nothing answers in time.
var ErrNoInstance = errors.New("no sandbox instance found")

// Scanner handles mDNS discovery of sandbox instances
type Scanner struct {
	// Timeout is the maximum time to wait for instances
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers sandbox instances on the local network until the timeout
// or ctx expires.
func (s *Scanner) Scan(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu        sync.Mutex
		instances []*Instance
	)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if instance := parseServiceEntry(entry); instance != nil {
				mu.Lock()
				instances = append(instances, instance)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for context to complete (timeout or cancellation)
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Instance(nil), instances...), nil
}

// First returns the first instance that answers, or an error if none does
// within the timeout.
func (s *Scanner) First(ctx context.Context) (*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Instance, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			if instance := parseServiceEntry(entry); instance != nil {
				select {
				case found <- instance:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case instance := <-found:
		return instance, nil
	case <-ctx.Done():
		select {
		case instance := <-found:
			return instance, nil
		default:
		}
		return nil, fmt.Errorf("%w within %s", ErrNoInstance, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to an Instance.
// Returns nil if the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	if entry == nil {
		return nil
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Instance{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertiser publishes a sandbox instance over mDNS.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers instance on all interfaces. Call Shutdown to
// withdraw it.
func Advertise(instance string, port int, metadata map[string]string) (*Advertiser, error) {
	txt := make([]string, 0, len(metadata))
	for k, v := range metadata {
		txt = append(txt, k+"="+v)
	}
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Advertiser{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

func hostPort(ip string, port int) string {
	return net.JoinHostPort(ip, strconv.Itoa(port))
}
