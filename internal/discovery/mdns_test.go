package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "sandbox with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "tapp-sandbox-laptop"},
				HostName:      "laptop.local.",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"path=/v1/"},
			},
			wantIP:   "192.168.4.16",
			wantPort: 8080,
		},
		{
			name: "no port specified (should default)",
			entry: &zeroconf.ServiceEntry{
				HostName: "laptop.local.",
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantIP:   "10.0.0.5",
			wantPort: DefaultPort,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				HostName: "laptop.local.",
				Port:     8080,
			},
			wantNil: true,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "laptop.local.",
				Port:     8080,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 8080,
		},
		{
			name: "both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				HostName: "laptop.local.",
				Port:     8080,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:   "192.168.1.50",
			wantPort: 8080,
		},
		{
			name:    "nil entry",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instance := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if instance != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", instance)
				}
				return
			}
			if instance == nil {
				t.Fatal("parseServiceEntry() = nil, want instance")
			}
			if instance.IP != tt.wantIP {
				t.Errorf("instance.IP = %v, want %v", instance.IP, tt.wantIP)
			}
			if instance.Port != tt.wantPort {
				t.Errorf("instance.Port = %v, want %v", instance.Port, tt.wantPort)
			}
			if instance.Hostname != tt.entry.HostName {
				t.Errorf("instance.Hostname = %v, want %v", instance.Hostname, tt.entry.HostName)
			}
			if time.Since(instance.DiscoveredAt) > time.Second {
				t.Errorf("instance.DiscoveredAt is not recent: %v", instance.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		HostName: "laptop.local.",
		Port:     8080,
		AddrIPv4: []net.IP{net.ParseIP("192.168.4.16")},
		Text:     []string{"path=/v1/", "version=dev", "flag"},
	}

	instance := parseServiceEntry(entry)
	if instance == nil {
		t.Fatal("parseServiceEntry() = nil, want instance")
	}

	want := map[string]string{"path": "/v1/", "version": "dev", "flag": ""}
	if len(instance.Metadata) != len(want) {
		t.Errorf("instance.Metadata has %d entries, want %d", len(instance.Metadata), len(want))
	}
	for key, value := range want {
		if got, ok := instance.Metadata[key]; !ok {
			t.Errorf("instance.Metadata missing key %q", key)
		} else if got != value {
			t.Errorf("instance.Metadata[%q] = %q, want %q", key, got, value)
		}
	}
}

func TestInstanceBaseURL(t *testing.T) {
	tests := []struct {
		instance Instance
		want     string
	}{
		{Instance{IP: "192.168.1.5", Port: 8080, Metadata: map[string]string{"path": "/v1/"}}, "http://192.168.1.5:8080/v1/"},
		{Instance{IP: "192.168.1.5", Port: 9000}, "http://192.168.1.5:9000/"},
		{Instance{IP: "fe80::1", Port: 8080}, "http://[fe80::1]:8080/"},
	}
	for _, tt := range tests {
		if got := tt.instance.BaseURL(); got != tt.want {
			t.Errorf("BaseURL() = %q, want %q", got, tt.want)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}
