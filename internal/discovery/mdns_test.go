package discovery

import (
	"context"
	"net"
	"testing"

	"github.com/grandcat/zeroconf"

	"github.com/screenscout/screenscout/internal/device"
)

func TestParseMDNSEntry(t *testing.T) {
	tests := []struct {
		name        string
		serviceType string
		entry       *zeroconf.ServiceEntry
		wantNil     bool
		wantAddr    string
		wantName    string
		wantMfr     string
		wantModel   string
		wantPort    int
	}{
		{
			name:        "chromecast with friendly name in TXT",
			serviceType: "_googlecast._tcp",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Chromecast-Ultra-f00f"},
				HostName:      "f00f.local.",
				Port:          8009,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.34")},
				Text:          []string{"fn=Living Room TV", "md=Chromecast Ultra", "id=f00f"},
			},
			wantAddr:  "192.168.1.34",
			wantName:  "Living Room TV",
			wantMfr:   "Google",
			wantModel: "Chromecast Ultra",
			wantPort:  8009,
		},
		{
			name:        "airplay falls back to the instance name",
			serviceType: "_airplay._tcp",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Apple TV 4K"},
				HostName:      "apple-tv.local.",
				Port:          7000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.21")},
				Text:          []string{"model=AppleTV11,1"},
			},
			wantAddr:  "192.168.1.21",
			wantName:  "Apple TV 4K",
			wantMfr:   "Apple",
			wantModel: "AppleTV11,1",
			wantPort:  7000,
		},
		{
			name:        "raop instance drops the MAC prefix",
			serviceType: "_raop._tcp",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "AABBCCDDEEFF@Kitchen HomePod"},
				HostName:      "kitchen.local.",
				Port:          7000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.60")},
			},
			wantAddr: "192.168.1.60",
			wantName: "Kitchen HomePod",
			wantMfr:  "Apple",
			wantPort: 7000,
		},
		{
			name:        "TXT manufacturer beats the service-type inference",
			serviceType: "_googlecast._tcp",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "SHIELD-Android-TV"},
				HostName:      "shield.local.",
				Port:          8009,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.77")},
				Text:          []string{"fn=Shield", "manufacturer=NVIDIA"},
			},
			wantAddr: "192.168.1.77",
			wantName: "Shield",
			wantMfr:  "NVIDIA",
			wantPort: 8009,
		},
		{
			name:        "hostname fallback when instance and TXT are empty",
			serviceType: "_sonos._tcp",
			entry: &zeroconf.ServiceEntry{
				HostName: "sonos-bedroom.local.",
				Port:     1400,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.88")},
			},
			wantAddr: "192.168.1.88",
			wantName: "sonos-bedroom",
			wantMfr:  "Sonos",
			wantPort: 1400,
		},
		{
			name:        "ipv6 only entry keeps its address",
			serviceType: "_spotify-connect._tcp",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Office Speaker"},
				HostName:      "office.local.",
				Port:          4070,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantAddr: "fe80::1",
			wantName: "Office Speaker",
			wantPort: 4070,
		},
		{
			name:        "ipv4 preferred over ipv6",
			serviceType: "_googlecast._tcp",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Dual Stack"},
				HostName:      "dual.local.",
				Port:          8009,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantAddr: "192.168.1.50",
			wantName: "Dual Stack",
			wantMfr:  "Google",
			wantPort: 8009,
		},
		{
			name:        "no address",
			serviceType: "_googlecast._tcp",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "Ghost"},
				HostName:      "ghost.local.",
				Port:          8009,
			},
			wantNil: true,
		},
		{
			name:        "no usable name",
			serviceType: "_googlecast._tcp",
			entry: &zeroconf.ServiceEntry{
				Port:     8009,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.99")},
			},
			wantNil: true,
		},
		{
			name:        "nil entry",
			serviceType: "_googlecast._tcp",
			entry:       nil,
			wantNil:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := parseMDNSEntry(tt.serviceType, tt.entry)

			if tt.wantNil {
				if d != nil {
					t.Errorf("parseMDNSEntry() = %+v, want nil", d)
				}
				return
			}
			if d == nil {
				t.Fatal("parseMDNSEntry() = nil, want device")
			}

			if d.Addr != tt.wantAddr {
				t.Errorf("Addr = %q, want %q", d.Addr, tt.wantAddr)
			}
			if d.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", d.Name, tt.wantName)
			}
			if d.Manufacturer != tt.wantMfr {
				t.Errorf("Manufacturer = %q, want %q", d.Manufacturer, tt.wantMfr)
			}
			if d.Model != tt.wantModel {
				t.Errorf("Model = %q, want %q", d.Model, tt.wantModel)
			}
			if d.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", d.Port, tt.wantPort)
			}
			if d.ServiceType != tt.serviceType {
				t.Errorf("ServiceType = %q, want %q", d.ServiceType, tt.serviceType)
			}
		})
	}
}

func TestCollectStampsNetwork(t *testing.T) {
	m := NewMDNS()
	m.network = "192.168.1.0/24"

	entries := make(chan *zeroconf.ServiceEntry, 2)
	entries <- &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "Living Room TV"},
		HostName:      "cast.local.",
		Port:          8009,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.1.34")},
		Text:          []string{"fn=Living Room TV"},
	}
	entries <- nil // malformed entries must not abort the collector
	close(entries)

	sess := newSession(context.Background())
	sess.wg.Add(1)
	go m.collect(sess, "_googlecast._tcp", entries)
	sess.closeWhenDone()

	var got []*device.Device
	for ev := range sess.events {
		if ev.Err != nil {
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
		got = append(got, ev.Device)
	}

	if len(got) != 1 {
		t.Fatalf("got %d device events, want 1", len(got))
	}
	if got[0].Network != "192.168.1.0/24" {
		t.Errorf("Network = %q, want 192.168.1.0/24", got[0].Network)
	}
	if got[0].Method != device.MethodMDNS {
		t.Errorf("Method = %q, want %q", got[0].Method, device.MethodMDNS)
	}
}

func TestFirstTXT(t *testing.T) {
	txt := map[string]string{
		"fn":    "Living Room",
		"md":    "  Chromecast  ",
		"blank": "   ",
	}

	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"first key wins", []string{"fn", "n"}, "Living Room"},
		{"later key used when earlier missing", []string{"n", "fn"}, "Living Room"},
		{"values are trimmed", []string{"md"}, "Chromecast"},
		{"whitespace-only value skipped", []string{"blank", "fn"}, "Living Room"},
		{"no key present", []string{"x", "y"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstTXT(txt, tt.keys); got != tt.want {
				t.Errorf("firstTXT(%v) = %q, want %q", tt.keys, got, tt.want)
			}
		})
	}
}

func TestInferManufacturer(t *testing.T) {
	tests := []struct {
		serviceType string
		want        string
	}{
		{"_googlecast._tcp", "Google"},
		{"_airplay._tcp", "Apple"},
		{"_raop._tcp", "Apple"},
		{"_sonos._tcp", "Sonos"},
		{"_spotify-connect._tcp", ""},
		{"_http._tcp", ""},
	}

	for _, tt := range tests {
		t.Run(tt.serviceType, func(t *testing.T) {
			if got := inferManufacturer(tt.serviceType); got != tt.want {
				t.Errorf("inferManufacturer(%q) = %q, want %q", tt.serviceType, got, tt.want)
			}
		})
	}
}
