package discovery

import (
	"context"
	"testing"

	"github.com/screenscout/screenscout/internal/probe"
)

func TestDirectRejectsInvalidAddress(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{"hostname", "living-room-tv.local"},
		{"empty", ""},
		{"garbage", "not an address"},
		{"address with port", "192.168.1.20:8008"},
		{"cidr", "192.168.1.0/24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDirect(tt.addr)

			err := d.Start(context.Background())
			if err == nil {
				d.Stop()
				t.Fatalf("Start(%q) = nil, want validation error", tt.addr)
			}
			if !IsValidationError(err) {
				t.Errorf("Start(%q) error = %v, want validation error", tt.addr, err)
			}
		})
	}
}

func TestNewDirectTrimsWhitespace(t *testing.T) {
	d := NewDirect("  192.168.1.20\n")
	if d.addr != "192.168.1.20" {
		t.Errorf("addr = %q, want trimmed address", d.addr)
	}
}

func TestReachabilityPorts(t *testing.T) {
	ports := reachabilityPorts()

	seen := make(map[int]bool)
	for _, p := range ports {
		if seen[p] {
			t.Errorf("port %d listed twice", p)
		}
		seen[p] = true
	}

	// The sweep ports lead, then PJLink, then the description ports.
	for i, p := range DefaultSweepPorts {
		if ports[i] != p {
			t.Errorf("ports[%d] = %d, want sweep port %d", i, ports[i], p)
		}
	}
	for _, want := range []int{probe.PJLinkPort, 1400, 52323, 55000, 8080, 80} {
		if !seen[want] {
			t.Errorf("port list is missing %d", want)
		}
	}
}
