package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/screenscout/screenscout/internal/device"
)

const (
	// DefaultDialTimeout bounds a single TCP connect attempt. Sweeping a
	// /24 multiplies this by every silent host, so it stays short.
	DefaultDialTimeout = 400 * time.Millisecond

	// DefaultHTTPTimeout bounds one description or info request against
	// a device that accepted the connection.
	DefaultHTTPTimeout = 3 * time.Second

	// maxBodySize caps device response bodies. Descriptions are a few KB;
	// anything bigger is not a device description.
	maxBodySize = 1 << 20
)

// httpClient serves plain-HTTP probes.
var httpClient = &http.Client{Timeout: DefaultHTTPTimeout}

// selfSignedClient serves probes against device HTTPS ports. TVs ship
// self-signed certificates; identity comes from the payload, not the cert.
var selfSignedClient = &http.Client{
	Timeout: DefaultHTTPTimeout,
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	},
}

// clientFor picks the HTTP client matching the URL scheme implied by port.
func clientFor(port int) *http.Client {
	if port == JointSpaceSecurePort {
		return selfSignedClient
	}
	return httpClient
}

// Resolve identifies the device listening at addr by speaking the protocol
// that conventionally owns port. It returns nil with an error when the
// port is open but identification failed; the caller keeps its placeholder
// record in that case.
func Resolve(ctx context.Context, addr string, port int) (*device.Device, error) {
	switch port {
	case JointSpacePort, JointSpaceSecurePort:
		return JointSpace(ctx, addr, port)
	case 8008:
		// Cast / DIAL devices publish their description here.
		return FromDescription(ctx, addr, Endpoint{Port: 8008, Path: "/ssdp/device-desc.xml"})
	case 8060:
		// Roku ECP serves the device descriptor at the root.
		return FromDescription(ctx, addr, Endpoint{Port: 8060, Path: "/"})
	case SamsungInfoPort:
		return SamsungInfo(ctx, addr)
	default:
		// Unclassified HTTP ports get one generic description probe;
		// anything serving a UPnP description there still identifies.
		d, err := FromDescription(ctx, addr, Endpoint{Port: port, Path: "/description.xml"})
		if err != nil {
			return nil, fmt.Errorf("generic description probe: %w", err)
		}
		return d, nil
	}
}

// dialPort opens a TCP connection to addr:port within DefaultDialTimeout,
// honoring ctx cancellation.
func dialPort(ctx context.Context, addr string, port int) (net.Conn, error) {
	d := net.Dialer{Timeout: DefaultDialTimeout}
	return d.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
}
