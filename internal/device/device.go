package device

import (
	"fmt"
	"strings"
	"time"
)

// Method identifies the discovery protocol that produced a record.
type Method string

const (
	// MethodSSDP marks records from multicast SSDP/UPnP search. SSDP
	// records carry a fetched device description and rank highest.
	MethodSSDP Method = "ssdp"

	// MethodMDNS marks records from multicast DNS service browsing.
	MethodMDNS Method = "mdns"

	// MethodPortProbe marks records from the TCP port sweep of the local
	// /24. Port-probe names start as placeholders until a direct probe
	// of the address resolves them.
	MethodPortProbe Method = "port-probe"

	// MethodDirect marks records resolved by probing one user-supplied
	// address through the identification pipeline.
	MethodDirect Method = "direct"

	// MethodCode marks records ingested from a pairing-code payload.
	MethodCode Method = "code"
)

// Authority returns the merge rank of the method. Higher ranks win
// reconciliation conflicts; only SSDP is authoritative.
func (m Method) Authority() int {
	switch m {
	case MethodSSDP:
		return 50
	case MethodMDNS:
		return 40
	case MethodDirect:
		return 30
	case MethodCode:
		return 20
	case MethodPortProbe:
		return 10
	default:
		return 0
	}
}

// IsAuthority reports whether records from this method may overwrite
// fields of an existing record for the same address.
func (m Method) IsAuthority() bool {
	return m == MethodSSDP
}

func (m Method) String() string {
	if m == "" {
		return "unknown"
	}
	return string(m)
}

// Placeholder name markers. A prober that knows an address is alive but
// has not identified the device yet names it with the ellipsis form; the
// prefix form covers names truncated by transport limits.
const (
	placeholderEllipsis = "…"
	placeholderPrefix   = "Identifying"
)

// PlaceholderName formats the provisional display name a prober assigns
// to a device it has confirmed but not yet identified.
func PlaceholderName(addr string) string {
	return fmt.Sprintf("Identifying device%s (%s)", placeholderEllipsis, addr)
}

// IsPlaceholder reports whether name is a provisional display name.
func IsPlaceholder(name string) bool {
	return strings.Contains(name, placeholderEllipsis) ||
		strings.HasPrefix(name, placeholderPrefix)
}

// Device is a single observation of a media device on the local network.
type Device struct {
	// Addr is the IPv4 address the device was observed at. It is the
	// merge key for the whole engine and is never empty.
	Addr string `json:"addr" yaml:"addr"`

	// Name is the display name as reported by the device, or a
	// placeholder when identification is still pending.
	Name string `json:"name" yaml:"name"`

	// Method records which discovery protocol produced this record.
	Method Method `json:"method" yaml:"method"`

	// Location is the URL of the UPnP device description, when the
	// record came from SSDP.
	Location string `json:"location,omitempty" yaml:"location,omitempty"`

	// ServiceType is the normalized protocol namespace the device
	// announced, such as a shortened URN segment or an mDNS service
	// type. Brand classification consults it first.
	ServiceType string `json:"service_type,omitempty" yaml:"service_type,omitempty"`

	// Manufacturer is the vendor string from a device description or
	// TXT record, verbatim.
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`

	// Model is the device model string, verbatim.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Port is the service port the device answered on, when the
	// discovery method carries one.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`

	// Headers holds the raw SSDP response headers, upper-cased keys.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Network names the interface or subnet the device was found on.
	Network string `json:"network,omitempty" yaml:"network,omitempty"`

	// CustomName is a user-assigned override persisted by the registry.
	// It is never written by discovery.
	CustomName string `json:"custom_name,omitempty" yaml:"custom_name,omitempty"`

	// FirstSeen is when the registry first recorded this address.
	FirstSeen time.Time `json:"first_seen,omitempty" yaml:"first_seen,omitempty"`

	// Brand is the classified vendor, set by brand annotation after
	// discovery. Empty until classified.
	Brand Brand `json:"brand,omitempty" yaml:"brand,omitempty"`
}

// DisplayName returns the user-assigned name when one exists, otherwise
// the discovered name.
func (d *Device) DisplayName() string {
	if d.CustomName != "" {
		return d.CustomName
	}
	return d.Name
}

// HasPlaceholderName reports whether the record still carries a
// provisional name.
func (d *Device) HasPlaceholderName() bool {
	return IsPlaceholder(d.Name)
}

// WithName returns a copy of the record with the name replaced.
func (d *Device) WithName(name string) *Device {
	out := *d
	out.Name = name
	return &out
}

// Merged returns a copy of the record enriched with descriptive fields
// from in. Only empty fields are filled; identity, naming and method are
// preserved from the receiver.
func (d *Device) Merged(in *Device) *Device {
	out := *d
	if out.Manufacturer == "" {
		out.Manufacturer = in.Manufacturer
	}
	if out.Model == "" {
		out.Model = in.Model
	}
	if out.ServiceType == "" {
		out.ServiceType = in.ServiceType
	}
	return &out
}

// String renders a short human-readable summary for logs.
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s, %s)", d.DisplayName(), d.Addr, d.Method)
}
