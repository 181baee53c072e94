package discovery

import (
	"context"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
)

const (
	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."
)

// mdnsServiceTypes lists the browsed service types in priority order.
// Devices announcing several types get their record from the
// highest-priority one that resolves first.
var mdnsServiceTypes = []string{
	"_googlecast._tcp",
	"_airplay._tcp",
	"_spotify-connect._tcp",
	"_raop._tcp",
	"_sonos._tcp",
}

// Friendly-name, model and manufacturer TXT keys, in lookup order. Vendors
// never agreed on one spelling.
var (
	mdnsNameKeys         = []string{"fn", "n", "name"}
	mdnsModelKeys        = []string{"md", "model", "am"}
	mdnsManufacturerKeys = []string{"manufacturer", "mf", "vendor", "ma"}
)

// MDNS is the multicast DNS prober. It browses the media service types
// via zeroconf, which handles the pointer, service and address resolution
// steps; this prober only converts resolved entries to device records.
type MDNS struct {
	sessions sessions

	// network is the local /24 stamped on every record, captured once
	// per Start.
	network string
}

// NewMDNS returns an mDNS prober ready to Start.
func NewMDNS() *MDNS {
	return &MDNS{}
}

// Start creates the resolver and begins browsing all service types.
func (m *MDNS) Start(ctx context.Context) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return NewTransportError("create mDNS resolver", "", err)
	}

	sess := m.sessions.begin(ctx, "mdns")
	m.network = localNetworkName()

	for _, st := range mdnsServiceTypes {
		entries := make(chan *zeroconf.ServiceEntry)

		sess.wg.Add(1)
		go m.collect(sess, st, entries)

		if err := resolver.Browse(sess.ctx, st, ServiceDomain, entries); err != nil {
			// Setup failure: zeroconf never took ownership of the
			// channel, so close it here to release the collector.
			close(entries)
			sess.emitErr(NewTransportError("browse mDNS service", "", err))
		}
	}

	sess.closeWhenDone()
	return nil
}

// Events implements Discoverer.
func (m *MDNS) Events() <-chan Event {
	return m.sessions.events()
}

// Stop implements Discoverer.
func (m *MDNS) Stop() {
	m.sessions.stop()
}

// collect converts resolved entries into device records until zeroconf
// closes the channel at session end.
func (m *MDNS) collect(sess *session, serviceType string, entries <-chan *zeroconf.ServiceEntry) {
	defer sess.wg.Done()

	for entry := range entries {
		d := parseMDNSEntry(serviceType, entry)
		if d == nil {
			// Malformed entry; skip it, never abort the session.
			continue
		}
		d.Network = m.network
		if sess.emitDevice(d) {
			logging.LogDeviceFound(sess.id, d.Addr, d.Name, string(d.Method))
		}
	}
}

// parseMDNSEntry converts a zeroconf service entry to a device record.
// Returns nil for entries with no usable address or name.
func parseMDNSEntry(serviceType string, entry *zeroconf.ServiceEntry) *device.Device {
	if entry == nil {
		return nil
	}

	// Get IP address (prefer IPv4)
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

	// TXT records are in "key=value" format
	txt := make(map[string]string, len(entry.Text))
	for _, kv := range entry.Text {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else {
			txt[parts[0]] = ""
		}
	}

	name := firstTXT(txt, mdnsNameKeys)
	if name == "" {
		name = entry.Instance
		// RAOP instances carry the device MAC before an @ separator.
		if i := strings.IndexByte(name, '@'); i >= 0 {
			name = name[i+1:]
		}
	}
	if name == "" {
		name = strings.TrimSuffix(strings.TrimSuffix(entry.HostName, "."), ".local")
	}
	if name == "" {
		return nil
	}

	manufacturer := firstTXT(txt, mdnsManufacturerKeys)
	if manufacturer == "" {
		manufacturer = inferManufacturer(serviceType)
	}

	return &device.Device{
		Addr:         ip,
		Name:         name,
		Method:       device.MethodMDNS,
		ServiceType:  serviceType,
		Manufacturer: manufacturer,
		Model:        firstTXT(txt, mdnsModelKeys),
		Port:         entry.Port,
	}
}

func firstTXT(txt map[string]string, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(txt[k]); v != "" {
			return v
		}
	}
	return ""
}

// inferManufacturer maps proprietary service types to the vendor that
// owns them, for entries whose TXT record names no manufacturer.
func inferManufacturer(serviceType string) string {
	switch serviceType {
	case "_googlecast._tcp":
		return "Google"
	case "_airplay._tcp", "_raop._tcp":
		return "Apple"
	case "_sonos._tcp":
		return "Sonos"
	default:
		return ""
	}
}
