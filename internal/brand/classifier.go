package brand

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
)

// Classifier runs the brand waterfall. Zero-configuration; the neighbor
// lookup is a field so tests can substitute the platform cache.
type Classifier struct {
	neighborMAC func(addr string) string
}

// NewClassifier returns a classifier backed by the platform's neighbor
// cache where one exists.
func NewClassifier() *Classifier {
	return &Classifier{neighborMAC: neighborMAC}
}

// Annotate returns a copy of the record with its brand filled in. An
// already-classified record passes through untouched; classification
// runs once per device, on save, not per discovery event.
func (c *Classifier) Annotate(d *device.Device) *device.Device {
	if d.Brand.Known() {
		return d
	}
	out := *d
	out.Brand = c.Classify(d)
	return &out
}

// Classify evaluates the four layers in order and returns the first
// vendor any of them names.
func (c *Classifier) Classify(d *device.Device) device.Brand {
	if b := matchNamespace(d.ServiceType, d.Headers); b.Known() {
		logging.Debug("Brand from protocol namespace",
			zap.String("addr", d.Addr),
			zap.String("brand", string(b)),
		)
		return b
	}

	if b := matchManufacturer(d.Manufacturer); b.Known() {
		logging.Debug("Brand from manufacturer string",
			zap.String("addr", d.Addr),
			zap.String("brand", string(b)),
		)
		return b
	}

	if b := c.matchNeighbor(d.Addr); b.Known() {
		logging.Debug("Brand from hardware address",
			zap.String("addr", d.Addr),
			zap.String("brand", string(b)),
		)
		return b
	}

	if b := matchLoose(d.Name, d.ServiceType); b.Known() {
		logging.Debug("Brand from name heuristics",
			zap.String("addr", d.Addr),
			zap.String("brand", string(b)),
		)
		return b
	}

	return device.BrandUnknown
}

// matchNamespace scans the service type and every header value for
// vendor namespace tokens. Headers are visited in sorted key order so
// the first-match rule stays deterministic.
func matchNamespace(serviceType string, headers map[string]string) device.Brand {
	if b := matchTokens(serviceType, namespaceTokens); b.Known() {
		return b
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if b := matchTokens(headers[k], namespaceTokens); b.Known() {
			return b
		}
	}
	return device.BrandUnknown
}

// matchManufacturer matches a reported manufacturer string, case
// insensitively, against the known spellings.
func matchManufacturer(manufacturer string) device.Brand {
	return matchTokens(manufacturer, manufacturerTokens)
}

// matchNeighbor resolves addr through the neighbor cache to a MAC, the
// MAC to a registered vendor name, and that name through the
// manufacturer table. Any missing link falls through.
func (c *Classifier) matchNeighbor(addr string) device.Brand {
	if c.neighborMAC == nil || addr == "" {
		return device.BrandUnknown
	}
	mac := c.neighborMAC(addr)
	if mac == "" {
		return device.BrandUnknown
	}
	vendor := ouiVendor(mac)
	if vendor == "" {
		return device.BrandUnknown
	}
	return matchManufacturer(vendor)
}

// matchLoose applies the manufacturer table plus the marketing-name
// extensions to the display name and service type.
func matchLoose(name, serviceType string) device.Brand {
	haystack := name + " " + serviceType
	if b := matchTokens(haystack, looseTokens); b.Known() {
		return b
	}
	return matchTokens(haystack, manufacturerTokens)
}

// ouiVendor returns the registered vendor name for a MAC's first three
// octets, or "".
func ouiVendor(mac string) string {
	if len(mac) < 8 {
		return ""
	}
	return ouiVendors[strings.ToUpper(mac[:8])]
}

func matchTokens(s string, table []token) device.Brand {
	if s == "" {
		return device.BrandUnknown
	}
	lower := strings.ToLower(s)
	for _, t := range table {
		if strings.Contains(lower, t.substr) {
			return t.brand
		}
	}
	return device.BrandUnknown
}
