package probe

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/screenscout/screenscout/internal/device"
)

// Description is the subset of a UPnP device description the engine
// cares about.
type Description struct {
	FriendlyName string
	Manufacturer string
	ModelName    string
	DeviceType   string // raw URN as announced
}

// descriptionXML mirrors the root/device layout of a UPnP description
// document. Embedded sub-devices are ignored; the root device names the
// box.
type descriptionXML struct {
	Device struct {
		DeviceType   string `xml:"deviceType"`
		FriendlyName string `xml:"friendlyName"`
		Manufacturer string `xml:"manufacturer"`
		ModelName    string `xml:"modelName"`
	} `xml:"device"`
}

// Endpoint is one (port, path) pair a device may serve its description on.
type Endpoint struct {
	Port int
	Path string
}

// DescriptionEndpoints lists where the direct resolver looks for a
// description, in probe order. The early entries are vendor-pinned ports
// (Cast, Roku, Sonos, Sony, Panasonic); the tail is the generic UPnP
// range.
var DescriptionEndpoints = []Endpoint{
	{Port: 8008, Path: "/ssdp/device-desc.xml"},
	{Port: 8060, Path: "/"},
	{Port: 1400, Path: "/xml/device_description.xml"},
	{Port: 52323, Path: "/dmr.xml"},
	{Port: 55000, Path: "/nrc/ddd.xml"},
	{Port: 49152, Path: "/description.xml"},
	{Port: 49153, Path: "/description.xml"},
	{Port: 49154, Path: "/description.xml"},
	{Port: 8080, Path: "/description.xml"},
	{Port: 80, Path: "/description.xml"},
}

// URL renders the endpoint for a target address.
func (e Endpoint) URL(addr string) string {
	return fmt.Sprintf("http://%s%s", net.JoinHostPort(addr, strconv.Itoa(e.Port)), e.Path)
}

// FetchDescription retrieves and parses a UPnP device description from
// location. Non-UTF-8 documents (older Japanese TVs announce Shift_JIS)
// are decoded via the charset named in the XML prolog.
func FetchDescription(ctx context.Context, location string) (*Description, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("build description request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch description: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("description returned HTTP %d", resp.StatusCode)
	}

	dec := xml.NewDecoder(io.LimitReader(resp.Body, maxBodySize))
	dec.CharsetReader = charset.NewReaderLabel

	var doc descriptionXML
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode description: %w", err)
	}

	return &Description{
		FriendlyName: strings.TrimSpace(doc.Device.FriendlyName),
		Manufacturer: strings.TrimSpace(doc.Device.Manufacturer),
		ModelName:    strings.TrimSpace(doc.Device.ModelName),
		DeviceType:   strings.TrimSpace(doc.Device.DeviceType),
	}, nil
}

// FromDescription fetches the description at one endpoint and converts it
// into a device record for addr.
func FromDescription(ctx context.Context, addr string, ep Endpoint) (*device.Device, error) {
	location := ep.URL(addr)

	desc, err := FetchDescription(ctx, location)
	if err != nil {
		return nil, err
	}

	name := desc.FriendlyName
	if name == "" {
		name = desc.ModelName
	}
	if name == "" {
		return nil, fmt.Errorf("description at %s names no device", location)
	}

	return &device.Device{
		Addr:         addr,
		Name:         name,
		Location:     location,
		ServiceType:  NormalizeURN(desc.DeviceType),
		Manufacturer: desc.Manufacturer,
		Model:        desc.ModelName,
		Port:         ep.Port,
	}, nil
}

// NormalizeURN shortens a UPnP URN to its type segment, the second-to-last
// colon-separated field: "urn:schemas-upnp-org:device:MediaRenderer:1"
// becomes "MediaRenderer". Strings without enough segments pass through
// unchanged.
func NormalizeURN(urn string) string {
	parts := strings.Split(urn, ":")
	if len(parts) < 2 {
		return urn
	}
	return parts[len(parts)-2]
}
