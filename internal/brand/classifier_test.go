package brand

import (
	"testing"

	"github.com/screenscout/screenscout/internal/device"
)

func TestClassifyNamespaceLayer(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name        string
		serviceType string
		headers     map[string]string
		want        device.Brand
	}{
		{
			name:        "samsung urn in service type",
			serviceType: "urn:samsung.com:device:RemoteControlReceiver:1",
			want:        device.BrandSamsung,
		},
		{
			name:        "lg webos second screen",
			serviceType: "urn:lge-com:service:webos-second-screen:1",
			want:        device.BrandLG,
		},
		{
			name:        "roku ecp search target",
			serviceType: "roku:ecp",
			want:        device.BrandRoku,
		},
		{
			name:    "namespace token in a header value",
			headers: map[string]string{"USN": "uuid:x::urn:panasonic-com:device:p00RemoteController:1"},
			want:    device.BrandPanasonic,
		},
		{
			name:        "googlecast mdns type",
			serviceType: "_googlecast._tcp",
			want:        device.BrandGoogle,
		},
		{
			name:        "shared upnp namespace identifies nobody",
			serviceType: "urn:schemas-upnp-org:device:MediaRenderer:1",
			want:        device.BrandUnknown,
		},
		{
			name:    "dial namespace identifies nobody",
			headers: map[string]string{"ST": "urn:dial-multiscreen-org:service:dial:1"},
			want:    device.BrandUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// TEST-NET address: never in the host's neighbor cache, so the
			// hardware layer cannot answer for rows expecting unknown.
			d := &device.Device{
				Addr:        "192.0.2.30",
				ServiceType: tt.serviceType,
				Headers:     tt.headers,
			}
			if got := c.Classify(d); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

// A vendor namespace is protocol truth; a conflicting manufacturer string
// never overrides it.
func TestClassifyNamespaceBeatsManufacturer(t *testing.T) {
	c := NewClassifier()

	d := &device.Device{
		Addr:         "192.168.1.30",
		ServiceType:  "urn:lge-com:service:webos-second-screen:1",
		Manufacturer: "Samsung Electronics",
	}

	if got := c.Classify(d); got != device.BrandLG {
		t.Errorf("Classify() = %q, want %q (layer 1 precedes layer 2)", got, device.BrandLG)
	}
}

// When two header values name different vendors, the winner is fixed by
// sorted key order, not map iteration order.
func TestMatchNamespaceHeaderOrderIsDeterministic(t *testing.T) {
	headers := map[string]string{
		"USN": "uuid:x::urn:samsung.com:device:RemoteControlReceiver:1",
		"ST":  "roku:ecp",
	}

	for i := 0; i < 50; i++ {
		if got := matchNamespace("", headers); got != device.BrandRoku {
			t.Fatalf("matchNamespace() = %q on run %d, want %q (ST sorts before USN)", got, i, device.BrandRoku)
		}
	}
}

func TestClassifyManufacturerLayer(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		manufacturer string
		want         device.Brand
	}{
		{"Samsung Electronics", device.BrandSamsung},
		{"LG Electronics", device.BrandLG},
		{"Sony Corporation", device.BrandSony},
		{"TP Vision Europe B.V.", device.BrandPhilips},
		{"Matsushita Electric Industrial", device.BrandPanasonic},
		{"TCL Technology", device.BrandTCL},
		{"Some Garage Startup", device.BrandUnknown},
		{"", device.BrandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.manufacturer, func(t *testing.T) {
			d := &device.Device{Addr: "192.0.2.30", Manufacturer: tt.manufacturer}
			if got := c.Classify(d); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.manufacturer, got, tt.want)
			}
		})
	}
}

func TestClassifyNeighborLayer(t *testing.T) {
	c := &Classifier{neighborMAC: func(addr string) string {
		if addr == "192.168.1.30" {
			return "b0:a7:37:aa:bb:cc"
		}
		return ""
	}}

	d := &device.Device{Addr: "192.168.1.30", Name: "Streaming Stick"}
	if got := c.Classify(d); got != device.BrandRoku {
		t.Errorf("Classify() = %q, want %q", got, device.BrandRoku)
	}

	// No cache entry falls through to the loose layer, then unknown.
	d2 := &device.Device{Addr: "192.168.1.31", Name: "Streaming Stick"}
	if got := c.Classify(d2); got != device.BrandUnknown {
		t.Errorf("Classify() = %q, want %q", got, device.BrandUnknown)
	}
}

func TestClassifyLooseLayer(t *testing.T) {
	c := &Classifier{}

	tests := []struct {
		name        string
		displayName string
		serviceType string
		want        device.Brand
	}{
		{"bravia marketing name", "BRAVIA 4K GB", "", device.BrandSony},
		{"viera in name", "VIERA TX-50", "", device.BrandPanasonic},
		{"fire tv", "Fire TV Stick", "", device.BrandAmazon},
		{"vendor name in display name", "samsung 7 series (50)", "", device.BrandSamsung},
		{"token in service type", "", "jointspace", device.BrandPhilips},
		{"nothing recognisable", "Media Device", "upnp", device.BrandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &device.Device{Addr: "192.168.1.30", Name: tt.displayName, ServiceType: tt.serviceType}
			if got := c.Classify(d); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	c := &Classifier{}

	d := &device.Device{
		Addr:         "192.168.1.30",
		Name:         "Living Room TV",
		Manufacturer: "Sony Corporation",
		Model:        "KD-55X80J",
	}

	got := c.Annotate(d)

	if got.Brand != device.BrandSony {
		t.Errorf("Brand = %q, want %q", got.Brand, device.BrandSony)
	}
	if got.Name != d.Name || got.Model != d.Model {
		t.Error("Annotate() dropped fields while filling the brand")
	}
	if d.Brand != "" {
		t.Error("Annotate() mutated its input")
	}
}

func TestAnnotateKeepsExistingBrand(t *testing.T) {
	// A classifier whose neighbor lookup would blow up proves the
	// waterfall is skipped for classified records.
	c := &Classifier{neighborMAC: func(string) string {
		panic("waterfall ran for an already-classified record")
	}}

	d := &device.Device{Addr: "192.168.1.30", Name: "TV", Brand: device.BrandVizio}
	if got := c.Annotate(d); got.Brand != device.BrandVizio {
		t.Errorf("Brand = %q, want %q", got.Brand, device.BrandVizio)
	}
}

func TestOUIVendor(t *testing.T) {
	tests := []struct {
		name string
		mac  string
		want string
	}{
		{"known prefix", "B0:A7:37:12:34:56", "Roku, Inc."},
		{"lowercase mac", "f0:9e:63:aa:bb:cc", "Apple, Inc."},
		{"unknown prefix", "02:00:00:12:34:56", ""},
		{"too short", "B0:A7", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ouiVendor(tt.mac); got != tt.want {
				t.Errorf("ouiVendor(%q) = %q, want %q", tt.mac, got, tt.want)
			}
		})
	}
}
