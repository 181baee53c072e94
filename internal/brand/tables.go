package brand

import "github.com/screenscout/screenscout/internal/device"

// token pairs a lowercase substring with the vendor it identifies.
// Tables are ordered slices, not maps: match order is part of the
// contract and stays deterministic.
type token struct {
	substr string
	brand  device.Brand
}

// namespaceTokens identify vendors from protocol namespaces observed in
// SSDP search targets, USN/SERVER headers and mDNS service types. Each
// entry is specific enough that a match is definitive. Shared namespaces
// (upnp-org, dial-multiscreen-org) identify nobody and stay out.
var namespaceTokens = []token{
	{"samsung.com", device.BrandSamsung},
	{"samsung-com", device.BrandSamsung},
	{"lge-com", device.BrandLG},
	{"lge.com", device.BrandLG},
	{"webos", device.BrandLG},
	{"sony-com", device.BrandSony},
	{"scalarwebapi", device.BrandSony},
	{"philips-com", device.BrandPhilips},
	{"jointspace", device.BrandPhilips},
	{"panasonic-com", device.BrandPanasonic},
	{"roku:ecp", device.BrandRoku},
	{"roku-com", device.BrandRoku},
	{"googlecast", device.BrandGoogle},
	{"airplay", device.BrandApple},
	{"raop", device.BrandApple},
	{"zoneplayer", device.BrandSonos},
	{"sonos", device.BrandSonos},
	{"viziocast", device.BrandVizio},
	{"amzn.dmgr", device.BrandAmazon},
}

// manufacturerTokens match the manufacturer strings devices report about
// themselves, including licensee and former corporate names.
var manufacturerTokens = []token{
	{"samsung", device.BrandSamsung},
	{"lg electronics", device.BrandLG},
	{"lg display", device.BrandLG},
	{"sony", device.BrandSony},
	{"philips", device.BrandPhilips},
	{"tp vision", device.BrandPhilips},
	{"panasonic", device.BrandPanasonic},
	{"matsushita", device.BrandPanasonic},
	{"tcl", device.BrandTCL},
	{"hisense", device.BrandHisense},
	{"vizio", device.BrandVizio},
	{"sharp", device.BrandSharp},
	{"toshiba", device.BrandToshiba},
	{"roku", device.BrandRoku},
	{"google", device.BrandGoogle},
	{"apple", device.BrandApple},
	{"amazon", device.BrandAmazon},
	{"sonos", device.BrandSonos},
}

// ouiVendors maps the first three octets of a MAC to the registered
// vendor name, which is then matched like a manufacturer string. A tiny
// curated sample of the IEEE registry; the full list runs to megabytes
// and mostly names vendors that never ship a media device.
var ouiVendors = map[string]string{
	"00:12:FB": "Samsung Electronics",
	"00:15:99": "Samsung Electronics",
	"E4:7D:BD": "Samsung Electronics",
	"8C:79:F5": "Samsung Electronics",
	"00:1E:75": "LG Electronics",
	"CC:2D:8C": "LG Electronics",
	"A8:23:FE": "LG Electronics",
	"00:13:A9": "Sony Corporation",
	"54:42:49": "Sony Corporation",
	"FC:F1:52": "Sony Corporation",
	"00:17:88": "Philips Lighting",
	"00:80:F0": "Panasonic Communications",
	"B0:A7:37": "Roku, Inc.",
	"CC:6D:A0": "Roku, Inc.",
	"B8:3E:59": "Roku, Inc.",
	"54:60:09": "Google, Inc.",
	"F4:F5:D8": "Google, Inc.",
	"F0:9E:63": "Apple, Inc.",
	"BC:D1:D3": "Apple, Inc.",
	"00:17:F2": "Apple, Inc.",
	"F0:27:2D": "Amazon Technologies",
	"44:65:0D": "Amazon Technologies",
	"74:C2:46": "Amazon Technologies",
	"00:0E:58": "Sonos, Inc.",
	"5C:AA:FD": "Sonos, Inc.",
	"00:19:9D": "Vizio, Inc.",
	"08:00:1F": "Sharp Corporation",
	"00:00:39": "Toshiba Corporation",
}

// looseTokens extend the manufacturer table with marketing and platform
// names that show up in display names and service types but never in a
// manufacturer field.
var looseTokens = []token{
	{"bravia", device.BrandSony},
	{"viera", device.BrandPanasonic},
	{"aquos", device.BrandSharp},
	{"regza", device.BrandToshiba},
	{"tizen", device.BrandSamsung},
	{"webos", device.BrandLG},
	{"chromecast", device.BrandGoogle},
	{"android tv", device.BrandGoogle},
	{"fire tv", device.BrandAmazon},
	{"firetv", device.BrandAmazon},
	{"apple tv", device.BrandApple},
	{"homepod", device.BrandApple},
	{"smartcast", device.BrandVizio},
}
