package device

import "strings"

// Brand is the classified vendor of a device. Classification is
// best-effort: records keep BrandUnknown when no evidence source matched.
type Brand string

const (
	BrandSamsung   Brand = "samsung"
	BrandLG        Brand = "lg"
	BrandSony      Brand = "sony"
	BrandPhilips   Brand = "philips"
	BrandPanasonic Brand = "panasonic"
	BrandTCL       Brand = "tcl"
	BrandHisense   Brand = "hisense"
	BrandVizio     Brand = "vizio"
	BrandSharp     Brand = "sharp"
	BrandToshiba   Brand = "toshiba"
	BrandRoku      Brand = "roku"
	BrandGoogle    Brand = "google"
	BrandApple     Brand = "apple"
	BrandAmazon    Brand = "amazon"
	BrandSonos     Brand = "sonos"
	BrandUnknown   Brand = "unknown"
)

// Brands lists every classifiable vendor, excluding BrandUnknown.
var Brands = []Brand{
	BrandSamsung, BrandLG, BrandSony, BrandPhilips, BrandPanasonic,
	BrandTCL, BrandHisense, BrandVizio, BrandSharp, BrandToshiba,
	BrandRoku, BrandGoogle, BrandApple, BrandAmazon, BrandSonos,
}

// ParseBrand maps a free-form vendor label to a Brand. Unrecognized
// labels map to BrandUnknown.
func ParseBrand(s string) Brand {
	b := Brand(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Brands {
		if b == known {
			return known
		}
	}
	return BrandUnknown
}

// Known reports whether the brand has been classified to a real vendor.
func (b Brand) Known() bool {
	return b != "" && b != BrandUnknown
}

func (b Brand) String() string {
	if b == "" {
		return string(BrandUnknown)
	}
	return string(b)
}

// Title returns the vendor label in its conventional capitalization.
func (b Brand) Title() string {
	switch b {
	case BrandLG:
		return "LG"
	case BrandTCL:
		return "TCL"
	case "", BrandUnknown:
		return "Unknown"
	default:
		return strings.ToUpper(string(b[:1])) + string(b[1:])
	}
}
