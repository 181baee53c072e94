package device

import "strings"

// Kind is a coarse device category derived from naming evidence. It is
// computed on demand and never stored; callers use it to filter network
// gear out of device pickers.
type Kind int

const (
	KindOther Kind = iota
	KindTV
	KindSpeaker
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindTV:
		return "tv"
	case KindSpeaker:
		return "speaker"
	case KindGateway:
		return "gateway"
	default:
		return "other"
	}
}

// Token tables are checked in a fixed order: gateway tokens first so a
// "FRITZ!Box Media Router" never classifies as a TV, then tv, then
// speaker. All matching is lower-cased substring containment over both
// the display name and the service type.
var (
	gatewayTokens = []string{
		"router", "gateway", "modem", "fritz", "speedport",
		"access point", "firewall", "internetgatewaydevice",
	}
	tvTokens = []string{
		"tv", "television", "bravia", "viera", "aquos", "webos",
		"chromecast", "roku", "mediarenderer", "screen",
	}
	speakerTokens = []string{
		"speaker", "soundbar", "sound", "audio", "sonos", "bose",
		"denon", "raop", "airplay", "spotify",
	}
)

// KindOf derives the category of a device from its display name and
// normalized service type.
func KindOf(name, serviceType string) Kind {
	haystack := strings.ToLower(name) + " " + strings.ToLower(serviceType)
	for _, tok := range gatewayTokens {
		if strings.Contains(haystack, tok) {
			return KindGateway
		}
	}
	for _, tok := range tvTokens {
		if strings.Contains(haystack, tok) {
			return KindTV
		}
	}
	for _, tok := range speakerTokens {
		if strings.Contains(haystack, tok) {
			return KindSpeaker
		}
	}
	return KindOther
}
