package brand

import (
	"os"
	"runtime"
	"strings"
)

const arpTablePath = "/proc/net/arp"

// zeroMAC is what the kernel reports for incomplete neighbor entries.
const zeroMAC = "00:00:00:00:00:00"

// neighborMAC reads the kernel's neighbor cache for addr's link-layer
// address. Only Linux exposes the cache as a file; everywhere else the
// layer is skipped.
func neighborMAC(addr string) string {
	if runtime.GOOS != "linux" {
		return ""
	}
	return macFromARPTable(addr, arpTablePath)
}

// macFromARPTable scans a /proc/net/arp style table. Columns are
// IP address, HW type, Flags, HW address, Mask, Device; the header line
// never matches a real address and falls out naturally.
func macFromARPTable(addr, path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(string(content), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		if fields[0] != addr {
			continue
		}
		if fields[3] == zeroMAC {
			// Incomplete entry: the kernel asked, nobody answered.
			return ""
		}
		return fields[3]
	}
	return ""
}
