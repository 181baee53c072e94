package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/screenscout/screenscout/internal/device"
)

// SamsungInfoPort is the Tizen TV info endpoint port.
const SamsungInfoPort = 8001

// samsungInfo is the /api/v2/ payload subset the engine reads.
type samsungInfo struct {
	Device struct {
		Name      string `json:"name"`
		ModelName string `json:"modelName"`
		Type      string `json:"type"`
	} `json:"device"`
}

// SamsungInfo identifies a Samsung Tizen TV through its unauthenticated
// info endpoint.
func SamsungInfo(ctx context.Context, addr string) (*device.Device, error) {
	return samsungInfoAt(ctx, addr, SamsungInfoPort)
}

func samsungInfoAt(ctx context.Context, addr string, port int) (*device.Device, error) {
	url := fmt.Sprintf("http://%s/api/v2/", net.JoinHostPort(addr, strconv.Itoa(port)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build samsung info request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch samsung info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("samsung info returned HTTP %d", resp.StatusCode)
	}

	var info samsungInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode samsung info: %w", err)
	}

	name := strings.TrimSpace(info.Device.Name)
	if name == "" {
		return nil, fmt.Errorf("samsung info names no device")
	}

	return &device.Device{
		Addr:         addr,
		Name:         name,
		ServiceType:  strings.ToLower(strings.TrimSpace(info.Device.Type)),
		Manufacturer: "Samsung",
		Model:        strings.TrimSpace(info.Device.ModelName),
		Port:         port,
	}, nil
}
