package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/screenscout/screenscout/internal/device"
)

const (
	// JointSpacePort is the plain-HTTP JointSpace port on older Philips
	// TVs (API versions 1 and 5).
	JointSpacePort = 1925

	// JointSpaceSecurePort is the HTTPS JointSpace port on Android-based
	// Philips TVs (API version 6, self-signed certificate).
	JointSpaceSecurePort = 1926
)

// jointspaceVersions lists the API versions probed, newest first so
// current TVs answer on the first request.
var jointspaceVersions = []int{6, 5, 1}

// jointspaceSystem is the /system payload. Philips moved fields behind
// _encrypted suffixes over the years; name and model stayed plain.
type jointspaceSystem struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// JointSpace identifies a Philips TV through its JointSpace system
// endpoint. Every published API version serves /<v>/system.
func JointSpace(ctx context.Context, addr string, port int) (*device.Device, error) {
	scheme := "http"
	if port == JointSpaceSecurePort {
		scheme = "https"
	}
	client := clientFor(port)

	var lastErr error
	for _, v := range jointspaceVersions {
		url := fmt.Sprintf("%s://%s/%d/system", scheme, net.JoinHostPort(addr, strconv.Itoa(port)), v)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build jointspace request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		sys, err := decodeJointspace(resp)
		if err != nil {
			lastErr = err
			continue
		}

		name := sys.Name
		if name == "" {
			name = "Philips TV"
		}
		return &device.Device{
			Addr:         addr,
			Name:         name,
			ServiceType:  "jointspace",
			Manufacturer: "Philips",
			Model:        sys.Model,
			Port:         port,
		}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no jointspace API version answered")
	}
	return nil, fmt.Errorf("jointspace probe: %w", lastErr)
}

func decodeJointspace(resp *http.Response) (*jointspaceSystem, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jointspace returned HTTP %d", resp.StatusCode)
	}

	var sys jointspaceSystem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&sys); err != nil {
		return nil, fmt.Errorf("decode jointspace system: %w", err)
	}
	return &sys, nil
}
