package probe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/screenscout/screenscout/internal/device"
)

// PJLinkPort is the standard PJLink projector control port.
const PJLinkPort = 4352

// PJLink identifies a projector through the PJLink class 1 protocol.
// The exchange is line-based, each line terminated by a single '\r'.
// Projectors requiring authentication are reported as anonymous
// projectors; no authentication is ever attempted.
func PJLink(ctx context.Context, addr string) (*device.Device, error) {
	return pjlinkAt(ctx, addr, PJLinkPort)
}

func pjlinkAt(ctx context.Context, addr string, port int) (*device.Device, error) {
	conn, err := dialPort(ctx, addr, port)
	if err != nil {
		return nil, fmt.Errorf("pjlink connect: %w", err)
	}
	defer conn.Close()

	// Bound the whole exchange; close the socket early on cancellation
	// so session teardown never waits out the deadline.
	deadline := time.Now().Add(DefaultHTTPTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	watchdone := make(chan struct{})
	defer close(watchdone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchdone:
		}
	}()

	r := bufio.NewReader(conn)

	greeting, err := r.ReadString('\r')
	if err != nil {
		return nil, fmt.Errorf("pjlink greeting: %w", err)
	}
	greeting = strings.TrimSpace(greeting)

	switch {
	case strings.HasPrefix(greeting, "PJLINK 0"):
		// No authentication; the projector answers queries directly.
	case strings.HasPrefix(greeting, "PJLINK 1"):
		return &device.Device{
			Addr:        addr,
			Name:        "PJLink projector",
			ServiceType: "pjlink",
			Port:        port,
		}, nil
	default:
		return nil, fmt.Errorf("not a pjlink greeting: %q", greeting)
	}

	name, err := pjlinkQuery(conn, r, "%1NAME ?")
	if err != nil {
		return nil, fmt.Errorf("pjlink name query: %w", err)
	}
	// INF1/INF2 are the manufacturer and product queries. Projectors may
	// answer ERR for either; the name alone is enough to identify.
	manufacturer, _ := pjlinkQuery(conn, r, "%1INF1 ?")
	model, _ := pjlinkQuery(conn, r, "%1INF2 ?")

	if name == "" {
		name = "PJLink projector"
	}

	return &device.Device{
		Addr:         addr,
		Name:         name,
		ServiceType:  "pjlink",
		Manufacturer: manufacturer,
		Model:        model,
		Port:         port,
	}, nil
}

// pjlinkQuery sends one query and parses the "%1XXXX=value" reply.
// ERR replies mean the projector does not expose that field; they return
// an empty value, not an error.
func pjlinkQuery(w io.Writer, r *bufio.Reader, cmd string) (string, error) {
	if _, err := w.Write([]byte(cmd + "\r")); err != nil {
		return "", err
	}

	line, err := r.ReadString('\r')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)

	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", fmt.Errorf("malformed pjlink reply: %q", line)
	}

	val := strings.TrimSpace(line[i+1:])
	if strings.HasPrefix(val, "ERR") {
		return "", nil
	}
	return val, nil
}
