package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
	"github.com/screenscout/screenscout/internal/probe"
)

// DefaultSweepPorts are the TCP ports the sweep knocks on, the service
// ports of the device families worth finding: Philips JointSpace
// (1925/1926), Cast/DIAL (8008), Roku ECP (8060), LG webOS remote (3000)
// and Samsung Tizen (8001).
var DefaultSweepPorts = []int{1925, 1926, 8008, 8060, 3000, 8001}

const (
	// sweepBatchSize hosts are launched back to back, then the sweep
	// pauses for sweepStagger. This pacing is the only backpressure the
	// sweep applies; without it consumer-grade access points drop the
	// connection burst.
	sweepBatchSize = 16
	sweepStagger   = 75 * time.Millisecond
)

// Sweep is the TCP port-sweep prober. It enumerates the local /24,
// knocks on each host's service ports, emits a placeholder record the
// moment a port accepts, and upgrades it once the port's identification
// protocol answers.
type Sweep struct {
	sessions sessions

	// Ports overrides DefaultSweepPorts when set before Start.
	Ports []int

	// resolve identifies the device behind a live port. Nil means
	// probe.Resolve; tests swap it to keep the sweep off the network.
	resolve func(ctx context.Context, addr string, port int) (*device.Device, error)
}

// NewSweep returns a sweep prober with the default port set.
func NewSweep() *Sweep {
	return &Sweep{Ports: DefaultSweepPorts}
}

// Start enumerates the local subnet and launches the sweep. It fails
// when no usable IPv4 interface exists; everything after that is
// reported on the stream.
func (w *Sweep) Start(ctx context.Context) error {
	hosts, network, err := localSubnet()
	if err != nil {
		return NewCapabilityError("no usable IPv4 interface for port sweep", err)
	}

	sess := w.sessions.begin(ctx, "sweep")

	sess.wg.Add(1)
	go w.run(sess, hosts, network)
	sess.closeWhenDone()
	return nil
}

// Events implements Discoverer.
func (w *Sweep) Events() <-chan Event {
	return w.sessions.events()
}

// Stop implements Discoverer.
func (w *Sweep) Stop() {
	w.sessions.stop()
}

// run launches one goroutine per host, pausing between batches. The
// session ends when every host check and every in-flight identification
// has settled.
func (w *Sweep) run(sess *session, hosts []string, network string) {
	defer sess.wg.Done()

	ports := w.Ports
	if len(ports) == 0 {
		ports = DefaultSweepPorts
	}

	for i, host := range hosts {
		if i > 0 && i%sweepBatchSize == 0 {
			select {
			case <-sess.ctx.Done():
				return
			case <-time.After(sweepStagger):
			}
		}

		sess.wg.Add(1)
		go func(host string) {
			defer sess.wg.Done()
			w.checkHost(sess, host, ports, network)
		}(host)
	}
}

// checkHost knocks on each port in order; the first one accepting a
// connection wins the host and the rest are skipped.
func (w *Sweep) checkHost(sess *session, host string, ports []int, network string) {
	d := net.Dialer{Timeout: probe.DefaultDialTimeout}

	for _, port := range ports {
		if sess.ctx.Err() != nil {
			return
		}

		conn, err := d.DialContext(sess.ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		conn.Close()

		w.found(sess, host, port, network)
		return
	}
}

// found emits the placeholder record for a live host, then tries to
// upgrade it through the port's identification protocol. A failed
// identification keeps the placeholder; the orchestrator or a direct
// probe may still resolve it later.
func (w *Sweep) found(sess *session, addr string, port int, network string) {
	placeholder := &device.Device{
		Addr:    addr,
		Name:    device.PlaceholderName(addr),
		Method:  device.MethodPortProbe,
		Port:    port,
		Network: network,
	}
	if !sess.emitDevice(placeholder) {
		return
	}
	logging.LogDeviceFound(sess.id, addr, placeholder.Name, string(placeholder.Method))

	resolve := w.resolve
	if resolve == nil {
		resolve = probe.Resolve
	}
	resolved, err := resolve(sess.ctx, addr, port)
	logging.LogProbe(addr, port, "sweep identify", err)
	if err != nil {
		return
	}

	resolved.Method = device.MethodPortProbe
	resolved.Network = network
	if sess.emitDevice(resolved) {
		logging.LogDeviceFound(sess.id, addr, resolved.Name, string(resolved.Method))
	}
}

// localNetworkName names the LAN-facing /24 in CIDR form, or "" when no
// usable interface exists. Probers stamp it on their records so the
// registry can tell networks apart.
func localNetworkName() string {
	_, network, err := localSubnet()
	if err != nil {
		return ""
	}
	return network
}

// localSubnet picks the machine's LAN-facing IPv4 address and enumerates
// its /24, excluding the machine itself.
func localSubnet() ([]string, string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, "", err
	}

	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() {
			continue
		}
		hosts, network := subnetHosts(ip4.String())
		return hosts, network, nil
	}
	return nil, "", errors.New("no IPv4 LAN interface found")
}

// subnetHosts enumerates the /24 around own, excluding own itself, and
// names the network in CIDR form.
func subnetHosts(own string) ([]string, string) {
	ip := net.ParseIP(own)
	if ip = ip.To4(); ip == nil {
		return nil, ""
	}

	base := fmt.Sprintf("%d.%d.%d.", ip[0], ip[1], ip[2])
	hosts := make([]string, 0, 253)
	for i := 1; i <= 254; i++ {
		h := base + strconv.Itoa(i)
		if h == own {
			continue
		}
		hosts = append(hosts, h)
	}
	return hosts, base + "0/24"
}
