package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
	"github.com/screenscout/screenscout/internal/probe"
)

// Direct resolves one user-supplied address through an ordered
// identification pipeline, short-circuiting on the first protocol that
// answers. It emits at most one record and then closes; when every step
// fails the stream carries a single typed error that tells the user
// whether the address timed out or nothing answered at all.
type Direct struct {
	sessions sessions
	addr     string
}

// NewDirect returns a resolver for one target address.
func NewDirect(addr string) *Direct {
	return &Direct{addr: strings.TrimSpace(addr)}
}

// Start validates the address and launches the pipeline.
func (d *Direct) Start(ctx context.Context) error {
	ip := net.ParseIP(d.addr)
	if ip == nil {
		return NewValidationError(fmt.Sprintf("%q is not a valid IP address", d.addr))
	}

	sess := d.sessions.begin(ctx, "direct")

	sess.wg.Add(1)
	go d.resolve(sess, ip.String())
	sess.closeWhenDone()
	return nil
}

// Events implements Discoverer.
func (d *Direct) Events() <-chan Event {
	return d.sessions.events()
}

// Stop implements Discoverer.
func (d *Direct) Stop() {
	d.sessions.stop()
}

// resolve walks the pipeline: PJLink first (projectors greet instantly),
// then the description endpoints, then JointSpace, then a bare
// reachability check as the last resort.
func (d *Direct) resolve(sess *session, addr string) {
	defer sess.wg.Done()

	sawTimeout := false
	note := func(err error) {
		if os.IsTimeout(err) {
			sawTimeout = true
		}
	}

	if dev, err := probe.PJLink(sess.ctx, addr); err == nil {
		d.deliver(sess, dev)
		return
	} else {
		logging.LogProbe(addr, probe.PJLinkPort, "pjlink", err)
		note(err)
	}

	for _, ep := range probe.DescriptionEndpoints {
		if sess.ctx.Err() != nil {
			return
		}
		dev, err := probe.FromDescription(sess.ctx, addr, ep)
		logging.LogProbe(addr, ep.Port, "description", err)
		if err == nil {
			d.deliver(sess, dev)
			return
		}
		note(err)
	}

	for _, port := range []int{probe.JointSpacePort, probe.JointSpaceSecurePort} {
		if sess.ctx.Err() != nil {
			return
		}
		dev, err := probe.JointSpace(sess.ctx, addr, port)
		logging.LogProbe(addr, port, "jointspace", err)
		if err == nil {
			d.deliver(sess, dev)
			return
		}
		note(err)
	}

	if port, ok := probe.Reachable(sess.ctx, addr, reachabilityPorts()); ok {
		d.deliver(sess, &device.Device{
			Addr: addr,
			Name: fmt.Sprintf("Device (%s)", addr),
			Port: port,
		})
		return
	}

	if sess.ctx.Err() != nil {
		return
	}
	if sawTimeout {
		sess.emitErr(NewTimeoutError(addr))
	} else {
		sess.emitErr(NewNoResponseError(addr))
	}
}

func (d *Direct) deliver(sess *session, dev *device.Device) {
	dev.Method = device.MethodDirect
	if sess.emitDevice(dev) {
		logging.LogDeviceFound(sess.id, dev.Addr, dev.Name, string(dev.Method))
	}
}

// reachabilityPorts is the superset of every port the engine knows a
// media device to listen on, in rough likelihood order.
func reachabilityPorts() []int {
	seen := make(map[int]bool)
	var ports []int
	add := func(p int) {
		if !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
	}

	for _, p := range DefaultSweepPorts {
		add(p)
	}
	add(probe.PJLinkPort)
	for _, ep := range probe.DescriptionEndpoints {
		add(ep.Port)
	}
	return ports
}
