package discovery

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
	"github.com/screenscout/screenscout/internal/probe"
	"github.com/screenscout/screenscout/internal/version"
)

const (
	// ssdpMulticastAddr is the well-known SSDP group.
	ssdpMulticastAddr = "239.255.255.250:1900"

	// ssdpResendEvery is how often the whole search-target set is resent.
	// UDP multicast is lossy; devices that missed a wave catch the next.
	ssdpResendEvery = 2 * time.Second

	// ssdpMX asks devices to spread their responses over this many
	// seconds, keeping the reply burst off the reader.
	ssdpMX = 3

	ssdpReadBuffer = 8192
)

// ssdpSearchTargets is the fixed target set: the two broad searches plus
// the two device classes media devices actually announce.
var ssdpSearchTargets = []string{
	"ssdp:all",
	"upnp:rootdevice",
	"urn:schemas-upnp-org:device:MediaRenderer:1",
	"urn:dial-multiscreen-org:service:dial:1",
}

// SSDP is the multicast UPnP search prober, the engine's authority
// source. It sends M-SEARCH to the SSDP group from an ephemeral socket,
// collects unicast responses, and enriches each responder with its
// fetched device description.
type SSDP struct {
	sessions sessions

	// network is the local /24 stamped on every record, captured once
	// per Start. conn is the search socket of the current session.
	network string
	conn    *net.UDPConn
}

// NewSSDP returns an SSDP prober ready to Start.
func NewSSDP() *SSDP {
	return &SSDP{}
}

// Start opens the search socket and launches the session. Socket setup
// failures are returned; everything after that is reported on the stream.
func (s *SSDP) Start(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return NewTransportError("open ssdp search socket", "", err)
	}
	_ = conn.SetReadBuffer(1 << 20)

	sess := s.sessions.begin(ctx, "ssdp")
	s.network = localNetworkName()
	s.conn = conn

	sess.wg.Add(3)
	go s.search(sess, conn)
	go s.listen(sess, conn)
	go func() {
		// Closing the socket is what unblocks the listener.
		defer sess.wg.Done()
		<-sess.ctx.Done()
		conn.Close()
	}()
	sess.closeWhenDone()
	return nil
}

// Events implements Discoverer.
func (s *SSDP) Events() <-chan Event {
	return s.sessions.events()
}

// Stop implements Discoverer.
func (s *SSDP) Stop() {
	s.sessions.stop()
}

// search sends the target set immediately and again every resend period
// until the session ends.
func (s *SSDP) search(sess *session, conn *net.UDPConn) {
	defer sess.wg.Done()

	dst, err := net.ResolveUDPAddr("udp4", ssdpMulticastAddr)
	if err != nil {
		sess.emitErr(NewTransportError("resolve ssdp group", "", err))
		return
	}

	ticker := time.NewTicker(ssdpResendEvery)
	defer ticker.Stop()

	for {
		for _, target := range ssdpSearchTargets {
			if _, err := conn.WriteToUDP(buildMSearch(target), dst); err != nil {
				if sess.ctx.Err() != nil {
					return
				}
				sess.emitErr(NewTransportError("send M-SEARCH", "", err))
			}
			logging.Debug("M-SEARCH sent",
				zap.String("session_id", sess.id),
				zap.String("st", target),
			)
		}

		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// listen parses unicast responses until the socket closes. The first
// response per source address wins the description follow-up; later
// responses from the same device (one arrives per matching target) are
// dropped here rather than burdening the orchestrator.
func (s *SSDP) listen(sess *session, conn *net.UDPConn) {
	defer sess.wg.Done()

	seen := make(map[string]bool)
	buf := make([]byte, ssdpReadBuffer)

	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}

		headers := parseSSDPHeaders(string(buf[:n]))
		if len(headers) == 0 {
			continue
		}

		addr := src.IP.String()
		if seen[addr] {
			continue
		}
		seen[addr] = true

		logging.LogRawBytes("SSDP response", buf[:n])

		sess.wg.Add(1)
		go func(addr string, headers map[string]string) {
			defer sess.wg.Done()
			s.resolve(sess, addr, headers)
		}(addr, headers)
	}
}

// resolve turns one SSDP response into a device record. When the LOCATION
// fetch fails the responder is still real, so a minimally-identified
// record built from the headers goes out alongside the error.
func (s *SSDP) resolve(sess *session, addr string, headers map[string]string) {
	location := headers["LOCATION"]

	d := &device.Device{
		Addr:        addr,
		Name:        ssdpFallbackName(headers),
		Method:      device.MethodSSDP,
		Network:     s.network,
		Location:    location,
		ServiceType: probe.NormalizeURN(headers["ST"]),
		Headers:     headers,
	}

	if location != "" {
		if u, err := url.Parse(location); err == nil && u.Port() != "" {
			if p, err := strconv.Atoi(u.Port()); err == nil {
				d.Port = p
			}
		}

		desc, err := probe.FetchDescription(sess.ctx, location)
		switch {
		case err != nil:
			if sess.ctx.Err() != nil {
				return
			}
			sess.emitErr(NewTransportError("fetch device description", addr, err))
		default:
			if desc.FriendlyName != "" {
				d.Name = desc.FriendlyName
			}
			d.Manufacturer = desc.Manufacturer
			d.Model = desc.ModelName
			if desc.DeviceType != "" {
				d.ServiceType = probe.NormalizeURN(desc.DeviceType)
			}
		}
	}

	if sess.emitDevice(d) {
		logging.LogDeviceFound(sess.id, d.Addr, d.Name, string(d.Method))
	}
}

// ssdpFallbackName names a responder whose description could not be
// fetched. The SERVER product string is the best the headers offer.
func ssdpFallbackName(headers map[string]string) string {
	if server := headers["SERVER"]; server != "" {
		return server
	}
	return "UPnP device"
}

// buildMSearch renders one M-SEARCH datagram. Header set and order follow
// the UPnP 1.1 search request format.
func buildMSearch(target string) []byte {
	var b strings.Builder
	b.WriteString("M-SEARCH * HTTP/1.1\r\n")
	b.WriteString("HOST: " + ssdpMulticastAddr + "\r\n")
	b.WriteString("MAN: \"ssdp:discover\"\r\n")
	b.WriteString("MX: " + strconv.Itoa(ssdpMX) + "\r\n")
	b.WriteString("ST: " + target + "\r\n")
	b.WriteString("USER-AGENT: " + version.UserAgent() + "\r\n")
	b.WriteString("\r\n")
	return []byte(b.String())
}

// parseSSDPHeaders parses an HTTP-ish SSDP response into upper-cased
// header keys. The status line is skipped; malformed lines are dropped.
func parseSSDPHeaders(payload string) map[string]string {
	lines := strings.Split(payload, "\r\n")
	if len(lines) < 2 {
		return nil
	}

	headers := make(map[string]string, len(lines)-1)
	for _, ln := range lines[1:] {
		i := strings.Index(ln, ":")
		if i <= 0 {
			continue
		}
		k := strings.ToUpper(strings.TrimSpace(ln[:i]))
		v := strings.TrimSpace(ln[i+1:])
		headers[k] = v
	}
	return headers
}
