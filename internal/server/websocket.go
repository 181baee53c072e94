package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/discovery"
	"github.com/screenscout/screenscout/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Time allowed for a code-mode client to deliver its pairing payload
	payloadWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser UIs connect from file:// and arbitrary LAN origins; the
	// bridge carries no cookies or credentials an origin check would
	// protect.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Scan stream message types.
const (
	MessageDevice   = "device"
	MessageError    = "error"
	MessageComplete = "complete"
)

// Message is one frame on the scan stream. Type selects which of the
// remaining fields is set.
type Message struct {
	Type   string         `json:"type"`
	Device *device.Device `json:"device,omitempty"`
	Error  string         `json:"error,omitempty"`
	Count  int            `json:"count,omitempty"`
}

// handleScan upgrades the request and streams one discovery session.
//
//	GET /api/scan?mode=network[&timeout=20][&ports=1925,8008][&save=1]
//	GET /api/scan?mode=direct&addr=192.168.1.50
//	GET /api/scan?mode=code            (payload sent as first message)
//
// Every reconciled device is a "device" message, recoverable probe
// failures are "error" messages, and the stream ends with a "complete"
// message followed by a normal close.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	opts, save, err := parseScanOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	remoteAddr := conn.RemoteAddr().String()
	s.trackConn(remoteAddr, conn)
	defer s.releaseConn(remoteAddr)

	logging.LogConnection(remoteAddr, "scan_client_connected")
	conn.SetReadLimit(maxMessageSize)

	if opts.Mode == discovery.ModeCode {
		payload, err := readPairingPayload(conn)
		if err != nil {
			writeClose(conn, websocket.ClosePolicyViolation, "pairing payload required")
			return
		}
		opts.Payload = payload
	}

	s.streamScan(conn, remoteAddr, opts, save)
}

// streamScan runs one discovery session and pumps its events to the
// client, interleaved with keepalive pings.
func (s *Server) streamScan(conn *websocket.Conn, remoteAddr string, opts discovery.Options, save bool) {
	disc := s.newDiscoverer(opts)
	if err := disc.Start(s.baseCtx); err != nil {
		writeMessage(conn, Message{Type: MessageError, Error: err.Error()})
		writeClose(conn, websocket.CloseInternalServerErr, "discovery failed to start")
		return
	}
	defer disc.Stop()

	logging.Info("Scan session started for client",
		zap.String("remote_addr", remoteAddr),
		zap.String("mode", opts.Mode.String()),
	)

	// Read pump: the client sends nothing after the handshake (code-mode
	// payload aside), but reading is how we notice it hanging up and how
	// pongs refresh the liveness deadline.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	count := 0
	events := disc.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				writeMessage(conn, Message{Type: MessageComplete, Count: count})
				writeClose(conn, websocket.CloseNormalClosure, "scan complete")
				logging.Info("Scan session complete",
					zap.String("remote_addr", remoteAddr),
					zap.Int("devices", count),
				)
				return
			}
			if ev.Err != nil {
				if !writeMessage(conn, Message{Type: MessageError, Error: discovery.GetShortErrorMessage(ev.Err)}) {
					return
				}
				continue
			}
			count++
			if save {
				if _, err := s.registry.Save(ev.Device); err != nil {
					logging.Warn("Failed to save discovered device",
						zap.String("addr", ev.Device.Addr),
						zap.Error(err),
					)
				}
			}
			if !writeMessage(conn, Message{Type: MessageDevice, Device: ev.Device}) {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-clientGone:
			logging.LogConnection(remoteAddr, "scan_client_disconnected")
			return

		case <-s.baseCtx.Done():
			writeClose(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

// parseScanOptions maps query parameters onto discovery options. The
// bool result reports whether found devices should be saved to the
// registry.
func parseScanOptions(r *http.Request) (discovery.Options, bool, error) {
	q := r.URL.Query()
	var opts discovery.Options

	switch q.Get("mode") {
	case "", "network":
		opts.Mode = discovery.ModeNetwork
	case "direct":
		opts.Mode = discovery.ModeDirect
		opts.Addr = strings.TrimSpace(q.Get("addr"))
		if opts.Addr == "" {
			return opts, false, fmt.Errorf("mode=direct requires an addr parameter")
		}
	case "code":
		opts.Mode = discovery.ModeCode
	default:
		return opts, false, fmt.Errorf("unknown mode %q", q.Get("mode"))
	}

	if v := q.Get("timeout"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return opts, false, fmt.Errorf("invalid timeout %q", v)
		}
		opts.Timeout = time.Duration(secs) * time.Second
	}

	if v := q.Get("ports"); v != "" {
		for _, part := range strings.Split(v, ",") {
			port, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || port < 1 || port > 65535 {
				return opts, false, fmt.Errorf("invalid port %q", part)
			}
			opts.Ports = append(opts.Ports, port)
		}
	}

	save := q.Get("save") == "1" || strings.EqualFold(q.Get("save"), "true")
	return opts, save, nil
}

// readPairingPayload reads the code-mode payload the client must send as
// its first message after the handshake.
func readPairingPayload(conn *websocket.Conn) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(payloadWait)); err != nil {
		return nil, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading pairing payload: %w", err)
	}
	return data, nil
}

// writeMessage sends one JSON frame, reporting whether the client is
// still reachable.
func writeMessage(conn *websocket.Conn, msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("Failed to encode stream message", zap.Error(err))
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Debug("Stream write failed", zap.Error(err))
		return false
	}
	return true
}

// writeClose sends a close frame; the deferred releaseConn tears the
// connection down afterwards.
func writeClose(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}
