// Package server bridges discovery sessions to UI collaborators over
// HTTP and WebSocket.
//
// A desktop or browser UI that cannot open multicast sockets itself
// connects to this bridge instead: it requests a scan over WebSocket and
// receives the reconciled device stream as JSON messages, and it reads
// and edits the saved-device registry over a small JSON API.
//
// # Endpoints
//
//	GET    /api/scan            WebSocket; streams one discovery session
//	GET    /api/devices         list saved devices
//	GET    /api/devices/{addr}  fetch one saved device
//	PATCH  /api/devices/{addr}  rename (body: {"name": "..."})
//	DELETE /api/devices/{addr}  forget
//	GET    /healthz             liveness probe
//
// # Scan stream
//
// Query parameters select the session: mode (network, direct, code),
// addr (direct target), timeout (seconds), ports (comma-separated sweep
// override) and save (persist found devices to the registry). For code
// mode the client sends the captured pairing payload as its first
// message after the handshake.
//
// Messages are JSON with a type discriminator:
//
//	{"type": "device", "device": {...}}
//	{"type": "error", "error": "no response from device"}
//	{"type": "complete", "count": 3}
//
// The stream ends with a "complete" message and a normal close frame
// when the session finishes or times out. Recoverable probe failures
// arrive as "error" messages; they never terminate the stream.
//
// # Keepalive
//
// The bridge pings every 54 seconds and expects a pong within 60; a
// client that stops answering is treated as gone and its session is
// wound down, closing the discovery sockets it held open.
//
// # Graceful Shutdown
//
// The server handles SIGINT and SIGTERM for graceful shutdown:
//  1. Cancel running scan sessions so probers close their sockets
//  2. Stop accepting requests and drain plain HTTP handlers
//  3. Close active WebSocket connections
//  4. Wait for scan handlers to finish, bounded by a timeout
//
// # Thread Safety
//
// Each client connection runs in its own handler goroutine and owns its
// own discovery session. The shared registry serializes access
// internally.
package server
