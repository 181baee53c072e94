package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/discovery"
)

// fakeDiscoverer feeds a scripted event stream through the bridge.
type fakeDiscoverer struct {
	script []discovery.Event
	hold   bool // keep the stream open until Stop

	mu      sync.Mutex
	events  chan discovery.Event
	stopped chan struct{}
}

func newFakeDiscoverer(script ...discovery.Event) *fakeDiscoverer {
	return &fakeDiscoverer{script: script, stopped: make(chan struct{})}
}

func (f *fakeDiscoverer) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = make(chan discovery.Event, len(f.script)+1)
	for _, ev := range f.script {
		f.events <- ev
	}
	if !f.hold {
		close(f.events)
	}
	return nil
}

func (f *fakeDiscoverer) Events() <-chan discovery.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

func (f *fakeDiscoverer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.stopped:
		return
	default:
	}
	if f.hold && f.events != nil {
		close(f.events)
	}
	close(f.stopped)
}

func (f *fakeDiscoverer) wasStopped() bool {
	select {
	case <-f.stopped:
		return true
	default:
		return false
	}
}

// newTestServer mounts the bridge on an httptest server with a
// throwaway registry.
func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	s, err := New(&Config{
		RegistryPath: filepath.Join(t.TempDir(), "devices.yaml"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv := httptest.NewServer(s.handler())
	t.Cleanup(func() {
		srv.Close()
		s.baseCancel()
	})
	return s, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

// readStream drains one scan stream, returning the JSON messages in
// order. It fails the test if the stream does not end with a close
// frame within the deadline.
func readStream(t *testing.T, conn *websocket.Conn) []Message {
	t.Helper()

	var msgs []Message
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("stream ended with %v, want normal close", err)
			}
			return msgs
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("invalid stream message %q: %v", data, err)
		}
		msgs = append(msgs, msg)
	}
}

func TestDevicesList(t *testing.T) {
	s, srv := newTestServer(t)

	for _, d := range []*device.Device{
		{Addr: "192.0.2.2", Name: "Bedroom TV", Method: device.MethodSSDP},
		{Addr: "192.0.2.1", Name: "Atrium Display", Method: device.MethodMDNS},
	} {
		if _, err := s.registry.Save(d); err != nil {
			t.Fatalf("seed Save() error = %v", err)
		}
	}

	resp, err := http.Get(srv.URL + "/api/devices")
	if err != nil {
		t.Fatalf("GET /api/devices error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body devicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(body.Devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(body.Devices))
	}
	// List is sorted by display name.
	if body.Devices[0].Addr != "192.0.2.1" {
		t.Errorf("first device = %s, want 192.0.2.1", body.Devices[0].Addr)
	}
}

func TestDevicesListMethodNotAllowed(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/devices", "application/json", nil)
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestDeviceGet(t *testing.T) {
	s, srv := newTestServer(t)

	if _, err := s.registry.Save(&device.Device{Addr: "192.0.2.30", Name: "TV"}); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/devices/192.0.2.30")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got device.Device
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if got.Name != "TV" {
		t.Errorf("Name = %q, want TV", got.Name)
	}

	missing, err := http.Get(srv.URL + "/api/devices/192.0.2.99")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("status for unknown device = %d, want 404", missing.StatusCode)
	}
}

func TestDeviceRename(t *testing.T) {
	s, srv := newTestServer(t)

	if _, err := s.registry.Save(&device.Device{Addr: "192.0.2.30", Name: "TV"}); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/devices/192.0.2.30",
		bytes.NewReader([]byte(`{"name": "Den TV"}`)))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got device.Device
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if got.CustomName != "Den TV" {
		t.Errorf("CustomName = %q, want Den TV", got.CustomName)
	}

	saved, err := s.registry.Get("192.0.2.30")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if saved.DisplayName() != "Den TV" {
		t.Errorf("DisplayName() = %q, want the rename persisted", saved.DisplayName())
	}
}

func TestDeviceRenameBadRequests(t *testing.T) {
	s, srv := newTestServer(t)

	if _, err := s.registry.Save(&device.Device{Addr: "192.0.2.30", Name: "TV"}); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}

	tests := []struct {
		name       string
		addr       string
		body       string
		wantStatus int
	}{
		{"malformed body", "192.0.2.30", `{not json`, http.StatusBadRequest},
		{"unknown device", "192.0.2.99", `{"name": "x"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/api/devices/"+tt.addr,
				bytes.NewReader([]byte(tt.body)))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("PATCH error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestDeviceForget(t *testing.T) {
	s, srv := newTestServer(t)

	if _, err := s.registry.Save(&device.Device{Addr: "192.0.2.30", Name: "TV"}); err != nil {
		t.Fatalf("seed Save() error = %v", err)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/devices/192.0.2.30", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	again, err := http.DefaultClient.Do(req.Clone(context.Background()))
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	again.Body.Close()
	if again.StatusCode != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want 404", again.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestScanStreamsSession(t *testing.T) {
	s, srv := newTestServer(t)

	fake := newFakeDiscoverer(
		discovery.Event{Device: &device.Device{Addr: "192.0.2.10", Name: "Sony BRAVIA", Method: device.MethodSSDP}},
		discovery.Event{Err: discovery.NewNoResponseError("192.0.2.11")},
		discovery.Event{Device: &device.Device{Addr: "192.0.2.12", Name: "Roku Express", Method: device.MethodMDNS}},
	)
	s.newDiscoverer = func(opts discovery.Options) discovery.Discoverer { return fake }

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/scan?mode=network"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	msgs := readStream(t, conn)
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4 (2 devices, 1 error, 1 complete)", len(msgs))
	}

	if msgs[0].Type != MessageDevice || msgs[0].Device.Addr != "192.0.2.10" {
		t.Errorf("msgs[0] = %+v, want device 192.0.2.10", msgs[0])
	}
	if msgs[1].Type != MessageError || msgs[1].Error == "" {
		t.Errorf("msgs[1] = %+v, want an error message", msgs[1])
	}
	if msgs[2].Type != MessageDevice || msgs[2].Device.Addr != "192.0.2.12" {
		t.Errorf("msgs[2] = %+v, want device 192.0.2.12", msgs[2])
	}
	if msgs[3].Type != MessageComplete || msgs[3].Count != 2 {
		t.Errorf("msgs[3] = %+v, want complete with count 2", msgs[3])
	}

	if !fake.wasStopped() {
		t.Error("discoverer was not stopped after the stream ended")
	}
}

func TestScanSavesDevicesWhenAsked(t *testing.T) {
	s, srv := newTestServer(t)

	fake := newFakeDiscoverer(
		discovery.Event{Device: &device.Device{Addr: "192.0.2.10", Name: "Sony BRAVIA", Manufacturer: "Sony Corporation", Method: device.MethodSSDP}},
	)
	s.newDiscoverer = func(opts discovery.Options) discovery.Discoverer { return fake }

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/scan?mode=network&save=1"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	readStream(t, conn)

	saved, err := s.registry.Get("192.0.2.10")
	if err != nil {
		t.Fatalf("device was not saved: %v", err)
	}
	if saved.Brand != device.BrandSony {
		t.Errorf("saved Brand = %q, want %q (classified on save)", saved.Brand, device.BrandSony)
	}
}

func TestScanCodeModeForwardsPayload(t *testing.T) {
	s, srv := newTestServer(t)

	payload := []byte(`{"version": 1, "address": "192.168.1.61", "port": 8002, "name": "Frame TV"}`)

	var gotOpts discovery.Options
	fake := newFakeDiscoverer(
		discovery.Event{Device: &device.Device{Addr: "192.168.1.61", Name: "Frame TV", Method: device.MethodCode}},
	)
	s.newDiscoverer = func(opts discovery.Options) discovery.Discoverer {
		gotOpts = opts
		return fake
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/scan?mode=code"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	msgs := readStream(t, conn)
	if len(msgs) != 2 || msgs[0].Type != MessageDevice {
		t.Fatalf("got %d messages (%+v), want device then complete", len(msgs), msgs)
	}
	if gotOpts.Mode != discovery.ModeCode {
		t.Errorf("Mode = %v, want ModeCode", gotOpts.Mode)
	}
	if !bytes.Equal(gotOpts.Payload, payload) {
		t.Errorf("Payload = %q, want the client's first message", gotOpts.Payload)
	}
}

func TestScanClientDisconnectStopsSession(t *testing.T) {
	s, srv := newTestServer(t)

	fake := newFakeDiscoverer(
		discovery.Event{Device: &device.Device{Addr: "192.0.2.10", Name: "TV", Method: device.MethodSSDP}},
	)
	fake.hold = true
	s.newDiscoverer = func(opts discovery.Options) discovery.Discoverer { return fake }

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/scan?mode=network"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}

	// Take the first device, then hang up mid-scan.
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	conn.Close()

	deadline := time.After(3 * time.Second)
	for !fake.wasStopped() {
		select {
		case <-deadline:
			t.Fatal("session was not stopped after the client disconnected")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScanOptionValidation(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"unknown mode", "mode=bogus"},
		{"direct without addr", "mode=direct"},
		{"bad timeout", "mode=network&timeout=soon"},
		{"negative timeout", "mode=network&timeout=-5"},
		{"bad port", "mode=network&ports=1925,notaport"},
		{"port out of range", "mode=network&ports=70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/scan?" + tt.query)
			if err != nil {
				t.Fatalf("GET error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestParseScanOptions(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantMode discovery.Mode
		wantSave bool
		wantErr  bool
	}{
		{"default is network", "", discovery.ModeNetwork, false, false},
		{"explicit network", "mode=network", discovery.ModeNetwork, false, false},
		{"direct with addr", "mode=direct&addr=192.168.1.50", discovery.ModeDirect, false, false},
		{"code", "mode=code", discovery.ModeCode, false, false},
		{"save flag", "mode=network&save=1", discovery.ModeNetwork, true, false},
		{"save true", "mode=network&save=true", discovery.ModeNetwork, true, false},
		{"direct needs addr", "mode=direct", discovery.ModeNetwork, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/scan?"+tt.query, nil)
			opts, save, err := parseScanOptions(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if opts.Mode != tt.wantMode {
				t.Errorf("Mode = %v, want %v", opts.Mode, tt.wantMode)
			}
			if save != tt.wantSave {
				t.Errorf("save = %v, want %v", save, tt.wantSave)
			}
		})
	}
}

func TestParseScanOptionsPortsAndTimeout(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/scan?mode=network&timeout=45&ports=1925,8008,4352", nil)
	opts, _, err := parseScanOptions(r)
	if err != nil {
		t.Fatalf("parseScanOptions() error = %v", err)
	}
	if opts.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", opts.Timeout)
	}
	want := []int{1925, 8008, 4352}
	if len(opts.Ports) != len(want) {
		t.Fatalf("Ports = %v, want %v", opts.Ports, want)
	}
	for i, p := range want {
		if opts.Ports[i] != p {
			t.Errorf("Ports[%d] = %d, want %d", i, opts.Ports[i], p)
		}
	}
}

func TestActiveConnectionTracking(t *testing.T) {
	s, srv := newTestServer(t)

	fake := newFakeDiscoverer()
	fake.hold = true
	s.newDiscoverer = func(opts discovery.Options) discovery.Discoverer { return fake }

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/scan?mode=network"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.After(3 * time.Second)
	for s.GetActiveConnections() != 1 {
		select {
		case <-deadline:
			t.Fatalf("active connections = %d, want 1", s.GetActiveConnections())
		case <-time.After(10 * time.Millisecond):
		}
	}

	conn.Close()
	deadline = time.After(3 * time.Second)
	for s.GetActiveConnections() != 0 {
		select {
		case <-deadline:
			t.Fatalf("active connections = %d, want 0 after disconnect", s.GetActiveConnections())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScanRequiresWebSocketHandshake(t *testing.T) {
	_, srv := newTestServer(t)

	// Valid options but no upgrade headers.
	resp, err := http.Get(srv.URL + "/api/scan?mode=network")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 from the upgrader", resp.StatusCode)
	}
}

func ExampleMessage() {
	msg := Message{Type: MessageDevice, Device: &device.Device{
		Addr:   "192.168.1.50",
		Name:   "Living Room TV",
		Method: device.MethodSSDP,
	}}
	data, _ := json.Marshal(msg)
	fmt.Println(string(data))
	// Output: {"type":"device","device":{"addr":"192.168.1.50","name":"Living Room TV","method":"ssdp","first_seen":"0001-01-01T00:00:00Z"}}
}
