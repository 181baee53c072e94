package discovery

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
)

// Event is one item on a discovery stream. Exactly one of Device or Err
// is set. Errors are recoverable: a prober that fails one probe keeps
// running, and the orchestrator never tears down siblings over them.
type Event struct {
	Device *device.Device
	Err    error
}

// Discoverer is the contract every prober implements.
//
// A Discoverer owns at most one active session. Start launches a new
// session, implicitly cancelling and fully winding down a previous one.
// Events returns the current session's stream; the channel is closed when
// the session ends for any reason. Stop cancels the session and blocks
// until the stream has closed, so no events are emitted after it returns.
// Stop is idempotent and safe from any goroutine.
type Discoverer interface {
	Start(ctx context.Context) error
	Events() <-chan Event
	Stop()
}

// eventBuffer smooths bursts (an SSDP resend wave can answer all at once)
// without letting a slow consumer stall probers for long.
const eventBuffer = 8

// session holds the per-Start state a prober needs: a cancellable
// context, the event channel, and a WaitGroup tracking every emitter
// goroutine. The channel closes only after all emitters return, so a
// consumer ranging over it always terminates.
type session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	wg     sync.WaitGroup
	closed chan struct{}
}

func newSession(parent context.Context) *session {
	ctx, cancel := context.WithCancel(parent)
	return &session{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, eventBuffer),
		closed: make(chan struct{}),
	}
}

// closeWhenDone arranges for the event channel to close once every
// emitter registered on the WaitGroup has returned. Call it exactly once,
// after the session's goroutines are launched.
func (s *session) closeWhenDone() {
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.closed)
	}()
}

// stop cancels the session and waits for the stream to close. Emitters
// blocked in emit or in a network wait unblock via the context.
func (s *session) stop() {
	s.cancel()
	<-s.closed
}

// emit delivers one event unless the session has been cancelled. The
// cancellation check runs before the send so a cancelled session never
// queues new events, even when buffer space is free.
func (s *session) emit(ev Event) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case <-s.ctx.Done():
		return false
	case s.events <- ev:
		return true
	}
}

// emitDevice is emit for the common case.
func (s *session) emitDevice(d *device.Device) bool {
	return s.emit(Event{Device: d})
}

// emitErr reports a recoverable per-probe failure on the stream.
func (s *session) emitErr(err error) bool {
	if err == nil {
		return true
	}
	return s.emit(Event{Err: err})
}

// sessions is the bookkeeping shared by all probers: it swaps the active
// session under a mutex so Start/Stop/Events interleave safely.
type sessions struct {
	mu      sync.Mutex
	current *session
}

// begin winds down any active session and installs a fresh one.
func (m *sessions) begin(parent context.Context, prober string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.stop()
	}
	s := newSession(parent)
	m.current = s
	logging.LogSession(s.id, prober+" session started")
	return s
}

// events returns the active stream, or a closed channel when the prober
// has never been started.
func (m *sessions) events() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	return m.current.events
}

// stop winds down the active session, if any.
func (m *sessions) stop() {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s != nil {
		s.stop()
	}
}
