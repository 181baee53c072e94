package discovery

import (
	"context"
	"sync"
	"time"

	"github.com/screenscout/screenscout/internal/device"
	"github.com/screenscout/screenscout/internal/logging"
)

// Mode selects which probers a discovery session runs.
type Mode int

const (
	// ModeNetwork scans the whole network: SSDP and mDNS immediately,
	// the port sweep after a short delay so the higher-authority sources
	// claim addresses first.
	ModeNetwork Mode = iota

	// ModeDirect resolves one known address.
	ModeDirect

	// ModeCode ingests one pairing-code payload.
	ModeCode
)

func (m Mode) String() string {
	switch m {
	case ModeNetwork:
		return "network"
	case ModeDirect:
		return "direct"
	case ModeCode:
		return "code"
	default:
		return "unknown"
	}
}

const (
	// DefaultTimeout bounds a discovery session when the caller sets none.
	DefaultTimeout = 20 * time.Second

	// sweepDelay is how long ModeNetwork holds the port sweep back. SSDP
	// and mDNS answers arriving first keep sweep placeholders from ever
	// being shown for devices the better sources can name.
	sweepDelay = 3 * time.Second
)

// Options configures a discovery session.
type Options struct {
	Mode Mode

	// Addr is the target for ModeDirect.
	Addr string

	// Payload is the captured pairing code for ModeCode.
	Payload []byte

	// Timeout bounds the whole session; DefaultTimeout when zero.
	Timeout time.Duration

	// Ports overrides the sweep's port set in ModeNetwork.
	Ports []int
}

// Orchestrator runs the probers a mode calls for and merges their streams
// into one deduplicated device stream. It implements Discoverer itself,
// so consumers drive it exactly like a single prober.
//
// All reconciliation happens on one event-loop goroutine that owns the
// address table; probers never touch shared state.
type Orchestrator struct {
	opts     Options
	sessions sessions

	immediate []Discoverer
	delayed   []Discoverer
}

// NewOrchestrator builds the discoverer set for the requested mode.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{opts: opts}

	switch opts.Mode {
	case ModeDirect:
		o.immediate = []Discoverer{NewDirect(opts.Addr)}
	case ModeCode:
		o.immediate = []Discoverer{NewPairCode(opts.Payload)}
	default:
		sweep := NewSweep()
		if len(opts.Ports) > 0 {
			sweep.Ports = opts.Ports
		}
		o.immediate = []Discoverer{NewSSDP(), NewMDNS()}
		o.delayed = []Discoverer{sweep}
	}
	return o
}

// Start launches the session. Prober start failures are recoverable
// stream events; they never keep sibling probers from running.
func (o *Orchestrator) Start(ctx context.Context) error {
	timeout := o.opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tctx, tcancel := context.WithTimeout(ctx, timeout)
	sess := o.sessions.begin(tctx, "discovery")

	merged := make(chan Event, eventBuffer)
	var fanin sync.WaitGroup

	launch := func(d Discoverer) {
		if err := d.Start(sess.ctx); err != nil {
			sess.emitErr(err)
			return
		}
		fanin.Add(1)
		go func() {
			defer fanin.Done()
			for ev := range d.Events() {
				select {
				case merged <- ev:
				case <-sess.ctx.Done():
					return
				}
			}
		}()
	}

	for _, d := range o.immediate {
		launch(d)
	}

	// The delayed starter holds a fan-in slot so merged cannot close
	// before the sweep has been launched (or skipped).
	fanin.Add(1)
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		defer fanin.Done()
		if len(o.delayed) == 0 {
			return
		}
		select {
		case <-sess.ctx.Done():
			return
		case <-time.After(sweepDelay):
		}
		for _, d := range o.delayed {
			launch(d)
		}
	}()

	go func() {
		fanin.Wait()
		close(merged)
	}()

	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		defer tcancel()
		o.loop(sess, merged)
	}()
	sess.closeWhenDone()
	return nil
}

// Events implements Discoverer.
func (o *Orchestrator) Events() <-chan Event {
	return o.sessions.events()
}

// Stop fans out to every prober first; only after all of them have wound
// down does the orchestrator's own stream close.
func (o *Orchestrator) Stop() {
	for _, d := range o.immediate {
		d.Stop()
	}
	for _, d := range o.delayed {
		d.Stop()
	}
	o.sessions.stop()
}

// loop is the single writer of the address table. It ends when every
// prober stream has closed or the session is cancelled, whichever first.
func (o *Orchestrator) loop(sess *session, merged <-chan Event) {
	table := make(map[string]*device.Device)

	for {
		select {
		case <-sess.ctx.Done():
			return
		case ev, ok := <-merged:
			if !ok {
				// Every prober completed naturally.
				return
			}
			if ev.Err != nil {
				logging.Warn("Prober error: " + ev.Err.Error())
				sess.emit(ev)
				continue
			}

			out, accept := reconcile(table, ev.Device)
			if !accept {
				continue
			}
			table[out.Addr] = out
			if sess.emitDevice(out) {
				logging.LogDeviceFound(sess.id, out.Addr, out.Name, string(out.Method))
			}
		}
	}
}

// reconcile applies the merge rules to an incoming record against the
// address table. Rules are evaluated in order, first match wins, and at
// most one record is accepted per incoming event, which keeps replays
// idempotent.
func reconcile(table map[string]*device.Device, in *device.Device) (*device.Device, bool) {
	existing, known := table[in.Addr]

	// Rule 1: a new address is always accepted.
	if !known {
		return in, true
	}

	// Rule 2: a record held by the authority source only ever takes a
	// placeholder-to-real name upgrade. Nothing downgrades it.
	if existing.Method.IsAuthority() {
		if existing.HasPlaceholderName() && !in.HasPlaceholderName() {
			return existing.WithName(in.Name), true
		}
		return nil, false
	}

	// Rule 3: an incoming authority record replaces anything lesser.
	if in.Method.IsAuthority() {
		return in, true
	}

	// Rule 4: a real name resolves a placeholder, whatever the source.
	if existing.HasPlaceholderName() && !in.HasPlaceholderName() {
		return in, true
	}

	// Rule 5: manufacturer evidence enriches a record that lacks it.
	if existing.Manufacturer == "" && in.Manufacturer != "" {
		return existing.Merged(in), true
	}

	// Rule 6: nothing new.
	return nil, false
}
