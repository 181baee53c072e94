// Package discovery finds controllable media devices on the local network.
//
// Five probers run the protocols devices actually answer: SSDP/UPnP
// multicast search, multicast DNS service browsing, a TCP port sweep of
// the local /24, direct resolution of one known address, and pairing-code
// ingestion. Each prober implements the Discoverer contract and streams
// Event values; the Orchestrator fans all streams into a single
// deduplicated device table under fixed reconciliation rules.
//
// # Discoverer contract
//
// A Discoverer owns one session at a time. Start launches the session and
// implicitly cancels a previous one; Events returns the session's stream,
// closed when the session ends; Stop cancels and is safe to call from any
// goroutine, any number of times. After Stop returns no further events
// are emitted. Errors inside a session are recoverable: they travel the
// stream as Event{Err: ...} and never terminate sibling probers.
//
// # Reconciliation
//
// The orchestrator keys devices by network address. An incoming record
// for a known address is evaluated against exactly one of six rules, in
// order: new addresses are accepted; records held by the SSDP authority
// only ever take a placeholder-name upgrade; incoming SSDP replaces
// anything; real names replace placeholders; manufacturer evidence merges
// into records that lack it; everything else is dropped. At most one
// table write and one emission happen per incoming record, so replays are
// idempotent.
//
// # Sessions and cancellation
//
// Every network operation takes the session context. Cancellation closes
// sockets, stops resend tickers and drains worker goroutines before the
// event channel closes, so ranging over Events always terminates.
package discovery
