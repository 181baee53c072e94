// Package tui implements the live terminal view for network scans.
//
// The view streams discovery events into a device list as they arrive:
// rows appear the moment a prober confirms an address and upgrade in
// place when a better source renames or enriches the record. Built on
// the Bubble Tea framework with the Elm-style Model-Update-View pattern.
//
// # Framework Components
//
//   - bubbles/spinner: scan activity indicator
//   - bubbles/list: streaming device list with filtering
//   - bubbles/help: context-aware key hints
//   - lipgloss: styling and layout
//
// # Streaming
//
// The discovery session runs outside the Bubble Tea loop. A command
// blocks on the event channel for exactly one event, delivers it as a
// message, and Update re-issues the command, so the stream has a single
// reader and the UI stays responsive between events. Rescans bump a
// session sequence number; stale messages from a superseded session are
// dropped.
//
// # Key Bindings
//
//	↑/k, ↓/j   navigate
//	enter/s    save the selected device to the registry
//	/          filter
//	r          rescan
//	q          quit (winds the session down before exiting)
//
// # Thread Safety
//
// All model updates occur on the Bubble Tea goroutine. The discovery
// session's own goroutines never touch the model; they only feed the
// event channel.
package tui
