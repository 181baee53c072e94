// Package device defines the shared data model for discovered media devices.
//
// A Device is one observation of a controllable media device (TV, speaker,
// casting receiver) on the local network. Devices are value types: nothing
// mutates a record in place. Enrichment produces a new record via Merged or
// WithName, and the discovery orchestrator replaces whole records keyed by
// network address.
//
// # Identity
//
// Addr is the sole merge key. Two records with equal Addr denote the same
// physical device for the duration of one discovery session. Custom names
// and first-seen timestamps are owned by the registry and survive across
// sessions; everything else is rebuilt each scan.
//
// # Placeholder names
//
// A prober that has confirmed a device exists but has not yet identified it
// emits a provisional display name. Placeholder detection is a pure string
// predicate (IsPlaceholder): any name containing "…" or starting with
// "Identifying" counts as unresolved, regardless of which prober produced it.
//
// # Authority
//
// Every discovery method carries an implicit authority rank. SSDP search
// results include a directly-fetched structured device description and rank
// highest; their fields are never overwritten by lower-confidence methods
// except to resolve a placeholder name.
package device
