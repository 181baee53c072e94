// Package registry persists discovered devices between sessions.
//
// The store is a single YAML document in the user's configuration
// directory, keyed by network address. Writes are atomic (temp file plus
// rename) and guarded by a cross-process file lock, so a scan finishing
// in one terminal never corrupts an edit made in another.
//
// # Ownership
//
// The registry owns two fields of a device record: the custom name a
// user assigned and the first-seen timestamp. Both survive re-discovery;
// everything else is replaced by the newest scan.
//
// # Brand annotation
//
// Save runs the brand classifier on records that have no brand yet,
// which is the one place classification happens. Discovery itself never
// classifies; it only gathers the evidence.
//
// # Known limitation
//
// Addresses are the identity key. A device whose DHCP lease changes
// reappears as a new entry and keeps neither its custom name nor its
// first-seen time.
package registry
