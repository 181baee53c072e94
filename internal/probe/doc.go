// Package probe identifies a single device at a known address.
//
// Each probe speaks one protocol: UPnP device descriptions, Philips
// JointSpace, PJLink projectors, Samsung TV info, or a bare TCP
// reachability check. Probes are pure request/response helpers with no
// session state; the discovery probers compose them, so records returned
// here carry no discovery method. The caller stamps its own.
package probe
