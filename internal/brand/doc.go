// Package brand assigns a vendor label to discovered devices.
//
// Classification is a waterfall of four layers evaluated in order, first
// hit wins:
//
//  1. Vendor namespace tokens in the service type and protocol headers.
//     These come from real protocol captures and are unambiguous.
//  2. Manufacturer string match against known spellings and licensee
//     names (TP Vision builds Philips sets, for example).
//  3. Neighbor-cache lookup: the device's MAC resolved through an OUI
//     vendor table, the vendor name then matched like layer 2. Only
//     available where the platform exposes an ARP-style cache.
//  4. Loose token match over the display name and service type. Lowest
//     confidence, broadest coverage.
//
// Every layer falls through on failure; the final answer is
// device.BrandUnknown. The lookup tables are immutable package state.
package brand
