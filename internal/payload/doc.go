// Package payload defines the value vocabulary for component data that
// crosses the process boundary: archive rows, scenario seeds, and golden
// traces.
//
// The scheduler itself treats component values as opaque. This package
// only matters at the edges, where determinism does: the same value must
// serialize to the same bytes on every machine and every run, so digests
// and golden files stay stable.
//
// Key design constraints:
//   - NO float types anywhere - use Int (int64) for numbers
//   - canonical serialization is RFC 8785 (UTF-16 key order, NFC strings)
//   - digests are domain-separated SHA-256 over canonical bytes
//   - payload imports nothing internal
package payload
