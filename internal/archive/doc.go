// Package archive persists named components to SQLite.
//
// The archive is the persistence collaborator the scheduler core talks to
// only through task effects: SaveTask and LoadTask produce ordinary tasks
// whose declared read/write sets put archive I/O under the same hazard
// rules as every other mutation. The scheduler itself never sees a byte
// of persisted data.
//
// Storage model: components(key, revision, ...) with revisions appended,
// never rewritten. Saving a component whose canonical digest equals the
// latest revision's is a no-op, so repeated saves of an unchanged
// document cost one SELECT. Payload bytes are produced by a codec chosen
// at save time and recorded in the row, so a future reader needs no
// out-of-band knowledge to decode.
package archive
