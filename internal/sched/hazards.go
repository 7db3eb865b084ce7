// Package sched implements the Tangle task scheduler.
//
// # Hazards, Snapshots, and Merge
//
// This file documents how the out-of-order discipline keeps reordered
// execution indistinguishable from submission order.
//
// ## The Three Hazards
//
// Two instructions conflict when one writes a key the other touches.
//
// 1. Read-after-write (true dependency)
//
//	W writes k, then R reads k. R must observe W's value.
//
// Resolved at Schedule(): R's read consults the last-writer index, finds
// W live, and records a dependency. R stays pending until W's completion
// transfers its output into R's snapshot.
//
// 2. Write-after-write
//
//	W1 writes k, then W2 writes k. The component must end at W2's value.
//
// Resolved by chaining: W2's Schedule() finds W1 in the last-writer index,
// records a dependency on it, then repoints the index at itself. Same-key
// writers therefore complete in submission order no matter their
// priorities, every performed write merges, and the last merge is the
// newest writer's. The chain also hands W1's value to W2, so a W2 whose
// effect declines to write k forwards the right value to its own
// dependents.
//
// 3. Write-after-read
//
//	R reads k, then W writes k. R must not observe W's value.
//
// Two cases. If R depends on an earlier writer, R's value arrives by
// transfer and W cannot touch it. If R reads k lazily from the store, W's
// completion freezes the pre-merge value into R's snapshot before
// merging (the reader index tracks who reads what). Readers that already
// ran are out of scope: execution is single-threaded, so a running
// reader finished before W could possibly merge.
//
// ## Snapshot Discipline
//
// An instruction's overlay captures nothing up front. Values arrive three
// ways, each shadowing the base store from then on:
//
//   - transfer: a producer completed and pushed its output
//   - freeze: a later writer was about to merge over a lazily-read key
//   - own writes: the effect's Set calls
//
// Everything else reads through to the base store, which is correct
// precisely because the freeze step runs before any merge that could
// invalidate it. The overlay therefore always shows the store as of the
// instruction's schedule point plus its producers' outputs.
//
// ## Completion Order
//
// retire() runs these steps in a fixed order; reordering them breaks the
// guarantees above:
//
//	[freeze]   pin pre-merge values for earlier live lazy readers
//	[merge]    apply performed writes to the store, recording changes
//	[transfer] push effective values to each dependent, seq order
//	[release]  clear index entries still pointing here, drop reader
//	           registrations
//
// ## Why Progress Is Guaranteed
//
// Dependencies only ever point at instructions with smaller seq numbers,
// so the dependency graph is a DAG by construction and some instruction
// is always eligible while a backlog exists. An empty ready pool with a
// non-empty pending pool is therefore not a scheduling state but a
// corruption signal, and ProcessTask reports it as SCHEDULER_STALLED
// instead of spinning.
package sched
