// Package sched implements the Tangle task scheduler.
//
// The scheduler is the heart of Tangle - it mediates every mutation of
// the shared component store, wraps submitted tasks in instructions,
// resolves data hazards between them, and decides what runs next.
//
// ARCHITECTURE:
//
// Single-Threaded Cooperative Execution:
// Nothing runs on its own. The embedding application calls ProcessTask()
// when it has idle cycles; each call executes at most one instruction to
// completion on the caller's goroutine. This ensures:
// - No locks around the shared store
// - Predictable, replayable execution order
// - Simple reasoning about causality
//
// Scheduling Flow:
// 1. Schedule() wraps the task in an instruction with the next seq number
//    and a private snapshot overlay
// 2. Reads of keys a live instruction will write become dependencies on
//    that writer (last-writer index); other reads flow lazily from the
//    base store
// 3. The instruction's own writes chain it behind the previous writer of
//    each key, then repoint the last-writer index at it
// 4. Eligible instructions enter the ready pool (priority order, FIFO
//    tie-break); the rest wait in the pending pool
// 5. ProcessTask() pops, executes, merges the performed writes, transfers
//    output to dependents, and promotes newly eligible instructions
//
// The in-order discipline shares the contract but skips all of it: a
// strict queue, executed oldest-first against the store itself.
//
// The scheduler is designed for correctness and determinism, not
// throughput. Effects may do I/O, but the evaluation loop is strictly
// single-threaded and nothing preempts a running effect.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// All instructions stamped with a monotonic seq from Clock.Next().
// NEVER use wall-clock timestamps for ordering.
//
// Deterministic Scheduling:
// Ready pool ordered by (priority desc, seq asc). Dependents transferred
// in seq order. Key sets iterated sorted. No randomness, no concurrency,
// no non-determinism.
//
// Failure Containment:
// An effect error never aborts scheduling. The instruction completes,
// its partial writes merge, its dependents unblock, and the error is
// reported in the Result. Only invariant violations are fatal.
package sched
