// Package scenario provides declarative, deterministic exercise of the
// scheduler for conformance tests, golden traces, and the CLI.
//
// A scenario describes seeds, observers, tasks, and a step script in
// YAML, runs against a real Model, and yields a trace plus assertion
// results. Unlike hand-written tests, scenarios execute the actual
// scheduling machinery end to end: hazards are resolved, snapshots
// transfer, observers cascade.
//
// # Scenario Format
//
//	name: editor_cascade
//	description: "layout recomputes after a graph edit"
//	discipline: out-of-order
//	seed:
//	  doc.graph: { nodes: [] }
//	observers:
//	  - name: relayout
//	    watch: [doc.graph]
//	    emit:
//	      - label: layout
//	        reads: [doc.graph]
//	        writes: [doc.layout]
//	        effect:
//	          copy: { from: doc.graph, to: doc.layout }
//	steps:
//	  - schedule:
//	      label: edit
//	      writes: [doc.graph]
//	      effect:
//	        set: { doc.graph: { nodes: [1] } }
//	  - settle: true
//	assertions:
//	  - type: exec_order
//	    labels: [edit, layout]
//	  - type: backlog_empty
//
// # Effects
//
// Task effects are declarative operations applied in a fixed order:
// set, copy, merge, increment, then fail. Validation cross-checks each
// operation against the template's declared read/write sets, so a
// scenario cannot accidentally describe a task that breaches its own
// contract.
//
// # Assertion Types
//
//   - final_state: a component's final value matches an expected payload
//   - exec_order: labels executed in the given relative order
//   - exec_contains: a label executed at least once
//   - exec_count: a label executed exactly N times
//   - task_failed: a label failed, optionally with a message substring
//   - backlog_empty: no scheduled work remained after the last step
//
// # Deterministic Testing
//
// The runner pins every source of nondeterminism: sequential cascade
// tokens (c-1, c-2, ...), the logical clock starting at seq 1, discarded
// logs, and sorted key iteration everywhere. Identical scenarios produce
// byte-identical canonical snapshots, which is what makes golden trace
// files workable.
package scenario
