// Package engine runs a per-task callback over the active entries of an
// activation mask.
//
// # Arena
//
// An Engine is sized once for a task domain of N entries and a fixed
// property width. It keeps one value slot of that width per task, and, the
// first time a cycle asks for derivatives, one derivative block per task.
// Cycles reuse these arenas; only the active slots are touched.
//
// # Dispatch
//
// Run feeds active task indices in ascending order to a pool of workers.
// With a single worker the callback sees tasks in strictly ascending order.
// Each invocation writes only its own slot, so workers share nothing but the
// read-only mask.
//
// # Publishing
//
// Once every callback has returned successfully the engine copies the active
// slots into a Result and hands it to each Sink in order. Any failure aborts
// the cycle before anything is published.
package engine
