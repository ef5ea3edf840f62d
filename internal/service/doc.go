// Package service implements the detection loop supervisor.
//
// Overview
// The Supervisor owns the running / not running state of the detection loop.
// Start spawns the loop as a goroutine which outlives the caller, Stop cancels
// it and Status reports the current state. All three are serialized by a single
// mutex and never fail, they always return a status snapshot.
//
// The loop repeatedly runs a detection cycle (see package detect), emits a
// notification for every cycle which matched something and sleeps:
//   - Found delay (120s by default) after a cycle with a match
//   - Idle delay (5s by default) after an empty or a failed cycle
//
// Data flow:
//
//	caller           Supervisor                loop goroutine        cycle goroutine
//	  |                  |                           |                      |
//	  | Start() -------->| running=true, spawn ----->|                      |
//	  |<-- is_running ---|                           | go Run() ----------->|
//	  |                  |                           |<------ Matches ------|
//	  |                  |                           | Notify, sleep        |
//	  | Stop() --------->| cancel, running=false     |                      |
//	  |<-- is_running ---|                           | return               |
//
// Cancellation races every suspension point of the loop: a running cycle, the
// capture and OCR processes inside it and the delay after it. Stop does not
// wait for the loop to terminate. A canceled cycle is abandoned, it still
// removes its temporary directory while it unwinds.
//
// Invariants:
//   - At most one loop is current; a loop replaced by Stop+Start never touches
//     the supervisor state again.
//   - A failed cycle never stops the loop, only Stop or cancellation of the
//     supervisor context does.
//   - Notifications are emitted only for non-empty results.
//
// Close stops the loop and waits for all goroutines, it is meant for a
// graceful shutdown.
package service
