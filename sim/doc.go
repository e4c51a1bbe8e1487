// Package sim provides the discrete-event kernel shared by both epidemic models.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - process.go: the Process contract, Wait requests (Timeout, Until, Passivate, Exit) and Interrupt
//   - scheduler.go: the ready queue and the Run loop
//   - rng.go: per-subsystem deterministic random streams
//
// # Execution model
//
// The Scheduler is single-threaded and cooperative. A process is a state machine whose
// Step method is called every time it is resumed; the Wait it returns is its next
// suspension point. Exactly one process runs at a time, so processes may read each other's
// state without locks as long as they do so within one Step.
//
// Pending resumptions are ordered by (time, insertion sequence). Two resumptions due at the
// same time fire in the order they were enqueued.
//
// # Sub-packages
//   - sim/epidemic/: compartmental SIRXD model driven by condition-triggered rate events
//   - sim/agents/: stochastic spatial agent model and its S/I/R aggregator
//   - sim/scenario/: YAML scenario files for both models
//   - sim/trace/: rule-firing and termination trace records
//   - sim/observability/: OpenTelemetry metric recorder
package sim
