// Package iox2 provides the shared primitives of a zero-copy, inter-process
// publish-subscribe transport: pointer-offsets that address payload slots
// inside a publisher's data segment, the fixed type descriptor used to
// type-erase payloads across the transport boundary, and the sentinel
// errors common to every layer built on top of it.
//
// Sub-packages implement the rest of the core:
//
//   - pkg/config   service static/dynamic configuration, storage, compatibility
//   - pkg/service  service discovery, creation, opening
//   - pkg/pubsub   the zero-copy connection, publisher and subscriber ports
//   - pkg/node     node lifecycle and dead-port cleanup
//   - pkg/metrics  best-effort Prometheus instrumentation
//   - pkg/external named interfaces for the out-of-scope messaging patterns
package iox2
