// Package core provides the foundational domain types and capability
// interfaces used by agentmem. It defines the core abstractions for:
//
//   - Messages (immutable conversational records tagged with a role)
//   - MemoryProvider (pluggable storage backend keyed by user id)
//   - AgentRunner (pluggable query-to-response execution strategy)
//   - The error taxonomy shared by providers, runners and facades
//
// The package intentionally keeps implementation concerns (concrete stores,
// model clients, orchestration) out of scope, exposing small interfaces to
// enable custom backends. Facades live in the memory and agent packages.
package core
