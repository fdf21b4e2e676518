// Package memory contains the Memory facade and the bundled MemoryProvider
// implementations. The provider interface resides in the core package; depend
// on core.MemoryProvider in your code and select an implementation (like the
// in‑memory provider below, or memory/redis) at wiring time, either directly
// or by name through the provider registry (Register / Open).
//
// A Memory binds one provider to one user id. It stamps messages with a role,
// a timestamp and an id, then delegates; provider failures surface unchanged.
package memory
