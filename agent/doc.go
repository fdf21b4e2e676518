// Package agent contains the Agent facade that combines an execution
// strategy (core.AgentRunner) with optional conversational memory.
//
// A run proceeds in fixed steps:
//
//  1. Validate the query; empty queries fail before any side effect.
//  2. When history is requested and memory is bound, retrieve it (optionally
//     windowed to the last N messages) and hand it to the runner.
//  3. Merge configuration defaults under the per-call parameters.
//  4. Delegate to the runner.
//  5. Record the query and response as one exchange.
//
// Recording uses a context detached from cancellation so an exchange is
// stored completely or not at all. If the caller's context is already done
// when the runner returns, nothing is recorded.
//
// An Agent keeps no state between calls and is safe for concurrent use.
package agent
