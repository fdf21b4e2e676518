package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/agentmem/core"
)

// RunnerCall captures one invocation of StubRunner.
type RunnerCall struct {
	Query string
	Opts  core.RunOptions
}

// StubRunner returns a canned response (or error) and records every call.
type StubRunner struct {
	Response string
	Metadata map[string]any
	Err      error
	// Hook, when set, runs before the canned result is returned. It may
	// block on ctx to simulate slow backends.
	Hook func(ctx context.Context) error

	mu    sync.Mutex
	calls []RunnerCall
}

// NewStubRunner returns a runner answering every query with response.
func NewStubRunner(response string) *StubRunner {
	return &StubRunner{Response: response}
}

// Run implements core.AgentRunner.
func (r *StubRunner) Run(ctx context.Context, query string, opts core.RunOptions) (*core.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, RunnerCall{Query: query, Opts: core.RunOptions{
		History: core.CloneMessages(opts.History),
		Params:  core.CopyMetadata(opts.Params),
	}})
	r.mu.Unlock()

	if r.Hook != nil {
		if err := r.Hook(ctx); err != nil {
			return nil, err
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &core.Result{Response: r.Response, Metadata: core.CopyMetadata(r.Metadata)}, nil
}

// Calls returns a copy of the recorded calls.
func (r *StubRunner) Calls() []RunnerCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunnerCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// Contents extracts message contents, preserving order.
func Contents(msgs []core.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

// Roles extracts message roles, preserving order.
func Roles(msgs []core.Message) []core.Role {
	out := make([]core.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}
