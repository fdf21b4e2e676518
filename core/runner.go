package core

import "context"

// RunOptions carries the free-form inputs of a single runner invocation.
// History is the only channel through which conversational memory reaches a
// runner; runners must not reach for a Memory themselves.
type RunOptions struct {
	// History holds previously stored messages in insertion order.
	History []Message
	// Params holds generation parameters (temperature, max_tokens, ...) and
	// any other runner specific settings.
	Params map[string]any
}

// Param returns the named parameter and whether it was set.
func (o RunOptions) Param(key string) (any, bool) {
	v, ok := o.Params[key]
	return v, ok
}

// Result is produced once per run.
type Result struct {
	Response string         `json:"response"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AgentRunner defines the execution strategy behind an Agent facade.
//
// Run turns query (plus options) into a Result. Failures must be reported
// with the Runner kind or one of its narrower kinds (ExternalService,
// Timeout); vendor specific error types are wrapped, never returned bare.
type AgentRunner interface {
	Run(ctx context.Context, query string, opts RunOptions) (*Result, error)
}
