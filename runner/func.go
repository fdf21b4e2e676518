package runner

import (
	"context"

	"github.com/hupe1980/agentmem/core"
)

// Func adapts an ordinary function to core.AgentRunner.
type Func func(ctx context.Context, query string, opts core.RunOptions) (*core.Result, error)

// Run implements core.AgentRunner.
func (f Func) Run(ctx context.Context, query string, opts core.RunOptions) (*core.Result, error) {
	return f(ctx, query, opts)
}

var _ core.AgentRunner = Func(nil)
