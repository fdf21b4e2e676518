// Package agentmem attaches conversational memory and pluggable execution
// logic to request-handling code. Most applications interact with this
// package by:
//  1. Building a Configuration via Configure (or config.LoadFile / config.FromEnv)
//  2. Opening a Memory for a user with NewMemory
//  3. Creating an Agent with NewAgent and calling Run, optionally with history
//
// Backends are selected by name. Memory providers: "inmemory" (default) and
// "redis". Runners: "simple"/"openai", "anthropic" and "echo". An empty name
// falls back to the configuration's selection and then to the default.
package agentmem

import (
	"context"

	"github.com/hupe1980/agentmem/agent"
	"github.com/hupe1980/agentmem/config"
	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/memory"
	"github.com/hupe1980/agentmem/runner"
)

// Fallback backend names.
const (
	DefaultProvider = memory.ProviderInMemory
	DefaultRunner   = runner.NameSimple
)

// MemoryOptions configures NewMemory.
type MemoryOptions struct {
	memory.Options
	// Config supplies the provider selection and provider defaults.
	Config *config.Configuration
	// ProviderOptions are per-instance provider settings (e.g. redis_url,
	// namespace, ttl) that win over configuration defaults.
	ProviderOptions map[string]any
}

// AgentOptions configures NewAgent.
type AgentOptions struct {
	agent.Options
	// RunnerOptions apply to runners opened by name.
	RunnerOptions []func(o *runner.Options)
}

// Configure builds a validated configuration.
func Configure(optFns ...func(s *config.Settings)) (*config.Configuration, error) {
	return config.New(optFns...)
}

// NewMemory opens the named memory provider and binds it to userID. Close
// the returned Memory to release provider resources such as Redis pools.
func NewMemory(ctx context.Context, provider, userID string, optFns ...func(o *MemoryOptions)) (*memory.Memory, error) {
	opts := MemoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if provider == "" {
		provider = opts.Config.Provider()
	}
	if provider == "" {
		provider = DefaultProvider
	}

	return memory.Open(ctx, provider, userID, opts.Config, opts.ProviderOptions, memoryOptions(opts))
}

// NewMemoryWithProvider binds an existing provider to userID.
func NewMemoryWithProvider(p core.MemoryProvider, userID string, optFns ...func(o *MemoryOptions)) (*memory.Memory, error) {
	opts := MemoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return memory.New(p, userID, memoryOptions(opts))
}

func memoryOptions(opts MemoryOptions) func(o *memory.Options) {
	return func(o *memory.Options) {
		if opts.Logger != nil {
			o.Logger = opts.Logger
		}
		if opts.Clock != nil {
			o.Clock = opts.Clock
		}
		if opts.Tracer != nil {
			o.Tracer = opts.Tracer
		}
	}
}

// NewAgent opens the named runner and wraps it in an Agent.
func NewAgent(runnerName string, optFns ...func(o *AgentOptions)) (*agent.Agent, error) {
	opts := AgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if runnerName == "" {
		runnerName = opts.Config.Runner()
	}
	if runnerName == "" {
		runnerName = DefaultRunner
	}

	runnerOpts := opts.RunnerOptions
	if opts.Logger != nil {
		runnerOpts = append([]func(o *runner.Options){func(o *runner.Options) { o.Logger = opts.Logger }}, runnerOpts...)
	}
	r, err := runner.Open(runnerName, opts.Config, runnerOpts...)
	if err != nil {
		return nil, err
	}
	return agent.New(r, func(o *agent.Options) { *o = opts.Options })
}

// NewAgentWithRunner wraps an existing runner in an Agent.
func NewAgentWithRunner(r core.AgentRunner, optFns ...func(o *AgentOptions)) (*agent.Agent, error) {
	opts := AgentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return agent.New(r, func(o *agent.Options) { *o = opts.Options })
}
