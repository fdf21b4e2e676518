package runner

import (
	"fmt"
	"sort"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentmem/config"
	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/model"
	"github.com/hupe1980/agentmem/model/anthropic"
	"github.com/hupe1980/agentmem/model/openai"
)

// Built-in runner names.
const (
	NameSimple    = "simple"
	NameOpenAI    = "openai"
	NameAnthropic = "anthropic"
	NameEcho      = "echo"
)

// Factory constructs a runner from the shared configuration.
type Factory func(cfg *config.Configuration, optFns ...func(o *Options)) (core.AgentRunner, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		NameSimple:    openOpenAI,
		NameOpenAI:    openOpenAI,
		NameAnthropic: openAnthropic,
		NameEcho:      openEcho,
	}
)

// Register makes a runner factory available under name. Registering an
// existing name replaces it.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Runners returns the sorted registered runner names.
func Runners() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the runner registered under name. optFns apply after the
// options derived from cfg.
func Open(name string, cfg *config.Configuration, optFns ...func(o *Options)) (core.AgentRunner, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, core.ConfigurationError("runner.Open", fmt.Sprintf("unknown runner %q", name))
	}
	return f(cfg, optFns...)
}

// configOptions derives SimpleRunner options from cfg defaults.
func configOptions(cfg *config.Configuration, optFns []func(o *Options)) []func(o *Options) {
	base := func(o *Options) {
		if text, ok := cfg.StringDefault(config.DefaultInstruction); ok {
			o.Instruction = NewInstructionFromText(text)
		}
		if d, ok := cfg.DurationDefault(config.DefaultTimeout); ok {
			o.Timeout = d
		}
		o.Defaults = cfg.Defaults()
	}
	return append([]func(o *Options){base}, optFns...)
}

func credential(cfg *config.Configuration, runnerName, key string) (string, error) {
	v, ok := cfg.Credential(key)
	if !ok || v == "" {
		return "", core.ConfigurationError("runner.Open", fmt.Sprintf("runner %q requires credential %q", runnerName, key))
	}
	return v, nil
}

func openOpenAI(cfg *config.Configuration, optFns ...func(o *Options)) (core.AgentRunner, error) {
	key, err := credential(cfg, NameOpenAI, config.CredentialOpenAI)
	if err != nil {
		return nil, err
	}
	m := openai.NewModel(func(o *openai.Options) {
		o.APIKey = key
		if name := cfg.Model(); name != "" {
			o.Model = name
		}
	})
	return NewSimpleRunner(m, configOptions(cfg, optFns)...), nil
}

func openAnthropic(cfg *config.Configuration, optFns ...func(o *Options)) (core.AgentRunner, error) {
	key, err := credential(cfg, NameAnthropic, config.CredentialAnthropic)
	if err != nil {
		return nil, err
	}
	m := anthropic.NewModel(func(o *anthropic.Options) {
		o.APIKey = key
		if name := cfg.Model(); name != "" {
			o.Model = anthropicsdk.Model(name)
		}
	})
	return NewSimpleRunner(m, configOptions(cfg, optFns)...), nil
}

func openEcho(cfg *config.Configuration, optFns ...func(o *Options)) (core.AgentRunner, error) {
	return NewSimpleRunner(model.NewMockModel(NameEcho, "mock"), configOptions(cfg, optFns)...), nil
}
