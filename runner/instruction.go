package runner

import (
	"context"
	"maps"

	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/internal/util"
)

// InstructionContext is the per-run data a dynamic instruction may inspect.
type InstructionContext struct {
	Query   string
	History []core.Message
	Params  map[string]any
}

// Provider supplies dynamic instruction text at runtime.
type Provider interface {
	Instruction(ctx context.Context, ic InstructionContext) (string, error)
}

// InstructionFunc is a functional adapter to allow ordinary functions to be used as Providers.
type InstructionFunc func(ctx context.Context, ic InstructionContext) (string, error)

// Instruction implements Provider.
func (f InstructionFunc) Instruction(ctx context.Context, ic InstructionContext) (string, error) {
	return f(ctx, ic)
}

// Instruction represents either a static instruction string or a dynamic provider.
// The zero value resolves to no instruction.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, ic InstructionContext) (string, error)) Instruction {
	return Instruction{provider: InstructionFunc(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether the instruction is empty.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed, and
// renders it as a template over the run parameters plus the "query" key.
func (i Instruction) Resolve(ctx context.Context, ic InstructionContext) (string, error) {
	text := i.text
	if i.provider != nil {
		var err error
		if text, err = i.provider.Instruction(ctx, ic); err != nil {
			return "", err
		}
	}
	if text == "" {
		return "", nil
	}

	state := make(map[string]any, len(ic.Params)+1)
	maps.Copy(state, ic.Params)
	state["query"] = ic.Query
	return util.RenderTemplate(text, state)
}
