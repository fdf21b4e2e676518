package runner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/hupe1980/agentmem/config"
	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/logging"
	"github.com/hupe1980/agentmem/model"
)

// Parameter keys read by SimpleRunner.
const (
	ParamTemperature = "temperature"
	ParamMaxTokens   = "max_tokens"
	ParamTimeout     = config.DefaultTimeout
)

// Options configures a SimpleRunner.
type Options struct {
	// Instruction becomes the system prompt. Text containing "{{" is rendered
	// as a text/template over the merged parameters plus "query"; a parse
	// error fails each Run with a runner error.
	Instruction Instruction
	// Timeout bounds every model call when positive. A "timeout" parameter
	// overrides it per call.
	Timeout time.Duration
	// Defaults are merged under the per-call parameters.
	Defaults map[string]any
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
}

// SimpleRunner answers a query with one model call. Injected history is sent
// ahead of the query; agent messages become assistant turns.
type SimpleRunner struct {
	model       model.Model
	instruction Instruction
	timeout     time.Duration
	defaults    map[string]any
	logger      logging.Logger
}

var _ core.AgentRunner = (*SimpleRunner)(nil)

// NewSimpleRunner creates a runner that delegates to m.
func NewSimpleRunner(m model.Model, optFns ...func(o *Options)) *SimpleRunner {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &SimpleRunner{
		model:       m,
		instruction: opts.Instruction,
		timeout:     opts.Timeout,
		defaults:    maps.Clone(opts.Defaults),
		logger:      logging.ComponentLogger(logging.OrNoOp(opts.Logger), "runner"),
	}
}

// Model returns the underlying model.
func (r *SimpleRunner) Model() model.Model { return r.model }

// Run implements core.AgentRunner.
func (r *SimpleRunner) Run(ctx context.Context, query string, opts core.RunOptions) (*core.Result, error) {
	const op = "runner.Run"

	params := make(map[string]any, len(r.defaults)+len(opts.Params))
	maps.Copy(params, r.defaults)
	maps.Copy(params, opts.Params)

	req, err := r.buildRequest(ctx, query, opts.History, params)
	if err != nil {
		return nil, err
	}

	timeout := r.timeout
	if v, ok := params[ParamTimeout]; ok {
		d, err := config.ParseDuration(v)
		if err != nil {
			return nil, core.InvalidInputError(op, fmt.Sprintf("invalid timeout %v", v))
		}
		timeout = d
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	info := r.model.Info()
	start := time.Now()
	resp, err := r.model.Generate(ctx, req)

	tokens := 0
	if resp != nil && resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	logging.LogModelCall(r.logger, info.Name, tokens, time.Since(start), err)

	if err != nil {
		return nil, mapError(op, err)
	}
	if resp == nil {
		return nil, core.RunnerError(op, errors.New("model returned no response"))
	}

	md := map[string]any{
		"model":         info.Name,
		"provider":      info.Provider,
		"finish_reason": resp.FinishReason,
	}
	if resp.Usage != nil {
		md["prompt_tokens"] = resp.Usage.PromptTokens
		md["completion_tokens"] = resp.Usage.CompletionTokens
		md["total_tokens"] = resp.Usage.TotalTokens
	}

	return &core.Result{Response: resp.Content, Metadata: md}, nil
}

func (r *SimpleRunner) buildRequest(ctx context.Context, query string, history []core.Message, params map[string]any) (model.Request, error) {
	const op = "runner.Run"

	instructions, err := r.instruction.Resolve(ctx, InstructionContext{
		Query:   query,
		History: history,
		Params:  params,
	})
	if err != nil {
		return model.Request{}, core.RunnerError(op, fmt.Errorf("resolve instruction: %w", err))
	}

	msgs := make([]model.Message, 0, len(history)+1)
	for _, h := range history {
		role := model.RoleUser
		if h.Role == core.RoleAgent {
			role = model.RoleAssistant
		}
		msgs = append(msgs, model.Message{Role: role, Content: h.Content})
	}
	msgs = append(msgs, model.Message{Role: model.RoleUser, Content: query})

	req := model.Request{
		Instructions: instructions,
		Messages:     msgs,
	}
	if v, ok := params[ParamTemperature]; ok {
		f, ok := toFloat(v)
		if !ok {
			return model.Request{}, core.InvalidInputError(op, fmt.Sprintf("temperature must be a number, got %T", v))
		}
		req.Temperature = &f
	}
	if v, ok := params[ParamMaxTokens]; ok {
		f, ok := toFloat(v)
		if !ok || f <= 0 {
			return model.Request{}, core.InvalidInputError(op, fmt.Sprintf("max_tokens must be a positive number, got %v", v))
		}
		n := int64(f)
		req.MaxTokens = &n
	}
	return req, nil
}

// mapError classifies a model failure. Vendor errors stay in the chain.
func mapError(op string, err error) error {
	var apiErr *model.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return core.TimeoutError(op, err)
	case errors.As(err, &apiErr):
		return core.ExternalServiceError(op, err)
	default:
		return core.RunnerError(op, err)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
