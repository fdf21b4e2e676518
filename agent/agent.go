package agent

import (
	"context"
	"errors"
	"maps"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentmem/config"
	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/logging"
	"github.com/hupe1980/agentmem/memory"
)

const tracerName = "github.com/hupe1980/agentmem"

// Options configures an Agent.
type Options struct {
	// Memory, when set, supplies history and records exchanges. It may be
	// shared with other agents.
	Memory *memory.Memory
	// Config supplies default parameters merged under per-call params.
	Config *config.Configuration
	// Logger defaults to NoOp logger if nil.
	Logger logging.Logger
	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
	// HistoryWindow limits injected history to the last N messages.
	// Zero means unbounded.
	HistoryWindow int
	// StrictRecording discards the result when the exchange cannot be recorded.
	StrictRecording bool
}

// RunOptions are per-call settings for Run.
type RunOptions struct {
	// History injects stored messages into the runner.
	History bool
	// Query is passed to the provider as a retrieval filter hint.
	Query string
	// Params are forwarded to the runner and win over configuration defaults.
	Params map[string]any
}

// WithHistory enables history injection.
func WithHistory() func(o *RunOptions) {
	return func(o *RunOptions) { o.History = true }
}

// WithHistoryQuery enables history injection filtered by query.
func WithHistoryQuery(query string) func(o *RunOptions) {
	return func(o *RunOptions) {
		o.History = true
		o.Query = query
	}
}

// WithParam sets a single runner parameter.
func WithParam(key string, value any) func(o *RunOptions) {
	return func(o *RunOptions) {
		if o.Params == nil {
			o.Params = map[string]any{}
		}
		o.Params[key] = value
	}
}

// RecordError reports that the runner succeeded but the exchange could not
// be stored. It matches core.ErrStorage.
type RecordError struct {
	Err error
}

// Error implements error.
func (e *RecordError) Error() string { return "agent: record exchange: " + e.Err.Error() }

// Unwrap returns the storage failure.
func (e *RecordError) Unwrap() error { return e.Err }

// Is reports a match for core.ErrStorage regardless of the wrapped kind.
func (e *RecordError) Is(target error) bool { return target == core.ErrStorage }

// Agent delegates queries to a runner and keeps memory in sync.
type Agent struct {
	runner core.AgentRunner
	memory *memory.Memory
	cfg    *config.Configuration
	logger logging.Logger
	tracer trace.Tracer
	window int
	strict bool
}

// New creates an Agent around r.
func New(r core.AgentRunner, optFns ...func(o *Options)) (*Agent, error) {
	if r == nil {
		return nil, core.InvalidInputError("agent.New", "runner must not be nil")
	}

	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HistoryWindow < 0 {
		return nil, core.InvalidInputError("agent.New", "history window must not be negative")
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(tracerName)
	}

	return &Agent{
		runner: r,
		memory: opts.Memory,
		cfg:    opts.Config,
		logger: logging.ComponentLogger(logging.OrNoOp(opts.Logger), "agent"),
		tracer: opts.Tracer,
		window: opts.HistoryWindow,
		strict: opts.StrictRecording,
	}, nil
}

// Memory returns the bound memory, or nil.
func (a *Agent) Memory() *memory.Memory { return a.memory }

// Runner returns the execution strategy.
func (a *Agent) Runner() core.AgentRunner { return a.runner }

// Run answers query. On a record failure the result is returned together
// with a *RecordError unless StrictRecording is set.
func (a *Agent) Run(ctx context.Context, query string, optFns ...func(o *RunOptions)) (*core.Result, error) {
	var ro RunOptions
	for _, fn := range optFns {
		fn(&ro)
	}

	ctx, span := a.tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.Bool("agent.history", ro.History),
	))
	defer span.End()

	res, err := a.run(ctx, span, query, ro)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if res != nil {
		span.SetAttributes(attribute.Int("agent.response_length", len(res.Response)))
	}
	return res, err
}

func (a *Agent) run(ctx context.Context, span trace.Span, query string, ro RunOptions) (*core.Result, error) {
	const op = "agent.Run"

	if strings.TrimSpace(query) == "" {
		return nil, core.InvalidInputError(op, "query must not be empty")
	}

	var history []core.Message
	if ro.History && a.memory != nil {
		msgs, err := a.memory.Get(ctx, ro.Query)
		if err != nil {
			return nil, err
		}
		if a.window > 0 && len(msgs) > a.window {
			msgs = msgs[len(msgs)-a.window:]
		}
		history = msgs
	}
	span.SetAttributes(attribute.Int("agent.history_length", len(history)))

	params := a.cfg.Defaults()
	maps.Copy(params, ro.Params)

	a.logger.Debug("agent run started", "history", len(history), "params", len(params))
	done := logging.StartTimer(a.logger, "agent.run")
	res, err := a.runner.Run(ctx, query, core.RunOptions{History: history, Params: params})
	done()
	if err != nil {
		if core.KindOf(err) == core.KindOther {
			err = core.RunnerError(op, err)
		}
		a.logger.Warn("agent run failed", "error", err.Error())
		return nil, err
	}
	if res == nil {
		return nil, core.RunnerError(op, errors.New("runner returned no result"))
	}

	if err := ctx.Err(); err != nil {
		a.logger.Debug("agent run cancelled, exchange not recorded", "error", err.Error())
		return nil, err
	}
	if a.memory == nil {
		return res, nil
	}

	if err := a.memory.AddExchange(context.WithoutCancel(ctx), query, res.Response, res.Metadata); err != nil {
		recErr := &RecordError{Err: err}
		a.logger.Warn("failed to record exchange", "user_id", a.memory.UserID(), "error", err.Error())
		if a.strict {
			return nil, recErr
		}
		return res, recErr
	}
	return res, nil
}
